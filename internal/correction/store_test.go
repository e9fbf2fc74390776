package correction

import (
	"context"
	"errors"
	"testing"

	"github.com/eleven-am/voice-scribe/internal/shared"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store := NewStore(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	return store
}

func TestStore_CreateAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c := &Correction{UserID: "user-1", Incorrect: " wader ", Correct: "water"}
	if err := store.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" {
		t.Error("expected generated id")
	}
	if c.Incorrect != "wader" {
		t.Errorf("expected trimmed incorrect word, got %q", c.Incorrect)
	}

	if err := store.Create(ctx, &Correction{UserID: "user-2", Incorrect: "wader", Correct: "waiter"}); err != nil {
		t.Fatalf("Create for other user: %v", err)
	}

	list, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 1 || list[0].Correct != "water" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestStore_CreateConflict(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &Correction{UserID: "user-1", Incorrect: "Wader", Correct: "water"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := store.Create(ctx, &Correction{UserID: "user-1", Incorrect: "wader", Correct: "waiter"})
	if !errors.Is(err, shared.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestStore_GetAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c := &Correction{UserID: "user-1", Incorrect: "wader", Correct: "water"}
	if err := store.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name    string
		userID  string
		id      string
		wantErr error
	}{
		{name: "other user", userID: "user-2", id: c.ID, wantErr: shared.ErrNotFound},
		{name: "missing id", userID: "user-1", id: "corr_missing", wantErr: shared.ErrNotFound},
		{name: "owner", userID: "user-1", id: c.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Get(ctx, tt.userID, tt.id); !errors.Is(err, tt.wantErr) {
				t.Errorf("Get: expected %v, got %v", tt.wantErr, err)
			}
			if err := store.Delete(ctx, tt.userID, tt.id); !errors.Is(err, tt.wantErr) {
				t.Errorf("Delete: expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := store.Get(ctx, "user-1", c.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected deleted correction to be gone, got %v", err)
	}
}
