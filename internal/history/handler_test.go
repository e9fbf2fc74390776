package history

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eleven-am/voice-scribe/internal/auth"
	"github.com/eleven-am/voice-scribe/internal/shared"
	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *Store) {
	t.Helper()
	store, _ := newTestStore(t)
	return NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func newContext(method, target, userID string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(method, target, nil), rec)
	if userID != "" {
		auth.SetClaimsForTest(c, &auth.Claims{UserID: userID})
	}
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	return c, rec
}

func TestHandler_List(t *testing.T) {
	h, store := newTestHandler(t)
	if err := store.Save(context.Background(), record("user-1", "s1", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tests := []struct {
		name     string
		target   string
		userID   string
		wantCode string
		wantLen  int
	}{
		{name: "list", target: "/history", userID: "user-1", wantLen: 1},
		{name: "with limit", target: "/history?limit=5", userID: "user-1", wantLen: 1},
		{name: "bad limit", target: "/history?limit=abc", userID: "user-1", wantCode: "invalid_limit"},
		{name: "unauthenticated", target: "/history", wantCode: "auth_required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, tt.target, tt.userID)
			err := h.List(c)
			if tt.wantCode != "" {
				if code := shared.CodeOf(err); code != tt.wantCode {
					t.Errorf("expected %s, got %q", tt.wantCode, code)
				}
				return
			}
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var resp ListResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Records) != tt.wantLen {
				t.Errorf("expected %d records, got %d", tt.wantLen, len(resp.Records))
			}
		})
	}
}

func TestHandler_GetAndDelete(t *testing.T) {
	h, store := newTestHandler(t)
	if err := store.Save(context.Background(), record("user-1", "s1", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c, rec := newContext(http.MethodGet, "/history/s1", "user-1", "id", "s1")
	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("expected s1, got %s", got.ID)
	}

	c, rec = newContext(http.MethodDelete, "/history/s1", "user-1", "id", "s1")
	if err := h.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodGet, "/history/s1", "user-1", "id", "s1")
	if code := shared.CodeOf(h.Get(c)); code != "record_not_found" {
		t.Errorf("expected record_not_found, got %q", code)
	}
	c, _ = newContext(http.MethodDelete, "/history/s1", "user-1", "id", "s1")
	if code := shared.CodeOf(h.Delete(c)); code != "record_not_found" {
		t.Errorf("expected record_not_found, got %q", code)
	}
}
