package correction

import (
	"context"
	"errors"
	"strings"

	"github.com/eleven-am/voice-scribe/internal/shared"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Correction{})
}

func normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Create stores a mapping. A second mapping for the same incorrect word
// (ignoring case) fails with shared.ErrConflict.
func (s *Store) Create(ctx context.Context, c *Correction) error {
	c.Incorrect = strings.TrimSpace(c.Incorrect)
	c.Correct = strings.TrimSpace(c.Correct)
	c.IncorrectKey = normalize(c.Incorrect)
	if c.ID == "" {
		c.ID = shared.NewID("corr_")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&Correction{}).
		Where("user_id = ? AND incorrect_key = ?", c.UserID, c.IncorrectKey).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrConflict
	}
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]Correction, error) {
	var out []Correction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) Get(ctx context.Context, userID, id string) (*Correction, error) {
	var c Correction
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &c, err
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Correction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
