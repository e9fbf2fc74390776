package user

import (
	"context"
	"errors"

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
	return s.db.AutoMigrate(&User{})
}

func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &u, err
}

// FindOrCreateFromJWT returns the user named by a validated token,
// creating it on first sight and refreshing profile fields that changed.
func (s *Store) FindOrCreateFromJWT(ctx context.Context, userID, email, name, avatar string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error
	if err == nil {
		if u.Email != email || u.Name != name || u.AvatarURL != avatar {
			u.Email = email
			u.Name = name
			u.AvatarURL = avatar
			if err := s.db.WithContext(ctx).Save(&u).Error; err != nil {
				return nil, err
			}
		}
		return &u, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	u = User{
		ID:        userID,
		Email:     email,
		Name:      name,
		AvatarURL: avatar,
	}

	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}

	return &u, nil
}

func (s *Store) SyncFromJWT(ctx context.Context, userID, email, name, avatar string) error {
	_, err := s.FindOrCreateFromJWT(ctx, userID, email, name, avatar)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
