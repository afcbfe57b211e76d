package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/reelgate/reelgate/internal/models"
	apperrors "github.com/reelgate/reelgate/pkg/errors"
)

// UserStore persists user records and their lifecycle state.
type UserStore interface {
	// FindByEmail returns the user registered under email, or
	// apperrors.ErrNotFound when no such account exists.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByID returns the user with the given identifier.
	FindByID(ctx context.Context, id string) (*models.User, error)
	// Create persists a new user together with its profile in a single
	// transaction. A duplicate email surfaces as apperrors.ErrEmailTaken.
	Create(ctx context.Context, user *models.User) error
	// Save writes back every field of an already persisted user.
	Save(ctx context.Context, user *models.User) error
	// UpdateFields applies a partial column update to the identified user.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
}

// GormUserStore implements UserStore on top of gorm.
type GormUserStore struct {
	db *gorm.DB
}

// NewGormUserStore constructs a gorm-backed user store.
func NewGormUserStore(db *gorm.DB) (*GormUserStore, error) {
	if db == nil {
		return nil, errors.New("user store: db is required")
	}
	return &GormUserStore{db: db}, nil
}

// FindByEmail looks up a user by email, case-insensitively.
func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.ErrNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Where("LOWER(email) = ?", email).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user store: find by email: %w", err)
	}
	return &user, nil
}

// FindByID loads a user by identifier including the owned profile.
func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ErrNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user store: find by id: %w", err)
	}
	return &user, nil
}

// Create inserts the user and its profile atomically.
func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("user store: user is required")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return apperrors.ErrEmailTaken
		}
		return fmt.Errorf("user store: create user: %w", err)
	}
	return nil
}

// Save persists the full user record.
func (s *GormUserStore) Save(ctx context.Context, user *models.User) error {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return errors.New("user store: persisted user is required")
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return apperrors.ErrEmailTaken
		}
		return fmt.Errorf("user store: save user: %w", err)
	}
	return nil
}

// UpdateFields applies a partial update and reports ErrNotFound when the
// user does not exist.
func (s *GormUserStore) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.ErrNotFound
	}
	if len(fields) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("user store: update fields: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
