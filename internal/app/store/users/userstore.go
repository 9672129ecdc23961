package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/ghostwire/internal/app/system/normalize"
	"github.com/dalemusser/ghostwire/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store provides access to the users table.
type Store struct {
	db *gorm.DB
}

// New constructs a user Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an
	// email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
)

// Create inserts a new user after normalizing and validating fields.
// The caller supplies an already-hashed password.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = uuid.NewString()
	u.Username = normalize.Name(u.Username)
	u.Email = normalize.Email(u.Email)

	if err := models.ValidateUsername(u.Username); err != nil {
		return models.User{}, err
	}
	if err := models.ValidateEmail(u.Email); err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetByID loads a user by id.
func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", normalize.Email(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// Search returns up to limit users whose username or email contains term.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(term) + "%"
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("username LIKE ? OR email LIKE ?", pattern, pattern).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

// ProfileUpdate carries the mutable profile fields. Nil pointers leave the
// current value untouched; AvatarURL/Color may be set to empty to clear.
type ProfileUpdate struct {
	Username  *string
	AvatarURL *string
	Color     *string
}

// UpdateProfile applies a partial profile update and returns the fresh row.
func (s *Store) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*models.User, error) {
	set := map[string]any{"updated_at": time.Now().UTC()}
	if upd.Username != nil {
		name := normalize.Name(*upd.Username)
		if err := models.ValidateUsername(name); err != nil {
			return nil, err
		}
		set["username"] = name
	}
	if upd.AvatarURL != nil {
		set["avatar_url"] = *upd.AvatarURL
	}
	if upd.Color != nil {
		set["color"] = *upd.Color
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(set)
	if res.Error != nil {
		return nil, fmt.Errorf("update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// isUniqueViolation matches the sqlite driver's unique-constraint error text,
// which gorm does not always translate to ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
