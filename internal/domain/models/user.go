package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// User represents a registered chat user.
//
// NOTE:
//   - PasswordHash is never serialized outward (json:"-").
//   - Group membership is not embedded here; use the group_members table.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"size:20;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	AvatarURL    *string   `gorm:"size:255" json:"avatarUrl"`
	Color        *string   `gorm:"size:20" json:"color"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for the User model.
func (User) TableName() string { return "users" }

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrBadUsername = errors.New("username must be between 3 and 20 characters")
	ErrBadEmail    = errors.New("invalid email format")
)

// ValidateUsername checks the username length constraint (3-20 chars).
func ValidateUsername(name string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(name)); n < 3 || n > 20 {
		return ErrBadUsername
	}
	return nil
}

// ValidateEmail checks that the address has a plausible mailbox@host.tld shape.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return ErrBadEmail
	}
	return nil
}

// Profile is the outward-facing representation of a user, safe to send to
// any client. It never carries the password hash.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	JoinedAt  time.Time `json:"joinedAt"`
	AvatarURL *string   `json:"avatarUrl"`
	Color     *string   `json:"color"`
}

// ToProfile converts a stored user into its outward representation.
func (u *User) ToProfile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		JoinedAt:  u.CreatedAt,
		AvatarURL: u.AvatarURL,
		Color:     u.Color,
	}
}
