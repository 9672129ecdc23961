package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Group represents a chat group (room) owned by exactly one admin.
//
// The admin is set at creation time and never changes. The creator is always
// a member; membership rows live in the group_members table.
type Group struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:50;not null" json:"name"`
	Description string    `gorm:"size:200" json:"description"`
	AdminID     string    `gorm:"size:36;not null;index" json:"admin_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Group model.
func (Group) TableName() string { return "groups" }

// MaxGroupsPerAdmin is the hard cap on groups a single user may administer
// concurrently.
const MaxGroupsPerAdmin = 5

var (
	ErrBadGroupName      = errors.New("group name must be between 3 and 50 characters")
	ErrBadGroupDesc      = errors.New("group description cannot exceed 200 characters")
	ErrMissingAdminID    = errors.New("admin id cannot be empty")
)

// ValidateGroup checks the group field invariants before persistence.
func ValidateGroup(name, description, adminID string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(name)); n < 3 || n > 50 {
		return ErrBadGroupName
	}
	if utf8.RuneCountInString(description) > 200 {
		return ErrBadGroupDesc
	}
	if strings.TrimSpace(adminID) == "" {
		return ErrMissingAdminID
	}
	return nil
}

// IsAdmin reports whether userID owns the group.
func (g *Group) IsAdmin(userID string) bool {
	return g.AdminID == userID
}
