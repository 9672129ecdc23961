package models

import "time"

// GroupMember is the authoritative join between users and groups.
// Exactly one row per (group_id, user_id).
type GroupMember struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	GroupID   string    `gorm:"size:36;not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_group_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the GroupMember model.
func (GroupMember) TableName() string { return "group_members" }
