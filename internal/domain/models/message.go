package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Message type tags. A message is addressed either to a group or to a single
// recipient, never both and never neither.
const (
	MessageTypeGroup   = "group"
	MessageTypePrivate = "private"
)

// MaxMessageLen caps message content length in characters.
const MaxMessageLen = 1000

// Message is one persisted chat message. IDs are UUIDv7 so that
// lexicographic order tracks creation time.
//
// Exactly one of GroupID / RecipientID is set, matching Type.
type Message struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	SenderID    string    `gorm:"size:36;not null;index" json:"senderId"`
	GroupID     *string   `gorm:"size:36;index" json:"groupId"`
	RecipientID *string   `gorm:"size:36;index" json:"recipientId"`
	Type        string    `gorm:"size:10;not null" json:"type"`
	Content     string    `gorm:"size:1000;not null" json:"content"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}

// TableName returns the table name for the Message model.
func (Message) TableName() string { return "messages" }

var (
	ErrMissingTarget  = errors.New("target id is required")
	ErrEmptyContent   = errors.New("message content cannot be empty")
	ErrContentTooLong = errors.New("message content cannot exceed 1000 characters")
	ErrBadMessageType = errors.New(`invalid message type: must be "group" or "private"`)
)

// ValidateMessage checks a send request against the message invariants.
// It returns the first violation found, or nil when the payload is sendable.
func ValidateMessage(targetID, msgType, content string) error {
	if strings.TrimSpace(targetID) == "" {
		return ErrMissingTarget
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxMessageLen {
		return ErrContentTooLong
	}
	if msgType != MessageTypeGroup && msgType != MessageTypePrivate {
		return ErrBadMessageType
	}
	return nil
}
