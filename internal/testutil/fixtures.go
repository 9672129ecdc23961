package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/ghostwire/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *gorm.DB
	t  *testing.T
}

// NewFixtures creates a Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *gorm.DB {
	return f.db
}

// CreateUser inserts a user with the given username; email is derived from
// the username so fixtures stay unique within a test.
func (f *Fixtures) CreateUser(ctx context.Context, username string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        fmt.Sprintf("%s@test.com", username),
		PasswordHash: "$2a$10$fixturefixturefixturefixturefix",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.db.WithContext(ctx).Create(&u).Error; err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateGroup inserts a group owned by adminID plus the creator membership.
func (f *Fixtures) CreateGroup(ctx context.Context, name, adminID string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:        uuid.NewString(),
		Name:      name,
		AdminID:   adminID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.db.WithContext(ctx).Create(&g).Error; err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	m := models.GroupMember{GroupID: g.ID, UserID: adminID, CreatedAt: now}
	if err := f.db.WithContext(ctx).Create(&m).Error; err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return g
}

// CreateMessage inserts a group message from senderID with the given content
// and a creation time offset so ordering tests can control history order.
func (f *Fixtures) CreateMessage(ctx context.Context, groupID, senderID, content string, at time.Time) models.Message {
	f.t.Helper()

	id, err := uuid.NewV7()
	if err != nil {
		f.t.Fatalf("failed to generate message id: %v", err)
	}
	m := models.Message{
		ID:        id.String(),
		SenderID:  senderID,
		GroupID:   &groupID,
		Type:      models.MessageTypeGroup,
		Content:   content,
		CreatedAt: at,
	}
	if err := f.db.WithContext(ctx).Create(&m).Error; err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return m
}
