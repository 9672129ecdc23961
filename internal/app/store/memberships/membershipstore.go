package membershipstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/ghostwire/internal/domain/models"
	"gorm.io/gorm"
)

// Store provides access to the group_members join table.
type Store struct {
	db *gorm.DB
}

// New constructs a membership Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ErrDuplicateMembership is returned when the user is already a member of
// the group.
var ErrDuplicateMembership = errors.New("user is already a member of this group")

// Add creates a membership row for (groupID, userID).
func (s *Store) Add(ctx context.Context, groupID, userID string) error {
	m := models.GroupMember{
		GroupID:   groupID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateMembership
		}
		return fmt.Errorf("add membership: %w", err)
	}
	return nil
}

// AddBatchResult contains counts from a batch membership add.
type AddBatchResult struct {
	Added      int
	Duplicates int
}

// AddBatch adds multiple users to a group. Duplicates are counted, not
// treated as errors.
func (s *Store) AddBatch(ctx context.Context, groupID string, userIDs []string) (AddBatchResult, error) {
	var res AddBatchResult
	for _, uid := range userIDs {
		switch err := s.Add(ctx, groupID, uid); {
		case err == nil:
			res.Added++
		case errors.Is(err, ErrDuplicateMembership):
			res.Duplicates++
		default:
			return res, err
		}
	}
	return res, nil
}

// Exists reports whether (groupID, userID) has a membership row.
func (s *Store) Exists(ctx context.Context, groupID, userID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("membership exists: %w", err)
	}
	return n > 0, nil
}

// CountByGroup returns the number of members in a group.
func (s *Store) CountByGroup(ctx context.Context, groupID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}
