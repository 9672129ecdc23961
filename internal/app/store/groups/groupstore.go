package groupstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/ghostwire/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store provides access to the groups table and the create-with-members
// transaction.
type Store struct {
	db *gorm.DB
}

// New constructs a group Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var (
	// ErrGroupLimitReached is returned when the admin already owns the
	// maximum number of groups.
	ErrGroupLimitReached = fmt.Errorf("group creation limit reached (max %d groups)", models.MaxGroupsPerAdmin)
	// ErrNotFound is returned when no group matches the lookup.
	ErrNotFound = errors.New("group not found")
)

// GetByID loads a group by id.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Group, error) {
	var g models.Group
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get group by id: %w", err)
	}
	return &g, nil
}

// CountByAdmin returns how many groups adminID currently administers.
func (s *Store) CountByAdmin(ctx context.Context, adminID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Group{}).
		Where("admin_id = ?", adminID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count groups by admin: %w", err)
	}
	return n, nil
}

// Create inserts the group, the creator's membership, and any extra member
// rows inside one transaction. The per-admin limit is re-checked inside the
// transaction so two concurrent creations cannot both slip past the cap.
//
// The returned group carries its generated id and timestamps.
func (s *Store) Create(ctx context.Context, g models.Group, extraMemberIDs []string) (models.Group, error) {
	if err := models.ValidateGroup(g.Name, g.Description, g.AdminID); err != nil {
		return models.Group{}, err
	}

	g.ID = uuid.NewString()
	g.Name = strings.TrimSpace(g.Name)
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.Group{}).
			Where("admin_id = ?", g.AdminID).Count(&owned).Error; err != nil {
			return fmt.Errorf("count admin groups: %w", err)
		}
		if owned >= models.MaxGroupsPerAdmin {
			return ErrGroupLimitReached
		}

		if err := tx.Create(&g).Error; err != nil {
			return fmt.Errorf("insert group: %w", err)
		}

		// The creator is always a member; extras are deduplicated so a
		// repeated id cannot trip the membership unique index.
		members := []models.GroupMember{{GroupID: g.ID, UserID: g.AdminID, CreatedAt: now}}
		seen := map[string]bool{g.AdminID: true}
		for _, uid := range extraMemberIDs {
			if seen[uid] {
				continue
			}
			seen[uid] = true
			members = append(members, models.GroupMember{GroupID: g.ID, UserID: uid, CreatedAt: now})
		}
		if err := tx.Create(&members).Error; err != nil {
			return fmt.Errorf("insert memberships: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// FindUserGroups returns the groups the user belongs to.
func (s *Store) FindUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Joins("JOIN group_members gm ON gm.group_id = groups.id").
		Where("gm.user_id = ?", userID).
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("find user groups: %w", err)
	}
	return groups, nil
}
