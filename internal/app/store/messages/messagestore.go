package messagestore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/ghostwire/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store provides durable, time-ordered persistence of chat messages.
type Store struct {
	db *gorm.DB
}

// New constructs a message Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// EnrichedMessage is a persisted message joined with the sender's display
// metadata. This is the wire shape for history and new_message events; the
// id doubles as the consumer-side de-duplication key.
type EnrichedMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	TargetID  string    `json:"targetId"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatarUrl"`
	Color     *string   `json:"color"`
}

// Create validates and inserts one message row. IDs are UUIDv7, so ids sort
// by creation time. Exactly one of group/recipient is populated from
// targetID according to msgType.
func (s *Store) Create(ctx context.Context, senderID, targetID, msgType, content string) (models.Message, error) {
	if err := models.ValidateMessage(targetID, msgType, content); err != nil {
		return models.Message{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.Message{}, fmt.Errorf("generate message id: %w", err)
	}

	m := models.Message{
		ID:        id.String(),
		SenderID:  senderID,
		Type:      msgType,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if msgType == models.MessageTypeGroup {
		m.GroupID = &targetID
	} else {
		m.RecipientID = &targetID
	}

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// historyRow is the scan target for the history join.
type historyRow struct {
	ID        string
	SenderID  string
	GroupID   *string
	Content   string
	Type      string
	CreatedAt time.Time
	Username  string
	AvatarURL *string
	Color     *string
}

// GroupHistory returns the most recent limit messages for the group,
// ordered oldest to newest, enriched with sender metadata.
func (s *Store) GroupHistory(ctx context.Context, groupID string, limit int) ([]EnrichedMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []historyRow
	err := s.db.WithContext(ctx).
		Table("messages m").
		Select("m.id, m.sender_id, m.group_id, m.content, m.type, m.created_at, u.username, u.avatar_url, u.color").
		Joins("JOIN users u ON u.id = m.sender_id").
		Where("m.group_id = ?", groupID).
		Order("m.created_at DESC, m.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load group history: %w", err)
	}

	// Query takes the newest rows; reverse into oldest-to-newest for display.
	out := make([]EnrichedMessage, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = EnrichedMessage{
			ID:        r.ID,
			SenderID:  r.SenderID,
			TargetID:  groupID,
			Content:   r.Content,
			Type:      r.Type,
			CreatedAt: r.CreatedAt,
			Username:  r.Username,
			AvatarURL: r.AvatarURL,
			Color:     r.Color,
		}
	}
	return out, nil
}

// CountByGroup returns the number of messages persisted for a group.
func (s *Store) CountByGroup(ctx context.Context, groupID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("group_id = ?", groupID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// Enrich joins a freshly persisted message with its sender's current display
// metadata. Sender data is read at call time, not cached, so profile edits
// show up in the very next message.
func Enrich(m models.Message, sender *models.User) EnrichedMessage {
	target := ""
	if m.GroupID != nil {
		target = *m.GroupID
	} else if m.RecipientID != nil {
		target = *m.RecipientID
	}
	return EnrichedMessage{
		ID:        m.ID,
		SenderID:  m.SenderID,
		TargetID:  target,
		Content:   m.Content,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
		Username:  sender.Username,
		AvatarURL: sender.AvatarURL,
		Color:     sender.Color,
	}
}
