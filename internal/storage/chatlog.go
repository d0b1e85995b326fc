package storage

import (
	"context"
	"fmt"

	"anonpair/backend/internal/models"
)

func (s *Service) AppendChatLog(ctx context.Context, entry *models.ChatHistory) error {
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append chat log for room %s: %w", entry.RoomID, err)
	}
	return nil
}

// QueryChatLog returns the room's messages oldest first. With limit > 0 only
// the newest limit messages are returned, still oldest first.
func (s *Service) QueryChatLog(ctx context.Context, roomID string, limit int) ([]models.ChatHistory, error) {
	var history []models.ChatHistory

	q := s.DB.WithContext(ctx).Where("room_id = ?", roomID)
	if limit > 0 {
		q = q.Order("sent_at desc").Order("id desc").Limit(limit)
	} else {
		q = q.Order("sent_at asc").Order("id asc")
	}
	if err := q.Find(&history).Error; err != nil {
		return nil, fmt.Errorf("query chat log for room %s: %w", roomID, err)
	}

	if limit > 0 {
		for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
			history[i], history[j] = history[j], history[i]
		}
	}
	return history, nil
}
