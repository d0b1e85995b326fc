package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
)

func (s *Service) InsertRoom(ctx context.Context, room *models.ChatRoom) error {
	if err := s.DB.WithContext(ctx).Create(room).Error; err != nil {
		return fmt.Errorf("insert room %s: %w", room.RoomID, err)
	}
	return nil
}

// GetRoom returns nil, nil when the room does not exist.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return &room, nil
}

func (s *Service) UpdateRoom(ctx context.Context, roomID string, fields map[string]any) error {
	err := s.DB.WithContext(ctx).Model(&models.ChatRoom{}).
		Where("room_id = ?", roomID).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("update room %s: %w", roomID, err)
	}
	return nil
}

func (s *Service) DeleteRoom(ctx context.Context, roomID string) error {
	if err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).Delete(&models.ChatRoom{}).Error; err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return nil
}

// CloseRoom archives the room: IsActive = false, EndedAt set.
func (s *Service) CloseRoom(ctx context.Context, roomID string, endedAt time.Time, messageCount int) error {
	return s.UpdateRoom(ctx, roomID, map[string]any{
		"is_active":     false,
		"ended_at":      endedAt,
		"message_count": messageCount,
	})
}

// GetActiveRooms returns every room that has not been closed.
func (s *Service) GetActiveRooms(ctx context.Context) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("started_at asc").Find(&rooms).Error; err != nil {
		logger.Error("failed to retrieve active rooms", "err", err)
		return nil, fmt.Errorf("get active rooms: %w", err)
	}
	return rooms, nil
}
