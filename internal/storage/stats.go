package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"anonpair/backend/internal/models"
)

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.DB.WithContext(ctx)

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&st.Users, db.Model(&models.User{})},
		{&st.Premium, db.Model(&models.User{}).Where("is_premium = ?", true)},
		{&st.Blocked, db.Model(&models.User{}).Where("blocked = ?", true)},
		{&st.ActiveRooms, db.Model(&models.ChatRoom{}).Where("is_active = ?", true)},
		{&st.TotalRooms, db.Model(&models.ChatRoom{})},
		{&st.Messages, db.Model(&models.ChatHistory{})},
		{&st.Reports, db.Model(&models.Report{})},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return Stats{}, fmt.Errorf("stats: %w", err)
		}
	}
	return st, nil
}
