package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"anonpair/backend/internal/models"
)

// GrantPremium sets IsPremium with the given expiry, creating the profile if needed.
func (s *Service) GrantPremium(ctx context.Context, userID int64, until time.Time) error {
	until = until.UTC()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := insertUser(tx, &models.User{ID: userID}); err != nil {
			return fmt.Errorf("grant premium %d: %w", userID, err)
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
			"is_premium":     true,
			"premium_expiry": &until,
		}).Error
	})
}

func (s *Service) RevokePremium(ctx context.Context, userID int64) error {
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"is_premium":     false,
		"premium_expiry": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("revoke premium %d: %w", userID, err)
	}
	return nil
}

// ExpirePremium clears premium for every user whose expiry is strictly before
// now and returns the ids that were premium until this sweep. A stale expiry
// left on a non-premium user is cleared too but not reported.
func (s *Service) ExpirePremium(ctx context.Context, now time.Time) ([]int64, error) {
	now = now.UTC()
	var ids []int64

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("is_premium = ? AND premium_expiry IS NOT NULL AND premium_expiry < ?", true, now).
			Order("id asc").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		// The expiry check is repeated so a grant that lands after the
		// select is not undone.
		return tx.Model(&models.User{}).
			Where("premium_expiry IS NOT NULL AND premium_expiry < ?", now).
			Updates(map[string]any{
				"is_premium":     false,
				"premium_expiry": nil,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("expire premium: %w", err)
	}
	return ids, nil
}
