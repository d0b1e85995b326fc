package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
)

// profileColumns are the columns UpsertProfile is allowed to touch.
var profileColumns = map[string]bool{
	"username": true,
	"name":     true,
	"phone":    true,
	"gender":   true,
	"region":   true,
	"country":  true,
	"language": true,
}

// ErrUnknownField is returned when UpsertProfile gets a column it does not manage.
var ErrUnknownField = errors.New("unknown profile field")

// GetProfile returns nil, nil when the user has no profile yet.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %d: %w", userID, err)
	}
	return &user, nil
}

// EnsureProfile creates an empty profile on first contact. The bool reports
// whether a row was created.
func (s *Service) EnsureProfile(ctx context.Context, userID int64, username, name string) (*models.User, bool, error) {
	db := s.DB.WithContext(ctx)
	user := models.User{ID: userID, Username: username, Name: name}

	created, err := insertUser(db, &user)
	if err != nil {
		return nil, false, fmt.Errorf("ensure profile %d: %w", userID, err)
	}
	if created {
		logger.Info("new user saved", "user", userID)
		return &user, true, nil
	}

	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, false, fmt.Errorf("ensure profile %d: %w", userID, err)
	}
	return &user, false, nil
}

// insertUser creates the row unless the id already exists.
func insertUser(tx *gorm.DB, user *models.User) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpsertProfile writes the given columns, creating the row when missing.
func (s *Service) UpsertProfile(ctx context.Context, userID int64, fields map[string]any) error {
	for k := range fields {
		if !profileColumns[k] {
			return fmt.Errorf("%w: %s", ErrUnknownField, k)
		}
	}
	if len(fields) == 0 {
		return nil
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := insertUser(tx, &models.User{ID: userID}); err != nil {
			return fmt.Errorf("upsert profile %d: %w", userID, err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error; err != nil {
			return fmt.Errorf("upsert profile %d: %w", userID, err)
		}
		return nil
	})
}

func (s *Service) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := insertUser(tx, &models.User{ID: userID}); err != nil {
			return fmt.Errorf("set blocked %d: %w", userID, err)
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("blocked", blocked).Error
	})
}
