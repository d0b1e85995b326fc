package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm/clause"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
)

const (
	blockedWordsKey       = "blocked_words"
	blockedWordsLoadedKey = "blocked_words:loaded"
)

// NormalizeWord is the canonical form stored in the blocked word set.
func NormalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// GetBlockedWords serves the set from Redis, loading it from the database on
// a cache miss. Redis errors fall back to the database.
func (s *Service) GetBlockedWords(ctx context.Context) ([]string, error) {
	if s.Redis != nil {
		words, ok, err := s.cachedWords(ctx)
		if err == nil && ok {
			return words, nil
		}
		if err != nil {
			logger.Warn("blocked words cache unavailable", "err", err)
		}
	}

	var words []string
	if err := s.DB.WithContext(ctx).Model(&models.BlockedWord{}).Order("word asc").Pluck("word", &words).Error; err != nil {
		return nil, fmt.Errorf("load blocked words: %w", err)
	}

	if s.Redis != nil {
		if err := s.fillWordCache(ctx, words); err != nil {
			logger.Warn("failed to fill blocked words cache", "err", err)
		}
	}
	return words, nil
}

func (s *Service) cachedWords(ctx context.Context) ([]string, bool, error) {
	n, err := s.Redis.Exists(ctx, blockedWordsLoadedKey).Result()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	words, err := s.Redis.SMembers(ctx, blockedWordsKey).Result()
	if err != nil {
		return nil, false, err
	}
	return words, true, nil
}

func (s *Service) fillWordCache(ctx context.Context, words []string) error {
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, blockedWordsKey)
		if len(words) > 0 {
			members := make([]any, len(words))
			for i, w := range words {
				members[i] = w
			}
			pipe.SAdd(ctx, blockedWordsKey, members...)
		}
		pipe.Set(ctx, blockedWordsLoadedKey, "1", config.WordCacheTTL)
		return nil
	})
	return err
}

func (s *Service) AddBlockedWord(ctx context.Context, word string, addedBy int64) error {
	word = NormalizeWord(word)
	if word == "" {
		return fmt.Errorf("blocked word is empty")
	}

	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.BlockedWord{Word: word, AddedBy: addedBy}).Error
	if err != nil {
		return fmt.Errorf("add blocked word: %w", err)
	}

	if s.Redis != nil {
		if err := s.Redis.SAdd(ctx, blockedWordsKey, word).Err(); err != nil {
			logger.Warn("failed to cache blocked word", "err", err)
			s.invalidateWords(ctx)
		}
	}
	return nil
}

func (s *Service) RemoveBlockedWord(ctx context.Context, word string) error {
	word = NormalizeWord(word)
	if err := s.DB.WithContext(ctx).Where("word = ?", word).Delete(&models.BlockedWord{}).Error; err != nil {
		return fmt.Errorf("remove blocked word: %w", err)
	}

	if s.Redis != nil {
		if err := s.Redis.SRem(ctx, blockedWordsKey, word).Err(); err != nil {
			logger.Warn("failed to uncache blocked word", "err", err)
			s.invalidateWords(ctx)
		}
	}
	return nil
}

// invalidateWords drops the loaded marker so the next read reloads from the database.
func (s *Service) invalidateWords(ctx context.Context) {
	_ = s.Redis.Del(ctx, blockedWordsLoadedKey).Err()
}
