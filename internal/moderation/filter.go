package moderation

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"anonpair/backend/internal/storage"
)

// Filter checks message text against the blocked word set.
type Filter struct {
	words storage.WordStore
	group singleflight.Group
}

func NewFilter(words storage.WordStore) *Filter {
	return &Filter{words: words}
}

// Match returns the first blocked word found in text as a case-insensitive
// substring, or "" when the text is clean.
func (f *Filter) Match(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	words, err := f.load(ctx)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(text)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return w, nil
		}
	}
	return "", nil
}

// Contains reports whether text holds any blocked word.
func (f *Filter) Contains(ctx context.Context, text string) (bool, error) {
	w, err := f.Match(ctx, text)
	return w != "", err
}

// load collapses concurrent reads of the word set into one store call.
func (f *Filter) load(ctx context.Context) ([]string, error) {
	v, err, _ := f.group.Do("blocked_words", func() (any, error) {
		return f.words.GetBlockedWords(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load blocked words: %w", err)
	}
	words, _ := v.([]string)
	return words, nil
}
