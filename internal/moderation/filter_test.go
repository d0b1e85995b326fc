package moderation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWords struct {
	words []string
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (s *stubWords) GetBlockedWords(ctx context.Context) ([]string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.words, s.err
}

func (s *stubWords) AddBlockedWord(ctx context.Context, word string, addedBy int64) error {
	return nil
}

func (s *stubWords) RemoveBlockedWord(ctx context.Context, word string) error { return nil }

func TestFilter_Match(t *testing.T) {
	f := NewFilter(&stubWords{words: []string{"spam", "free money"}})
	ctx := context.Background()

	tests := []struct {
		text string
		want string
	}{
		{"hello there", ""},
		{"this is SPAM!", "spam"},
		{"get FREE Money now", "free money"},
		{"antispambot", "spam"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := f.Match(ctx, tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestFilter_StoreError(t *testing.T) {
	f := NewFilter(&stubWords{err: errors.New("db down")})

	blocked, err := f.Contains(context.Background(), "anything")
	assert.Error(t, err)
	assert.False(t, blocked)
}

func TestFilter_EmptyTextSkipsStore(t *testing.T) {
	store := &stubWords{words: []string{"x"}}
	f := NewFilter(store)

	blocked, err := f.Contains(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.Equal(t, int32(0), store.calls.Load())
}

func TestFilter_ConcurrentLoadsShareOneCall(t *testing.T) {
	store := &stubWords{words: []string{"bad"}, delay: 50 * time.Millisecond}
	f := NewFilter(store)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blocked, err := f.Contains(context.Background(), "bad words")
			assert.NoError(t, err)
			assert.True(t, blocked)
		}()
	}
	wg.Wait()

	assert.Less(t, store.calls.Load(), int32(10))
}
