package chathub

import (
	"context"
	"fmt"

	"anonpair/backend/internal/models"
)

// Transport is the outbound side of the messaging platform.
type Transport interface {
	SendText(ctx context.Context, to int64, text string) error
	SendMedia(ctx context.Context, to int64, content models.Content) error
	CopyMessage(ctx context.Context, to int64, fromChat int64, messageID int) error
}

// ContentFilter reports whether text contains blocked words.
type ContentFilter interface {
	Contains(ctx context.Context, text string) (bool, error)
}

// RateLimiter admits or rejects a user's next message.
type RateLimiter interface {
	Allow(userID int64) bool
	Forget(userID int64)
}

// Mirror receives a copy of every delivered message for oversight.
// Implementations must not block.
type Mirror interface {
	MirrorRelay(room models.ChatRoom, record models.ChatHistory, content models.Content)
}

// Notifier tells users about pairing events they did not trigger themselves.
type Notifier interface {
	Matched(ctx context.Context, userID, partnerID int64, roomID string) error
	PartnerLeft(ctx context.Context, userID int64, roomID string) error
	// SearchDropped tells a waiting user their search was removed from the
	// pool, with the reason as a find status.
	SearchDropped(ctx context.Context, userID int64, status FindStatus) error
}

// deliver sends content to a user with the primitive that fits its kind.
// Kinds the transport has no builder for are copied by message reference.
func deliver(ctx context.Context, t Transport, to int64, c models.Content) error {
	switch {
	case c.Kind == models.KindText:
		if c.Text == "" {
			return fmt.Errorf("empty text message")
		}
		return t.SendText(ctx, to, c.Text)
	case c.Kind.IsMedia():
		if c.FileID == "" {
			return fmt.Errorf("%s without file id", c.Kind)
		}
		return t.SendMedia(ctx, to, c)
	default:
		if c.SourceChatID == 0 || c.SourceMessageID == 0 {
			return fmt.Errorf("cannot copy %s message without a source reference", c.Kind)
		}
		return t.CopyMessage(ctx, to, c.SourceChatID, c.SourceMessageID)
	}
}
