package chathub

import (
	"context"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
)

// Inbound is one message a user sent to the bot.
type Inbound struct {
	SenderID int64
	Content  models.Content
	At       time.Time
}

type RelayStatus string

const (
	RelayDelivered      RelayStatus = "delivered"
	RelayNotInRoom      RelayStatus = "not_in_room"
	RelayBlockedContent RelayStatus = "blocked_content"
	RelayRateLimited    RelayStatus = "rate_limited"
	RelayRoomError      RelayStatus = "room_error"
	RelayDeliveryFailed RelayStatus = "delivery_failed"
	RelayFailed         RelayStatus = "failed"
)

// RelayOutcome is the result reported back to the sender.
type RelayOutcome struct {
	Status    RelayStatus
	RoomID    string
	PartnerID int64
	Record    *models.ChatHistory
	Err       error
}

// Rejected reports whether the sender must be told the message did not go through.
func (o RelayOutcome) Rejected() bool {
	return o.Status != RelayDelivered
}

// Relay forwards a message to the sender's partner. The steps run in a fixed
// order and the first failing step decides the outcome:
// room lookup, moderation, rate limit, partner lookup, delivery, audit.
func (m *Manager) Relay(ctx context.Context, in Inbound) RelayOutcome {
	log := logger.With("op", "relay", "user", in.SenderID)

	roomID, ok := m.registry.RoomFor(in.SenderID)
	if !ok {
		return RelayOutcome{Status: RelayNotInRoom}
	}

	if in.Content.Text != "" && m.filter != nil {
		blocked, err := m.filter.Contains(ctx, in.Content.Text)
		if err != nil {
			log.Error("moderation lookup failed", "room", roomID, "err", err)
			return RelayOutcome{Status: RelayFailed, RoomID: roomID, Err: err}
		}
		if blocked {
			log.Debug("blocked content", "room", roomID)
			return RelayOutcome{Status: RelayBlockedContent, RoomID: roomID}
		}
	}

	if m.limiter != nil && !m.limiter.Allow(in.SenderID) {
		return RelayOutcome{Status: RelayRateLimited, RoomID: roomID}
	}

	room, ok := m.registry.ActiveRoom(roomID)
	if !ok {
		return RelayOutcome{Status: RelayNotInRoom}
	}
	partner, ok := room.Partner(in.SenderID)
	if !ok {
		log.Error("cannot resolve partner", "room", roomID, "err", ErrMalformedRoom)
		return RelayOutcome{Status: RelayRoomError, RoomID: roomID, Err: ErrMalformedRoom}
	}

	dctx, cancel := context.WithTimeout(ctx, config.DeliveryTimeout)
	err := deliver(dctx, m.transport, partner, in.Content)
	cancel()
	if err != nil {
		log.Warn("delivery failed", "room", roomID, "partner", partner, "err", err)
		return RelayOutcome{Status: RelayDeliveryFailed, RoomID: roomID, PartnerID: partner, Err: err}
	}

	at := in.At
	if at.IsZero() {
		at = m.now()
	}
	record := models.ChatHistory{
		RoomID:      roomID,
		SenderID:    in.SenderID,
		RecipientID: partner,
		Kind:        in.Content.Kind,
		FileRef:     in.Content.FileID,
		Text:        in.Content.Text,
		SentAt:      at.UTC(),
	}

	m.registry.AppendMessage(roomID, record)
	if m.chatLog != nil {
		if err := m.chatLog.AppendChatLog(ctx, &record); err != nil {
			log.Error("chat log append failed", "room", roomID, "err", err)
		}
	}
	if m.mirror != nil {
		m.mirror.MirrorRelay(*room, record, in.Content)
	}

	return RelayOutcome{Status: RelayDelivered, RoomID: roomID, PartnerID: partner, Record: &record}
}
