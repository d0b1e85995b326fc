package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ChatHistory is one relayed message in the durable chat log.
// The embedded gorm.Model provides the row id and bookkeeping timestamps.
type ChatHistory struct {
	gorm.Model

	// RoomID is the room the message was relayed in.
	RoomID string `gorm:"size:16;not null;index:idx_room_msg"`
	// SenderID and RecipientID are Telegram user ids.
	SenderID    int64 `gorm:"not null;index:idx_room_msg"`
	RecipientID int64 `gorm:"not null"`
	// Kind is the content kind, e.g. "text" or "photo".
	Kind ContentKind `gorm:"size:32;not null"`
	// FileRef is the Telegram file id for media messages.
	FileRef string `gorm:"type:text"`
	// Text is the message text or the media caption.
	Text string `gorm:"type:text"`
	// SentAt is when the relay accepted the message.
	SentAt time.Time `gorm:"index"`
}

// Render formats the record as one line of a human readable chat log.
func (h ChatHistory) Render() string {
	body := h.Text
	if h.Kind != KindText {
		body = fmt.Sprintf("[%s] %s", h.Kind, h.Text)
	}
	return fmt.Sprintf("%s %d -> %d: %s", h.SentAt.UTC().Format(time.DateTime), h.SenderID, h.RecipientID, body)
}
