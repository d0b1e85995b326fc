package models

import "time"

// ChatRoom represents a 1-on-1 anonymous conversation between two users.
// Rooms are archived on close instead of being deleted.
type ChatRoom struct {
	// RoomID is the short random token identifying the room.
	RoomID string `gorm:"primaryKey;size:16" json:"room_id"`
	// User1ID is the user whose search created the room.
	User1ID int64 `gorm:"index" json:"user1_id"`
	// User2ID is the partner picked from the waiting pool.
	User2ID int64 `gorm:"index" json:"user2_id"`
	// IsActive is true from creation until the room is closed.
	IsActive bool `gorm:"index" json:"is_active"`
	// StartedAt is the timestamp when the room was created.
	StartedAt time.Time `json:"started_at"`
	// EndedAt is set when the room is closed.
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// MessageCount is the number of messages relayed while the room was open.
	MessageCount int `json:"message_count"`

	// Messages is the in-memory relay log of an active room.
	Messages []ChatHistory `gorm:"-" json:"-"`
}

// Partner returns the other participant of the room.
func (r *ChatRoom) Partner(userID int64) (int64, bool) {
	switch userID {
	case r.User1ID:
		return r.User2ID, r.User2ID != 0 && r.User2ID != userID
	case r.User2ID:
		return r.User1ID, r.User1ID != 0
	}
	return 0, false
}

// Participants returns both user ids in creation order.
func (r *ChatRoom) Participants() [2]int64 {
	return [2]int64{r.User1ID, r.User2ID}
}

// Valid reports whether the room has two distinct, non-zero participants.
func (r *ChatRoom) Valid() bool {
	return r.RoomID != "" && r.User1ID != 0 && r.User2ID != 0 && r.User1ID != r.User2ID
}
