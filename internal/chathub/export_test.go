package chathub

import "anonpair/backend/internal/models"

// PutRoomForTest registers a room without any validation.
func (r *RoomRegistry) PutRoomForTest(room *models.ChatRoom) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.RoomID] = room
	r.index[room.User1ID] = room.RoomID
	if room.User2ID != 0 {
		r.index[room.User2ID] = room.RoomID
	}
}
