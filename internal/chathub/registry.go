package chathub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nanoid "github.com/jaevor/go-nanoid"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/storage"
)

var (
	ErrAlreadyInRoom  = errors.New("user already has an active room")
	ErrSelfMatch      = errors.New("cannot pair a user with themselves")
	ErrMalformedRoom  = errors.New("room does not have two distinct participants")
	ErrCandidateGone  = errors.New("candidate left the waiting pool")
	ErrRoomIDConflict = errors.New("room id already in use")
)

const roomAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRoomIDGenerator returns a generator of short lowercase room tokens.
func NewRoomIDGenerator() (func() string, error) {
	return nanoid.CustomASCII(roomAlphabet, config.RoomIDLength)
}

// RoomRegistry owns the active rooms and the user to room index. Every
// mutation of the index, and every pool change that depends on it, happens
// under mu so a user is never both pooled and in a room. Room inserts run
// outside mu; their users are reserved in pending until the insert returns.
type RoomRegistry struct {
	mu      sync.RWMutex
	rooms   map[string]*models.ChatRoom
	index   map[int64]string
	pending map[int64]string
	held    map[string]struct{}

	pool  *WaitingPool
	store storage.RoomStore
	newID func() string
	now   func() time.Time
}

func NewRoomRegistry(pool *WaitingPool, store storage.RoomStore, newID func() string) *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[string]*models.ChatRoom),
		index:   make(map[int64]string),
		pending: make(map[int64]string),
		held:    make(map[string]struct{}),
		pool:    pool,
		store:   store,
		newID:   newID,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (r *RoomRegistry) WithClock(now func() time.Time) *RoomRegistry {
	r.now = now
	return r
}

// CreateRoom pairs a and b unconditionally, as long as neither is already in a room.
func (r *RoomRegistry) CreateRoom(ctx context.Context, a, b int64) (string, error) {
	r.mu.Lock()
	res, err := r.reserveLocked(a, b)
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	return r.persist(ctx, res)
}

// CreateMatch pairs requester with candidate only if candidate is still
// waiting. This is the check that makes double matching impossible.
func (r *RoomRegistry) CreateMatch(ctx context.Context, requester, candidate int64) (string, error) {
	r.mu.Lock()
	if requester != candidate && !r.pool.Contains(candidate) {
		r.mu.Unlock()
		return "", ErrCandidateGone
	}
	res, err := r.reserveLocked(requester, candidate)
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	return r.persist(ctx, res)
}

// reservation is a room whose insert is in flight.
type reservation struct {
	room *models.ChatRoom
	// waiting holds the pool entries taken from the participants, put back
	// if the insert fails.
	waiting []PoolEntry
}

func (r *RoomRegistry) reserveLocked(a, b int64) (*reservation, error) {
	if a == b {
		return nil, ErrSelfMatch
	}
	for _, u := range [2]int64{a, b} {
		if r.busyLocked(u) {
			return nil, fmt.Errorf("%w: %d", ErrAlreadyInRoom, u)
		}
	}

	roomID := r.newID()
	_, active := r.rooms[roomID]
	_, held := r.held[roomID]
	if active || held {
		return nil, fmt.Errorf("%w: %s", ErrRoomIDConflict, roomID)
	}

	res := &reservation{room: &models.ChatRoom{
		RoomID:    roomID,
		User1ID:   a,
		User2ID:   b,
		IsActive:  true,
		StartedAt: r.now().UTC(),
	}}
	for _, u := range [2]int64{a, b} {
		if e, ok := r.pool.take(u); ok {
			res.waiting = append(res.waiting, e)
		}
		r.pending[u] = roomID
	}
	r.held[roomID] = struct{}{}
	return res, nil
}

// persist inserts the reserved room, then commits it to the index or
// releases the reservation.
func (r *RoomRegistry) persist(ctx context.Context, res *reservation) (string, error) {
	room := res.room
	err := r.store.InsertRoom(ctx, room)

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.held, room.RoomID)
	for _, u := range room.Participants() {
		delete(r.pending, u)
	}
	if err != nil {
		for _, e := range res.waiting {
			r.pool.restore(e)
		}
		return "", fmt.Errorf("persist room: %w", err)
	}

	r.rooms[room.RoomID] = room
	r.index[room.User1ID] = room.RoomID
	r.index[room.User2ID] = room.RoomID

	logger.Info("room created", "room", room.RoomID, "user1", room.User1ID, "user2", room.User2ID)
	return room.RoomID, nil
}

// busyLocked reports whether the user is in a room or about to be.
func (r *RoomRegistry) busyLocked(userID int64) bool {
	_, inRoom := r.index[userID]
	_, reserved := r.pending[userID]
	return inRoom || reserved
}

// Enqueue puts the request into the waiting pool unless the user is in a room.
func (r *RoomRegistry) Enqueue(req FindRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busyLocked(req.UserID) {
		return ErrAlreadyInRoom
	}
	r.pool.Add(req)
	return nil
}

// CloseRoom archives the room and unmaps both participants. Closing an
// unknown or already closed room returns nil, nil.
func (r *RoomRegistry) CloseRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil
	}

	endedAt := r.now().UTC()
	if err := r.store.CloseRoom(ctx, roomID, endedAt, room.MessageCount); err != nil {
		return nil, fmt.Errorf("archive room %s: %w", roomID, err)
	}

	delete(r.rooms, roomID)
	for _, u := range room.Participants() {
		if r.index[u] == roomID {
			delete(r.index, u)
		}
	}

	closed := *room
	closed.IsActive = false
	closed.EndedAt = &endedAt
	closed.Messages = append([]models.ChatHistory(nil), room.Messages...)

	logger.Info("room closed", "room", roomID, "messages", closed.MessageCount)
	return &closed, nil
}

// RoomFor returns the active room of a user.
func (r *RoomRegistry) RoomFor(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.index[userID]
	return id, ok
}

// Busy reports whether the user is in a room or one is being created for them.
func (r *RoomRegistry) Busy(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.busyLocked(userID)
}

// ActiveRoom returns a copy of an active room held in memory.
func (r *RoomRegistry) ActiveRoom(roomID string) (*models.ChatRoom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	cp := *room
	cp.Messages = append([]models.ChatHistory(nil), room.Messages...)
	return &cp, true
}

// GetRoom returns the room from memory, or from the store for archived rooms.
// It returns nil, nil for unknown ids.
func (r *RoomRegistry) GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	if room, ok := r.ActiveRoom(roomID); ok {
		return room, nil
	}
	room, err := r.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return room, nil
}

// AppendMessage adds a relay record to an active room's in-memory log.
func (r *RoomRegistry) AppendMessage(roomID string, record models.ChatHistory) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	room.Messages = append(room.Messages, record)
	room.MessageCount++
	return true
}

// ActiveRooms returns copies of all active rooms without their message logs.
func (r *RoomRegistry) ActiveRooms() []models.ChatRoom {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ChatRoom, 0, len(r.rooms))
	for _, room := range r.rooms {
		cp := *room
		cp.Messages = nil
		out = append(out, cp)
	}
	return out
}

// Restore loads the active rooms persisted by a previous run. Malformed rows
// and rows that reuse an already mapped user are skipped and logged.
func (r *RoomRegistry) Restore(ctx context.Context) (int, error) {
	rooms, err := r.store.GetActiveRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore rooms: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for i := range rooms {
		room := rooms[i]
		if !room.Valid() {
			logger.Error("skipping malformed room", "room", room.RoomID, "err", ErrMalformedRoom)
			continue
		}
		if _, ok := r.rooms[room.RoomID]; ok {
			continue
		}
		_, busy1 := r.index[room.User1ID]
		_, busy2 := r.index[room.User2ID]
		if busy1 || busy2 {
			logger.Error("skipping conflicting room", "room", room.RoomID, "err", ErrAlreadyInRoom)
			continue
		}

		room.Messages = nil
		r.rooms[room.RoomID] = &room
		r.index[room.User1ID] = room.RoomID
		r.index[room.User2ID] = room.RoomID
		r.pool.Remove(room.User1ID)
		r.pool.Remove(room.User2ID)
		restored++
	}

	logger.Info("recovery complete", "restored", restored, "found", len(rooms))
	return restored, nil
}
