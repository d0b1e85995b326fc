package chathub_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"anonpair/backend/internal/models"
)

// MockRoomStore is a testify mock of storage.RoomStore.
type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) InsertRoom(ctx context.Context, room *models.ChatRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomStore) GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	room, _ := args.Get(0).(*models.ChatRoom)
	return room, args.Error(1)
}

func (m *MockRoomStore) UpdateRoom(ctx context.Context, roomID string, fields map[string]any) error {
	args := m.Called(ctx, roomID, fields)
	return args.Error(0)
}

func (m *MockRoomStore) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockRoomStore) CloseRoom(ctx context.Context, roomID string, endedAt time.Time, messageCount int) error {
	args := m.Called(ctx, roomID, endedAt, messageCount)
	return args.Error(0)
}

func (m *MockRoomStore) GetActiveRooms(ctx context.Context) ([]models.ChatRoom, error) {
	args := m.Called(ctx)
	rooms, _ := args.Get(0).([]models.ChatRoom)
	return rooms, args.Error(1)
}
