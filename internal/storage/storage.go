package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"anonpair/backend/internal/models"
)

// ProfileStore reads and writes user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	EnsureProfile(ctx context.Context, userID int64, username, name string) (*models.User, bool, error)
	UpsertProfile(ctx context.Context, userID int64, fields map[string]any) error
	SetBlocked(ctx context.Context, userID int64, blocked bool) error
}

// RoomStore persists chat rooms. Closed rooms are kept as archive rows.
type RoomStore interface {
	InsertRoom(ctx context.Context, room *models.ChatRoom) error
	GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error)
	UpdateRoom(ctx context.Context, roomID string, fields map[string]any) error
	DeleteRoom(ctx context.Context, roomID string) error
	CloseRoom(ctx context.Context, roomID string, endedAt time.Time, messageCount int) error
	GetActiveRooms(ctx context.Context) ([]models.ChatRoom, error)
}

// ChatLogStore is the durable audit log of relayed messages.
type ChatLogStore interface {
	AppendChatLog(ctx context.Context, entry *models.ChatHistory) error
	QueryChatLog(ctx context.Context, roomID string, limit int) ([]models.ChatHistory, error)
}

// WordStore holds the blocked word set.
type WordStore interface {
	GetBlockedWords(ctx context.Context) ([]string, error)
	AddBlockedWord(ctx context.Context, word string, addedBy int64) error
	RemoveBlockedWord(ctx context.Context, word string) error
}

type PremiumStore interface {
	GrantPremium(ctx context.Context, userID int64, until time.Time) error
	RevokePremium(ctx context.Context, userID int64) error
	ExpirePremium(ctx context.Context, now time.Time) ([]int64, error)
}

type ReportStore interface {
	SaveReport(ctx context.Context, report *models.Report) error
	CountReportersSince(ctx context.Context, reportedID int64, since time.Time) (int64, error)
	ListReports(ctx context.Context, onlyPending bool, limit int) ([]models.Report, error)
	MarkReportReviewed(ctx context.Context, reportID string) (bool, error)
}

type StatsStore interface {
	Stats(ctx context.Context) (Stats, error)
}

// Storage is everything the bot needs from persistence.
type Storage interface {
	ProfileStore
	RoomStore
	ChatLogStore
	WordStore
	PremiumStore
	ReportStore
	StatsStore
}

// Stats is a snapshot of table counters for admins.
type Stats struct {
	Users       int64 `json:"users"`
	Premium     int64 `json:"premium"`
	Blocked     int64 `json:"blocked"`
	ActiveRooms int64 `json:"active_rooms"`
	TotalRooms  int64 `json:"total_rooms"`
	Messages    int64 `json:"messages"`
	Reports     int64 `json:"reports"`
}

// Service implements Storage on top of gorm with an optional Redis cache.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}
