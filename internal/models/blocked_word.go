package models

import "time"

// BlockedWord is a lower-cased word that the relay refuses to forward.
type BlockedWord struct {
	Word      string `gorm:"primaryKey;size:191"`
	AddedBy   int64
	CreatedAt time.Time
}
