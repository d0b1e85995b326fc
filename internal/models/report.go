package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Report is a user's complaint about a partner, with the room's chat log
// captured at the time of the report.
type Report struct {
	ReportID   string `gorm:"primaryKey;size:36"`
	ReporterID int64  `gorm:"index"`
	ReportedID int64  `gorm:"index:idx_reported_created"`
	RoomID     string `gorm:"size:16"`
	Reason     string `gorm:"type:text"`
	// LoggedMessages holds rendered chat log lines.
	LoggedMessages pq.StringArray `gorm:"type:text"`
	Reviewed       bool
	CreatedAt      time.Time `gorm:"index:idx_reported_created"`
}

// BeforeCreate assigns a UUID when ReportID is empty.
func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ReportID == "" {
		r.ReportID = uuid.New().String()
	}
	return
}
