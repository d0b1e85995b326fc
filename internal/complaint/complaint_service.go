// Package complaint files user reports and blocks users who collect too
// many of them in a short window.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anonpair/backend/internal/chathub"
	"anonpair/backend/internal/config"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/storage"
)

var ErrSelfReport = errors.New("cannot report yourself")

// Evicter removes a user from matchmaking and closes their room.
type Evicter interface {
	Evict(ctx context.Context, userID int64) chathub.EndResult
}

// Noticer receives admin notices.
type Noticer interface {
	Notice(text string)
}

// Store is the persistence the service needs.
type Store interface {
	storage.ReportStore
	storage.ChatLogStore
	storage.ProfileStore
}

// Request describes one report. RoomID is the room the reporter shared with
// the reported user.
type Request struct {
	ReporterID int64
	ReportedID int64
	RoomID     string
	Reason     string
}

// Result is what happened to a filed report.
type Result struct {
	Report *models.Report
	// Blocked is true when this report pushed the user over the threshold.
	Blocked bool
}

// Service handles the business logic for reports.
type Service struct {
	store     Store
	evicter   Evicter
	notices   Noticer
	threshold int64
	window    time.Duration
	now       func() time.Time
}

// NewService creates a report service with the default auto-block policy.
func NewService(store Store, evicter Evicter, notices Noticer) *Service {
	return &Service{
		store:     store,
		evicter:   evicter,
		notices:   notices,
		threshold: config.ReportBlockThreshold,
		window:    config.ReportWindow,
		now:       time.Now,
	}
}

// WithPolicy overrides the auto-block threshold and window.
func (s *Service) WithPolicy(threshold int64, window time.Duration) *Service {
	s.threshold = threshold
	s.window = window
	return s
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// File stores a report with a snapshot of the room's chat log, notifies
// admins and blocks the reported user once the threshold is reached.
func (s *Service) File(ctx context.Context, req Request) (Result, error) {
	if req.ReporterID == req.ReportedID {
		return Result{}, ErrSelfReport
	}

	var lines []string
	if req.RoomID != "" {
		history, err := s.store.QueryChatLog(ctx, req.RoomID, config.ReportLogLimit)
		if err != nil {
			return Result{}, fmt.Errorf("snapshot chat log: %w", err)
		}
		lines = make([]string, len(history))
		for i, h := range history {
			lines[i] = h.Render()
		}
	}

	report := &models.Report{
		ReporterID:     req.ReporterID,
		ReportedID:     req.ReportedID,
		RoomID:         req.RoomID,
		Reason:         strings.TrimSpace(req.Reason),
		LoggedMessages: lines,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.SaveReport(ctx, report); err != nil {
		return Result{}, err
	}
	logger.Info("report filed", "report", report.ReportID, "reporter", req.ReporterID, "reported", req.ReportedID)
	s.notify(formatReport(report))

	blocked, err := s.checkForBlock(ctx, req.ReportedID)
	if err != nil {
		// The report itself is stored; only the automatic follow-up failed.
		logger.Error("auto-block check failed", "user", req.ReportedID, "err", err)
	}
	return Result{Report: report, Blocked: blocked}, nil
}

// checkForBlock blocks userID when the number of recent reporters reaches the
// threshold. It returns false when the user was already blocked.
func (s *Service) checkForBlock(ctx context.Context, userID int64) (bool, error) {
	if s.threshold <= 0 {
		return false, nil
	}
	n, err := s.store.CountReportersSince(ctx, userID, s.now().Add(-s.window))
	if err != nil {
		return false, err
	}
	if n < s.threshold {
		return false, nil
	}
	u, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	if u != nil && u.Blocked {
		return false, nil
	}
	if err := s.Block(ctx, userID); err != nil {
		return false, err
	}
	s.notify(fmt.Sprintf("User %d was blocked automatically after reports from %d users in %s.", userID, n, s.window))
	return true, nil
}

// Block marks userID as blocked and removes them from matchmaking.
func (s *Service) Block(ctx context.Context, userID int64) error {
	if err := s.store.SetBlocked(ctx, userID, true); err != nil {
		return err
	}
	if s.evicter != nil {
		if res := s.evicter.Evict(ctx, userID); res.Status == chathub.EndFailed {
			logger.Warn("evict after block failed", "user", userID, "err", res.Err)
		}
	}
	logger.Info("user blocked", "user", userID)
	return nil
}

// Unblock lifts a block.
func (s *Service) Unblock(ctx context.Context, userID int64) error {
	if err := s.store.SetBlocked(ctx, userID, false); err != nil {
		return err
	}
	logger.Info("user unblocked", "user", userID)
	return nil
}

func (s *Service) notify(text string) {
	if s.notices != nil {
		s.notices.Notice(text)
	}
}

func formatReport(r *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report %s\nReporter: %d\nReported: %d\n", r.ReportID, r.ReporterID, r.ReportedID)
	if r.RoomID != "" {
		fmt.Fprintf(&b, "Room #%s\n", r.RoomID)
	}
	reason := r.Reason
	if reason == "" {
		reason = "(none)"
	}
	fmt.Fprintf(&b, "Reason: %s\n", reason)
	if len(r.LoggedMessages) == 0 {
		b.WriteString("Chat log: empty")
		return b.String()
	}
	b.WriteString("Chat log:\n")
	b.WriteString(strings.Join(r.LoggedMessages, "\n"))
	return b.String()
}
