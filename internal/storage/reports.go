package storage

import (
	"context"
	"fmt"
	"time"

	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
)

func (s *Service) SaveReport(ctx context.Context, report *models.Report) error {
	if err := s.DB.WithContext(ctx).Create(report).Error; err != nil {
		logger.Error("failed to save report", "room", report.RoomID, "err", err)
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// CountReportersSince counts the distinct users who reported reportedID at or
// after since. Repeated reports from one user count once.
func (s *Service) CountReportersSince(ctx context.Context, reportedID int64, since time.Time) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Report{}).
		Where("reported_id = ? AND created_at >= ?", reportedID, since.UTC()).
		Distinct("reporter_id").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count reports for %d: %w", reportedID, err)
	}
	return n, nil
}

func (s *Service) ListReports(ctx context.Context, onlyPending bool, limit int) ([]models.Report, error) {
	var reports []models.Report
	q := s.DB.WithContext(ctx).Order("created_at desc")
	if onlyPending {
		q = q.Where("reviewed = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// MarkReportReviewed flags a report as handled. It reports false when no
// report has that id.
func (s *Service) MarkReportReviewed(ctx context.Context, reportID string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Report{}).
		Where("report_id = ?", reportID).
		Update("reviewed", true)
	if res.Error != nil {
		return false, fmt.Errorf("review report %s: %w", reportID, res.Error)
	}
	return res.RowsAffected > 0, nil
}
