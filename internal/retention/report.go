package retention

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dbsmedya/goretain/internal/logger"
)

// reportsTable persists the run's final compliance verdict.
const reportsTable = "compliance_reports"

// reportType distinguishes retention reports from other compliance reports
// sharing the table.
const reportType = "DATA_RETENTION"

// ComplianceStatus is the run's final verdict, derived strictly from the
// recorded per-category outcomes.
type ComplianceStatus string

const (
	// StatusCompliant means every category's deletion succeeded.
	StatusCompliant ComplianceStatus = "COMPLIANT"
	// StatusNeedsAttention means at least one category failed or did not
	// fully converge.
	StatusNeedsAttention ComplianceStatus = "NEEDS_ATTENTION"
)

// ProcessSummary aggregates the per-category outcomes.
type ProcessSummary struct {
	TablesProcessed     int   `json:"total_tables_processed"`
	TotalRecordsDeleted int64 `json:"total_records_deleted"`
	SuccessfulDeletions int   `json:"successful_deletions"`
	FailedDeletions     int   `json:"failed_deletions"`
}

// HoldSummary aggregates the legal holds observed at filter time.
type HoldSummary struct {
	CategoriesWithHolds int `json:"tables_with_holds"`
	TotalHolds          int `json:"total_holds"`
}

// ComplianceReport is the persisted record of one retention cycle.
// Derived, written once, never mutated.
type ComplianceReport struct {
	ReportDate      time.Time                  `json:"report_date"`
	Summary         ProcessSummary             `json:"process_summary"`
	HoldSummary     HoldSummary                `json:"legal_holds_summary"`
	Status          ComplianceStatus           `json:"compliance_status"`
	ManifestID      int64                      `json:"manifest_id"`
	DetailedResults map[string]DeletionOutcome `json:"detailed_results"`
}

// BuildReport derives the compliance report from the finalized manifest,
// the execution result, and the hold map captured at filter time. Pure
// aggregation; no store access.
func BuildReport(manifest *DeletionManifest, execution *ExecutionResult, holds map[string][]LegalHold, now time.Time) *ComplianceReport {
	summary := ProcessSummary{
		TablesProcessed:     len(execution.Outcomes),
		TotalRecordsDeleted: execution.TotalDeleted,
	}
	for _, outcome := range execution.Outcomes {
		if outcome.Success {
			summary.SuccessfulDeletions++
		} else {
			summary.FailedDeletions++
		}
	}

	status := StatusCompliant
	if execution.Status != StatusCompleted {
		status = StatusNeedsAttention
	}

	return &ComplianceReport{
		ReportDate: now,
		Summary:    summary,
		HoldSummary: HoldSummary{
			CategoriesWithHolds: len(holds),
			TotalHolds:          CountHolds(holds),
		},
		Status:          status,
		ManifestID:      manifest.ID,
		DetailedResults: execution.Outcomes,
	}
}

// ReportStore persists compliance reports.
type ReportStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewReportStore creates a new compliance report store.
func NewReportStore(db *sql.DB, log *logger.Logger) (*ReportStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &ReportStore{db: db, logger: log}, nil
}

// Save persists the report. A failure here does not erase the deletions
// already recorded on the manifest; the caller logs it and carries on.
func (s *ReportStore) Save(ctx context.Context, report *ComplianceReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize compliance report: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (report_type, report_date, report_data, status)
VALUES (?, ?, ?, ?)`, reportsTable)

	if _, err := s.db.ExecContext(ctx, query,
		reportType, report.ReportDate, payload, string(report.Status)); err != nil {
		return fmt.Errorf("failed to persist compliance report: %w", err)
	}

	s.logger.Infow("Compliance report recorded",
		"status", report.Status,
		"manifest_id", report.ManifestID,
	)
	return nil
}

// Notification is the flat payload handed to the external notification
// sink; the pipeline does not specify delivery transport.
type Notification struct {
	Subject          string           `json:"subject"`
	Summary          ProcessSummary   `json:"summary"`
	ComplianceStatus ComplianceStatus `json:"compliance_status"`
	ReportDate       time.Time        `json:"report_date"`
	ManifestID       int64            `json:"manifest_id"`
}

// BuildNotification shapes the outbound payload from a compliance report.
func BuildNotification(report *ComplianceReport, subjectPrefix string) Notification {
	return Notification{
		Subject:          fmt.Sprintf("%s - %s", subjectPrefix, report.Status),
		Summary:          report.Summary,
		ComplianceStatus: report.Status,
		ReportDate:       report.ReportDate,
		ManifestID:       report.ManifestID,
	}
}

// Notifier delivers the cycle notification to an external sink.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// LogNotifier writes the notification to the structured log. It stands in
// for the external delivery channel.
type LogNotifier struct {
	Logger *logger.Logger
}

// Notify logs the notification payload.
func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	log := n.Logger
	if log == nil {
		log = logger.NewDefault()
	}
	log.Infow("Compliance notification",
		"subject", notification.Subject,
		"compliance_status", notification.ComplianceStatus,
		"manifest_id", notification.ManifestID,
		"tables_processed", notification.Summary.TablesProcessed,
		"records_deleted", notification.Summary.TotalRecordsDeleted,
	)
	return nil
}
