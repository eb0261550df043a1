package retention

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dbsmedya/goretain/internal/config"
	"github.com/dbsmedya/goretain/internal/logger"
)

// Runner wires the pipeline stages together and runs one retention cycle.
// Stages hand their output to the next stage as explicit values; stage N+1
// begins only after stage N has resolved for every category.
type Runner struct {
	registry   *Registry
	scanner    *Scanner
	holds      *HoldStore
	anonymizer *Anonymizer
	manifests  *ManifestStore
	executor   *Executor
	reports    *ReportStore
	notifier   Notifier
	subject    string
	logger     *logger.Logger
}

// NewRunner builds a runner from configuration. The policy registry and
// anonymization profiles are constructed once here and stay immutable for
// every cycle the runner executes.
func NewRunner(db *sql.DB, cfg *config.Config, log *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	registry, err := NewRegistry(cfg.Policies)
	if err != nil {
		return nil, fmt.Errorf("failed to build policy registry: %w", err)
	}

	profiles, err := NewProfiles(cfg.Anonymization)
	if err != nil {
		return nil, fmt.Errorf("failed to build anonymization profiles: %w", err)
	}

	workers := cfg.Processing.Workers
	queryTimeout := time.Duration(cfg.Processing.QueryTimeoutSeconds) * time.Second

	scanner, err := NewScanner(db, registry, workers, queryTimeout, log)
	if err != nil {
		return nil, err
	}
	holds, err := NewHoldStore(db, log)
	if err != nil {
		return nil, err
	}
	anonymizer, err := NewAnonymizer(db, profiles, workers, queryTimeout, log)
	if err != nil {
		return nil, err
	}
	manifests, err := NewManifestStore(db, log)
	if err != nil {
		return nil, err
	}
	executor, err := NewExecutor(db, manifests, workers, queryTimeout, log)
	if err != nil {
		return nil, err
	}
	reports, err := NewReportStore(db, log)
	if err != nil {
		return nil, err
	}

	subject := cfg.Notification.SubjectPrefix
	if subject == "" {
		subject = "Data Retention Process Completed"
	}

	return &Runner{
		registry:   registry,
		subject:    subject,
		scanner:    scanner,
		holds:      holds,
		anonymizer: anonymizer,
		manifests:  manifests,
		executor:   executor,
		reports:    reports,
		logger:     log,
	}, nil
}

// SetNotifier sets the sink that receives the cycle notification.
func (r *Runner) SetNotifier(n Notifier) {
	r.notifier = n
}

// Registry returns the runner's policy registry.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run executes one retention cycle against the now snapshot and returns
// the compliance report.
//
// Category-scoped failures are contained in the per-category outcome
// records. Run-scoped failures (hold lookup, manifest persistence) abort
// the cycle before any deletion: deletion never happens without verified
// hold exclusion and a recorded audit manifest.
func (r *Runner) Run(ctx context.Context, now time.Time) (*ComplianceReport, error) {
	cycleID := uuid.NewString()
	log := r.logger.WithCycle(cycleID)

	log.Infow("Starting retention cycle",
		"policies", r.registry.Len(),
		"cycle_time", now,
	)

	// Stage 1: identify expired records (fail-open per category).
	candidates := r.scanner.Scan(ctx, now)

	// Stage 2: exclude categories under active legal hold (fail-closed).
	holds, err := r.holds.ActiveHolds(ctx, now)
	if err != nil {
		log.Errorw("Aborting cycle: cannot verify legal holds", "error", err)
		return nil, err
	}
	filtered := FilterHolds(candidates, holds, log)

	// Stage 3: anonymize sensitive fields before deletion is permitted.
	anonymized := r.anonymizer.Anonymize(ctx, filtered, r.registry, now)

	// Stage 4: record the audit manifest before any deletion executes.
	manifest := BuildManifest(filtered, anonymized, now)
	if err := r.manifests.Create(ctx, manifest); err != nil {
		log.Errorw("Aborting cycle: no audit manifest, deletion must not proceed", "error", err)
		return nil, err
	}

	// Stage 5: execute and verify deletions, finalize the manifest.
	execution, err := r.executor.Execute(ctx, manifest, r.registry, now)
	if err != nil {
		// Deletions already ran and are irreversible; the outcomes are
		// preserved in the report below, and the manifest left PENDING is
		// itself a visible drift signal for the auditor.
		log.Errorw("Manifest finalization failed after execution", "error", err)
	}

	// Stage 6: derive and persist the compliance verdict.
	report := BuildReport(manifest, execution, holds, now)
	if err := r.reports.Save(ctx, report); err != nil {
		log.Errorw("Failed to persist compliance report", "error", err)
	}

	// Stage 7: hand the payload to the notification sink.
	if r.notifier != nil {
		notification := BuildNotification(report, r.subject)
		if err := r.notifier.Notify(ctx, notification); err != nil {
			log.Warnw("Notification delivery failed", "error", err)
		}
	}

	log.Infow("Retention cycle complete",
		"status", report.Status,
		"manifest_id", report.ManifestID,
		"records_deleted", report.Summary.TotalRecordsDeleted,
	)
	return report, nil
}

// Preview describes what a cycle would do, without touching any data.
type Preview struct {
	ScanTime   time.Time
	Candidates *CandidateSet
	Holds      map[string][]LegalHold
	Eligible   *CandidateSet
}

// Preview runs the scan and hold-filter stages only. No anonymization,
// manifest, or deletion occurs.
func (r *Runner) Preview(ctx context.Context, now time.Time) (*Preview, error) {
	candidates := r.scanner.Scan(ctx, now)

	holds, err := r.holds.ActiveHolds(ctx, now)
	if err != nil {
		return nil, err
	}

	return &Preview{
		ScanTime:   now,
		Candidates: candidates,
		Holds:      holds,
		Eligible:   FilterHolds(candidates, holds, r.logger),
	}, nil
}
