package retention

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbsmedya/goretain/internal/logger"
	"github.com/dbsmedya/goretain/internal/sqlutil"
)

// ExecutionResult aggregates the verified per-category deletion outcomes.
type ExecutionResult struct {
	Outcomes     map[string]DeletionOutcome
	TotalDeleted int64
	Status       ManifestStatus
	StartedAt    time.Time
	CompletedAt  time.Time
}

// Executor performs the deletions described by a manifest, verifies each
// category's result by recounting, and finalizes the manifest status.
type Executor struct {
	db           *sql.DB
	manifests    *ManifestStore
	workers      int
	queryTimeout time.Duration
	logger       *logger.Logger
}

// NewExecutor creates a new deletion executor.
func NewExecutor(db *sql.DB, manifests *ManifestStore, workers int, queryTimeout time.Duration, log *logger.Logger) (*Executor, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if manifests == nil {
		return nil, fmt.Errorf("manifest store is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Executor{
		db:           db,
		manifests:    manifests,
		workers:      workers,
		queryTimeout: queryTimeout,
		logger:       log,
	}, nil
}

// Execute deletes expired records for every category in the manifest and
// records the COMPLETED/PARTIAL status once all outcomes are known.
//
// Each category re-derives its live expected count against the retention
// period recorded in the manifest, so records that crossed the threshold
// between manifest creation and execution are swept too. A category's
// error is captured in its outcome and does not stop sibling categories.
// Once deletion starts for a category it runs to completion or failure;
// there is no partial-category rollback.
func (e *Executor) Execute(ctx context.Context, manifest *DeletionManifest, registry *Registry, now time.Time) (*ExecutionResult, error) {
	log := e.logger.WithStage("delete")
	result := &ExecutionResult{
		Outcomes:  make(map[string]DeletionOutcome, len(manifest.Entries)),
		StartedAt: time.Now(),
	}

	categories := make([]string, len(manifest.Entries))
	entries := make(map[string]ManifestEntry, len(manifest.Entries))
	for i, entry := range manifest.Entries {
		categories[i] = entry.Category
		entries[entry.Category] = entry
	}

	log.Infow("Starting deletion execution",
		"manifest_id", manifest.ID,
		"categories", len(categories),
	)

	results := forEachCategory(ctx, categories, e.workers,
		func(ctx context.Context, category string) (DeletionOutcome, error) {
			return e.deleteCategory(ctx, entries[category], registry, now)
		})

	allSucceeded := true
	for _, category := range categories {
		res := results[category]
		outcome := res.value
		if res.err != nil {
			log.Errorw("Deletion failed for category",
				"category", category,
				"error", res.err,
			)
			outcome = DeletionOutcome{
				Category: category,
				Success:  false,
				Error:    res.err.Error(),
			}
		} else if outcome.Success {
			log.Infow("Deleted expired records",
				"category", category,
				"deleted", outcome.ActualDeletions,
			)
		} else {
			log.Warnw("Deletion did not converge",
				"category", category,
				"deleted", outcome.ActualDeletions,
				"remaining", outcome.RemainingRecords,
			)
		}

		result.Outcomes[category] = outcome
		result.TotalDeleted += outcome.ActualDeletions
		if !outcome.Success {
			allSucceeded = false
		}
	}

	if allSucceeded {
		result.Status = StatusCompleted
	} else {
		result.Status = StatusPartial
	}
	result.CompletedAt = time.Now()

	// Single mutation point of the manifest: the final status is recorded
	// only after every category's outcome is in hand.
	if err := e.manifests.Finalize(ctx, manifest.ID, result.Status, result.Outcomes, result.TotalDeleted, result.CompletedAt); err != nil {
		log.Errorw("Failed to record execution outcome on manifest",
			"manifest_id", manifest.ID,
			"error", err,
		)
		return result, err
	}
	manifest.Status = result.Status

	log.Infow("Deletion execution complete",
		"manifest_id", manifest.ID,
		"status", result.Status,
		"total_deleted", result.TotalDeleted,
		"duration", result.CompletedAt.Sub(result.StartedAt),
	)
	return result, nil
}

// deleteCategory re-counts, deletes, and verifies one category.
func (e *Executor) deleteCategory(ctx context.Context, entry ManifestEntry, registry *Registry, now time.Time) (DeletionOutcome, error) {
	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	policy, ok := registry.Get(entry.Category)
	if !ok {
		return DeletionOutcome{}, fmt.Errorf("no policy for category %s", entry.Category)
	}

	// The threshold is re-derived from the manifest's recorded retention
	// period, not the scan-time count.
	cutoff := now.Add(-time.Duration(entry.RetentionDays) * 24 * time.Hour)
	table := sqlutil.QuoteIdentifier(entry.Category)
	column := sqlutil.QuoteIdentifier(policy.TimestampColumn)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s < ?", table, column)

	var expected int64
	if err := e.db.QueryRowContext(ctx, countQuery, cutoff).Scan(&expected); err != nil {
		return DeletionOutcome{}, fmt.Errorf("failed to count expired records in %s: %w", entry.Category, err)
	}

	if expected == 0 {
		return DeletionOutcome{
			Category: entry.Category,
			Success:  true,
		}, nil
	}

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", table, column)
	if _, err := e.db.ExecContext(ctx, deleteQuery, cutoff); err != nil {
		return DeletionOutcome{}, fmt.Errorf("failed to delete from %s: %w", entry.Category, err)
	}

	// Verify by recounting; anything left means the delete did not fully
	// converge (concurrent writers, constraints).
	var remaining int64
	if err := e.db.QueryRowContext(ctx, countQuery, cutoff).Scan(&remaining); err != nil {
		return DeletionOutcome{}, fmt.Errorf("failed to verify deletion in %s: %w", entry.Category, err)
	}

	return DeletionOutcome{
		Category:          entry.Category,
		ExpectedDeletions: expected,
		ActualDeletions:   expected - remaining,
		RemainingRecords:  remaining,
		Success:           remaining == 0,
	}, nil
}
