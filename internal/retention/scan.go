package retention

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbsmedya/goretain/internal/logger"
	"github.com/dbsmedya/goretain/internal/sqlutil"
)

// Scanner identifies records that have exceeded their retention period.
//
// All categories in one scan are evaluated against the same now snapshot,
// captured at cycle start, so results do not drift with wall-clock time
// during the scan.
type Scanner struct {
	db           *sql.DB
	registry     *Registry
	workers      int
	queryTimeout time.Duration
	logger       *logger.Logger
}

// NewScanner creates a new expiration scanner.
func NewScanner(db *sql.DB, registry *Registry, workers int, queryTimeout time.Duration, log *logger.Logger) (*Scanner, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("policy registry is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Scanner{
		db:           db,
		registry:     registry,
		workers:      workers,
		queryTimeout: queryTimeout,
		logger:       log,
	}, nil
}

// Scan computes per-category expiration candidates. Categories with no
// expired records are omitted. A per-category query failure is logged and
// the category omitted from the result; a category that fails to scan is
// never deleted this cycle, so the scan fails open without weakening the
// deletion safety gate.
func (s *Scanner) Scan(ctx context.Context, now time.Time) *CandidateSet {
	log := s.logger.WithStage("scan")
	log.Infow("Scanning categories for expired records",
		"categories", s.registry.Len(),
		"scan_time", now,
	)

	results := forEachCategory(ctx, s.registry.Categories(), s.workers,
		func(ctx context.Context, category string) (ExpirationRecord, error) {
			policy, _ := s.registry.Get(category)
			return s.scanCategory(ctx, policy, now)
		})

	// Collect in registry order so downstream stages and the manifest see
	// a deterministic category sequence.
	candidates := NewCandidateSet()
	for _, category := range s.registry.Categories() {
		result := results[category]
		if result.err != nil {
			log.Errorw("Category scan failed, omitting from candidates",
				"category", category,
				"error", result.err,
			)
			continue
		}
		if result.value.ExpiredCount == 0 {
			continue
		}

		log.Infow("Found expired records",
			"category", category,
			"count", result.value.ExpiredCount,
			"retention_days", result.value.RetentionDays,
		)
		candidates.Set(category, result.value)
	}

	log.Infow("Scan complete", "candidates", candidates.Len())
	return candidates
}

// scanCategory counts expired records and their age bounds for one category.
func (s *Scanner) scanCategory(ctx context.Context, policy Policy, now time.Time) (ExpirationRecord, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	column := sqlutil.QuoteIdentifier(policy.TimestampColumn)
	query := fmt.Sprintf(
		"SELECT COUNT(*), MIN(%s), MAX(%s) FROM %s WHERE %s < ?",
		column, column, sqlutil.QuoteIdentifier(policy.Category), column,
	)

	var (
		count  int64
		oldest sql.NullTime
		newest sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, policy.Cutoff(now)).Scan(&count, &oldest, &newest)
	if err != nil {
		return ExpirationRecord{}, fmt.Errorf("failed to scan category %s: %w", policy.Category, err)
	}

	record := ExpirationRecord{
		Category:        policy.Category,
		ExpiredCount:    count,
		RetentionPeriod: policy.RetentionPeriod,
		RetentionDays:   policy.RetentionDays,
	}
	if oldest.Valid {
		t := oldest.Time
		record.OldestRecord = &t
	}
	if newest.Valid {
		t := newest.Time
		record.NewestExpired = &t
	}

	return record, nil
}
