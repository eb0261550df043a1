package retention

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbsmedya/goretain/internal/logger"
)

// holdsTable is the store-side registry of administrative legal holds.
const holdsTable = "legal_holds"

// HoldStore queries active legal holds from the compliance database.
type HoldStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewHoldStore creates a new legal hold accessor.
func NewHoldStore(db *sql.DB, log *logger.Logger) (*HoldStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &HoldStore{db: db, logger: log}, nil
}

// ActiveHolds fetches every hold that is ACTIVE and not expired as of the
// cycle's now snapshot, grouped by category. A lookup failure is fatal to
// the run: without hold data the exclusion invariant cannot be guaranteed,
// so the caller must abort rather than proceed.
func (h *HoldStore) ActiveHolds(ctx context.Context, now time.Time) (map[string][]LegalHold, error) {
	query := fmt.Sprintf(`SELECT table_name, record_id, hold_reason, created_by, created_at, expiration_date
FROM %s
WHERE status = 'ACTIVE'
AND (expiration_date IS NULL OR expiration_date > ?)`, holdsTable)

	rows, err := h.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHoldLookup, err)
	}
	defer rows.Close()

	holds := make(map[string][]LegalHold)
	for rows.Next() {
		var (
			hold       LegalHold
			expiration sql.NullTime
		)
		if err := rows.Scan(&hold.Category, &hold.RecordID, &hold.Reason, &hold.CreatedBy, &hold.CreatedAt, &expiration); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHoldLookup, err)
		}
		if expiration.Valid {
			t := expiration.Time
			hold.Expiration = &t
		}
		holds[hold.Category] = append(holds[hold.Category], hold)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHoldLookup, err)
	}

	return holds, nil
}

// FilterHolds removes every candidate category with at least one active
// hold. A single hold suppresses deletion for the whole category this
// cycle; the hold rows carry record ids, but the downstream delete is
// category and time-range scoped, so exclusion stays at category
// granularity. Returns a new candidate set; the input is not mutated.
func FilterHolds(candidates *CandidateSet, holds map[string][]LegalHold, log *logger.Logger) *CandidateSet {
	if log == nil {
		log = logger.NewDefault()
	}

	filtered := NewCandidateSet()
	for el := candidates.Front(); el != nil; el = el.Next() {
		if categoryHolds, held := holds[el.Key]; held {
			log.Warnw("Legal hold exists for category, skipping deletion",
				"category", el.Key,
				"holds", len(categoryHolds),
			)
			continue
		}
		filtered.Set(el.Key, el.Value)
	}

	return filtered
}

// CountHolds returns the total number of hold rows across all categories.
func CountHolds(holds map[string][]LegalHold) int {
	total := 0
	for _, categoryHolds := range holds {
		total += len(categoryHolds)
	}
	return total
}
