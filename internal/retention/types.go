// Package retention implements the retention decision-and-execution
// pipeline: scanning category stores for expired records, excluding
// categories under legal hold, anonymizing sensitive fields, recording an
// audit manifest, executing verified deletions, and deriving the final
// compliance verdict from the recorded outcomes.
package retention

import (
	"time"

	"github.com/elliotchance/orderedmap/v2"
)

// ExpirationRecord describes the expired records found in one category.
// Produced by the Scanner; consumed read-only downstream.
type ExpirationRecord struct {
	Category        string        `json:"category"`
	ExpiredCount    int64         `json:"count"`
	OldestRecord    *time.Time    `json:"oldest_record"`
	NewestExpired   *time.Time    `json:"newest_expired"`
	RetentionPeriod time.Duration `json:"-"`
	RetentionDays   int           `json:"retention_days"`
}

// CandidateSet is the category-ordered working set handed from stage to
// stage. Order follows the policy registry so manifests stay byte-stable
// across runs with the same configuration.
type CandidateSet = orderedmap.OrderedMap[string, ExpirationRecord]

// NewCandidateSet returns an empty candidate set.
func NewCandidateSet() *CandidateSet {
	return orderedmap.NewOrderedMap[string, ExpirationRecord]()
}

// LegalHold represents one active hold row. A hold is active iff its
// expiration is absent or in the future at cycle start. Holds carry a
// record id for audit, but exclusion is enforced per category.
type LegalHold struct {
	Category   string     `json:"category"`
	RecordID   string     `json:"record_id"`
	Reason     string     `json:"reason"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

// AnonymizationOutcome records the result of the anonymization pass for
// one category that has a profile and survived hold filtering.
type AnonymizationOutcome struct {
	Category      string   `json:"category"`
	Success       bool     `json:"anonymized"`
	Fields        []string `json:"fields,omitempty"`
	RowsRewritten int64    `json:"rows_rewritten"`
	Error         string   `json:"error,omitempty"`
}

// DeletionOutcome records the verified result of deletion for one category.
// RemainingRecords > 0 after the delete means the category did not fully
// converge and is marked unsuccessful.
type DeletionOutcome struct {
	Category          string `json:"category"`
	ExpectedDeletions int64  `json:"expected_deletions"`
	ActualDeletions   int64  `json:"actual_deletions"`
	RemainingRecords  int64  `json:"remaining_records"`
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
}
