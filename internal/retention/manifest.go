package retention

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dbsmedya/goretain/internal/logger"
)

// DeletionReason is the fixed policy reason recorded on every manifest.
const DeletionReason = "DATA_RETENTION_POLICY"

// manifestsTable persists the audit anchor for every deletion.
const manifestsTable = "data_deletion_manifests"

// ManifestStatus is the lifecycle state of a deletion manifest.
type ManifestStatus string

const (
	// StatusPending marks a manifest created but not yet executed.
	StatusPending ManifestStatus = "PENDING"
	// StatusCompleted marks a manifest whose every category deleted fully.
	StatusCompleted ManifestStatus = "COMPLETED"
	// StatusPartial marks a manifest with at least one failed category.
	StatusPartial ManifestStatus = "PARTIAL"
)

// ManifestEntry describes the intended deletion for one category.
type ManifestEntry struct {
	Category        string     `json:"table_name"`
	RecordsToDelete int64      `json:"records_to_delete"`
	RetentionDays   int        `json:"retention_period_days"`
	OldestRecord    *time.Time `json:"oldest_record"`
	NewestExpired   *time.Time `json:"newest_expired"`
	Anonymized      bool       `json:"anonymized_before_deletion"`
}

// DeletionManifest is the durable, pre-deletion record of exactly what is
// about to be deleted, why, and under what policy. It is created once per
// cycle before any deletion statement executes; the status and result
// fields are its only mutable parts, updated exactly once after execution.
// TotalRecords is fixed at creation and never adjusted, so expected-vs-
// actual drift stays detectable.
type DeletionManifest struct {
	ID           int64           `json:"manifest_id,omitempty"`
	CreatedAt    time.Time       `json:"deletion_date"`
	Reason       string          `json:"deletion_reason"`
	Entries      []ManifestEntry `json:"tables_affected"`
	TotalRecords int64           `json:"total_records_to_delete"`
	Status       ManifestStatus  `json:"status"`
}

// BuildManifest assembles the PENDING manifest from the hold-filtered
// candidate set and the anonymization outcomes. A category whose
// anonymization failed is excluded: unanonymized sensitive data is never
// deleted in this cycle. Entry order follows the candidate set.
func BuildManifest(candidates *CandidateSet, anonymized map[string]AnonymizationOutcome, now time.Time) *DeletionManifest {
	manifest := &DeletionManifest{
		CreatedAt: now,
		Reason:    DeletionReason,
		Status:    StatusPending,
	}

	for el := candidates.Front(); el != nil; el = el.Next() {
		outcome, hasProfile := anonymized[el.Key]
		if hasProfile && !outcome.Success {
			continue
		}

		record := el.Value
		manifest.Entries = append(manifest.Entries, ManifestEntry{
			Category:        record.Category,
			RecordsToDelete: record.ExpiredCount,
			RetentionDays:   record.RetentionDays,
			OldestRecord:    record.OldestRecord,
			NewestExpired:   record.NewestExpired,
			Anonymized:      hasProfile && outcome.Success,
		})
		manifest.TotalRecords += record.ExpiredCount
	}

	return manifest
}

// ManifestStore persists deletion manifests to the compliance database.
type ManifestStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewManifestStore creates a new manifest store.
func NewManifestStore(db *sql.DB, log *logger.Logger) (*ManifestStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &ManifestStore{db: db, logger: log}, nil
}

// Create durably records the manifest and assigns its id. This write is the
// pipeline's commit point: it must complete before any deletion executes.
// Failure wraps ErrManifestPersist and the caller must abort the cycle.
func (s *ManifestStore) Create(ctx context.Context, manifest *DeletionManifest) error {
	payload, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrManifestPersist, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (deletion_date, manifest_data, total_records, status)
VALUES (?, ?, ?, ?)`, manifestsTable)

	result, err := s.db.ExecContext(ctx, query,
		manifest.CreatedAt, payload, manifest.TotalRecords, string(manifest.Status))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrManifestPersist, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrManifestPersist, err)
	}

	manifest.ID = id
	s.logger.Infow("Deletion manifest recorded",
		"manifest_id", id,
		"categories", len(manifest.Entries),
		"total_records", manifest.TotalRecords,
	)
	return nil
}

// Finalize records the execution outcome on the manifest. This is the
// manifest's single mutation point, performed only after every category's
// deletion outcome is known.
func (s *ManifestStore) Finalize(ctx context.Context, manifestID int64, status ManifestStatus, outcomes map[string]DeletionOutcome, totalDeleted int64, completedAt time.Time) error {
	results, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("failed to serialize deletion results: %w", err)
	}

	query := fmt.Sprintf(`UPDATE %s
SET status = ?, deletion_results = ?, actual_deletions = ?, completed_at = ?
WHERE id = ?`, manifestsTable)

	if _, err := s.db.ExecContext(ctx, query,
		string(status), results, totalDeleted, completedAt, manifestID); err != nil {
		return fmt.Errorf("failed to finalize manifest %d: %w", manifestID, err)
	}

	return nil
}
