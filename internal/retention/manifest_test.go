package retention

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildManifest(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	oldest := now.AddDate(-1, 0, 0)

	candidates := NewCandidateSet()
	candidates.Set("session_data", ExpirationRecord{
		Category:      "session_data",
		ExpiredCount:  42,
		RetentionDays: 30,
		OldestRecord:  &oldest,
	})
	candidates.Set("transaction_logs", ExpirationRecord{
		Category:      "transaction_logs",
		ExpiredCount:  3,
		RetentionDays: 365,
	})
	candidates.Set("user_profiles", ExpirationRecord{
		Category:      "user_profiles",
		ExpiredCount:  5,
		RetentionDays: 1095,
	})

	anonymized := map[string]AnonymizationOutcome{
		"transaction_logs": {Category: "transaction_logs", Success: true, RowsRewritten: 3},
		"user_profiles":    {Category: "user_profiles", Success: false, Error: "boom"},
	}

	manifest := BuildManifest(candidates, anonymized, now)

	assert.Equal(t, StatusPending, manifest.Status)
	assert.Equal(t, DeletionReason, manifest.Reason)
	assert.Equal(t, now, manifest.CreatedAt)

	// user_profiles failed anonymization and is excluded.
	require.Len(t, manifest.Entries, 2)
	assert.Equal(t, "session_data", manifest.Entries[0].Category)
	assert.False(t, manifest.Entries[0].Anonymized)
	assert.Equal(t, &oldest, manifest.Entries[0].OldestRecord)
	assert.Equal(t, "transaction_logs", manifest.Entries[1].Category)
	assert.True(t, manifest.Entries[1].Anonymized)

	assert.Equal(t, int64(45), manifest.TotalRecords)
}

func TestBuildManifest_Empty(t *testing.T) {
	manifest := BuildManifest(NewCandidateSet(), nil, time.Now().UTC())

	assert.Empty(t, manifest.Entries)
	assert.Equal(t, int64(0), manifest.TotalRecords)
	assert.Equal(t, StatusPending, manifest.Status)
}

func TestManifestStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	manifest := &DeletionManifest{
		CreatedAt:    now,
		Reason:       DeletionReason,
		Status:       StatusPending,
		TotalRecords: 42,
		Entries: []ManifestEntry{
			{Category: "session_data", RecordsToDelete: 42, RetentionDays: 30},
		},
	}

	mock.ExpectExec("INSERT INTO data_deletion_manifests").
		WithArgs(now, sqlmock.AnyArg(), int64(42), "PENDING").
		WillReturnResult(sqlmock.NewResult(7, 1))

	store, err := NewManifestStore(db, nil)
	require.NoError(t, err)

	err = store.Create(context.Background(), manifest)
	require.NoError(t, err)
	assert.Equal(t, int64(7), manifest.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManifestStore_Create_PersistFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO data_deletion_manifests").
		WillReturnError(fmt.Errorf("disk full"))

	store, err := NewManifestStore(db, nil)
	require.NoError(t, err)

	err = store.Create(context.Background(), &DeletionManifest{Status: StatusPending})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrManifestPersist))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManifestStore_Finalize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	completed := time.Date(2024, 6, 1, 0, 5, 0, 0, time.UTC)
	outcomes := map[string]DeletionOutcome{
		"session_data": {Category: "session_data", ExpectedDeletions: 42, ActualDeletions: 42, Success: true},
	}

	mock.ExpectExec("UPDATE data_deletion_manifests").
		WithArgs("COMPLETED", sqlmock.AnyArg(), int64(42), completed, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store, err := NewManifestStore(db, nil)
	require.NoError(t, err)

	err = store.Finalize(context.Background(), 7, StatusCompleted, outcomes, 42, completed)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
