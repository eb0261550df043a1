package retention

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goretain/internal/config"
	"github.com/dbsmedya/goretain/internal/logger"
)

func scanQuery(table string) string {
	return regexp.QuoteMeta(fmt.Sprintf(
		"SELECT COUNT(*), MIN(`created_at`), MAX(`created_at`) FROM `%s` WHERE `created_at` < ?", table))
}

func TestScanner_Scan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg, err := NewRegistry(map[string]config.PolicyConfig{
		"audit_logs":   {RetentionDays: 2555},
		"cache_data":   {RetentionDays: 1},
		"session_data": {RetentionDays: 30},
	})
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	oldest := now.AddDate(-8, 0, 0)
	newest := now.AddDate(-7, -1, 0)

	// Sorted category order, sequential workers.
	mock.ExpectQuery(scanQuery("audit_logs")).
		WithArgs(now.AddDate(0, 0, -2555)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(10, oldest, newest))
	mock.ExpectQuery(scanQuery("cache_data")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(0, nil, nil))
	mock.ExpectQuery(scanQuery("session_data")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(42, oldest, newest))

	scanner, err := NewScanner(db, reg, 0, 0, logger.NewDefault())
	require.NoError(t, err)

	candidates := scanner.Scan(context.Background(), now)

	// cache_data had no expired records and is omitted.
	assert.Equal(t, []string{"audit_logs", "session_data"}, candidates.Keys())

	record, ok := candidates.Get("audit_logs")
	require.True(t, ok)
	assert.Equal(t, int64(10), record.ExpiredCount)
	assert.Equal(t, 2555, record.RetentionDays)
	require.NotNil(t, record.OldestRecord)
	assert.Equal(t, oldest, *record.OldestRecord)
	require.NotNil(t, record.NewestExpired)
	assert.Equal(t, newest, *record.NewestExpired)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanner_Scan_FailsOpenOnCategoryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg, err := NewRegistry(map[string]config.PolicyConfig{
		"audit_logs":   {RetentionDays: 2555},
		"session_data": {RetentionDays: 30},
	})
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(scanQuery("audit_logs")).
		WillReturnError(fmt.Errorf("table missing"))
	mock.ExpectQuery(scanQuery("session_data")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(5, now.AddDate(0, -2, 0), now.AddDate(0, -1, -1)))

	scanner, err := NewScanner(db, reg, 0, 0, logger.NewDefault())
	require.NoError(t, err)

	candidates := scanner.Scan(context.Background(), now)

	// The failed category is omitted; the sibling still reports.
	assert.Equal(t, []string{"session_data"}, candidates.Keys())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanner_Scan_CustomTimestampColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg, err := NewRegistry(map[string]config.PolicyConfig{
		"event_log": {RetentionDays: 90, TimestampColumn: "logged_at"},
	})
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*), MIN(`logged_at`), MAX(`logged_at`) FROM `event_log` WHERE `logged_at` < ?")).
		WithArgs(now.AddDate(0, 0, -90)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(3, now.AddDate(0, -4, 0), now.AddDate(0, -3, -1)))

	scanner, err := NewScanner(db, reg, 0, 0, logger.NewDefault())
	require.NoError(t, err)

	candidates := scanner.Scan(context.Background(), now)
	assert.Equal(t, 1, candidates.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewScanner_NilDB(t *testing.T) {
	reg, err := NewRegistry(map[string]config.PolicyConfig{
		"session_data": {RetentionDays: 30},
	})
	require.NoError(t, err)

	_, err = NewScanner(nil, reg, 0, 0, nil)
	assert.Error(t, err)
}
