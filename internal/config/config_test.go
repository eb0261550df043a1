package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "preferred", cfg.Database.TLS)
	assert.Equal(t, 4, cfg.Processing.Workers)
	assert.Equal(t, 30, cfg.Processing.QueryTimeoutSeconds)
	assert.Equal(t, 1, cfg.Processing.LockTimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Notification.Enabled)
	assert.Equal(t, "Data Retention Process Completed", cfg.Notification.SubjectPrefix)
}

func TestTimestampColumnOrDefault(t *testing.T) {
	assert.Equal(t, "created_at", PolicyConfig{RetentionDays: 30}.TimestampColumnOrDefault())
	assert.Equal(t, "logged_at", PolicyConfig{RetentionDays: 30, TimestampColumn: "logged_at"}.TimestampColumnOrDefault())
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides("debug", "text", 8)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Processing.Workers)

	// Zero values leave the config untouched.
	cfg.ApplyOverrides("", "", 0)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Processing.Workers)
}

func TestPolicyCategories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policies = map[string]PolicyConfig{
		"session_data": {RetentionDays: 30},
		"audit_logs":   {RetentionDays: 2555},
	}

	categories := cfg.PolicyCategories()
	assert.ElementsMatch(t, []string{"session_data", "audit_logs"}, categories)
}
