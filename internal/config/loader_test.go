package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
database:
  host: db.internal
  user: retain
  password: ${RETAIN_DB_PASSWORD}
  database: compliance

policies:
  session_data:
    retention_days: 30
  audit_logs:
    retention_days: 2555
    timestamp_column: event_timestamp

anonymization:
  user_profiles:
    fields:
      - name: email
      - name: address
        rule: generic

processing:
  workers: 2
`

func TestLoad(t *testing.T) {
	t.Setenv("RETAIN_DB_PASSWORD", "s3cret")

	path := filepath.Join(t.TempDir(), "retention.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	// Defaults fill in what the file omits.
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 30, cfg.Processing.QueryTimeoutSeconds)

	require.Len(t, cfg.Policies, 2)
	assert.Equal(t, 30, cfg.Policies["session_data"].RetentionDays)
	assert.Equal(t, "event_timestamp", cfg.Policies["audit_logs"].TimestampColumn)

	require.Len(t, cfg.Anonymization["user_profiles"].Fields, 2)
	assert.Equal(t, "email", cfg.Anonymization["user_profiles"].Fields[0].Name)
	assert.Equal(t, "generic", cfg.Anonymization["user_profiles"].Fields[1].Rule)

	assert.Equal(t, 2, cfg.Processing.Workers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromViper(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(sampleYAML)))

	cfg, err := LoadFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 2555, cfg.Policies["audit_logs"].RetentionDays)
}

func TestExpandEnvVar_UnsetKeepsLiteral(t *testing.T) {
	assert.Equal(t, "${GORETAIN_UNSET_VAR}", expandEnvVar("${GORETAIN_UNSET_VAR}"))
	assert.Equal(t, "plain", expandEnvVar("plain"))
}
