package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Database.Host = "localhost"
	cfg.Database.User = "retain"
	cfg.Database.Database = "compliance"
	cfg.Policies = map[string]PolicyConfig{
		"session_data":  {RetentionDays: 30},
		"user_profiles": {RetentionDays: 1095},
	}
	cfg.Anonymization = map[string]AnonymizeConfig{
		"user_profiles": {Fields: []FieldConfig{
			{Name: "email"},
			{Name: "address", Rule: "generic"},
		}},
	}
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validTestConfig().Validate())
}

func TestValidate_Database(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"missing user", func(c *Config) { c.Database.User = "" }, "database.user"},
		{"missing database", func(c *Config) { c.Database.Database = "" }, "database.database"},
		{"bad port", func(c *Config) { c.Database.Port = 70000 }, "database.port"},
		{"bad tls", func(c *Config) { c.Database.TLS = "maybe" }, "database.tls"},
		{"negative max conns", func(c *Config) { c.Database.MaxConnections = -1 }, "database.max_connections"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_Policies(t *testing.T) {
	cfg := validTestConfig()
	cfg.Policies = map[string]PolicyConfig{}
	cfg.Anonymization = nil

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one retention policy")

	cfg = validTestConfig()
	cfg.Policies["bad name"] = PolicyConfig{RetentionDays: 30}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policies.bad name")

	cfg = validTestConfig()
	cfg.Policies["session_data"] = PolicyConfig{RetentionDays: 0}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention_days must be positive")

	cfg = validTestConfig()
	cfg.Policies["session_data"] = PolicyConfig{RetentionDays: 30, TimestampColumn: "created at"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp_column")
}

func TestValidate_Anonymization(t *testing.T) {
	cfg := validTestConfig()
	cfg.Anonymization["orphan_table"] = AnonymizeConfig{Fields: []FieldConfig{{Name: "email"}}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching retention policy")

	cfg = validTestConfig()
	cfg.Anonymization["user_profiles"] = AnonymizeConfig{}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one field")

	cfg = validTestConfig()
	cfg.Anonymization["user_profiles"] = AnonymizeConfig{Fields: []FieldConfig{{Name: "email", Rule: "scramble"}}}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule must be")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validTestConfig()
	cfg.Database.Host = ""
	cfg.Database.User = ""
	cfg.Processing.Workers = -1
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 4)
	assert.True(t, strings.HasPrefix(err.Error(), "validation failed:"))
}
