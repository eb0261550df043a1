// Package config provides configuration structures and loading for GoRetain.
package config

// Config represents the complete application configuration.
type Config struct {
	Database      DatabaseConfig             `yaml:"database" mapstructure:"database"`
	Policies      map[string]PolicyConfig    `yaml:"policies" mapstructure:"policies"`
	Anonymization map[string]AnonymizeConfig `yaml:"anonymization" mapstructure:"anonymization"`
	Processing    ProcessingConfig           `yaml:"processing" mapstructure:"processing"`
	Logging       LoggingConfig              `yaml:"logging" mapstructure:"logging"`
	Notification  NotificationConfig         `yaml:"notification" mapstructure:"notification"`
}

// DatabaseConfig represents the compliance database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// PolicyConfig represents a single retention policy for one data category.
// The category name doubles as the table name holding the records.
type PolicyConfig struct {
	RetentionDays   int    `yaml:"retention_days" mapstructure:"retention_days"`
	TimestampColumn string `yaml:"timestamp_column,omitempty" mapstructure:"timestamp_column"` // defaults to "created_at"
}

// AnonymizeConfig lists the sensitive fields of a category that must be
// rewritten before its expired records may be deleted. Field order is
// preserved in the generated UPDATE statement.
type AnonymizeConfig struct {
	Fields []FieldConfig `yaml:"fields" mapstructure:"fields"`
}

// FieldConfig represents one field to anonymize. Rule is optional; when
// empty the rule is inferred from the field name.
type FieldConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	Rule string `yaml:"rule,omitempty" mapstructure:"rule"` // email, redact, phone, null_ip, generic
}

// ProcessingConfig represents retention cycle processing settings.
type ProcessingConfig struct {
	Workers             int `yaml:"workers" mapstructure:"workers"`                             // per-stage fan-out bound; 0 = sequential
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" mapstructure:"query_timeout_seconds"` // per category-store call
	LockTimeoutSeconds  int `yaml:"lock_timeout_seconds" mapstructure:"lock_timeout_seconds"`   // cycle lock acquisition wait
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// NotificationConfig represents the outbound notification sink settings.
// Delivery transport is external; only payload shaping is configured here.
type NotificationConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	SubjectPrefix string `yaml:"subject_prefix" mapstructure:"subject_prefix"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Processing: ProcessingConfig{
			Workers:             4,
			QueryTimeoutSeconds: 30,
			LockTimeoutSeconds:  1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Notification: NotificationConfig{
			Enabled:       true,
			SubjectPrefix: "Data Retention Process Completed",
		},
	}
}

// TimestampColumnOrDefault returns the configured timestamp column for the
// policy, falling back to "created_at".
func (p PolicyConfig) TimestampColumnOrDefault() string {
	if p.TimestampColumn == "" {
		return "created_at"
	}
	return p.TimestampColumn
}
