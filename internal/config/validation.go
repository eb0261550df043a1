package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// identifierPattern matches valid table and column names. Categories map
// directly to table names, so anything outside this set is rejected here
// rather than at query-build time.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// knownRules are the accepted anonymization rule names.
var knownRules = map[string]bool{
	"":        true, // inferred from field name
	"email":   true,
	"redact":  true,
	"phone":   true,
	"null_ip": true,
	"generic": true,
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if err := c.validateDatabase(); err != nil {
		errors = append(errors, err...)
	}

	if len(c.Policies) == 0 {
		errors = append(errors, ValidationError{
			Field:   "policies",
			Message: "at least one retention policy must be defined",
		})
	}
	for name, policy := range c.Policies {
		if err := c.validatePolicy(name, &policy); err != nil {
			errors = append(errors, err...)
		}
	}

	for name, profile := range c.Anonymization {
		if err := c.validateProfile(name, &profile); err != nil {
			errors = append(errors, err...)
		}
	}

	if err := c.validateProcessing(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors
	db := &c.Database

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   "database.user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database.database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   "database.tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validatePolicy(name string, policy *PolicyConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("policies.%s", name)

	if !identifierPattern.MatchString(name) {
		errors = append(errors, ValidationError{
			Field:   prefix,
			Message: "category must contain only alphanumeric characters and underscores",
		})
	}

	if policy.RetentionDays <= 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".retention_days",
			Message: "retention_days must be positive",
		})
	}

	if policy.TimestampColumn != "" && !identifierPattern.MatchString(policy.TimestampColumn) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".timestamp_column",
			Message: "timestamp_column must contain only alphanumeric characters and underscores",
		})
	}

	return errors
}

func (c *Config) validateProfile(name string, profile *AnonymizeConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("anonymization.%s", name)

	if _, ok := c.Policies[name]; !ok {
		errors = append(errors, ValidationError{
			Field:   prefix,
			Message: "anonymization profile has no matching retention policy",
		})
	}

	if len(profile.Fields) == 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".fields",
			Message: "at least one field must be listed",
		})
	}

	for i, field := range profile.Fields {
		fieldPrefix := fmt.Sprintf("%s.fields[%d]", prefix, i)

		if field.Name == "" {
			errors = append(errors, ValidationError{
				Field:   fieldPrefix + ".name",
				Message: "field name is required",
			})
		} else if !identifierPattern.MatchString(field.Name) {
			errors = append(errors, ValidationError{
				Field:   fieldPrefix + ".name",
				Message: "field name must contain only alphanumeric characters and underscores",
			})
		}

		if !knownRules[field.Rule] {
			errors = append(errors, ValidationError{
				Field:   fieldPrefix + ".rule",
				Message: "rule must be 'email', 'redact', 'phone', 'null_ip', or 'generic'",
			})
		}
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.Workers < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.workers",
			Message: "workers cannot be negative",
		})
	}

	if c.Processing.QueryTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.query_timeout_seconds",
			Message: "query_timeout_seconds cannot be negative",
		})
	}

	if c.Processing.LockTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.lock_timeout_seconds",
			Message: "lock_timeout_seconds cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
