package retention

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dbsmedya/goretain/internal/config"
	"github.com/dbsmedya/goretain/internal/logger"
	"github.com/dbsmedya/goretain/internal/sqlutil"
)

// AnonymizationReason is stamped on every rewritten record.
const AnonymizationReason = "DATA_RETENTION_POLICY"

// Rule determines the replacement value written into an anonymized field.
type Rule string

const (
	// RuleEmail synthesizes a unique non-routable placeholder address.
	RuleEmail Rule = "email"
	// RuleRedact writes the fixed redaction token for name-like fields.
	RuleRedact Rule = "redact"
	// RulePhone writes the fixed all-zero phone placeholder.
	RulePhone Rule = "phone"
	// RuleNullIP writes the null address for IP-like fields.
	RuleNullIP Rule = "null_ip"
	// RuleGeneric writes the generic redaction token.
	RuleGeneric Rule = "generic"
)

// InferRule maps a field name to its anonymization rule when the profile
// does not name one explicitly.
func InferRule(field string) Rule {
	switch {
	case field == "email":
		return RuleEmail
	case field == "first_name" || field == "last_name":
		return RuleRedact
	case field == "phone":
		return RulePhone
	case field == "ip_address":
		return RuleNullIP
	default:
		return RuleGeneric
	}
}

// setExpression returns the SQL SET fragment for one field under a rule.
// The email placeholder uses the server-side UUID() so each row gets a
// distinct, irreversible value in a single statement.
func setExpression(field string, rule Rule) string {
	quoted := sqlutil.QuoteIdentifier(field)
	switch rule {
	case RuleEmail:
		return fmt.Sprintf("%s = CONCAT('anonymized_', UUID(), '@deleted.local')", quoted)
	case RuleRedact:
		return fmt.Sprintf("%s = 'DELETED'", quoted)
	case RulePhone:
		return fmt.Sprintf("%s = '000-000-0000'", quoted)
	case RuleNullIP:
		return fmt.Sprintf("%s = '0.0.0.0'", quoted)
	default:
		return fmt.Sprintf("%s = 'ANONYMIZED'", quoted)
	}
}

// FieldRule is one field of an anonymization profile with its resolved rule.
type FieldRule struct {
	Name string
	Rule Rule
}

// Profile is the ordered set of sensitive fields to rewrite for one
// category before its expired records may be deleted.
type Profile struct {
	Category string
	Fields   []FieldRule
}

// NewProfiles builds anonymization profiles from configuration, resolving
// omitted rules from the field names. Field order is preserved.
func NewProfiles(cfgs map[string]config.AnonymizeConfig) (map[string]Profile, error) {
	profiles := make(map[string]Profile, len(cfgs))

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ac := cfgs[name]
		if !sqlutil.IsValidIdentifier(name) {
			return nil, fmt.Errorf("invalid anonymization category %q", name)
		}

		profile := Profile{Category: name, Fields: make([]FieldRule, 0, len(ac.Fields))}
		for _, fc := range ac.Fields {
			if !sqlutil.IsValidIdentifier(fc.Name) {
				return nil, fmt.Errorf("category %q: invalid field name %q", name, fc.Name)
			}
			rule := Rule(fc.Rule)
			if rule == "" {
				rule = InferRule(fc.Name)
			}
			profile.Fields = append(profile.Fields, FieldRule{Name: fc.Name, Rule: rule})
		}
		profiles[name] = profile
	}

	return profiles, nil
}

// Anonymizer rewrites sensitive fields of expiring records in place before
// deletion is permitted.
type Anonymizer struct {
	db           *sql.DB
	profiles     map[string]Profile
	workers      int
	queryTimeout time.Duration
	logger       *logger.Logger
}

// NewAnonymizer creates a new anonymizer.
func NewAnonymizer(db *sql.DB, profiles map[string]Profile, workers int, queryTimeout time.Duration, log *logger.Logger) (*Anonymizer, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Anonymizer{
		db:           db,
		profiles:     profiles,
		workers:      workers,
		queryTimeout: queryTimeout,
		logger:       log,
	}, nil
}

// Anonymize rewrites the sensitive fields of every candidate category that
// has a profile. The rewrite only touches records past the retention
// threshold whose anonymization marker is unset, so a repeated run matches
// zero rows. A per-category failure is recorded in its outcome and bars
// that category from the manifest and deletion stages; sibling categories
// proceed. Categories without a profile get no outcome and pass through.
func (a *Anonymizer) Anonymize(ctx context.Context, candidates *CandidateSet, registry *Registry, now time.Time) map[string]AnonymizationOutcome {
	log := a.logger.WithStage("anonymize")

	var targets []string
	for el := candidates.Front(); el != nil; el = el.Next() {
		if _, ok := a.profiles[el.Key]; ok {
			targets = append(targets, el.Key)
		}
	}
	if len(targets) == 0 {
		return map[string]AnonymizationOutcome{}
	}

	results := forEachCategory(ctx, targets, a.workers,
		func(ctx context.Context, category string) (int64, error) {
			policy, ok := registry.Get(category)
			if !ok {
				return 0, fmt.Errorf("no policy for category %s", category)
			}
			return a.anonymizeCategory(ctx, a.profiles[category], policy, now)
		})

	outcomes := make(map[string]AnonymizationOutcome, len(targets))
	for _, category := range targets {
		profile := a.profiles[category]
		fields := make([]string, len(profile.Fields))
		for i, f := range profile.Fields {
			fields[i] = f.Name
		}

		result := results[category]
		if result.err != nil {
			log.Errorw("Anonymization failed, category barred from deletion",
				"category", category,
				"error", result.err,
			)
			outcomes[category] = AnonymizationOutcome{
				Category: category,
				Success:  false,
				Fields:   fields,
				Error:    result.err.Error(),
			}
			continue
		}

		log.Infow("Anonymized expired records",
			"category", category,
			"rows", result.value,
			"fields", len(fields),
		)
		outcomes[category] = AnonymizationOutcome{
			Category:      category,
			Success:       true,
			Fields:        fields,
			RowsRewritten: result.value,
		}
	}

	return outcomes
}

// anonymizeCategory executes the single idempotent UPDATE for one category.
func (a *Anonymizer) anonymizeCategory(ctx context.Context, profile Profile, policy Policy, now time.Time) (int64, error) {
	if a.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.queryTimeout)
		defer cancel()
	}

	setClauses := make([]string, 0, len(profile.Fields)+2)
	for _, field := range profile.Fields {
		setClauses = append(setClauses, setExpression(field.Name, field.Rule))
	}
	setClauses = append(setClauses,
		"anonymized_at = ?",
		fmt.Sprintf("anonymization_reason = '%s'", AnonymizationReason),
	)

	column := sqlutil.QuoteIdentifier(policy.TimestampColumn)
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s < ? AND anonymized_at IS NULL",
		sqlutil.QuoteIdentifier(profile.Category),
		strings.Join(setClauses, ", "),
		column,
	)

	result, err := a.db.ExecContext(ctx, query, now, policy.Cutoff(now))
	if err != nil {
		return 0, fmt.Errorf("failed to anonymize %s: %w", profile.Category, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", profile.Category, err)
	}

	return rows, nil
}
