package retention

import (
	"fmt"
	"sort"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/goretain/internal/config"
	"github.com/dbsmedya/goretain/internal/sqlutil"
)

// Policy is one retention policy: how old records in a category may grow
// before they become deletion candidates.
type Policy struct {
	Category        string
	RetentionDays   int
	RetentionPeriod time.Duration
	TimestampColumn string
}

// Registry is the immutable category -> retention policy mapping for one
// cycle. Iteration order is the sorted category order, fixed at build time.
type Registry struct {
	policies *orderedmap.OrderedMap[string, Policy]
}

// NewRegistry builds a Registry from configuration. Category names become
// table names, so invalid identifiers are rejected here.
func NewRegistry(policies map[string]config.PolicyConfig) (*Registry, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("no retention policies configured")
	}

	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := &Registry{policies: orderedmap.NewOrderedMap[string, Policy]()}
	for _, name := range names {
		pc := policies[name]
		if !sqlutil.IsValidIdentifier(name) {
			return nil, fmt.Errorf("invalid category name %q", name)
		}
		if pc.RetentionDays <= 0 {
			return nil, fmt.Errorf("category %q: retention_days must be positive", name)
		}
		column := pc.TimestampColumnOrDefault()
		if !sqlutil.IsValidIdentifier(column) {
			return nil, fmt.Errorf("category %q: invalid timestamp column %q", name, column)
		}

		reg.policies.Set(name, Policy{
			Category:        name,
			RetentionDays:   pc.RetentionDays,
			RetentionPeriod: time.Duration(pc.RetentionDays) * 24 * time.Hour,
			TimestampColumn: column,
		})
	}

	return reg, nil
}

// Get returns the policy for a category.
func (r *Registry) Get(category string) (Policy, bool) {
	return r.policies.Get(category)
}

// Categories returns all category names in registry order.
func (r *Registry) Categories() []string {
	return r.policies.Keys()
}

// Policies returns all policies in registry order.
func (r *Registry) Policies() []Policy {
	out := make([]Policy, 0, r.policies.Len())
	for el := r.policies.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Len returns the number of policies.
func (r *Registry) Len() int {
	return r.policies.Len()
}

// Cutoff returns the expiration threshold for this policy relative to the
// cycle's now snapshot. Records strictly older than the cutoff are expired.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.RetentionPeriod)
}
