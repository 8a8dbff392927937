// Package rules holds the fraud rule catalog. A rule is a pure predicate
// over one transaction and its assembled signal context; the catalog is an
// ordered, name-unique collection built explicitly from scenario sets.
// Predicates treat absent signals as non-triggering: a rule that cannot see
// its evidence stays silent.
package rules

import (
	"fmt"

	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// Predicate decides whether a rule fires for the given transaction and
// context. Predicates must be pure and must not mutate either argument.
type Predicate func(tx *ledger.Transaction, c features.Context) bool

// Rule is one named fraud indicator.
type Rule struct {
	Name         string
	Category     string
	Description  string
	Weight       float64
	HardOverride bool
	Predicate    Predicate
}

// TriggeredRule is the record of one rule firing, carried through scoring
// and persisted with the assessment.
type TriggeredRule struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Description  string  `json:"description,omitempty"`
	Weight       float64 `json:"weight"`
	HardOverride bool    `json:"hardOverride,omitempty"`
}

// Catalog is an ordered collection of uniquely named rules.
type Catalog struct {
	rules []Rule
}

// NewCatalog concatenates scenario sets into one catalog, rejecting
// duplicate rule names.
func NewCatalog(sets ...[]Rule) (*Catalog, error) {
	seen := make(map[string]struct{})
	var all []Rule
	for _, set := range sets {
		for _, r := range set {
			if r.Name == "" {
				return nil, fmt.Errorf("rule with empty name in category %q", r.Category)
			}
			if r.Predicate == nil {
				return nil, fmt.Errorf("rule %q has no predicate", r.Name)
			}
			if _, dup := seen[r.Name]; dup {
				return nil, fmt.Errorf("duplicate rule name %q", r.Name)
			}
			seen[r.Name] = struct{}{}
			all = append(all, r)
		}
	}
	return &Catalog{rules: all}, nil
}

// Len returns the number of rules in the catalog.
func (c *Catalog) Len() int { return len(c.rules) }

// Rules returns the catalog contents in order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Evaluate runs every rule against the transaction and returns the
// triggered subset in catalog order.
func (c *Catalog) Evaluate(tx *ledger.Transaction, fc features.Context) []TriggeredRule {
	var triggered []TriggeredRule
	for _, r := range c.rules {
		if !r.Predicate(tx, fc) {
			continue
		}
		triggered = append(triggered, TriggeredRule{
			Name:         r.Name,
			Category:     r.Category,
			Description:  r.Description,
			Weight:       r.Weight,
			HardOverride: r.HardOverride,
		})
	}
	return triggered
}

// Default returns the full production catalog with default thresholds.
func Default() (*Catalog, error) {
	return NewCatalog(
		VelocityRules(DefaultVelocityParams()),
		MuleRules(DefaultMuleParams()),
		BeneficiaryRules(DefaultBeneficiaryParams()),
		TakeoverRules(DefaultTakeoverParams()),
		OddHoursRules(DefaultOddHoursParams()),
		GeoRules(DefaultGeoParams()),
		ScreeningRules(DefaultScreeningParams()),
		CheckRules(DefaultCheckParams()),
		PayrollRules(DefaultPayrollParams()),
		HistoryRules(DefaultHistoryParams()),
	)
}
