package rules

import (
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// CheckParams tune the paper-check rules.
type CheckParams struct {
	RapidCount1h float64
}

func DefaultCheckParams() CheckParams {
	return CheckParams{RapidCount1h: 2}
}

// CheckRules covers duplicate deposits, rapid deposit sequences, and
// written-versus-posted amount mismatches.
func CheckRules(p CheckParams) []Rule {
	const category = "check_fraud"
	return []Rule{
		{
			Name:        "duplicate_check_deposit",
			Category:    category,
			Description: "the same check number and amount was already deposited",
			Weight:      5.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_duplicate_check")
			},
		},
		{
			Name:        "rapid_check_sequence",
			Category:    category,
			Description: "several checks deposited within one hour",
			Weight:      3.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("check_count_1h")
				return ok && n >= p.RapidCount1h
			},
		},
		{
			Name:        "check_amount_mismatch",
			Category:    category,
			Description: "posted amount disagrees with the amount written on the check",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("check_amount_mismatch")
			},
		},
	}
}
