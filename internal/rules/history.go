package rules

import (
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// HistoryParams tune the account-maturity and trust rules.
type HistoryParams struct {
	LowTrustScore   float64
	HighValueAmount float64
}

func DefaultHistoryParams() HistoryParams {
	return HistoryParams{
		LowTrustScore:   20,
		HighValueAmount: 5000,
	}
}

// HistoryRules covers account maturity, prior fraud determinations, and the
// relationship-trust composite.
func HistoryRules(p HistoryParams) []Rule {
	const category = "account_history"
	return []Rule{
		{
			Name:        "brand_new_account",
			Category:    category,
			Description: "account opened less than a day ago",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_brand_new_account")
			},
		},
		{
			Name:        "large_transaction_young_account",
			Category:    category,
			Description: "large amount moving through an account under a month old",
			Weight:      6.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("large_transaction_young_account")
			},
		},
		{
			Name:        "repeat_offender",
			Category:    category,
			Description: "the account has multiple prior fraud flags",
			Weight:      4.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_repeat_offender")
			},
		},
		{
			Name:        "escalating_fraud_severity",
			Category:    category,
			Description: "prior fraud flags grow more severe over time",
			Weight:      4.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("escalating_severity_pattern")
			},
		},
		{
			Name:        "flagged_counterparty",
			Category:    category,
			Description: "the counterparty carries a prior fraud flag",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("counterparty_fraud_flag_count")
				return ok && n >= 1
			},
		},
		{
			Name:        "dormant_relationship_reactivated",
			Category:    category,
			Description: "payment to a counterparty dormant for half a year",
			Weight:      3.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				s, ok := c.Str("relationship_status")
				return ok && s == "dormant"
			},
		},
		{
			Name:        "low_trust_high_value",
			Category:    category,
			Description: "high-value payment to a counterparty with a rock-bottom trust score",
			Weight:      3.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				score, ok := c.Float("social_trust_score")
				return ok && score <= p.LowTrustScore && tx.Amount >= p.HighValueAmount
			},
		},
	}
}
