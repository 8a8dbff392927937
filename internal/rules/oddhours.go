package rules

import (
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// OddHoursParams tune the timing rules.
type OddHoursParams struct {
	LargeAmount     float64
	VeryLargeAmount float64
}

func DefaultOddHoursParams() OddHoursParams {
	return OddHoursParams{
		LargeAmount:     1000,
		VeryLargeAmount: 10000,
	}
}

// OddHoursRules covers transactions at hours the account, or anyone, would
// not normally transact.
func OddHoursRules(p OddHoursParams) []Rule {
	const category = "odd_hours"
	return []Rule{
		{
			Name:        "odd_hours_transaction",
			Category:    category,
			Description: "transaction inside the overnight window",
			Weight:      2.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_odd_hours")
			},
		},
		{
			Name:        "large_odd_hours_transaction",
			Category:    category,
			Description: "large transaction overnight",
			Weight:      3.5,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_odd_hours") && tx.Amount >= p.LargeAmount && tx.Amount < p.VeryLargeAmount
			},
		},
		{
			Name:        "very_large_odd_hours_transaction",
			Category:    category,
			Description: "very large transaction overnight",
			Weight:      5.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_odd_hours") && tx.Amount >= p.VeryLargeAmount
			},
		},
		{
			Name:        "weekend_odd_hours_transaction",
			Category:    category,
			Description: "overnight transaction on a weekend",
			Weight:      4.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_odd_hours") && c.Flag("is_weekend")
			},
		},
		{
			Name:        "unusual_hour_for_account",
			Category:    category,
			Description: "hour deviates from the account's own timing pattern",
			Weight:      4.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("hour_is_unusual")
			},
		},
		{
			Name:        "odd_hours_new_counterparty",
			Category:    category,
			Description: "first-ever counterparty paid overnight",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_odd_hours") && c.Flag("is_new_counterparty")
			},
		},
	}
}
