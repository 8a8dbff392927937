package rules

import (
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// VelocityParams tune the core velocity and amount-anomaly rules.
type VelocityParams struct {
	BurstCount1h      float64
	BurstCount24h     float64
	SmallDepositCount float64
	DeviationHigh     float64
	DeviationExtreme  float64
	LargeAmount       float64
}

func DefaultVelocityParams() VelocityParams {
	return VelocityParams{
		BurstCount1h:      5,
		BurstCount24h:     20,
		SmallDepositCount: 5,
		DeviationHigh:     3.0,
		DeviationExtreme:  5.0,
		LargeAmount:       10000,
	}
}

// VelocityRules covers transaction-rate bursts, structuring via repeated
// small deposits, and amounts far outside the account's own baseline.
func VelocityRules(p VelocityParams) []Rule {
	const category = "velocity"
	return []Rule{
		{
			Name:        "velocity_burst_1h",
			Category:    category,
			Description: "unusually many transactions within one hour",
			Weight:      2.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("tx_count_1h")
				return ok && n >= p.BurstCount1h
			},
		},
		{
			Name:        "velocity_burst_24h",
			Category:    category,
			Description: "unusually many transactions within one day",
			Weight:      2.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("tx_count_24h")
				return ok && n >= p.BurstCount24h
			},
		},
		{
			Name:        "structuring_small_deposits",
			Category:    category,
			Description: "repeated small deposits below the reporting radar",
			Weight:      3.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("small_deposit_count_24h")
				return ok && n >= p.SmallDepositCount
			},
		},
		{
			Name:        "amount_deviation_high",
			Category:    category,
			Description: "amount well outside the account's same-type baseline",
			Weight:      2.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				d, ok := c.Float("amount_deviation")
				return ok && d >= p.DeviationHigh && d < p.DeviationExtreme
			},
		},
		{
			Name:        "amount_deviation_extreme",
			Category:    category,
			Description: "amount extremely far from the account's baseline, or no baseline at all",
			Weight:      4.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				d, ok := c.Float("amount_deviation")
				return ok && d >= p.DeviationExtreme
			},
		},
		{
			Name:        "large_transaction",
			Category:    category,
			Description: "single transaction over the large-amount bar",
			Weight:      1.5,
			Predicate: func(tx *ledger.Transaction, _ features.Context) bool {
				return tx.Amount >= p.LargeAmount
			},
		},
	}
}
