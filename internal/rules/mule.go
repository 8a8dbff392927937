package rules

import (
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// MuleParams tune the money-mule pass-through rules.
type MuleParams struct {
	FlowThroughRatio float64
	FanInCount       float64
	QuickTransferHrs float64
	MinInboundTotal  float64
	TestDepositCount float64
	LargeOutboundMin float64
	RapidReversalMin float64
}

func DefaultMuleParams() MuleParams {
	return MuleParams{
		FlowThroughRatio: 0.8,
		FanInCount:       10,
		QuickTransferHrs: 2,
		MinInboundTotal:  500,
		TestDepositCount: 3,
		LargeOutboundMin: 1000,
		RapidReversalMin: 2,
	}
}

// MuleRules covers pass-through accounts: money arrives, sits briefly, and
// leaves nearly whole. It also catches the probe-then-drain sequence where
// small test deposits precede a large outbound movement.
func MuleRules(p MuleParams) []Rule {
	const category = "money_mule"
	return []Rule{
		{
			Name:        "rapid_flow_through",
			Category:    category,
			Description: "most inbound funds left the account within a day",
			Weight:      4.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				ratio, ok := c.Float("flow_through_ratio_24h")
				if !ok || ratio < p.FlowThroughRatio {
					return false
				}
				total, ok := c.Float("incoming_total_24h")
				return ok && total >= p.MinInboundTotal
			},
		},
		{
			Name:        "sustained_flow_through",
			Category:    category,
			Description: "week-long pass-through pattern",
			Weight:      3.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				ratio, ok := c.Float("flow_through_ratio_168h")
				if !ok || ratio < p.FlowThroughRatio {
					return false
				}
				total, ok := c.Float("incoming_total_168h")
				return ok && total >= p.MinInboundTotal
			},
		},
		{
			Name:        "mule_fan_in",
			Category:    category,
			Description: "many distinct inbound credits over three days",
			Weight:      2.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("incoming_count_72h")
				return ok && n >= p.FanInCount
			},
		},
		{
			Name:        "small_test_then_large_outbound",
			Category:    category,
			Description: "small test deposits in the past day followed by a large outbound movement",
			Weight:      4.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				if !tx.Outbound() || tx.Amount < p.LargeOutboundMin {
					return false
				}
				n, ok := c.Float("small_deposit_count_24h")
				return ok && n >= p.TestDepositCount
			},
		},
		{
			Name:        "rapid_reversals",
			Category:    category,
			Description: "several credits were reversed back out within hours",
			Weight:      3.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("rapid_reversal_count_72h")
				return ok && n >= p.RapidReversalMin
			},
		},
		{
			Name:        "quick_transfer_after_deposit",
			Category:    category,
			Description: "deposits are forwarded within hours of arriving",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				hrs, ok := c.Float("avg_hours_to_transfer")
				return ok && hrs <= p.QuickTransferHrs
			},
		},
	}
}
