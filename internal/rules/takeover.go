package rules

import (
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// TakeoverParams tune the account-takeover rules.
type TakeoverParams struct {
	ChangeWindowHrs  float64
	SIMWindowHrs     float64
	RapidChangeCount float64
	LargeAfterChange float64
}

func DefaultTakeoverParams() TakeoverParams {
	return TakeoverParams{
		ChangeWindowHrs:  48,
		SIMWindowHrs:     24,
		RapidChangeCount: 3,
		LargeAfterChange: 5000,
	}
}

// TakeoverRules covers the compromise-then-drain sequence: credentials
// change, then money moves out.
func TakeoverRules(p TakeoverParams) []Rule {
	const category = "account_takeover"

	changedWithin := func(c features.Context, hours float64) bool {
		h, ok := c.Float("hours_since_last_change")
		return ok && h <= hours
	}

	return []Rule{
		{
			Name:        "credential_change_before_transfer",
			Category:    category,
			Description: "outbound transfer shortly after a credential change",
			Weight:      3.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				return tx.Outbound() && changedWithin(c, p.ChangeWindowHrs)
			},
		},
		{
			Name:        "unverified_credential_change_transfer",
			Category:    category,
			Description: "transfer after an unverified credential change",
			Weight:      3.5,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				if !tx.Outbound() || !changedWithin(c, p.ChangeWindowHrs) {
					return false
				}
				n, ok := c.Float("unverified_change_count")
				return ok && n >= 1
			},
		},
		{
			Name:        "suspicious_credential_change_transfer",
			Category:    category,
			Description: "transfer after a credential change an upstream system flagged",
			Weight:      4.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				if !tx.Outbound() {
					return false
				}
				n, ok := c.Float("suspicious_change_count")
				return ok && n >= 1 && changedWithin(c, p.ChangeWindowHrs)
			},
		},
		{
			Name:        "sim_swap_before_transfer",
			Category:    category,
			Description: "outbound transfer within a day of a SIM change",
			Weight:      5.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				return tx.Outbound() && c.Flag("has_recent_sim_change") && changedWithin(c, p.SIMWindowHrs)
			},
		},
		{
			Name:        "first_outbound_after_credential_change",
			Category:    category,
			Description: "the first money out since credentials changed",
			Weight:      4.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_first_outbound_after_change")
			},
		},
		{
			Name:        "rapid_credential_changes",
			Category:    category,
			Description: "several credential changes within one week",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("account_change_count_168h")
				return ok && n >= p.RapidChangeCount
			},
		},
		{
			Name:        "large_transfer_after_credential_change",
			Category:    category,
			Description: "large outbound transfer shortly after a credential change",
			Weight:      4.5,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				return tx.Outbound() && tx.Amount >= p.LargeAfterChange && changedWithin(c, p.ChangeWindowHrs)
			},
		},
	}
}
