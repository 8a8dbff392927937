package rules

import (
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// ScreeningParams tune the watchlist and behavioral rules.
type ScreeningParams struct {
	VPNConfidence float64
}

func DefaultScreeningParams() ScreeningParams {
	return ScreeningParams{VPNConfidence: 0.8}
}

// ScreeningRules covers watchlist hits and not-the-owner session behavior.
// A blacklist match is a hard override.
func ScreeningRules(p ScreeningParams) []Rule {
	const category = "screening"
	return []Rule{
		{
			Name:         "blacklisted_entity",
			Category:     category,
			Description:  "a party or identifier on the transaction is blacklisted",
			Weight:       5.0,
			HardOverride: true,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_blacklisted")
			},
		},
		{
			Name:        "anonymized_origin",
			Category:    category,
			Description: "session arrived through a confidently identified VPN, proxy, or tor exit",
			Weight:      2.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				if !c.Flag("is_vpn") {
					return false
				}
				conf, ok := c.Float("vpn_confidence")
				return ok && conf >= p.VPNConfidence
			},
		},
		{
			Name:        "unknown_device",
			Category:    category,
			Description: "device fingerprint never seen on this account",
			Weight:      1.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				known, ok := c.Bool("is_known_device")
				return ok && !known
			},
		},
		{
			Name:        "behavioral_deviation",
			Category:    category,
			Description: "typing or mouse dynamics far from the owner's baseline",
			Weight:      3.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("behavioral_deviation")
			},
		},
		{
			Name:        "autofill_habit_inverted",
			Category:    category,
			Description: "autofill usage contradicts the owner's strong habit",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("autofill_flip")
			},
		},
	}
}
