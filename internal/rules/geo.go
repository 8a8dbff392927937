package rules

import (
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// GeoParams tune the geographic rules.
type GeoParams struct {
	HighRiskSeverity float64
}

func DefaultGeoParams() GeoParams {
	return GeoParams{HighRiskSeverity: 0.5}
}

// GeoRules covers risky jurisdictions, country-pattern deviations, and
// physically impossible movement. A block-by-default jurisdiction is a hard
// override: no score can approve it.
func GeoRules(p GeoParams) []Rule {
	const category = "geographic"
	return []Rule{
		{
			Name:         "blocked_jurisdiction",
			Category:     category,
			Description:  "origin jurisdiction is blocked by policy",
			Weight:       5.0,
			HardOverride: true,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("location_block_by_default")
			},
		},
		{
			Name:        "sanctioned_jurisdiction",
			Category:    category,
			Description: "origin jurisdiction is under sanctions",
			Weight:      5.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_sanctioned") || c.Flag("is_embargoed")
			},
		},
		{
			Name:        "high_risk_country",
			Category:    category,
			Description: "origin country is on the high-risk list",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				if !c.Flag("is_high_risk_location") {
					return false
				}
				sev, ok := c.Float("high_risk_severity")
				return ok && sev >= p.HighRiskSeverity
			},
		},
		{
			Name:        "impossible_travel",
			Category:    category,
			Description: "consecutive transactions imply impossible physical movement",
			Weight:      5.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("impossible_travel")
			},
		},
		{
			Name:        "first_transaction_from_country",
			Category:    category,
			Description: "country never seen on this account before",
			Weight:      2.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_new_country")
			},
		},
		{
			Name:        "deviates_from_primary_country",
			Category:    category,
			Description: "transaction outside the account's dominant country",
			Weight:      2.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("deviates_from_primary_country")
			},
		},
	}
}
