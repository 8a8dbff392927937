package rules

import (
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// BeneficiaryParams tune the beneficiary-fraud (BEC) rules.
type BeneficiaryParams struct {
	HighValueAmount    float64
	BurstCount24h      float64
	SingleSourceMin    float64
	NewPaymentsRatio   float64
	SameDayChangeHours float64
	RapidChangeCount   float64
}

func DefaultBeneficiaryParams() BeneficiaryParams {
	return BeneficiaryParams{
		HighValueAmount:    10000,
		BurstCount24h:      3,
		SingleSourceMin:    5,
		NewPaymentsRatio:   0.5,
		SameDayChangeHours: 24,
		RapidChangeCount:   3,
	}
}

// BeneficiaryRules covers business-email-compromise patterns: freshly
// registered recipients, bulk beneficiary injection, high-value payments to
// recipients nobody has paid before, and payments chasing a recent change
// to the recipient's banking details.
func BeneficiaryRules(p BeneficiaryParams) []Rule {
	const category = "beneficiary"
	return []Rule{
		{
			Name:        "new_beneficiary_payment",
			Category:    category,
			Description: "payment to a beneficiary registered within the freshness window",
			Weight:      2.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_new_beneficiary")
			},
		},
		{
			Name:        "new_beneficiary_high_value",
			Category:    category,
			Description: "high-value payment to a just-registered beneficiary",
			Weight:      5.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				return c.Flag("is_new_beneficiary") && tx.Amount >= p.HighValueAmount
			},
		},
		{
			Name:        "unverified_beneficiary_high_value",
			Category:    category,
			Description: "high-value payment to an unverified beneficiary",
			Weight:      3.5,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				verified, ok := c.Bool("beneficiary_verified")
				return ok && !verified && tx.Amount >= p.HighValueAmount
			},
		},
		{
			Name:        "beneficiary_registration_burst",
			Category:    category,
			Description: "several beneficiaries registered within one day",
			Weight:      3.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("new_beneficiary_count_24h")
				return ok && n >= p.BurstCount24h
			},
		},
		{
			Name:        "bulk_beneficiary_injection",
			Category:    category,
			Description: "many recent beneficiaries registered from a single origin",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("top_registration_source_count")
				return ok && n >= p.SingleSourceMin
			},
		},
		{
			Name:        "payment_hours_after_detail_change",
			Category:    category,
			Description: "payment within a day of the recipient's banking details changing",
			Weight:      5.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				h, ok := c.Float("hours_since_detail_change")
				return ok && h <= p.SameDayChangeHours
			},
		},
		{
			Name:        "unverified_detail_change",
			Category:    category,
			Description: "the recipient's banking details changed recently without verification",
			Weight:      4.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("unverified_detail_change")
			},
		},
		{
			Name:        "suspicious_detail_change_source",
			Category:    category,
			Description: "the recipient's banking details were changed via email, phone, or fax request",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("suspicious_detail_change_source")
			},
		},
		{
			Name:        "first_payment_after_detail_change",
			Category:    category,
			Description: "first payment to the recipient since their banking details changed",
			Weight:      3.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				return c.Flag("first_payment_after_detail_change")
			},
		},
		{
			Name:        "rapid_detail_changes",
			Category:    category,
			Description: "the recipient's banking details changed several times within a month",
			Weight:      3.5,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				n, ok := c.Float("detail_change_count_30d")
				return ok && n >= p.RapidChangeCount
			},
		},
		{
			Name:        "payments_shift_to_new_beneficiaries",
			Category:    category,
			Description: "a large share of the week's payments went to fresh beneficiaries",
			Weight:      3.0,
			Predicate: func(_ *ledger.Transaction, c features.Context) bool {
				r, ok := c.Float("payments_to_new_beneficiaries_ratio")
				return ok && r >= p.NewPaymentsRatio
			},
		},
	}
}
