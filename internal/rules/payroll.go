package rules

import (
	"strings"

	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
)

// PayrollParams tune the payroll-diversion rules.
type PayrollParams struct {
	ChangeWindowHrs  float64
	HighValueAmount  float64
	RapidChangeCount float64
}

func DefaultPayrollParams() PayrollParams {
	return PayrollParams{
		ChangeWindowHrs:  72,
		HighValueAmount:  15000,
		RapidChangeCount: 2,
	}
}

func isPayroll(tx *ledger.Transaction) bool {
	return strings.EqualFold(tx.Type, "PAYROLL")
}

// PayrollRules covers payroll diversion: deposit details change, then the
// next payroll run lands somewhere new.
func PayrollRules(p PayrollParams) []Rule {
	const category = "payroll"

	changedWithin := func(c features.Context, hours float64) bool {
		h, ok := c.Float("hours_since_last_change")
		return ok && h <= hours
	}

	return []Rule{
		{
			Name:        "payroll_after_account_change",
			Category:    category,
			Description: "payroll run shortly after the account's details changed",
			Weight:      3.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				return isPayroll(tx) && changedWithin(c, p.ChangeWindowHrs)
			},
		},
		{
			Name:        "payroll_after_unverified_change",
			Category:    category,
			Description: "payroll run after an unverified account change",
			Weight:      4.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				if !isPayroll(tx) || !changedWithin(c, p.ChangeWindowHrs) {
					return false
				}
				n, ok := c.Float("unverified_change_count")
				return ok && n >= 1
			},
		},
		{
			Name:        "payroll_after_suspicious_change",
			Category:    category,
			Description: "payroll run after a flagged account change",
			Weight:      3.5,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				if !isPayroll(tx) || !changedWithin(c, p.ChangeWindowHrs) {
					return false
				}
				n, ok := c.Float("suspicious_change_count")
				return ok && n >= 1
			},
		},
		{
			Name:        "payroll_rapid_account_changes",
			Category:    category,
			Description: "payroll run while account details churn",
			Weight:      3.0,
			Predicate: func(tx *ledger.Transaction, c features.Context) bool {
				if !isPayroll(tx) {
					return false
				}
				n, ok := c.Float("account_change_count_168h")
				return ok && n >= p.RapidChangeCount
			},
		},
		{
			Name:        "high_value_payroll",
			Category:    category,
			Description: "payroll amount over the high-value bar",
			Weight:      2.0,
			Predicate: func(tx *ledger.Transaction, _ features.Context) bool {
				return isPayroll(tx) && tx.Amount >= p.HighValueAmount
			},
		},
	}
}
