package features

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

// largeAmountYoungAccount is the amount that is notable on a young account.
const largeAmountYoungAccount = 10000.0

// accountHistorySignals classifies account maturity and looks up prior
// fraud determinations for both sides of the transaction.
//
// Keys: account_age_days, risk_tier, is_brand_new_account,
// account_age_risk_level, large_transaction_young_account,
// account_fraud_flag_count, counterparty_fraud_flag_count,
// is_repeat_offender, escalating_severity_pattern,
// days_since_last_fraud_flag.
func (a *Assembler) accountHistorySignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)

	account, err := a.store.GetAccount(ctx, tx.AccountID)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		// Unknown account: maturity signals stay absent.
	case err != nil:
		return nil, err
	default:
		ageDays := now.Sub(account.CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		out["account_age_days"] = ledger.Number(ageDays)
		out["risk_tier"] = ledger.String(account.RiskTier)
		out["is_brand_new_account"] = ledger.Bool(ageDays < 1)

		level := "low"
		switch {
		case ageDays < 1:
			level = "critical"
		case ageDays < 7:
			level = "high"
		case ageDays < 30:
			level = "medium"
		}
		out["account_age_risk_level"] = ledger.String(level)
		out["large_transaction_young_account"] = ledger.Bool(ageDays < 30 && tx.Amount >= largeAmountYoungAccount)
	}

	accountFlags, err := a.store.FraudFlags(ctx, "account", tx.AccountID)
	if err != nil {
		return nil, err
	}
	var counterpartyFlags []*ledger.FraudFlag
	if tx.CounterpartyID != "" {
		counterpartyFlags, err = a.store.FraudFlags(ctx, "counterparty", tx.CounterpartyID)
		if err != nil {
			return nil, err
		}
	}

	out["account_fraud_flag_count"] = ledger.Number(float64(len(accountFlags)))
	out["counterparty_fraud_flag_count"] = ledger.Number(float64(len(counterpartyFlags)))

	all := append(append([]*ledger.FraudFlag{}, accountFlags...), counterpartyFlags...)
	if len(all) == 0 {
		return out, nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FlaggedAt.Before(all[j].FlaggedAt) })

	out["is_repeat_offender"] = ledger.Bool(len(accountFlags) >= 2)

	var latest time.Time
	for _, f := range all {
		if f.FlaggedAt.After(latest) {
			latest = f.FlaggedAt
		}
	}
	out["days_since_last_fraud_flag"] = ledger.Number(now.Sub(latest).Hours() / 24)

	// Escalation: the recent half of the flags averaging more severe than
	// the older half.
	if len(all) >= 4 {
		mid := len(all) / 2
		older := make([]float64, 0, mid)
		recent := make([]float64, 0, len(all)-mid)
		for i, f := range all {
			if i < mid {
				older = append(older, f.Severity)
			} else {
				recent = append(recent, f.Severity)
			}
		}
		out["escalating_severity_pattern"] = ledger.Bool(mean(recent) > mean(older))
	}
	return out, nil
}
