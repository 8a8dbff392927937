package features

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

// velocityWindows are the transaction-count lookbacks in hours.
var velocityWindows = []int{1, 6, 24, 168}

const sameTypeLookback = 90 * 24 * time.Hour

// velocitySignals computes transaction-rate counts per window plus the
// deviation of the current amount from the account's same-type history.
//
// Keys: tx_count_{1,6,24,168}h, small_deposit_count_{1,6,24,168}h,
// avg_transaction_amount, amount_deviation.
func (a *Assembler) velocitySignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)

	// One widest-window query serves every sub-window.
	history, err := a.store.AccountTransactions(ctx, tx.AccountID, now.Add(-168*time.Hour))
	if err != nil {
		return nil, err
	}

	for _, hours := range velocityWindows {
		cutoff := now.Add(-time.Duration(hours) * time.Hour)
		var count, smallDeposits int
		for _, h := range history {
			if !h.Timestamp.After(cutoff) {
				continue
			}
			count++
			if h.Inbound() && h.Amount <= a.cfg.SmallDepositMax {
				smallDeposits++
			}
		}
		// The candidate itself counts toward the small-deposit pattern.
		if tx.Inbound() && tx.Amount <= a.cfg.SmallDepositMax {
			smallDeposits++
		}
		out[fmt.Sprintf("tx_count_%dh", hours)] = ledger.Number(float64(count))
		out[fmt.Sprintf("small_deposit_count_%dh", hours)] = ledger.Number(float64(smallDeposits))
	}

	if tx.Type == "" {
		return out, nil
	}

	similar, err := a.store.AccountTransactionsByType(ctx, tx.AccountID, tx.Type, now.Add(-sameTypeLookback))
	if err != nil {
		return nil, err
	}
	amounts := make([]float64, 0, len(similar))
	for _, s := range similar {
		if s.ID == tx.ID {
			continue
		}
		amounts = append(amounts, s.Amount)
	}

	if len(amounts) == 0 {
		// Cold start: no same-type history. Report the sentinel deviation so
		// first-of-type transactions read as high-risk, not as zero-risk.
		out["avg_transaction_amount"] = ledger.Number(0)
		out["amount_deviation"] = ledger.Number(a.cfg.DeviationSentinel)
		return out, nil
	}

	avg := mean(amounts)
	sd := stddev(amounts, avg)
	out["avg_transaction_amount"] = ledger.Number(avg)

	if sd > 0 {
		out["amount_deviation"] = ledger.Number(math.Abs(tx.Amount-avg) / sd)
	} else {
		// All historical amounts identical: fall back to an amount ratio.
		out["amount_deviation"] = ledger.Number(math.Abs(tx.Amount / math.Max(avg, 0.01)))
	}
	return out, nil
}
