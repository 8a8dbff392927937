package features

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

const checkLookback = 90 * 24 * time.Hour

// checkSignals covers paper-check fraud: the same physical check deposited
// twice, rapid deposit sequences, and a written amount that disagrees with
// the posted amount. The group is inert unless the transaction is a check
// with a check number in its metadata.
//
// Keys: check_number, duplicate_checks, duplicate_check_count,
// is_duplicate_check, check_count_1h, check_count_24h,
// check_amount_mismatch, check_amount_delta.
func (a *Assembler) checkSignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)

	if !strings.EqualFold(tx.Type, "CHECK") {
		return out, nil
	}
	checkNumber, ok := tx.Metadata.Str("check_number")
	if !ok || checkNumber == "" {
		return out, nil
	}
	out["check_number"] = ledger.String(checkNumber)

	history, err := a.store.AccountTransactionsByType(ctx, tx.AccountID, tx.Type, now.Add(-checkLookback))
	if err != nil {
		return nil, err
	}

	var duplicates []ledger.Value
	var count1h, count24h int
	for _, h := range history {
		if h.ID == tx.ID {
			continue
		}
		if h.Timestamp.After(now.Add(-time.Hour)) {
			count1h++
		}
		if h.Timestamp.After(now.Add(-24 * time.Hour)) {
			count24h++
		}
		n, ok := h.Metadata.Str("check_number")
		if !ok || n != checkNumber {
			continue
		}
		if h.Amount == tx.Amount {
			duplicates = append(duplicates, ledger.String(h.ID))
		}
	}
	out["duplicate_check_count"] = ledger.Number(float64(len(duplicates)))
	out["is_duplicate_check"] = ledger.Bool(len(duplicates) > 0)
	if len(duplicates) > 0 {
		out["duplicate_checks"] = ledger.List(duplicates...)
	}
	out["check_count_1h"] = ledger.Number(float64(count1h))
	out["check_count_24h"] = ledger.Number(float64(count24h))

	// The amount keyed off the physical check versus the amount posted.
	if written, ok := tx.Metadata.Float("check_amount"); ok {
		delta := math.Abs(written - tx.Amount)
		out["check_amount_mismatch"] = ledger.Bool(delta > 0.009)
		out["check_amount_delta"] = ledger.Number(delta)
	}
	return out, nil
}
