package features

import (
	"context"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

// minHourSample is the history size below which the personal hour pattern
// is considered unknown.
const minHourSample = 10

const oddHoursLookback = 30 * 24 * time.Hour

// inOddHours reports whether the hour falls inside the configured window,
// which may wrap across midnight (e.g. 22..06).
func (a *Assembler) inOddHours(hour int) bool {
	start, end := a.cfg.OddHoursStart, a.cfg.OddHoursEnd
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// oddHoursSignals classifies the transaction against the clock and against
// the account's own timing history. A night-shift account that always
// transacts at 03:00 deviates at 14:00, not at 03:00.
//
// Keys: tx_hour, is_odd_hours, is_weekend, insufficient_history,
// historical_odd_hours_ratio, hour_is_unusual,
// recent_odd_hours_transaction_count, recent_odd_hours_total_amount.
func (a *Assembler) oddHoursSignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)

	hour := tx.Timestamp.UTC().Hour()
	weekday := tx.Timestamp.UTC().Weekday()
	isOdd := a.inOddHours(hour)
	isWeekend := weekday == time.Saturday || weekday == time.Sunday

	out["tx_hour"] = ledger.Number(float64(hour))
	out["is_odd_hours"] = ledger.Bool(isOdd)
	out["is_weekend"] = ledger.Bool(isWeekend)

	history, err := a.store.AccountTransactions(ctx, tx.AccountID, now.Add(-oddHoursLookback))
	if err != nil {
		return nil, err
	}

	var prior, priorOdd, recentOddCount int
	var recentOddTotal float64
	for _, h := range history {
		if h.ID == tx.ID {
			continue
		}
		prior++
		if a.inOddHours(h.Timestamp.UTC().Hour()) {
			priorOdd++
			recentOddCount++
			recentOddTotal += h.Amount
		}
	}
	out["recent_odd_hours_transaction_count"] = ledger.Number(float64(recentOddCount))
	out["recent_odd_hours_total_amount"] = ledger.Number(recentOddTotal)

	if prior < minHourSample {
		out["insufficient_history"] = ledger.Bool(true)
		return out, nil
	}
	out["insufficient_history"] = ledger.Bool(false)

	oddRatio := float64(priorOdd) / float64(prior)
	out["historical_odd_hours_ratio"] = ledger.Number(oddRatio)

	// Unusual means the account rarely transacts at this kind of hour, not
	// that the hour is globally odd.
	unusual := false
	if isOdd && oddRatio < 0.1 {
		unusual = true
	}
	if !isOdd && oddRatio > 0.9 {
		unusual = true
	}
	out["hour_is_unusual"] = ledger.Bool(unusual)
	return out, nil
}
