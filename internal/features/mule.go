package features

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

// muleWindows are the flow-through lookbacks in hours.
var muleWindows = []int{24, 72, 168}

// A credit followed by a debit within this window counts as a reversal.
const rapidReversalWindow = 6 * time.Hour

// muleSignals computes the money-mule pass-through profile: inbound vs
// outbound counts and totals per window, flow-through ratio, the average
// lag from each inbound credit to the next outbound debit, and how many
// credits were reversed out within hours.
//
// Keys: incoming_count_{24,72,168}h, outgoing_count_{24,72,168}h,
// incoming_total_{24,72,168}h, outgoing_total_{24,72,168}h,
// avg_incoming_amount_{24,72,168}h, flow_through_ratio_{24,72,168}h,
// avg_hours_to_transfer, rapid_reversal_count_72h.
func (a *Assembler) muleSignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)

	history, err := a.store.AccountTransactions(ctx, tx.AccountID, now.Add(-168*time.Hour))
	if err != nil {
		return nil, err
	}

	for _, hours := range muleWindows {
		cutoff := now.Add(-time.Duration(hours) * time.Hour)
		var inCount, outCount int
		var inTotal, outTotal float64
		for _, h := range history {
			if !h.Timestamp.After(cutoff) {
				continue
			}
			if h.Inbound() {
				inCount++
				inTotal += h.Amount
			} else {
				outCount++
				outTotal += h.Amount
			}
		}

		out[fmt.Sprintf("incoming_count_%dh", hours)] = ledger.Number(float64(inCount))
		out[fmt.Sprintf("outgoing_count_%dh", hours)] = ledger.Number(float64(outCount))
		out[fmt.Sprintf("incoming_total_%dh", hours)] = ledger.Number(inTotal)
		out[fmt.Sprintf("outgoing_total_%dh", hours)] = ledger.Number(outTotal)

		if inCount > 0 {
			out[fmt.Sprintf("avg_incoming_amount_%dh", hours)] = ledger.Number(inTotal / float64(inCount))
		} else {
			out[fmt.Sprintf("avg_incoming_amount_%dh", hours)] = ledger.Number(0)
		}
		// No inbound funds means nothing flowed through, not an undefined ratio.
		if inTotal > 0 {
			out[fmt.Sprintf("flow_through_ratio_%dh", hours)] = ledger.Number(outTotal / inTotal)
		} else {
			out[fmt.Sprintf("flow_through_ratio_%dh", hours)] = ledger.Number(0)
		}
	}

	// Average inbound-to-next-outbound lag over the past week. Greedy
	// first-match pairing: each credit pairs with the first later debit.
	var inbound, outbound []*ledger.Transaction
	for _, h := range history {
		if h.Inbound() {
			inbound = append(inbound, h)
		} else {
			outbound = append(outbound, h)
		}
	}

	var gaps []float64
	for _, in := range inbound {
		for _, o := range outbound {
			if o.Timestamp.After(in.Timestamp) {
				gaps = append(gaps, o.Timestamp.Sub(in.Timestamp).Hours())
				break
			}
		}
	}
	if len(gaps) > 0 {
		out["avg_hours_to_transfer"] = ledger.Number(mean(gaps))
	} else {
		out["avg_hours_to_transfer"] = ledger.Null()
	}

	// Credits reversed out within hours over the past three days. Each
	// credit pairs with the first later debit, same as the lag pairing.
	reversalCutoff := now.Add(-72 * time.Hour)
	reversals := 0
	for _, in := range inbound {
		if !in.Timestamp.After(reversalCutoff) {
			continue
		}
		for _, o := range outbound {
			if o.Timestamp.After(in.Timestamp) {
				if o.Timestamp.Sub(in.Timestamp) <= rapidReversalWindow {
					reversals++
				}
				break
			}
		}
	}
	out["rapid_reversal_count_72h"] = ledger.Number(float64(reversals))
	return out, nil
}
