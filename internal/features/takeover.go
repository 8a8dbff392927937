package features

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

// takeoverWindows are the credential-change lookbacks in hours (1d, 1w, 30d).
var takeoverWindows = []int{24, 168, 720}

// takeoverSignals detects the account-takeover preamble: phone, device, or
// SIM changes shortly before money moves out.
//
// Keys: account_change_count_{24,168,720}h, has_recent_phone_change,
// has_recent_device_change, has_recent_sim_change, unverified_change_count,
// suspicious_change_count, hours_since_last_change,
// is_first_outbound_after_change.
func (a *Assembler) takeoverSignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)

	changes, err := a.store.AccountChanges(ctx, tx.AccountID, now.Add(-720*time.Hour))
	if err != nil {
		return nil, err
	}

	for _, hours := range takeoverWindows {
		cutoff := now.Add(-time.Duration(hours) * time.Hour)
		count := 0
		for _, c := range changes {
			if c.ChangedAt.After(cutoff) {
				count++
			}
		}
		out[fmt.Sprintf("account_change_count_%dh", hours)] = ledger.Number(float64(count))
	}

	if len(changes) == 0 {
		return out, nil
	}

	var unverified, suspicious int
	byField := make(map[string]bool)
	var last time.Time
	for _, c := range changes {
		byField[c.Field] = true
		if !c.Verified {
			unverified++
		}
		if c.Suspicious {
			suspicious++
		}
		if c.ChangedAt.After(last) {
			last = c.ChangedAt
		}
	}
	out["has_recent_phone_change"] = ledger.Bool(byField["phone"])
	out["has_recent_device_change"] = ledger.Bool(byField["device"])
	out["has_recent_sim_change"] = ledger.Bool(byField["sim"])
	out["unverified_change_count"] = ledger.Number(float64(unverified))
	out["suspicious_change_count"] = ledger.Number(float64(suspicious))
	out["hours_since_last_change"] = ledger.Number(now.Sub(last).Hours())

	// The first outbound transaction after a credential change is the moment
	// a takeover monetizes.
	if tx.Outbound() {
		since, err := a.store.AccountTransactions(ctx, tx.AccountID, last)
		if err != nil {
			return nil, err
		}
		priorOutbound := 0
		for _, s := range since {
			if s.ID != tx.ID && s.Outbound() {
				priorOutbound++
			}
		}
		out["is_first_outbound_after_change"] = ledger.Bool(priorOutbound == 0)
	}
	return out, nil
}
