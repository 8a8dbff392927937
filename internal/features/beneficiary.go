package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

// beneficiaryWindows are the registration lookbacks in hours.
var beneficiaryWindows = []int{24, 72, 168}

// Banking-detail change lookbacks for the current recipient.
const (
	detailChangeWindow = 7 * 24 * time.Hour
	rapidChangeWindow  = 30 * 24 * time.Hour
)

// Change sources an attacker can spoof without touching an authenticated
// system. Vendor-impersonation requests arrive this way.
func suspiciousChangeSource(source string) bool {
	switch source {
	case "email_request", "phone_request", "fax":
		return true
	}
	return false
}

// beneficiarySignals profiles beneficiary churn on the account: how many
// recipients were registered recently, where the registrations came from,
// what share of outbound payments goes to fresh recipients, and whether the
// candidate itself pays a just-registered beneficiary.
//
// For a recipient with banking-detail changes on record it also profiles
// the change history: how fresh the latest change is, whether any recent
// change skipped verification or came in over email/phone/fax, and whether
// this payment would be the first since the details changed.
//
// Keys: new_beneficiary_count_{24,72,168}h, top_registration_source,
// top_registration_source_count, payments_to_new_beneficiaries_ratio,
// is_new_beneficiary, beneficiary_age_hours, beneficiary_verified,
// detail_change_count_30d, hours_since_detail_change,
// unverified_detail_change, suspicious_detail_change_source,
// first_payment_after_detail_change.
func (a *Assembler) beneficiarySignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)

	recent, err := a.store.BeneficiariesRegistered(ctx, tx.AccountID, now.Add(-168*time.Hour))
	if err != nil {
		return nil, err
	}

	for _, hours := range beneficiaryWindows {
		cutoff := now.Add(-time.Duration(hours) * time.Hour)
		count := 0
		for _, b := range recent {
			if b.RegisteredAt.After(cutoff) {
				count++
			}
		}
		out[fmt.Sprintf("new_beneficiary_count_%dh", hours)] = ledger.Number(float64(count))
	}

	// Most common registration origin across the recent batch. Many
	// beneficiaries registered from one IP or user is a bulk-injection tell.
	sources := make(map[string]int)
	for _, b := range recent {
		if b.RegisteredByIP != "" {
			sources["ip:"+b.RegisteredByIP]++
		}
		if b.RegisteredByUser != "" {
			sources["user:"+b.RegisteredByUser]++
		}
	}
	topSource, topCount := "", 0
	for s, n := range sources {
		if n > topCount || (n == topCount && s < topSource) {
			topSource, topCount = s, n
		}
	}
	if topCount > 0 {
		out["top_registration_source"] = ledger.String(topSource)
		out["top_registration_source_count"] = ledger.Number(float64(topCount))
	}

	// Share of the week's outbound payments that went to beneficiaries
	// registered within the same week.
	payments, err := a.store.AccountTransactions(ctx, tx.AccountID, now.Add(-168*time.Hour))
	if err != nil {
		return nil, err
	}
	recentIDs := make(map[string]struct{}, len(recent))
	for _, b := range recent {
		recentIDs[b.ID] = struct{}{}
	}
	var outboundTotal, toNewTotal int
	for _, p := range payments {
		if !p.Outbound() || p.CounterpartyID == "" {
			continue
		}
		outboundTotal++
		if _, ok := recentIDs[p.CounterpartyID]; ok {
			toNewTotal++
		}
	}
	if outboundTotal > 0 {
		out["payments_to_new_beneficiaries_ratio"] = ledger.Number(float64(toNewTotal) / float64(outboundTotal))
	} else {
		out["payments_to_new_beneficiaries_ratio"] = ledger.Number(0)
	}

	// Freshness of the current recipient.
	if tx.CounterpartyID == "" || !tx.Outbound() {
		return out, nil
	}
	ben, err := a.store.GetBeneficiary(ctx, tx.CounterpartyID)
	if errors.Is(err, ledger.ErrNotFound) {
		// Counterparty is not a registered beneficiary; freshness is unknown.
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	ageHours := now.Sub(ben.RegisteredAt).Hours()
	out["beneficiary_age_hours"] = ledger.Number(ageHours)
	out["is_new_beneficiary"] = ledger.Bool(now.Sub(ben.RegisteredAt) <= a.cfg.NewBeneficiaryWindow)
	out["beneficiary_verified"] = ledger.Bool(ben.Verified)

	// Banking-detail change history of the current recipient.
	changes, err := a.store.BeneficiaryChanges(ctx, ben.ID, now.Add(-rapidChangeWindow))
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return out, nil
	}

	out["detail_change_count_30d"] = ledger.Number(float64(len(changes)))

	latest := changes[len(changes)-1]
	out["hours_since_detail_change"] = ledger.Number(now.Sub(latest.ChangedAt).Hours())

	unverified, suspicious := false, false
	for _, c := range changes {
		if now.Sub(c.ChangedAt) > detailChangeWindow {
			continue
		}
		if !c.Verified {
			unverified = true
		}
		if suspiciousChangeSource(c.Source) {
			suspicious = true
		}
	}
	out["unverified_detail_change"] = ledger.Bool(unverified)
	out["suspicious_detail_change_source"] = ledger.Bool(suspicious)

	// The first payment after a detail change is the one a hijacked change
	// is staged for. Requires a prior payment: a never-paid recipient is the
	// new-vendor case, not this one.
	if ben.LastPaymentAt != nil && latest.ChangedAt.After(*ben.LastPaymentAt) {
		paid, err := a.store.CounterpartyPayments(ctx, ben.ID, latest.ChangedAt)
		if err != nil {
			return nil, err
		}
		out["first_payment_after_detail_change"] = ledger.Bool(len(paid) == 0)
	}
	return out, nil
}
