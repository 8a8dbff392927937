package features

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

func paymentTo(id, counterparty string, amount float64, ts time.Time) *ledger.Transaction {
	tx := txAt(id, "acc-1", amount, ledger.DirectionDebit, "TRANSFER", ts)
	tx.CounterpartyID = counterparty
	return tx
}

func relationshipStatus(t *testing.T, store *ledger.MemoryStore, lastPaymentAge time.Duration) string {
	t.Helper()
	store.AddTransaction(paymentTo("last", "cp-1", 100, testBase.Add(-lastPaymentAge)))

	a := newTestAssembler(store)
	tx := paymentTo("tx", "cp-1", 100, testBase)
	got, err := a.relationshipSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := got["relationship_status"].Str()
	return s
}

func TestRelationshipStatusBuckets(t *testing.T) {
	cases := []struct {
		age  time.Duration
		want string
	}{
		{10 * 24 * time.Hour, "active"},
		{60 * 24 * time.Hour, "recent"},
		{120 * 24 * time.Hour, "inactive"},
		{200 * 24 * time.Hour, "dormant"},
	}
	for _, tc := range cases {
		if s := relationshipStatus(t, ledger.NewMemoryStore(), tc.age); s != tc.want {
			t.Errorf("last payment %v ago: status = %q, want %q", tc.age, s, tc.want)
		}
	}
}

func TestRelationshipNewCounterparty(t *testing.T) {
	a := newTestAssembler(ledger.NewMemoryStore())
	tx := paymentTo("tx", "cp-1", 100, testBase)
	got, err := a.relationshipSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if !boolSignal(t, got, "is_new_counterparty") {
		t.Error("no prior history means a new counterparty")
	}
	if s, _ := got["relationship_status"].Str(); s != "new" {
		t.Errorf("relationship_status = %q, want new", s)
	}
	if f := floatSignal(t, got, "social_trust_score"); f != 0 {
		t.Errorf("social_trust_score = %v, want 0 for a stranger", f)
	}
}

func TestRelationshipNoCounterparty(t *testing.T) {
	a := newTestAssembler(ledger.NewMemoryStore())
	tx := txAt("tx", "acc-1", 100, ledger.DirectionCredit, "DEPOSIT", testBase)
	got, err := a.relationshipSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no relationship signals without a counterparty, got %v", got)
	}
}

func TestSocialTrustScoreEstablished(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutBeneficiary(&ledger.Beneficiary{
		ID: "cp-1", AccountID: "acc-1",
		RegisteredAt: testBase.Add(-365 * 24 * time.Hour),
		Verified:     true, InContacts: true, SocialLinked: true,
	})
	// Three identical recent payments.
	for i := 0; i < 3; i++ {
		id := string(rune('a' + i))
		store.AddTransaction(paymentTo(id, "cp-1", 100, testBase.Add(-time.Duration(i+1)*5*24*time.Hour)))
	}

	a := newTestAssembler(store)
	tx := paymentTo("tx", "cp-1", 100, testBase)
	got, err := a.relationshipSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}

	// 10+15+15+10 registration block, 10 for three payments, 10 recency,
	// 25 for perfectly consistent amounts.
	if f := floatSignal(t, got, "social_trust_score"); f != 95 {
		t.Errorf("social_trust_score = %v, want 95", f)
	}
	if f := floatSignal(t, got, "amount_consistency_cv"); f != 0 {
		t.Errorf("amount_consistency_cv = %v, want 0", f)
	}
	if f := floatSignal(t, got, "counterparty_payment_count"); f != 3 {
		t.Errorf("counterparty_payment_count = %v, want 3", f)
	}
}

func TestSocialTrustScoreErraticAmounts(t *testing.T) {
	store := ledger.NewMemoryStore()
	amounts := []float64{10, 500, 2000}
	for i, amt := range amounts {
		id := string(rune('a' + i))
		store.AddTransaction(paymentTo(id, "cp-1", amt, testBase.Add(-time.Duration(i+1)*5*24*time.Hour)))
	}

	a := newTestAssembler(store)
	tx := paymentTo("tx", "cp-1", 100, testBase)
	got, err := a.relationshipSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	// Unregistered counterparty, three erratic payments: history 10 plus
	// recency 10, no consistency credit.
	if f := floatSignal(t, got, "social_trust_score"); f != 20 {
		t.Errorf("social_trust_score = %v, want 20", f)
	}
	cv := floatSignal(t, got, "amount_consistency_cv")
	if cv < 1.0 {
		t.Errorf("amount_consistency_cv = %v, want >= 1.0 for erratic amounts", cv)
	}
}
