package features

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

func TestMuleFlowThrough(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.AddTransaction(txAt("in1", "acc-1", 1000, ledger.DirectionCredit, "DEPOSIT", testBase.Add(-10*time.Hour)))
	store.AddTransaction(txAt("out1", "acc-1", 950, ledger.DirectionDebit, "TRANSFER", testBase.Add(-5*time.Hour)))

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	got, err := a.muleSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}

	if f := floatSignal(t, got, "flow_through_ratio_24h"); f != 0.95 {
		t.Errorf("flow_through_ratio_24h = %v, want 0.95", f)
	}
	if f := floatSignal(t, got, "incoming_count_24h"); f != 1 {
		t.Errorf("incoming_count_24h = %v, want 1", f)
	}
	if f := floatSignal(t, got, "avg_incoming_amount_24h"); f != 1000 {
		t.Errorf("avg_incoming_amount_24h = %v, want 1000", f)
	}
	if f := floatSignal(t, got, "avg_hours_to_transfer"); f != 5 {
		t.Errorf("avg_hours_to_transfer = %v, want 5", f)
	}
}

func TestMuleNoInboundFunds(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.AddTransaction(txAt("out1", "acc-1", 300, ledger.DirectionDebit, "TRANSFER", testBase.Add(-6*time.Hour)))

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	got, err := a.muleSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	// Nothing came in, so nothing flowed through.
	if f := floatSignal(t, got, "flow_through_ratio_24h"); f != 0 {
		t.Errorf("flow_through_ratio_24h = %v, want 0", f)
	}
	if f := floatSignal(t, got, "avg_incoming_amount_24h"); f != 0 {
		t.Errorf("avg_incoming_amount_24h = %v, want 0", f)
	}
	v, ok := got["avg_hours_to_transfer"]
	if !ok || !v.IsNull() {
		t.Errorf("avg_hours_to_transfer should be null with no inbound credits, got %v", v)
	}
}

func TestMuleGreedyPairing(t *testing.T) {
	store := ledger.NewMemoryStore()
	// Two credits, each pairing with the first debit that follows it.
	store.AddTransaction(txAt("in1", "acc-1", 500, ledger.DirectionCredit, "DEPOSIT", testBase.Add(-40*time.Hour)))
	store.AddTransaction(txAt("out1", "acc-1", 480, ledger.DirectionDebit, "TRANSFER", testBase.Add(-38*time.Hour)))
	store.AddTransaction(txAt("in2", "acc-1", 700, ledger.DirectionCredit, "DEPOSIT", testBase.Add(-20*time.Hour)))
	store.AddTransaction(txAt("out2", "acc-1", 690, ledger.DirectionDebit, "TRANSFER", testBase.Add(-14*time.Hour)))

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	got, err := a.muleSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	// Gaps are 2h and 6h.
	if f := floatSignal(t, got, "avg_hours_to_transfer"); math.Abs(f-4) > 1e-9 {
		t.Errorf("avg_hours_to_transfer = %v, want 4", f)
	}
}

func TestMuleRapidReversals(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.AddTransaction(txAt("in1", "acc-1", 400, ledger.DirectionCredit, "DEPOSIT", testBase.Add(-30*time.Hour)))
	store.AddTransaction(txAt("out1", "acc-1", 380, ledger.DirectionDebit, "TRANSFER", testBase.Add(-28*time.Hour)))
	store.AddTransaction(txAt("in2", "acc-1", 600, ledger.DirectionCredit, "DEPOSIT", testBase.Add(-10*time.Hour)))
	store.AddTransaction(txAt("out2", "acc-1", 590, ledger.DirectionDebit, "TRANSFER", testBase.Add(-7*time.Hour)))

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	got, err := a.muleSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if f := floatSignal(t, got, "rapid_reversal_count_72h"); f != 2 {
		t.Errorf("rapid_reversal_count_72h = %v, want 2", f)
	}
}

func TestMuleSlowOutboundIsNotAReversal(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.AddTransaction(txAt("in1", "acc-1", 400, ledger.DirectionCredit, "DEPOSIT", testBase.Add(-40*time.Hour)))
	store.AddTransaction(txAt("out1", "acc-1", 380, ledger.DirectionDebit, "TRANSFER", testBase.Add(-10*time.Hour)))

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	got, err := a.muleSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	// Thirty hours from credit to debit is ordinary activity.
	if f := floatSignal(t, got, "rapid_reversal_count_72h"); f != 0 {
		t.Errorf("rapid_reversal_count_72h = %v, want 0", f)
	}
}
