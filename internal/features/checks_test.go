package features

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

func checkTx(id string, amount float64, number string, ts time.Time) *ledger.Transaction {
	tx := txAt(id, "acc-1", amount, ledger.DirectionCredit, "CHECK", ts)
	tx.Metadata = ledger.Metadata{"check_number": ledger.String(number)}
	return tx
}

func TestCheckSignalsInertForNonChecks(t *testing.T) {
	a := newTestAssembler(ledger.NewMemoryStore())
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	got, err := a.checkSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no check signals for a transfer, got %v", got)
	}
}

func TestCheckSignalsInertWithoutNumber(t *testing.T) {
	a := newTestAssembler(ledger.NewMemoryStore())
	tx := txAt("tx", "acc-1", 100, ledger.DirectionCredit, "CHECK", testBase)
	got, err := a.checkSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no check signals without a check number, got %v", got)
	}
}

func TestDuplicateCheckDeposit(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.AddTransaction(checkTx("first", 500, "1042", testBase.Add(-10*24*time.Hour)))

	a := newTestAssembler(store)
	tx := checkTx("second", 500, "1042", testBase)
	got, err := a.checkSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}

	if !boolSignal(t, got, "is_duplicate_check") {
		t.Fatal("the same check number and amount was deposited before")
	}
	if f := floatSignal(t, got, "duplicate_check_count"); f != 1 {
		t.Errorf("duplicate_check_count = %v, want 1", f)
	}
	items, ok := got["duplicate_checks"].Items()
	if !ok || len(items) != 1 {
		t.Fatalf("duplicate_checks = %v, want one entry", got["duplicate_checks"])
	}
	if id, _ := items[0].Str(); id != "first" {
		t.Errorf("duplicate_checks[0] = %q, want the prior transaction id", id)
	}
}

func TestSameNumberDifferentAmount(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.AddTransaction(checkTx("first", 500, "1042", testBase.Add(-10*24*time.Hour)))

	a := newTestAssembler(store)
	tx := checkTx("second", 750, "1042", testBase)
	got, err := a.checkSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	// A reissued check number with a different amount is not a duplicate.
	if boolSignal(t, got, "is_duplicate_check") {
		t.Error("different amounts are not a duplicate deposit")
	}
}

func TestRapidCheckSequence(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.AddTransaction(checkTx("c1", 200, "2001", testBase.Add(-30*time.Minute)))
	store.AddTransaction(checkTx("c2", 300, "2002", testBase.Add(-45*time.Minute)))
	store.AddTransaction(checkTx("c3", 400, "2003", testBase.Add(-10*time.Hour)))

	a := newTestAssembler(store)
	tx := checkTx("tx", 250, "2004", testBase)
	got, err := a.checkSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if f := floatSignal(t, got, "check_count_1h"); f != 2 {
		t.Errorf("check_count_1h = %v, want 2", f)
	}
	if f := floatSignal(t, got, "check_count_24h"); f != 3 {
		t.Errorf("check_count_24h = %v, want 3", f)
	}
}

func TestCheckAmountMismatch(t *testing.T) {
	a := newTestAssembler(ledger.NewMemoryStore())
	tx := checkTx("tx", 450, "3001", testBase)
	tx.Metadata["check_amount"] = ledger.Number(500)
	got, err := a.checkSignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if !boolSignal(t, got, "check_amount_mismatch") {
		t.Error("the deposited amount disagrees with the written amount")
	}
	if f := floatSignal(t, got, "check_amount_delta"); f != 50 {
		t.Errorf("check_amount_delta = %v, want 50", f)
	}

	matched := checkTx("tx2", 500, "3002", testBase)
	matched.Metadata["check_amount"] = ledger.Number(500)
	got, err = a.checkSignals(context.Background(), matched, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if boolSignal(t, got, "check_amount_mismatch") {
		t.Error("matching amounts are not a mismatch")
	}
}
