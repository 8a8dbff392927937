package features

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

func TestBeneficiaryRegistrationCounts(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutBeneficiary(&ledger.Beneficiary{ID: "b1", AccountID: "acc-1", RegisteredAt: testBase.Add(-2 * time.Hour), RegisteredByIP: "10.0.0.1"})
	store.PutBeneficiary(&ledger.Beneficiary{ID: "b2", AccountID: "acc-1", RegisteredAt: testBase.Add(-50 * time.Hour), RegisteredByIP: "10.0.0.1"})
	store.PutBeneficiary(&ledger.Beneficiary{ID: "b3", AccountID: "acc-1", RegisteredAt: testBase.Add(-100 * time.Hour), RegisteredByIP: "10.0.0.2"})

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	got, err := a.beneficiarySignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}

	if f := floatSignal(t, got, "new_beneficiary_count_24h"); f != 1 {
		t.Errorf("new_beneficiary_count_24h = %v, want 1", f)
	}
	if f := floatSignal(t, got, "new_beneficiary_count_72h"); f != 2 {
		t.Errorf("new_beneficiary_count_72h = %v, want 2", f)
	}
	if f := floatSignal(t, got, "new_beneficiary_count_168h"); f != 3 {
		t.Errorf("new_beneficiary_count_168h = %v, want 3", f)
	}

	src, _ := got["top_registration_source"].Str()
	if src != "ip:10.0.0.1" {
		t.Errorf("top_registration_source = %q, want ip:10.0.0.1", src)
	}
	if f := floatSignal(t, got, "top_registration_source_count"); f != 2 {
		t.Errorf("top_registration_source_count = %v, want 2", f)
	}
}

func TestBeneficiaryPaymentsToNewRatio(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutBeneficiary(&ledger.Beneficiary{ID: "fresh", AccountID: "acc-1", RegisteredAt: testBase.Add(-10 * time.Hour)})

	toFresh := txAt("p1", "acc-1", 200, ledger.DirectionDebit, "TRANSFER", testBase.Add(-5*time.Hour))
	toFresh.CounterpartyID = "fresh"
	store.AddTransaction(toFresh)
	toOld := txAt("p2", "acc-1", 200, ledger.DirectionDebit, "TRANSFER", testBase.Add(-6*time.Hour))
	toOld.CounterpartyID = "established"
	store.AddTransaction(toOld)

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	got, err := a.beneficiarySignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if f := floatSignal(t, got, "payments_to_new_beneficiaries_ratio"); f != 0.5 {
		t.Errorf("payments_to_new_beneficiaries_ratio = %v, want 0.5", f)
	}
}

func TestBeneficiaryFreshRecipient(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutBeneficiary(&ledger.Beneficiary{ID: "ben-1", AccountID: "acc-1", RegisteredAt: testBase.Add(-2 * time.Hour)})

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 45000, ledger.DirectionDebit, "TRANSFER", testBase)
	tx.CounterpartyID = "ben-1"
	got, err := a.beneficiarySignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}

	if v, ok := got["is_new_beneficiary"]; !ok {
		t.Fatal("missing is_new_beneficiary")
	} else if b, _ := v.Bool(); !b {
		t.Error("a beneficiary registered 2h ago should be new")
	}
	if f := floatSignal(t, got, "beneficiary_age_hours"); f != 2 {
		t.Errorf("beneficiary_age_hours = %v, want 2", f)
	}
}

func TestBeneficiaryAgedRecipient(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutBeneficiary(&ledger.Beneficiary{ID: "ben-1", AccountID: "acc-1", RegisteredAt: testBase.Add(-30 * 24 * time.Hour)})

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	tx.CounterpartyID = "ben-1"
	got, err := a.beneficiarySignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if v := got["is_new_beneficiary"]; v.Kind() != ledger.KindBool {
		t.Fatal("missing is_new_beneficiary")
	} else if b, _ := v.Bool(); b {
		t.Error("a month-old beneficiary is not new")
	}
}

func TestBeneficiaryUnregisteredRecipient(t *testing.T) {
	a := newTestAssembler(ledger.NewMemoryStore())
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	tx.CounterpartyID = "stranger"
	got, err := a.beneficiarySignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	// No registration record: freshness is unknown, not false.
	if _, ok := got["is_new_beneficiary"]; ok {
		t.Error("is_new_beneficiary should be absent for an unregistered counterparty")
	}
}

func TestBeneficiaryDetailChangeSignals(t *testing.T) {
	lastPaid := testBase.Add(-20 * 24 * time.Hour)
	store := ledger.NewMemoryStore()
	store.PutBeneficiary(&ledger.Beneficiary{
		ID: "ben-1", AccountID: "acc-1",
		RegisteredAt:  testBase.Add(-200 * 24 * time.Hour),
		LastPaymentAt: &lastPaid,
	})
	store.AddBeneficiaryChange(&ledger.BeneficiaryChange{
		ID: "ch-1", BeneficiaryID: "ben-1", Field: "bank_name",
		Source: "portal", Verified: true, ChangedAt: testBase.Add(-10 * 24 * time.Hour),
	})
	store.AddBeneficiaryChange(&ledger.BeneficiaryChange{
		ID: "ch-2", BeneficiaryID: "ben-1", Field: "account_number",
		Source: "email_request", Verified: false, ChangedAt: testBase.Add(-5 * time.Hour),
	})

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 45000, ledger.DirectionDebit, "TRANSFER", testBase)
	tx.CounterpartyID = "ben-1"
	got, err := a.beneficiarySignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}

	if f := floatSignal(t, got, "detail_change_count_30d"); f != 2 {
		t.Errorf("detail_change_count_30d = %v, want 2", f)
	}
	if f := floatSignal(t, got, "hours_since_detail_change"); f != 5 {
		t.Errorf("hours_since_detail_change = %v, want 5", f)
	}
	if b, _ := got["unverified_detail_change"].Bool(); !b {
		t.Error("an unverified change 5h ago should set unverified_detail_change")
	}
	if b, _ := got["suspicious_detail_change_source"].Bool(); !b {
		t.Error("an email_request change should set suspicious_detail_change_source")
	}
	if b, _ := got["first_payment_after_detail_change"].Bool(); !b {
		t.Error("no payment since the change: first_payment_after_detail_change should be true")
	}
}

func TestBeneficiaryDetailChangeAlreadyPaid(t *testing.T) {
	lastPaid := testBase.Add(-20 * 24 * time.Hour)
	store := ledger.NewMemoryStore()
	store.PutBeneficiary(&ledger.Beneficiary{
		ID: "ben-1", AccountID: "acc-1",
		RegisteredAt:  testBase.Add(-200 * 24 * time.Hour),
		LastPaymentAt: &lastPaid,
	})
	store.AddBeneficiaryChange(&ledger.BeneficiaryChange{
		ID: "ch-1", BeneficiaryID: "ben-1", Field: "account_number",
		Source: "portal", Verified: true, ChangedAt: testBase.Add(-48 * time.Hour),
	})
	paid := txAt("p1", "acc-2", 900, ledger.DirectionDebit, "TRANSFER", testBase.Add(-24*time.Hour))
	paid.CounterpartyID = "ben-1"
	store.AddTransaction(paid)

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 900, ledger.DirectionDebit, "TRANSFER", testBase)
	tx.CounterpartyID = "ben-1"
	got, err := a.beneficiarySignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if b, _ := got["first_payment_after_detail_change"].Bool(); b {
		t.Error("a payment already landed after the change; this is not the first")
	}
}

func TestBeneficiaryNoDetailChanges(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutBeneficiary(&ledger.Beneficiary{ID: "ben-1", AccountID: "acc-1", RegisteredAt: testBase.Add(-200 * 24 * time.Hour)})

	a := newTestAssembler(store)
	tx := txAt("tx", "acc-1", 100, ledger.DirectionDebit, "TRANSFER", testBase)
	tx.CounterpartyID = "ben-1"
	got, err := a.beneficiarySignals(context.Background(), tx, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["detail_change_count_30d"]; ok {
		t.Error("change signals should be absent when no changes are on record")
	}
}
