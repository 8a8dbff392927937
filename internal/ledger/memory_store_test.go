package ledger

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreTransactionWindows(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	store.AddTransaction(&Transaction{ID: "t1", AccountID: "acc1", Amount: 100, Direction: DirectionDebit, Type: "WIRE", Timestamp: now.Add(-30 * time.Minute)})
	store.AddTransaction(&Transaction{ID: "t2", AccountID: "acc1", Amount: 200, Direction: DirectionCredit, Type: "ACH", Timestamp: now.Add(-5 * time.Hour)})
	store.AddTransaction(&Transaction{ID: "t3", AccountID: "acc1", Amount: 300, Direction: DirectionDebit, Type: "WIRE", Timestamp: now.Add(-48 * time.Hour)})
	store.AddTransaction(&Transaction{ID: "t4", AccountID: "acc2", Amount: 400, Direction: DirectionDebit, Type: "WIRE", Timestamp: now.Add(-10 * time.Minute)})

	ctx := context.Background()

	got, err := store.AccountTransactions(ctx, "acc1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("AccountTransactions: %v", err)
	}
	if len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("1h window = %v", got)
	}

	got, err = store.AccountTransactions(ctx, "acc1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("AccountTransactions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("24h window = %d transactions", len(got))
	}
	// Oldest first.
	if got[0].ID != "t2" || got[1].ID != "t1" {
		t.Errorf("window not ordered ascending: %s, %s", got[0].ID, got[1].ID)
	}

	got, err = store.AccountTransactionsByType(ctx, "acc1", "WIRE", now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("AccountTransactionsByType: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t3" {
		t.Errorf("typed window = %v", got)
	}
}

func TestMemoryStoreCounterpartyPayments(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	store.AddTransaction(&Transaction{ID: "t1", AccountID: "acc1", CounterpartyID: "cp1", Amount: 50, Direction: DirectionDebit, Type: "WIRE", Timestamp: now.Add(-time.Hour)})
	store.AddTransaction(&Transaction{ID: "t2", AccountID: "acc2", CounterpartyID: "cp1", Amount: 60, Direction: DirectionDebit, Type: "WIRE", Timestamp: now.Add(-2 * time.Hour)})
	// Credits from the counterparty don't count as payments to it.
	store.AddTransaction(&Transaction{ID: "t3", AccountID: "acc1", CounterpartyID: "cp1", Amount: 70, Direction: DirectionCredit, Type: "ACH", Timestamp: now.Add(-time.Hour)})

	got, err := store.CounterpartyPayments(context.Background(), "cp1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CounterpartyPayments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("payments = %d", len(got))
	}

	ok, err := store.HasTransactionWith(context.Background(), "acc1", "cp1")
	if err != nil || !ok {
		t.Errorf("HasTransactionWith(acc1, cp1) = %v, %v", ok, err)
	}
	ok, err = store.HasTransactionWith(context.Background(), "acc1", "cp9")
	if err != nil || ok {
		t.Errorf("HasTransactionWith(acc1, cp9) = %v, %v", ok, err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.GetAccount(ctx, "missing"); err != ErrNotFound {
		t.Errorf("GetAccount: %v", err)
	}
	if _, err := store.GetBeneficiary(ctx, "missing"); err != ErrNotFound {
		t.Errorf("GetBeneficiary: %v", err)
	}
	if _, err := store.HighRiskLocation(ctx, "US", "New York"); err != ErrNotFound {
		t.Errorf("HighRiskLocation: %v", err)
	}
	if _, err := store.VPNMatch(ctx, "203.0.113.7"); err != ErrNotFound {
		t.Errorf("VPNMatch: %v", err)
	}
}

func TestMemoryStoreCopiesOnRead(t *testing.T) {
	store := NewMemoryStore()
	store.PutAccount(&Account{ID: "acc1", CreatedAt: time.Now(), RiskTier: "low", Status: "active"})

	a, err := store.GetAccount(context.Background(), "acc1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	a.Status = "frozen"

	again, _ := store.GetAccount(context.Background(), "acc1")
	if again.Status != "active" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestMemoryStoreBlacklist(t *testing.T) {
	store := NewMemoryStore()
	store.AddBlacklistEntry(&BlacklistEntry{ID: "b1", EntityType: "ip", EntityValue: "203.0.113.7", Severity: 0.9, Active: true})
	store.AddBlacklistEntry(&BlacklistEntry{ID: "b2", EntityType: "device", EntityValue: "dev-1", Severity: 0.5, Active: false})

	got, err := store.BlacklistMatches(context.Background(), []string{"203.0.113.7", "dev-1", ""})
	if err != nil {
		t.Fatalf("BlacklistMatches: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b1" {
		t.Errorf("inactive entry matched: %v", got)
	}
}

func TestMemoryStoreHighRiskLocationSpecificity(t *testing.T) {
	store := NewMemoryStore()
	store.AddHighRiskLocation(&HighRiskLocation{Country: "NG", Severity: 0.6})
	store.AddHighRiskLocation(&HighRiskLocation{Country: "NG", City: "Lagos", Severity: 0.9})

	got, err := store.HighRiskLocation(context.Background(), "ng", "lagos")
	if err != nil {
		t.Fatalf("HighRiskLocation: %v", err)
	}
	if got.Severity != 0.9 {
		t.Errorf("city entry should win: %v", got)
	}

	got, err = store.HighRiskLocation(context.Background(), "NG", "Abuja")
	if err != nil {
		t.Fatalf("HighRiskLocation: %v", err)
	}
	if got.City != "" || got.Severity != 0.6 {
		t.Errorf("country fallback broken: %v", got)
	}
}

func TestMemoryStoreVPNMatch(t *testing.T) {
	store := NewMemoryStore()
	store.AddVPNRange(&VPNRange{CIDR: "198.51.100.0/24", Provider: "nordish", Kind: "vpn", Confidence: 0.95})

	got, err := store.VPNMatch(context.Background(), "198.51.100.42")
	if err != nil {
		t.Fatalf("VPNMatch: %v", err)
	}
	if got.Kind != "vpn" {
		t.Errorf("kind = %s", got.Kind)
	}

	if _, err := store.VPNMatch(context.Background(), "not-an-ip"); err != ErrNotFound {
		t.Errorf("bad IP should be a miss, got %v", err)
	}
}

func TestMemoryStoreBiometricSamplesLimit(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	for i := 0; i < 5; i++ {
		store.AddBiometricSample(&BiometricSample{
			ID:        string(rune('a' + i)),
			AccountID: "acc1",
			SampledAt: now.Add(-time.Duration(5-i) * time.Hour),
		})
	}

	got, err := store.BiometricSamples(context.Background(), "acc1", 3)
	if err != nil {
		t.Fatalf("BiometricSamples: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("limit ignored: %d samples", len(got))
	}
	// Most recent three, oldest first.
	if got[0].ID != "c" || got[2].ID != "e" {
		t.Errorf("wrong samples: %s..%s", got[0].ID, got[2].ID)
	}
}
