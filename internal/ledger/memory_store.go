package ledger

import (
	"context"
	"net/netip"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and demo deployments.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[string]*Account
	transactions  []*Transaction
	beneficiaries map[string]*Beneficiary
	benChanges    map[string][]*BeneficiaryChange // beneficiaryID → changes
	acctChanges   map[string][]*AccountChange     // accountID → changes
	sessions      map[string][]*DeviceSession     // accountID → sessions
	biometrics    map[string][]*BiometricSample   // accountID → samples
	blacklist     []*BlacklistEntry
	locations     []*HighRiskLocation
	vpnRanges     []*VPNRange
	fraudFlags    map[string][]*FraudFlag // entityType/entityID → flags
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:      make(map[string]*Account),
		beneficiaries: make(map[string]*Beneficiary),
		benChanges:    make(map[string][]*BeneficiaryChange),
		acctChanges:   make(map[string][]*AccountChange),
		sessions:      make(map[string][]*DeviceSession),
		biometrics:    make(map[string][]*BiometricSample),
		fraudFlags:    make(map[string][]*FraudFlag),
	}
}

// Seeding helpers. The pipeline itself never writes to the ledger; these
// exist for tests and the demo data loader.

func (s *MemoryStore) PutAccount(a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
}

func (s *MemoryStore) AddTransaction(t *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.transactions = append(s.transactions, &cp)
	sort.SliceStable(s.transactions, func(i, j int) bool {
		return s.transactions[i].Timestamp.Before(s.transactions[j].Timestamp)
	})
}

func (s *MemoryStore) PutBeneficiary(b *Beneficiary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.beneficiaries[b.ID] = &cp
}

func (s *MemoryStore) AddBeneficiaryChange(c *BeneficiaryChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.benChanges[c.BeneficiaryID] = append(s.benChanges[c.BeneficiaryID], &cp)
}

func (s *MemoryStore) AddAccountChange(c *AccountChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.acctChanges[c.AccountID] = append(s.acctChanges[c.AccountID], &cp)
}

func (s *MemoryStore) AddDeviceSession(d *DeviceSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.sessions[d.AccountID] = append(s.sessions[d.AccountID], &cp)
}

func (s *MemoryStore) AddBiometricSample(b *BiometricSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.biometrics[b.AccountID] = append(s.biometrics[b.AccountID], &cp)
}

func (s *MemoryStore) AddBlacklistEntry(e *BlacklistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.blacklist = append(s.blacklist, &cp)
}

func (s *MemoryStore) AddHighRiskLocation(l *HighRiskLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.locations = append(s.locations, &cp)
}

func (s *MemoryStore) AddVPNRange(v *VPNRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.vpnRanges = append(s.vpnRanges, &cp)
}

func (s *MemoryStore) AddFraudFlag(f *FraudFlag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	key := f.EntityType + "/" + f.EntityID
	s.fraudFlags[key] = append(s.fraudFlags[key], &cp)
}

// Writer implementation.

func (s *MemoryStore) UpsertAccount(_ context.Context, a *Account) error {
	s.PutAccount(a)
	return nil
}

func (s *MemoryStore) InsertTransaction(_ context.Context, t *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.transactions {
		if existing.ID == t.ID {
			return nil
		}
	}
	cp := *t
	s.transactions = append(s.transactions, &cp)
	sort.SliceStable(s.transactions, func(i, j int) bool {
		return s.transactions[i].Timestamp.Before(s.transactions[j].Timestamp)
	})
	return nil
}

func (s *MemoryStore) UpsertBeneficiary(_ context.Context, b *Beneficiary) error {
	s.PutBeneficiary(b)
	return nil
}

func (s *MemoryStore) InsertAccountChange(_ context.Context, c *AccountChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.acctChanges[c.AccountID] {
		if existing.ID == c.ID {
			return nil
		}
	}
	cp := *c
	s.acctChanges[c.AccountID] = append(s.acctChanges[c.AccountID], &cp)
	return nil
}

func (s *MemoryStore) InsertBlacklistEntry(_ context.Context, e *BlacklistEntry) error {
	s.AddBlacklistEntry(e)
	return nil
}

// Store implementation.

func (s *MemoryStore) GetAccount(_ context.Context, accountID string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) AccountTransactions(_ context.Context, accountID string, since time.Time) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Transaction
	for _, t := range s.transactions {
		if t.AccountID == accountID && t.Timestamp.After(since) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) AccountTransactionsByType(_ context.Context, accountID, txType string, since time.Time) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Transaction
	for _, t := range s.transactions {
		if t.AccountID == accountID && t.Type == txType && t.Timestamp.After(since) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CounterpartyPayments(_ context.Context, counterpartyID string, since time.Time) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Transaction
	for _, t := range s.transactions {
		if t.CounterpartyID == counterpartyID && t.Direction == DirectionDebit && t.Timestamp.After(since) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) HasTransactionWith(_ context.Context, accountID, counterpartyID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions {
		if t.AccountID == accountID && t.CounterpartyID == counterpartyID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) GetBeneficiary(_ context.Context, beneficiaryID string) (*Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.beneficiaries[beneficiaryID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) BeneficiariesRegistered(_ context.Context, accountID string, since time.Time) ([]*Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Beneficiary
	for _, b := range s.beneficiaries {
		if b.AccountID == accountID && b.RegisteredAt.After(since) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (s *MemoryStore) BeneficiaryChanges(_ context.Context, beneficiaryID string, since time.Time) ([]*BeneficiaryChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*BeneficiaryChange
	for _, c := range s.benChanges[beneficiaryID] {
		if c.ChangedAt.After(since) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.Before(out[j].ChangedAt) })
	return out, nil
}

func (s *MemoryStore) AccountChanges(_ context.Context, accountID string, since time.Time) ([]*AccountChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*AccountChange
	for _, c := range s.acctChanges[accountID] {
		if c.ChangedAt.After(since) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.Before(out[j].ChangedAt) })
	return out, nil
}

func (s *MemoryStore) DeviceSessions(_ context.Context, accountID string, since time.Time) ([]*DeviceSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*DeviceSession
	for _, d := range s.sessions[accountID] {
		if d.SeenAt.After(since) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeenAt.Before(out[j].SeenAt) })
	return out, nil
}

func (s *MemoryStore) BiometricSamples(_ context.Context, accountID string, limit int) ([]*BiometricSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.biometrics[accountID]
	sorted := make([]*BiometricSample, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SampledAt.Before(sorted[j].SampledAt) })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	out := make([]*BiometricSample, len(sorted))
	for i, b := range sorted {
		cp := *b
		out[i] = &cp
	}
	return out, nil
}

func (s *MemoryStore) BlacklistMatches(_ context.Context, values []string) ([]*BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			want[v] = struct{}{}
		}
	}
	var out []*BlacklistEntry
	for _, e := range s.blacklist {
		if !e.Active {
			continue
		}
		if _, ok := want[e.EntityValue]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) HighRiskLocation(_ context.Context, country, city string) (*HighRiskLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	country = strings.ToUpper(country)
	var countryWide *HighRiskLocation
	for _, l := range s.locations {
		if !strings.EqualFold(l.Country, country) {
			continue
		}
		if l.City == "" {
			countryWide = l
			continue
		}
		if city != "" && strings.EqualFold(l.City, city) {
			cp := *l
			return &cp, nil
		}
	}
	if countryWide != nil {
		cp := *countryWide
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) VPNMatch(_ context.Context, ip string) (*VPNRange, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vpnRanges {
		prefix, err := netip.ParsePrefix(v.CIDR)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FraudFlags(_ context.Context, entityType, entityID string) ([]*FraudFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flags := s.fraudFlags[entityType+"/"+entityID]
	out := make([]*FraudFlag, len(flags))
	for i, f := range flags {
		cp := *f
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlaggedAt.Before(out[j].FlaggedAt) })
	return out, nil
}
