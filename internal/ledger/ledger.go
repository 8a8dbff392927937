// Package ledger defines the transaction ledger consumed by the fraud
// pipeline: the append-only transaction record plus the reference data the
// context assembler queries — accounts, beneficiaries, change history,
// device sessions, blacklists, high-risk locations, VPN ranges, biometric
// samples, and historical fraud flags.
//
// The pipeline treats the ledger as read-only. All queries are time-windowed
// and return records ordered by timestamp ascending.
package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a keyed lookup matches no record.
var ErrNotFound = errors.New("ledger: record not found")

// Direction distinguishes inbound credits from outbound debits.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Transaction is an immutable ledger fact, created once at ingestion.
type Transaction struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"accountId"`
	CounterpartyID string    `json:"counterpartyId,omitempty"`
	Amount         float64   `json:"amount"`
	Direction      Direction `json:"direction"`
	Type           string    `json:"type"` // WIRE, ACH, CHECK, DEPOSIT, ...
	Timestamp      time.Time `json:"timestamp"`
	Metadata       Metadata  `json:"metadata,omitempty"`
}

// Outbound reports whether the transaction moves funds out of the account.
func (t *Transaction) Outbound() bool { return t.Direction == DirectionDebit }

// Inbound reports whether the transaction moves funds into the account.
func (t *Transaction) Inbound() bool { return t.Direction == DirectionCredit }

// Account is the ledger's account record.
type Account struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	RiskTier  string    `json:"riskTier"` // low, medium, high
	Status    string    `json:"status"`   // active, frozen, closed
}

// Beneficiary is a registered payment recipient for an account.
type Beneficiary struct {
	ID               string     `json:"id"`
	AccountID        string     `json:"accountId"`
	Name             string     `json:"name"`
	RegisteredAt     time.Time  `json:"registeredAt"`
	RegisteredByIP   string     `json:"registeredByIp,omitempty"`
	RegisteredByUser string     `json:"registeredByUser,omitempty"`
	Verified         bool       `json:"verified"`
	InContacts       bool       `json:"inContacts"`
	SocialLinked     bool       `json:"socialLinked"`
	LastPaymentAt    *time.Time `json:"lastPaymentAt,omitempty"`
	TotalPayments    int        `json:"totalPayments"`
}

// BeneficiaryChange records a modification to a beneficiary's banking details.
type BeneficiaryChange struct {
	ID            string    `json:"id"`
	BeneficiaryID string    `json:"beneficiaryId"`
	Field         string    `json:"field"`  // account_number, routing_number, bank_name
	Source        string    `json:"source"` // portal, erp, email_request, phone_request, fax
	Verified      bool      `json:"verified"`
	ChangedAt     time.Time `json:"changedAt"`
}

// AccountChange records a security-relevant change on an account.
type AccountChange struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"accountId"`
	Field      string    `json:"field"`  // phone, device, sim
	Source     string    `json:"source"` // portal, branch, phone_request, email_request
	Verified   bool      `json:"verified"`
	Suspicious bool      `json:"suspicious"` // flagged by an upstream system
	ChangedAt  time.Time `json:"changedAt"`
}

// DeviceSession records a device observed on an account.
type DeviceSession struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	DeviceID  string    `json:"deviceId"`
	IP        string    `json:"ip,omitempty"`
	SeenAt    time.Time `json:"seenAt"`
}

// BiometricSample is one behavioral-biometric observation for an account.
type BiometricSample struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"accountId"`
	TypingSpeed    float64   `json:"typingSpeed"`   // keys per minute
	MouseVelocity  float64   `json:"mouseVelocity"` // px per second
	SessionSeconds float64   `json:"sessionSeconds"`
	AutofillUsed   bool      `json:"autofillUsed"`
	SampledAt      time.Time `json:"sampledAt"`
}

// BlacklistEntry is one watchlist record.
type BlacklistEntry struct {
	ID          string    `json:"id"`
	EntityType  string    `json:"entityType"` // ip, device, account, counterparty, routing_number
	EntityValue string    `json:"entityValue"`
	Severity    float64   `json:"severity"` // 0.0 - 1.0
	Reason      string    `json:"reason,omitempty"`
	Active      bool      `json:"active"`
	AddedAt     time.Time `json:"addedAt"`
}

// HighRiskLocation is a reference-table record for risky jurisdictions.
// City may be empty for a country-wide entry.
type HighRiskLocation struct {
	Country        string  `json:"country"` // ISO 3166-1 alpha-2
	City           string  `json:"city,omitempty"`
	Severity       float64 `json:"severity"` // 0.0 - 1.0
	Sanctioned     bool    `json:"sanctioned"`
	Embargoed      bool    `json:"embargoed"`
	FraudRate      float64 `json:"fraudRate"`
	BlockByDefault bool    `json:"blockByDefault"`
}

// VPNRange is a reference-table record for anonymizing infrastructure.
type VPNRange struct {
	CIDR       string  `json:"cidr"`
	Provider   string  `json:"provider,omitempty"`
	Kind       string  `json:"kind"` // vpn, proxy, tor
	Confidence float64 `json:"confidence"`
}

// FraudFlag is a historical fraud determination on an entity.
type FraudFlag struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entityType"` // account, counterparty
	EntityID   string    `json:"entityId"`
	Severity   float64   `json:"severity"` // 0.0 - 1.0
	Reason     string    `json:"reason,omitempty"`
	FlaggedAt  time.Time `json:"flaggedAt"`
}

// Writer is the ingestion surface. Transaction and change inserts are
// idempotent on ID; account and beneficiary writes replace the record.
type Writer interface {
	UpsertAccount(ctx context.Context, a *Account) error
	InsertTransaction(ctx context.Context, t *Transaction) error
	UpsertBeneficiary(ctx context.Context, b *Beneficiary) error
	InsertAccountChange(ctx context.Context, c *AccountChange) error
	InsertBlacklistEntry(ctx context.Context, e *BlacklistEntry) error
}

// Store is the query surface the context assembler depends on. All slice
// results are ordered by timestamp ascending; "since" filters are exclusive
// (timestamp > since). Implementations must be safe for concurrent use.
type Store interface {
	GetAccount(ctx context.Context, accountID string) (*Account, error)

	// AccountTransactions returns the account's transactions after since.
	AccountTransactions(ctx context.Context, accountID string, since time.Time) ([]*Transaction, error)

	// AccountTransactionsByType filters by transaction type as well.
	AccountTransactionsByType(ctx context.Context, accountID, txType string, since time.Time) ([]*Transaction, error)

	// CounterpartyPayments returns outbound payments (debits, any account)
	// directed at the counterparty after since.
	CounterpartyPayments(ctx context.Context, counterpartyID string, since time.Time) ([]*Transaction, error)

	// HasTransactionWith reports whether the account has ever transacted
	// with the counterparty.
	HasTransactionWith(ctx context.Context, accountID, counterpartyID string) (bool, error)

	GetBeneficiary(ctx context.Context, beneficiaryID string) (*Beneficiary, error)
	BeneficiariesRegistered(ctx context.Context, accountID string, since time.Time) ([]*Beneficiary, error)
	BeneficiaryChanges(ctx context.Context, beneficiaryID string, since time.Time) ([]*BeneficiaryChange, error)

	AccountChanges(ctx context.Context, accountID string, since time.Time) ([]*AccountChange, error)
	DeviceSessions(ctx context.Context, accountID string, since time.Time) ([]*DeviceSession, error)

	// BiometricSamples returns up to limit most recent samples, oldest first.
	BiometricSamples(ctx context.Context, accountID string, limit int) ([]*BiometricSample, error)

	// BlacklistMatches returns active entries whose entity value matches any
	// of the given values.
	BlacklistMatches(ctx context.Context, values []string) ([]*BlacklistEntry, error)

	// HighRiskLocation returns the most specific matching entry (city-level
	// before country-level), or ErrNotFound.
	HighRiskLocation(ctx context.Context, country, city string) (*HighRiskLocation, error)

	// VPNMatch returns the matching range for the IP, or ErrNotFound.
	VPNMatch(ctx context.Context, ip string) (*VPNRange, error)

	FraudFlags(ctx context.Context, entityType, entityID string) ([]*FraudFlag, error)
}
