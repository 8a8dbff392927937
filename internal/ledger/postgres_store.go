package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore is a PostgreSQL-backed ledger.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id          VARCHAR(64) PRIMARY KEY,
			created_at  TIMESTAMPTZ NOT NULL,
			risk_tier   VARCHAR(10) NOT NULL DEFAULT 'low',
			status      VARCHAR(10) NOT NULL DEFAULT 'active'
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id               VARCHAR(64) PRIMARY KEY,
			account_id       VARCHAR(64) NOT NULL,
			counterparty_id  VARCHAR(64),
			amount           NUMERIC(15,2) NOT NULL,
			direction        VARCHAR(6) NOT NULL CHECK (direction IN ('credit', 'debit')),
			tx_type          VARCHAR(20) NOT NULL,
			ts               TIMESTAMPTZ NOT NULL,
			metadata         JSONB NOT NULL DEFAULT '{}'
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_account
			ON transactions (account_id, ts);

		CREATE INDEX IF NOT EXISTS idx_transactions_counterparty
			ON transactions (counterparty_id, ts) WHERE counterparty_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS beneficiaries (
			id                 VARCHAR(64) PRIMARY KEY,
			account_id         VARCHAR(64) NOT NULL,
			name               TEXT NOT NULL DEFAULT '',
			registered_at      TIMESTAMPTZ NOT NULL,
			registered_by_ip   VARCHAR(45),
			registered_by_user VARCHAR(64),
			verified           BOOLEAN NOT NULL DEFAULT FALSE,
			in_contacts        BOOLEAN NOT NULL DEFAULT FALSE,
			social_linked      BOOLEAN NOT NULL DEFAULT FALSE,
			last_payment_at    TIMESTAMPTZ,
			total_payments     INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_beneficiaries_account
			ON beneficiaries (account_id, registered_at);

		CREATE TABLE IF NOT EXISTS beneficiary_changes (
			id              VARCHAR(64) PRIMARY KEY,
			beneficiary_id  VARCHAR(64) NOT NULL,
			field           VARCHAR(20) NOT NULL,
			source          VARCHAR(20) NOT NULL,
			verified        BOOLEAN NOT NULL DEFAULT FALSE,
			changed_at      TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_beneficiary_changes_beneficiary
			ON beneficiary_changes (beneficiary_id, changed_at);

		CREATE TABLE IF NOT EXISTS account_changes (
			id          VARCHAR(64) PRIMARY KEY,
			account_id  VARCHAR(64) NOT NULL,
			field       VARCHAR(20) NOT NULL,
			source      VARCHAR(20) NOT NULL,
			verified    BOOLEAN NOT NULL DEFAULT FALSE,
			suspicious  BOOLEAN NOT NULL DEFAULT FALSE,
			changed_at  TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_account_changes_account
			ON account_changes (account_id, changed_at);

		CREATE TABLE IF NOT EXISTS device_sessions (
			id          VARCHAR(64) PRIMARY KEY,
			account_id  VARCHAR(64) NOT NULL,
			device_id   VARCHAR(128) NOT NULL,
			ip          VARCHAR(45),
			seen_at     TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_device_sessions_account
			ON device_sessions (account_id, seen_at);

		CREATE TABLE IF NOT EXISTS biometric_samples (
			id               VARCHAR(64) PRIMARY KEY,
			account_id       VARCHAR(64) NOT NULL,
			typing_speed     NUMERIC(8,2) NOT NULL DEFAULT 0,
			mouse_velocity   NUMERIC(8,2) NOT NULL DEFAULT 0,
			session_seconds  NUMERIC(8,2) NOT NULL DEFAULT 0,
			autofill_used    BOOLEAN NOT NULL DEFAULT FALSE,
			sampled_at       TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_biometric_samples_account
			ON biometric_samples (account_id, sampled_at DESC);

		CREATE TABLE IF NOT EXISTS blacklist_entries (
			id            VARCHAR(64) PRIMARY KEY,
			entity_type   VARCHAR(20) NOT NULL,
			entity_value  TEXT NOT NULL,
			severity      NUMERIC(3,2) NOT NULL CHECK (severity >= 0 AND severity <= 1),
			reason        TEXT NOT NULL DEFAULT '',
			active        BOOLEAN NOT NULL DEFAULT TRUE,
			added_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_blacklist_entries_value
			ON blacklist_entries (entity_value) WHERE active;

		CREATE TABLE IF NOT EXISTS high_risk_locations (
			country           VARCHAR(2) NOT NULL,
			city              TEXT NOT NULL DEFAULT '',
			severity          NUMERIC(3,2) NOT NULL DEFAULT 0,
			sanctioned        BOOLEAN NOT NULL DEFAULT FALSE,
			embargoed         BOOLEAN NOT NULL DEFAULT FALSE,
			fraud_rate        NUMERIC(5,4) NOT NULL DEFAULT 0,
			block_by_default  BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (country, city)
		);

		CREATE TABLE IF NOT EXISTS vpn_ranges (
			cidr        CIDR PRIMARY KEY,
			provider    TEXT NOT NULL DEFAULT '',
			kind        VARCHAR(10) NOT NULL CHECK (kind IN ('vpn', 'proxy', 'tor')),
			confidence  NUMERIC(3,2) NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS fraud_flags (
			id           VARCHAR(64) PRIMARY KEY,
			entity_type  VARCHAR(20) NOT NULL,
			entity_id    VARCHAR(64) NOT NULL,
			severity     NUMERIC(3,2) NOT NULL CHECK (severity >= 0 AND severity <= 1),
			reason       TEXT NOT NULL DEFAULT '',
			flagged_at   TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_fraud_flags_entity
			ON fraud_flags (entity_type, entity_id, flagged_at);
	`)
	return err
}

func (s *PostgresStore) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, risk_tier, status
		FROM accounts
		WHERE id = $1
	`, accountID).Scan(&a.ID, &a.CreatedAt, &a.RiskTier, &a.Status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) AccountTransactions(ctx context.Context, accountID string, since time.Time) ([]*Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, account_id, counterparty_id, amount, direction, tx_type, ts, metadata
		FROM transactions
		WHERE account_id = $1 AND ts > $2
		ORDER BY ts ASC
	`, accountID, since)
}

func (s *PostgresStore) AccountTransactionsByType(ctx context.Context, accountID, txType string, since time.Time) ([]*Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, account_id, counterparty_id, amount, direction, tx_type, ts, metadata
		FROM transactions
		WHERE account_id = $1 AND ts > $2 AND tx_type = $3
		ORDER BY ts ASC
	`, accountID, since, txType)
}

func (s *PostgresStore) CounterpartyPayments(ctx context.Context, counterpartyID string, since time.Time) ([]*Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, account_id, counterparty_id, amount, direction, tx_type, ts, metadata
		FROM transactions
		WHERE counterparty_id = $1 AND ts > $2 AND direction = 'debit'
		ORDER BY ts ASC
	`, counterpartyID, since)
}

func (s *PostgresStore) queryTransactions(ctx context.Context, query string, args ...any) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Transaction
	for rows.Next() {
		var t Transaction
		var counterparty sql.NullString
		var metaJSON []byte

		if err := rows.Scan(&t.ID, &t.AccountID, &counterparty, &t.Amount, &t.Direction, &t.Type, &t.Timestamp, &metaJSON); err != nil {
			continue
		}
		t.CounterpartyID = counterparty.String

		// A record with undecodable metadata is skipped rather than
		// surfaced as a partial transaction.
		meta, err := ParseMetadata(metaJSON)
		if err != nil {
			continue
		}
		t.Metadata = meta
		result = append(result, &t)
	}
	return result, rows.Err()
}

func (s *PostgresStore) HasTransactionWith(ctx context.Context, accountID, counterpartyID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE account_id = $1 AND counterparty_id = $2
		)
	`, accountID, counterpartyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check counterparty history: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) GetBeneficiary(ctx context.Context, beneficiaryID string) (*Beneficiary, error) {
	var b Beneficiary
	var ip, user sql.NullString
	var lastPayment sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, registered_at, registered_by_ip, registered_by_user,
		       verified, in_contacts, social_linked, last_payment_at, total_payments
		FROM beneficiaries
		WHERE id = $1
	`, beneficiaryID).Scan(
		&b.ID, &b.AccountID, &b.Name, &b.RegisteredAt, &ip, &user,
		&b.Verified, &b.InContacts, &b.SocialLinked, &lastPayment, &b.TotalPayments,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}
	b.RegisteredByIP = ip.String
	b.RegisteredByUser = user.String
	if lastPayment.Valid {
		t := lastPayment.Time
		b.LastPaymentAt = &t
	}
	return &b, nil
}

func (s *PostgresStore) BeneficiariesRegistered(ctx context.Context, accountID string, since time.Time) ([]*Beneficiary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, name, registered_at, registered_by_ip, registered_by_user,
		       verified, in_contacts, social_linked, last_payment_at, total_payments
		FROM beneficiaries
		WHERE account_id = $1 AND registered_at > $2
		ORDER BY registered_at ASC
	`, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query beneficiaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Beneficiary
	for rows.Next() {
		var b Beneficiary
		var ip, user sql.NullString
		var lastPayment sql.NullTime
		if err := rows.Scan(
			&b.ID, &b.AccountID, &b.Name, &b.RegisteredAt, &ip, &user,
			&b.Verified, &b.InContacts, &b.SocialLinked, &lastPayment, &b.TotalPayments,
		); err != nil {
			continue
		}
		b.RegisteredByIP = ip.String
		b.RegisteredByUser = user.String
		if lastPayment.Valid {
			t := lastPayment.Time
			b.LastPaymentAt = &t
		}
		result = append(result, &b)
	}
	return result, rows.Err()
}

func (s *PostgresStore) BeneficiaryChanges(ctx context.Context, beneficiaryID string, since time.Time) ([]*BeneficiaryChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, beneficiary_id, field, source, verified, changed_at
		FROM beneficiary_changes
		WHERE beneficiary_id = $1 AND changed_at > $2
		ORDER BY changed_at ASC
	`, beneficiaryID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query beneficiary changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*BeneficiaryChange
	for rows.Next() {
		var c BeneficiaryChange
		if err := rows.Scan(&c.ID, &c.BeneficiaryID, &c.Field, &c.Source, &c.Verified, &c.ChangedAt); err != nil {
			continue
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

func (s *PostgresStore) AccountChanges(ctx context.Context, accountID string, since time.Time) ([]*AccountChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, field, source, verified, suspicious, changed_at
		FROM account_changes
		WHERE account_id = $1 AND changed_at > $2
		ORDER BY changed_at ASC
	`, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query account changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*AccountChange
	for rows.Next() {
		var c AccountChange
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Field, &c.Source, &c.Verified, &c.Suspicious, &c.ChangedAt); err != nil {
			continue
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

func (s *PostgresStore) DeviceSessions(ctx context.Context, accountID string, since time.Time) ([]*DeviceSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, device_id, ip, seen_at
		FROM device_sessions
		WHERE account_id = $1 AND seen_at > $2
		ORDER BY seen_at ASC
	`, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query device sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*DeviceSession
	for rows.Next() {
		var d DeviceSession
		var ip sql.NullString
		if err := rows.Scan(&d.ID, &d.AccountID, &d.DeviceID, &ip, &d.SeenAt); err != nil {
			continue
		}
		d.IP = ip.String
		result = append(result, &d)
	}
	return result, rows.Err()
}

func (s *PostgresStore) BiometricSamples(ctx context.Context, accountID string, limit int) ([]*BiometricSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, typing_speed, mouse_velocity, session_seconds, autofill_used, sampled_at
		FROM (
			SELECT *
			FROM biometric_samples
			WHERE account_id = $1
			ORDER BY sampled_at DESC
			LIMIT $2
		) recent
		ORDER BY sampled_at ASC
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query biometric samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*BiometricSample
	for rows.Next() {
		var b BiometricSample
		if err := rows.Scan(&b.ID, &b.AccountID, &b.TypingSpeed, &b.MouseVelocity, &b.SessionSeconds, &b.AutofillUsed, &b.SampledAt); err != nil {
			continue
		}
		result = append(result, &b)
	}
	return result, rows.Err()
}

func (s *PostgresStore) BlacklistMatches(ctx context.Context, values []string) ([]*BlacklistEntry, error) {
	if len(values) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_value, severity, reason, active, added_at
		FROM blacklist_entries
		WHERE active AND entity_value = ANY($1)
	`, pq.Array(values))
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*BlacklistEntry
	for rows.Next() {
		var e BlacklistEntry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityValue, &e.Severity, &e.Reason, &e.Active, &e.AddedAt); err != nil {
			continue
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}

func (s *PostgresStore) HighRiskLocation(ctx context.Context, country, city string) (*HighRiskLocation, error) {
	// City-level rows sort before the country-wide row ('' city) via the
	// DESC ordering, so the most specific match wins.
	var l HighRiskLocation
	err := s.db.QueryRowContext(ctx, `
		SELECT country, city, severity, sanctioned, embargoed, fraud_rate, block_by_default
		FROM high_risk_locations
		WHERE UPPER(country) = UPPER($1) AND (city = '' OR LOWER(city) = LOWER($2))
		ORDER BY city DESC
		LIMIT 1
	`, country, city).Scan(&l.Country, &l.City, &l.Severity, &l.Sanctioned, &l.Embargoed, &l.FraudRate, &l.BlockByDefault)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query high-risk locations: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) VPNMatch(ctx context.Context, ip string) (*VPNRange, error) {
	var v VPNRange
	err := s.db.QueryRowContext(ctx, `
		SELECT cidr, provider, kind, confidence
		FROM vpn_ranges
		WHERE cidr >>= $1::inet
		ORDER BY masklen(cidr) DESC
		LIMIT 1
	`, ip).Scan(&v.CIDR, &v.Provider, &v.Kind, &v.Confidence)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vpn ranges: %w", err)
	}
	return &v, nil
}

func (s *PostgresStore) FraudFlags(ctx context.Context, entityType, entityID string) ([]*FraudFlag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, severity, reason, flagged_at
		FROM fraud_flags
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY flagged_at ASC
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fraud flags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*FraudFlag
	for rows.Next() {
		var f FraudFlag
		if err := rows.Scan(&f.ID, &f.EntityType, &f.EntityID, &f.Severity, &f.Reason, &f.FlaggedAt); err != nil {
			continue
		}
		result = append(result, &f)
	}
	return result, rows.Err()
}

// Writer implementation.

func (s *PostgresStore) UpsertAccount(ctx context.Context, a *Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, created_at, risk_tier, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET risk_tier = EXCLUDED.risk_tier, status = EXCLUDED.status
	`, a.ID, a.CreatedAt, a.RiskTier, a.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertTransaction(ctx context.Context, t *Transaction) error {
	metaJSON, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	var counterparty sql.NullString
	if t.CounterpartyID != "" {
		counterparty = sql.NullString{String: t.CounterpartyID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, counterparty_id, amount, direction, tx_type, ts, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, t.ID, t.AccountID, counterparty, t.Amount, string(t.Direction), t.Type, t.Timestamp, metaJSON)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertBeneficiary(ctx context.Context, b *Beneficiary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO beneficiaries (id, account_id, name, registered_at, registered_by_ip,
			registered_by_user, verified, in_contacts, social_linked, last_payment_at, total_payments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    verified = EXCLUDED.verified,
		    in_contacts = EXCLUDED.in_contacts,
		    social_linked = EXCLUDED.social_linked,
		    last_payment_at = EXCLUDED.last_payment_at,
		    total_payments = EXCLUDED.total_payments
	`, b.ID, b.AccountID, b.Name, b.RegisteredAt, b.RegisteredByIP,
		b.RegisteredByUser, b.Verified, b.InContacts, b.SocialLinked, b.LastPaymentAt, b.TotalPayments)
	if err != nil {
		return fmt.Errorf("failed to upsert beneficiary: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertAccountChange(ctx context.Context, c *AccountChange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_changes (id, account_id, field, source, verified, suspicious, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, c.AccountID, c.Field, c.Source, c.Verified, c.Suspicious, c.ChangedAt)
	if err != nil {
		return fmt.Errorf("failed to insert account change: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertBlacklistEntry(ctx context.Context, e *BlacklistEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blacklist_entries (id, entity_type, entity_value, severity, reason, active, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.EntityType, e.EntityValue, e.Severity, e.Reason, e.Active, e.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to insert blacklist entry: %w", err)
	}
	return nil
}
