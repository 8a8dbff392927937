package decision

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mbd888/sentinel/internal/pagination"
	"github.com/mbd888/sentinel/internal/rules"
)

// PostgresStore persists assessments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the assessments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS assessments (
			id               VARCHAR(64) PRIMARY KEY,
			transaction_id   VARCHAR(64) NOT NULL UNIQUE,
			risk_score       NUMERIC(4,3) NOT NULL CHECK (risk_score >= 0 AND risk_score <= 1),
			decision         VARCHAR(16) NOT NULL CHECK (decision IN ('auto_approve', 'manual_review', 'blocked')),
			review_status    VARCHAR(16) NOT NULL,
			triggered_rules  JSONB NOT NULL DEFAULT '[]',
			scoring_version  VARCHAR(32) NOT NULL DEFAULT '',
			review_notes     TEXT NOT NULL DEFAULT '',
			reviewer_id      VARCHAR(64) NOT NULL DEFAULT '',
			reviewed_at      TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_assessments_decision
			ON assessments (decision, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_assessments_review
			ON assessments (review_status, created_at DESC) WHERE review_status = 'pending';
	`)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, a *AssessmentResult) (bool, error) {
	rulesJSON, err := json.Marshal(a.TriggeredRules)
	if err != nil {
		return false, fmt.Errorf("failed to marshal triggered rules: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assessments (
			id, transaction_id, risk_score, decision, review_status,
			triggered_rules, scoring_version, review_notes, reviewer_id, reviewed_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (transaction_id) DO NOTHING
	`,
		a.AssessmentID,
		a.TransactionID,
		a.RiskScore,
		string(a.Decision),
		string(a.ReviewStatus),
		rulesJSON,
		a.ScoringVersion,
		a.ReviewNotes,
		a.ReviewerID,
		a.ReviewedAt,
		a.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert assessment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) GetByTransaction(ctx context.Context, transactionID string) (*AssessmentResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, risk_score, decision, review_status,
		       triggered_rules, scoring_version, review_notes, reviewer_id, reviewed_at, created_at
		FROM assessments
		WHERE transaction_id = $1
	`, transactionID)
	return scanAssessment(row)
}

func (s *PostgresStore) ListByDecision(ctx context.Context, d Decision, limit int, cursor *pagination.Cursor) ([]*AssessmentResult, error) {
	query := `
		SELECT id, transaction_id, risk_score, decision, review_status,
		       triggered_rules, scoring_version, review_notes, reviewer_id, reviewed_at, created_at
		FROM assessments
		WHERE decision = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	args := []interface{}{string(d), limit}
	if cursor != nil {
		query = `
			SELECT id, transaction_id, risk_score, decision, review_status,
			       triggered_rules, scoring_version, review_notes, reviewer_id, reviewed_at, created_at
			FROM assessments
			WHERE decision = $1 AND (created_at, id) < ($3, $4)
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*AssessmentResult
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			continue
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *PostgresStore) UpdateReview(ctx context.Context, assessmentID string, upd ReviewUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE assessments
		SET review_status = $2, review_notes = $3, reviewer_id = $4, reviewed_at = $5
		WHERE id = $1
	`, assessmentID, string(upd.Status), upd.Notes, upd.ReviewerID, upd.ReviewedAt)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*AssessmentResult, error) {
	var a AssessmentResult
	var decision, status string
	var rulesJSON []byte
	err := row.Scan(
		&a.AssessmentID, &a.TransactionID, &a.RiskScore, &decision, &status,
		&rulesJSON, &a.ScoringVersion, &a.ReviewNotes, &a.ReviewerID, &a.ReviewedAt, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assessment: %w", err)
	}
	a.Decision = Decision(decision)
	a.ReviewStatus = ReviewStatus(status)
	if err := json.Unmarshal(rulesJSON, &a.TriggeredRules); err != nil {
		return nil, fmt.Errorf("failed to decode triggered rules: %w", err)
	}
	if a.TriggeredRules == nil {
		a.TriggeredRules = []rules.TriggeredRule{}
	}
	return &a, nil
}
