package decision

import (
	"context"
	"time"

	"github.com/mbd888/sentinel/internal/pagination"
)

// ReviewUpdate carries an analyst's verdict on a pending assessment.
type ReviewUpdate struct {
	Status     ReviewStatus
	Notes      string
	ReviewerID string
	ReviewedAt time.Time
}

// Store persists assessments. Insert is idempotent per transaction: the
// first assessment for a transaction wins and later attempts are no-ops.
type Store interface {
	// Insert stores the assessment unless the transaction already has one.
	// It reports whether this call stored the result.
	Insert(ctx context.Context, a *AssessmentResult) (bool, error)

	// GetByTransaction returns the assessment for a transaction.
	GetByTransaction(ctx context.Context, transactionID string) (*AssessmentResult, error)

	// ListByDecision returns the most recent assessments with the given
	// decision, newest first. A non-nil cursor resumes after the
	// (created_at, id) position it encodes.
	ListByDecision(ctx context.Context, d Decision, limit int, cursor *pagination.Cursor) ([]*AssessmentResult, error)

	// UpdateReview applies an analyst verdict to an existing assessment.
	UpdateReview(ctx context.Context, assessmentID string, upd ReviewUpdate) error
}
