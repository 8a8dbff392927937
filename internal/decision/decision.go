// Package decision maps risk scores to outcomes and persists the resulting
// assessments. One transaction gets exactly one assessment; the review
// fields are the only part an analyst may change afterwards.
package decision

import (
	"errors"
	"time"

	"github.com/mbd888/sentinel/internal/idgen"
	"github.com/mbd888/sentinel/internal/rules"
)

// ErrNotFound is returned when no assessment matches the lookup.
var ErrNotFound = errors.New("assessment not found")

// Decision is the pipeline outcome for one transaction.
type Decision string

const (
	DecisionAutoApprove  Decision = "auto_approve"
	DecisionManualReview Decision = "manual_review"
	DecisionBlocked      Decision = "blocked"
)

// ReviewStatus tracks the analyst workflow on a manual-review assessment.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewApproved  ReviewStatus = "approved"
	ReviewRejected  ReviewStatus = "rejected"
	ReviewEscalated ReviewStatus = "escalated"
)

// DefaultReviewThreshold is the score at which evaluations go to a human.
const DefaultReviewThreshold = 0.60

// AssessmentResult is the persisted outcome of one evaluation.
type AssessmentResult struct {
	AssessmentID   string                `json:"assessmentId"`
	TransactionID  string                `json:"transactionId"`
	RiskScore      float64               `json:"riskScore"`
	Decision       Decision              `json:"decision"`
	ReviewStatus   ReviewStatus          `json:"reviewStatus,omitempty"`
	TriggeredRules []rules.TriggeredRule `json:"triggeredRules"`
	ScoringVersion string                `json:"scoringVersion"`
	CreatedAt      time.Time             `json:"createdAt"`

	// Mutable by the analyst workflow only.
	ReviewNotes string     `json:"reviewNotes,omitempty"`
	ReviewerID  string     `json:"reviewerId,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
}

// Engine turns a score and its triggered rules into a decision.
type Engine struct {
	reviewThreshold float64
	scoringVersion  string
}

// NewEngine creates a decision engine. Thresholds outside (0, 1] fall back
// to the default.
func NewEngine(reviewThreshold float64, scoringVersion string) *Engine {
	if reviewThreshold <= 0 || reviewThreshold > 1 {
		reviewThreshold = DefaultReviewThreshold
	}
	return &Engine{reviewThreshold: reviewThreshold, scoringVersion: scoringVersion}
}

// Decide produces the assessment for one scored transaction. A triggered
// hard-override rule blocks regardless of score; otherwise the score alone
// picks the outcome.
func (e *Engine) Decide(transactionID string, score float64, triggered []rules.TriggeredRule, at time.Time) *AssessmentResult {
	decision := DecisionAutoApprove
	status := ReviewApproved

	for _, tr := range triggered {
		if tr.HardOverride {
			decision = DecisionBlocked
			break
		}
	}
	if decision != DecisionBlocked && score >= e.reviewThreshold {
		decision = DecisionManualReview
	}

	// Blocked assessments still await analyst disposition; only the review
	// workflow moves them to rejected or escalated.
	if decision != DecisionAutoApprove {
		status = ReviewPending
	}

	return &AssessmentResult{
		AssessmentID:   idgen.WithPrefix("asm_"),
		TransactionID:  transactionID,
		RiskScore:      score,
		Decision:       decision,
		ReviewStatus:   status,
		TriggeredRules: triggered,
		ScoringVersion: e.scoringVersion,
		CreatedAt:      at,
	}
}
