// Package monitor orchestrates the evaluation pipeline: assemble the signal
// context, run the rule catalog, score, decide, persist, publish. One call
// per candidate transaction; the result for a fixed transaction and ledger
// state is deterministic.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbd888/sentinel/internal/decision"
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/ledger"
	"github.com/mbd888/sentinel/internal/logging"
	"github.com/mbd888/sentinel/internal/metrics"
	"github.com/mbd888/sentinel/internal/realtime"
	"github.com/mbd888/sentinel/internal/retry"
	"github.com/mbd888/sentinel/internal/rules"
	"github.com/mbd888/sentinel/internal/scoring"
	"github.com/mbd888/sentinel/internal/syncutil"
	"github.com/mbd888/sentinel/internal/traces"
)

// EventEmitter receives assessment lifecycle notifications for delivery to
// external systems.
type EventEmitter interface {
	EmitAssessment(assessmentID, transactionID, accountID, decision string, riskScore float64, ruleCount int)
	EmitReviewUpdated(assessmentID, transactionID, status, reviewerID string)
}

// ErrInvalidTransaction marks candidate transactions rejected before
// evaluation.
var ErrInvalidTransaction = errors.New("invalid transaction")

const (
	defaultEvaluateTimeout = 10 * time.Second
	persistAttempts        = 3
	persistBaseDelay       = 100 * time.Millisecond
)

// Monitor runs the full evaluation pipeline. All components are read-only
// after construction, so one Monitor serves concurrent evaluations.
type Monitor struct {
	assembler *features.Assembler
	catalog   *rules.Catalog
	scorer    *scoring.Scorer
	engine    *decision.Engine
	store     decision.Store
	hub       *realtime.Hub
	events    EventEmitter
	locks     *syncutil.ContextShardedMutex
	timeout   time.Duration
}

// New assembles a monitor from its pipeline stages.
func New(a *features.Assembler, c *rules.Catalog, s *scoring.Scorer, e *decision.Engine, store decision.Store) *Monitor {
	return &Monitor{
		assembler: a,
		catalog:   c,
		scorer:    s,
		engine:    e,
		store:     store,
		locks:     syncutil.NewContextShardedMutex(),
		timeout:   defaultEvaluateTimeout,
	}
}

// WithHub attaches a realtime hub for assessment broadcasts.
func (m *Monitor) WithHub(h *realtime.Hub) *Monitor {
	m.hub = h
	return m
}

// WithEvents attaches an emitter for webhook notifications.
func (m *Monitor) WithEvents(e EventEmitter) *Monitor {
	m.events = e
	return m
}

// WithTimeout overrides the per-evaluation deadline.
func (m *Monitor) WithTimeout(d time.Duration) *Monitor {
	if d > 0 {
		m.timeout = d
	}
	return m
}

func validate(tx *ledger.Transaction) error {
	switch {
	case tx == nil:
		return fmt.Errorf("%w: nil transaction", ErrInvalidTransaction)
	case tx.ID == "":
		return fmt.Errorf("%w: missing transaction id", ErrInvalidTransaction)
	case tx.AccountID == "":
		return fmt.Errorf("%w: missing account id", ErrInvalidTransaction)
	case tx.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	case tx.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidTransaction)
	case tx.Direction != ledger.DirectionCredit && tx.Direction != ledger.DirectionDebit:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidTransaction, tx.Direction)
	}
	return nil
}

// Evaluate runs the pipeline for one candidate transaction and returns the
// persisted assessment. Re-evaluating a transaction returns the original
// assessment unchanged.
func (m *Monitor) Evaluate(ctx context.Context, tx *ledger.Transaction) (*decision.AssessmentResult, error) {
	if err := validate(tx); err != nil {
		metrics.EvaluationFailuresTotal.WithLabelValues("validate").Inc()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	ctx = logging.WithTransactionID(ctx, tx.ID)

	ctx, span := traces.StartSpan(ctx, "monitor.Evaluate",
		traces.TransactionID(tx.ID), traces.AccountID(tx.AccountID), traces.Amount(tx.Amount))
	defer span.End()

	timer := prometheus.NewTimer(metrics.EvaluationDuration)
	defer timer.ObserveDuration()

	// Serialize concurrent evaluations of the same transaction so only one
	// races the insert; the rest read the stored result.
	unlock, err := m.locks.LockContext(ctx, tx.ID)
	if err != nil {
		metrics.EvaluationFailuresTotal.WithLabelValues("lock").Inc()
		return nil, fmt.Errorf("evaluate %s: %w", tx.ID, err)
	}
	defer unlock()

	fc, err := m.assembler.Build(ctx, tx)
	if err != nil {
		metrics.EvaluationFailuresTotal.WithLabelValues("assemble").Inc()
		return nil, fmt.Errorf("evaluate %s: %w", tx.ID, err)
	}

	triggered := m.catalog.Evaluate(tx, fc)
	score := m.scorer.Score(triggered)
	result := m.engine.Decide(tx.ID, score, triggered, time.Now().UTC())

	stored, err := m.persist(ctx, result)
	if err != nil {
		metrics.EvaluationFailuresTotal.WithLabelValues("persist").Inc()
		return nil, fmt.Errorf("persist assessment for %s: %w", tx.ID, err)
	}
	if !stored {
		// The transaction was already assessed; the stored result wins.
		existing, err := m.store.GetByTransaction(ctx, tx.ID)
		if err != nil {
			metrics.EvaluationFailuresTotal.WithLabelValues("persist").Inc()
			return nil, fmt.Errorf("load existing assessment for %s: %w", tx.ID, err)
		}
		return existing, nil
	}

	m.observe(tx, result)
	m.publish(tx, result)
	if m.events != nil {
		m.events.EmitAssessment(result.AssessmentID, result.TransactionID, tx.AccountID,
			string(result.Decision), result.RiskScore, len(result.TriggeredRules))
	}

	logging.L(ctx).Info("transaction evaluated",
		"account_id", tx.AccountID,
		"decision", string(result.Decision),
		"risk_score", result.RiskScore,
		"triggered", len(result.TriggeredRules))

	span.SetAttributes(traces.Decision(string(result.Decision)), traces.RiskScore(result.RiskScore))
	return result, nil
}

func (m *Monitor) persist(ctx context.Context, a *decision.AssessmentResult) (bool, error) {
	var stored bool
	err := retry.Do(ctx, persistAttempts, persistBaseDelay, func() error {
		var err error
		stored, err = m.store.Insert(ctx, a)
		return err
	})
	return stored, err
}

func (m *Monitor) observe(tx *ledger.Transaction, a *decision.AssessmentResult) {
	metrics.EvaluationsTotal.WithLabelValues(string(a.Decision)).Inc()
	metrics.RiskScore.Observe(a.RiskScore)
	for _, tr := range a.TriggeredRules {
		metrics.RulesTriggeredTotal.WithLabelValues(tr.Category).Inc()
		if tr.HardOverride {
			metrics.HardOverridesTotal.Inc()
		}
	}
}

func (m *Monitor) publish(tx *ledger.Transaction, a *decision.AssessmentResult) {
	if m.hub == nil {
		return
	}

	typ := realtime.EventAssessment
	switch a.Decision {
	case decision.DecisionManualReview:
		typ = realtime.EventReviewQueued
	case decision.DecisionBlocked:
		typ = realtime.EventBlocked
	}

	m.hub.Broadcast(&realtime.Event{
		Type:      typ,
		Timestamp: a.CreatedAt,
		Data: map[string]interface{}{
			"assessmentId":  a.AssessmentID,
			"transactionId": a.TransactionID,
			"accountId":     tx.AccountID,
			"amount":        tx.Amount,
			"decision":      string(a.Decision),
			"riskScore":     a.RiskScore,
			"ruleCount":     len(a.TriggeredRules),
		},
	})
}
