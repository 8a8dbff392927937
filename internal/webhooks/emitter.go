package webhooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbd888/sentinel/internal/idgen"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhookEmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "webhook",
		Name:      "emit_total",
		Help:      "Total webhook emit attempts by event type.",
	}, []string{"event_type"})

	webhookEmitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "webhook",
		Name:      "emit_errors_total",
		Help:      "Total webhook emit failures by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(webhookEmitTotal, webhookEmitErrors)
}

// Emitter wraps a Dispatcher to emit assessment lifecycle events.
// All methods are fire-and-forget: errors are logged but never returned.
type Emitter struct {
	d      *Dispatcher
	logger *slog.Logger
}

// NewEmitter creates a new webhook emitter.
func NewEmitter(d *Dispatcher, logger *slog.Logger) *Emitter {
	return &Emitter{d: d, logger: logger}
}

func (e *Emitter) emit(eventType EventType, data map[string]interface{}) {
	if e == nil || e.d == nil {
		return
	}
	webhookEmitTotal.WithLabelValues(string(eventType)).Inc()
	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	// Deliveries run async under the dispatcher's client timeout, so the
	// context must outlive this call.
	if err := e.d.Dispatch(context.Background(), event); err != nil {
		webhookEmitErrors.WithLabelValues(string(eventType)).Inc()
		e.logger.Warn("webhook emit failed", "event", eventType, "error", err)
	}
}

// EmitAssessment emits the event matching the decision: assessment.blocked
// for blocked, assessment.review_queued for manual review, and
// assessment.created otherwise.
func (e *Emitter) EmitAssessment(assessmentID, transactionID, accountID, decision string, riskScore float64, ruleCount int) {
	eventType := EventAssessmentCreated
	switch decision {
	case "blocked":
		eventType = EventBlocked
	case "manual_review":
		eventType = EventReviewQueued
	}
	e.emit(eventType, map[string]interface{}{
		"assessmentId":  assessmentID,
		"transactionId": transactionID,
		"accountId":     accountID,
		"decision":      decision,
		"riskScore":     riskScore,
		"ruleCount":     ruleCount,
	})
}

// EmitReviewUpdated emits a review.updated event after an analyst acts on
// an assessment.
func (e *Emitter) EmitReviewUpdated(assessmentID, transactionID, status, reviewerID string) {
	e.emit(EventReviewUpdated, map[string]interface{}{
		"assessmentId":  assessmentID,
		"transactionId": transactionID,
		"reviewStatus":  status,
		"reviewerId":    reviewerID,
	})
}
