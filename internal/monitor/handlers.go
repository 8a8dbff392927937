package monitor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/decision"
	"github.com/mbd888/sentinel/internal/ledger"
	"github.com/mbd888/sentinel/internal/pagination"
)

// Handler provides the HTTP surface over the monitor.
type Handler struct {
	monitor *Monitor
	store   decision.Store
}

// NewHandler creates a monitor handler.
func NewHandler(m *Monitor, store decision.Store) *Handler {
	return &Handler{monitor: m, store: store}
}

// RegisterRoutes sets up the evaluation and review routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/evaluate", h.Evaluate)
	r.GET("/assessments/:transactionId", h.GetAssessment)
	r.GET("/reviews", h.ListReviews)
	r.POST("/assessments/:transactionId/review", h.SubmitReview)
}

type evaluateRequest struct {
	TransactionID  string          `json:"transactionId" binding:"required"`
	AccountID      string          `json:"accountId" binding:"required"`
	CounterpartyID string          `json:"counterpartyId"`
	Amount         float64         `json:"amount" binding:"required"`
	Direction      string          `json:"direction" binding:"required"`
	Type           string          `json:"type"`
	Timestamp      time.Time       `json:"timestamp" binding:"required"`
	Metadata       json.RawMessage `json:"metadata"`
}

// Evaluate handles POST /v1/evaluate.
func (h *Handler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	meta, err := ledger.ParseMetadata(req.Metadata)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_metadata", "message": err.Error()})
		return
	}

	tx := &ledger.Transaction{
		ID:             req.TransactionID,
		AccountID:      req.AccountID,
		CounterpartyID: req.CounterpartyID,
		Amount:         req.Amount,
		Direction:      ledger.Direction(req.Direction),
		Type:           req.Type,
		Timestamp:      req.Timestamp,
		Metadata:       meta,
	}

	result, err := h.monitor.Evaluate(c.Request.Context(), tx)
	if err != nil {
		if errors.Is(err, ErrInvalidTransaction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_transaction", "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetAssessment handles GET /v1/assessments/:transactionId.
func (h *Handler) GetAssessment(c *gin.Context) {
	result, err := h.store.GetByTransaction(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		if errors.Is(err, decision.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no assessment for transaction"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListReviews handles GET /v1/reviews.
func (h *Handler) ListReviews(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit", "message": "limit must be 1-500"})
			return
		}
		limit = n
	}

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor", "message": err.Error()})
		return
	}

	// Fetch one extra row to detect whether another page exists.
	result, err := h.store.ListByDecision(c.Request.Context(), decision.DecisionManualReview, limit+1, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed", "message": err.Error()})
		return
	}

	page, next, hasMore := pagination.ComputePage(result, limit, func(a *decision.AssessmentResult) (time.Time, string) {
		return a.CreatedAt, a.AssessmentID
	})

	resp := gin.H{"assessments": page, "count": len(page)}
	if hasMore {
		resp["nextCursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}

type reviewRequest struct {
	Status     string `json:"status" binding:"required"`
	Notes      string `json:"notes"`
	ReviewerID string `json:"reviewerId" binding:"required"`
}

func validReviewStatus(s decision.ReviewStatus) bool {
	switch s {
	case decision.ReviewApproved, decision.ReviewRejected, decision.ReviewEscalated:
		return true
	}
	return false
}

// SubmitReview handles POST /v1/assessments/:transactionId/review.
func (h *Handler) SubmitReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	status := decision.ReviewStatus(req.Status)
	if !validReviewStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status", "message": "status must be approved, rejected, or escalated"})
		return
	}

	assessment, err := h.store.GetByTransaction(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		if errors.Is(err, decision.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no assessment for transaction"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed", "message": err.Error()})
		return
	}

	upd := decision.ReviewUpdate{
		Status:     status,
		Notes:      req.Notes,
		ReviewerID: req.ReviewerID,
		ReviewedAt: time.Now().UTC(),
	}
	if err := h.store.UpdateReview(c.Request.Context(), assessment.AssessmentID, upd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "review_failed", "message": err.Error()})
		return
	}

	if h.monitor.events != nil {
		h.monitor.events.EmitReviewUpdated(assessment.AssessmentID, assessment.TransactionID, string(status), req.ReviewerID)
	}

	c.JSON(http.StatusOK, gin.H{"assessmentId": assessment.AssessmentID, "reviewStatus": string(status)})
}
