package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/idgen"
)

// Handler exposes the ledger ingestion API. Signal groups only ever see
// what arrives here, so upstream systems push facts as they happen.
type Handler struct {
	store  Store
	writer Writer
}

// NewHandler creates a ledger API handler.
func NewHandler(store Store, writer Writer) *Handler {
	return &Handler{store: store, writer: writer}
}

// RegisterRoutes registers ledger routes on the given router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/ledger/accounts", h.UpsertAccount)
	r.GET("/ledger/accounts/:accountId", h.GetAccount)
	r.POST("/ledger/transactions", h.InsertTransaction)
	r.POST("/ledger/beneficiaries", h.UpsertBeneficiary)
	r.POST("/ledger/account-changes", h.InsertAccountChange)
	r.POST("/ledger/blacklist", h.InsertBlacklistEntry)
}

type accountRequest struct {
	ID        string    `json:"id" binding:"required"`
	CreatedAt time.Time `json:"createdAt" binding:"required"`
	RiskTier  string    `json:"riskTier"`
	Status    string    `json:"status"`
}

// UpsertAccount handles POST /v1/ledger/accounts.
func (h *Handler) UpsertAccount(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if req.RiskTier == "" {
		req.RiskTier = "low"
	}
	if req.Status == "" {
		req.Status = "active"
	}

	account := &Account{ID: req.ID, CreatedAt: req.CreatedAt, RiskTier: req.RiskTier, Status: req.Status}
	if err := h.writer.UpsertAccount(c.Request.Context(), account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}

// GetAccount handles GET /v1/ledger/accounts/:accountId.
func (h *Handler) GetAccount(c *gin.Context) {
	account, err := h.store.GetAccount(c.Request.Context(), c.Param("accountId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no such account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}

type transactionRequest struct {
	ID             string          `json:"id" binding:"required"`
	AccountID      string          `json:"accountId" binding:"required"`
	CounterpartyID string          `json:"counterpartyId"`
	Amount         float64         `json:"amount" binding:"required"`
	Direction      string          `json:"direction" binding:"required"`
	Type           string          `json:"type"`
	Timestamp      time.Time       `json:"timestamp" binding:"required"`
	Metadata       json.RawMessage `json:"metadata"`
}

// InsertTransaction handles POST /v1/ledger/transactions.
func (h *Handler) InsertTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	direction := Direction(req.Direction)
	if direction != DirectionCredit && direction != DirectionDebit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_direction", "message": "direction must be credit or debit"})
		return
	}

	meta, err := ParseMetadata(req.Metadata)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_metadata", "message": err.Error()})
		return
	}

	tx := &Transaction{
		ID:             req.ID,
		AccountID:      req.AccountID,
		CounterpartyID: req.CounterpartyID,
		Amount:         req.Amount,
		Direction:      direction,
		Type:           req.Type,
		Timestamp:      req.Timestamp,
		Metadata:       meta,
	}
	if err := h.writer.InsertTransaction(c.Request.Context(), tx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": tx.ID, "status": "recorded"})
}

type beneficiaryRequest struct {
	ID               string     `json:"id"`
	AccountID        string     `json:"accountId" binding:"required"`
	Name             string     `json:"name"`
	RegisteredAt     time.Time  `json:"registeredAt" binding:"required"`
	RegisteredByIP   string     `json:"registeredByIp"`
	RegisteredByUser string     `json:"registeredByUser"`
	Verified         bool       `json:"verified"`
	InContacts       bool       `json:"inContacts"`
	SocialLinked     bool       `json:"socialLinked"`
	LastPaymentAt    *time.Time `json:"lastPaymentAt"`
	TotalPayments    int        `json:"totalPayments"`
}

// UpsertBeneficiary handles POST /v1/ledger/beneficiaries.
func (h *Handler) UpsertBeneficiary(c *gin.Context) {
	var req beneficiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if req.ID == "" {
		req.ID = idgen.WithPrefix("ben_")
	}

	b := &Beneficiary{
		ID:               req.ID,
		AccountID:        req.AccountID,
		Name:             req.Name,
		RegisteredAt:     req.RegisteredAt,
		RegisteredByIP:   req.RegisteredByIP,
		RegisteredByUser: req.RegisteredByUser,
		Verified:         req.Verified,
		InContacts:       req.InContacts,
		SocialLinked:     req.SocialLinked,
		LastPaymentAt:    req.LastPaymentAt,
		TotalPayments:    req.TotalPayments,
	}
	if err := h.writer.UpsertBeneficiary(c.Request.Context(), b); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

type accountChangeRequest struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"accountId" binding:"required"`
	Field      string    `json:"field" binding:"required"`
	Source     string    `json:"source"`
	Verified   bool      `json:"verified"`
	Suspicious bool      `json:"suspicious"`
	ChangedAt  time.Time `json:"changedAt" binding:"required"`
}

// InsertAccountChange handles POST /v1/ledger/account-changes.
func (h *Handler) InsertAccountChange(c *gin.Context) {
	var req accountChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if req.ID == "" {
		req.ID = idgen.WithPrefix("chg_")
	}

	change := &AccountChange{
		ID:         req.ID,
		AccountID:  req.AccountID,
		Field:      req.Field,
		Source:     req.Source,
		Verified:   req.Verified,
		Suspicious: req.Suspicious,
		ChangedAt:  req.ChangedAt,
	}
	if err := h.writer.InsertAccountChange(c.Request.Context(), change); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, change)
}

type blacklistRequest struct {
	ID          string  `json:"id"`
	EntityType  string  `json:"entityType" binding:"required"`
	EntityValue string  `json:"entityValue" binding:"required"`
	Severity    float64 `json:"severity"`
	Reason      string  `json:"reason"`
}

// InsertBlacklistEntry handles POST /v1/ledger/blacklist.
func (h *Handler) InsertBlacklistEntry(c *gin.Context) {
	var req blacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if req.Severity < 0 || req.Severity > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_severity", "message": "severity must be in [0, 1]"})
		return
	}

	if req.ID == "" {
		req.ID = idgen.WithPrefix("bl_")
	}

	entry := &BlacklistEntry{
		ID:          req.ID,
		EntityType:  req.EntityType,
		EntityValue: req.EntityValue,
		Severity:    req.Severity,
		Reason:      req.Reason,
		Active:      true,
		AddedAt:     time.Now().UTC(),
	}
	if err := h.writer.InsertBlacklistEntry(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}
