package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gigworks/marketplace-core/internal/api/dto"
	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/payout"
	"github.com/gigworks/marketplace-core/internal/storage"
)

// PayoutHandler handles payout settlement HTTP requests
type PayoutHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	payouts *payout.Service
	gateway *config.GatewayConfig
}

// NewPayoutHandler creates a new PayoutHandler instance
func NewPayoutHandler(deps *Dependencies) *PayoutHandler {
	return &PayoutHandler{
		logger:  deps.Logger,
		storage: deps.Storage,
		payouts: deps.Payouts,
		gateway: deps.Gateway,
	}
}

// GatewayCallback handles POST /api/v1/payouts/callback.
// The body is read raw first so the HMAC covers exactly what was signed.
func (h *PayoutHandler) GatewayCallback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	signature := c.GetHeader("X-Gateway-Signature")
	if !payout.VerifyWebhookSignature(h.gateway.WebhookSecret, body, signature) {
		h.logger.Warn("gateway callback signature mismatch", slog.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var req dto.GatewayCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil || req.TransferID == "" || req.Outcome == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.payouts.HandleTransferOutcome(c.Request.Context(), req.TransferID, req.Outcome, req.Reason); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// MarkPaid handles POST /api/v1/payouts/:payout_id/paid.
// Admin settlement of a manual-path payout.
func (h *PayoutHandler) MarkPaid(c *gin.Context) {
	payoutID := c.Param("payout_id")
	if _, err := uuid.Parse(payoutID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payout_id must be a valid UUID"})
		return
	}

	p, err := h.payouts.MarkManualPaid(c.Request.Context(), payoutID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, payoutToDTO(p))
}

// GetReport handles GET /api/v1/reports/:period_id
func (h *PayoutHandler) GetReport(c *gin.Context) {
	periodID := c.Param("period_id")
	if periodID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period_id is required"})
		return
	}

	period, err := h.storage.GetPayoutPeriod(c.Request.Context(), periodID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.PeriodDTO{
		PeriodID:     period.PeriodID,
		StartDate:    period.StartDate.Format(time.RFC3339),
		EndDate:      period.EndDate.Format(time.RFC3339),
		TotalPayouts: period.TotalPayouts,
		TotalCents:   period.TotalCents,
		Status:       period.Status,
		CSV:          period.CSV,
	})
}
