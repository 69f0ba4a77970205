package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gigworks/marketplace-core/internal/api/dto"
	"github.com/gigworks/marketplace-core/internal/lifecycle"
)

// TransferHandler handles job handoff HTTP requests
type TransferHandler struct {
	logger    *slog.Logger
	transfers *lifecycle.Transfers
}

// NewTransferHandler creates a new TransferHandler instance
func NewTransferHandler(deps *Dependencies) *TransferHandler {
	return &TransferHandler{
		logger:    deps.Logger,
		transfers: deps.Transfers,
	}
}

// OfferTransfer handles POST /api/v1/jobs/:job_id/transfers
func (h *TransferHandler) OfferTransfer(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id must be a valid UUID"})
		return
	}

	var req dto.OfferTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	offer, err := h.transfers.Offer(c.Request.Context(), jobID, req.FromWorker, req.ToWorker, req.TransferType)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, transferToDTO(offer))
}

// AcceptTransfer handles POST /api/v1/transfers/:transfer_id/accept
func (h *TransferHandler) AcceptTransfer(c *gin.Context) {
	transferID, ok := h.transferID(c)
	if !ok {
		return
	}

	var req dto.TransferActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	offer, err := h.transfers.Accept(c.Request.Context(), transferID, req.WorkerID, req.WorkerName)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, transferToDTO(offer))
}

// DeclineTransfer handles POST /api/v1/transfers/:transfer_id/decline
func (h *TransferHandler) DeclineTransfer(c *gin.Context) {
	transferID, ok := h.transferID(c)
	if !ok {
		return
	}

	var req dto.TransferActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	offer, err := h.transfers.Decline(c.Request.Context(), transferID, req.WorkerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, transferToDTO(offer))
}

func (h *TransferHandler) transferID(c *gin.Context) (string, bool) {
	transferID := c.Param("transfer_id")
	if _, err := uuid.Parse(transferID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transfer_id must be a valid UUID"})
		return "", false
	}
	return transferID, true
}
