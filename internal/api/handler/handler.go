package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gigworks/marketplace-core/internal/api/dto"
	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/domain"
	"github.com/gigworks/marketplace-core/internal/lifecycle"
	"github.com/gigworks/marketplace-core/internal/payout"
	"github.com/gigworks/marketplace-core/internal/storage"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Storage   *storage.Storage
	Lifecycle *lifecycle.Service
	Transfers *lifecycle.Transfers
	Payouts   *payout.Service
	Gateway   *config.GatewayConfig
}

// respondError maps domain errors to HTTP responses. Expected conflicts
// (lost claim race, closed complaint window) are 409s with a user-facing
// message; unknown errors are logged and hidden behind a 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrClaimConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "job just taken"})
	case errors.Is(err, domain.ErrWindowClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "window closed, contact support"})
	case errors.Is(err, domain.ErrTransferNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "transfer offer is no longer pending"})
	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrScoreNotFound),
		errors.Is(err, domain.ErrPayoutNotFound),
		errors.Is(err, domain.ErrPeriodNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func jobToDTO(job *domain.Job) dto.JobDTO {
	out := dto.JobDTO{
		JobID:           job.JobID,
		Title:           job.Title,
		Status:          job.Status,
		PayoutBaseCents: job.PayoutBaseCents,
		RushBonusCents:  job.RushBonusCents,
		TotalCents:      job.TotalCents(),
		PaymentStatus:   job.PaymentStatus,
		ReopenCount:     job.ReopenCount,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       job.UpdatedAt.Format(time.RFC3339),
	}
	if job.ClaimedBy.Valid {
		out.ClaimedBy = job.ClaimedBy.String
		out.ClaimedByName = job.ClaimedByName.String
	}
	if job.ClaimedAt.Valid {
		out.ClaimedAt = job.ClaimedAt.Time.Format(time.RFC3339)
	}
	return out
}

func transferToDTO(offer *domain.TransferOffer) dto.TransferDTO {
	return dto.TransferDTO{
		TransferID:   offer.TransferID,
		JobID:        offer.JobID,
		FromWorker:   offer.FromWorker,
		ToWorker:     offer.ToWorker,
		TransferType: offer.TransferType,
		Status:       offer.Status,
		CreatedAt:    offer.CreatedAt.Format(time.RFC3339),
	}
}

func payoutToDTO(p *domain.Payout) dto.PayoutDTO {
	out := dto.PayoutDTO{
		PayoutID:      p.PayoutID,
		JobID:         p.JobID,
		RecipientID:   p.RecipientID,
		AmountCents:   p.AmountCents,
		SplitType:     p.SplitType,
		Status:        p.Status,
		PaymentMethod: p.PaymentMethod,
	}
	if p.PaidAt.Valid {
		out.PaidAt = p.PaidAt.Time.Format(time.RFC3339)
	}
	return out
}
