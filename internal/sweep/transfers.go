package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/domain"
	"github.com/gigworks/marketplace-core/internal/notify"
	"github.com/gigworks/marketplace-core/internal/payout"
)

// TransferStore is the slice of the storage layer the expiry sweep uses.
type TransferStore interface {
	ListExpiredPendingTransfers(ctx context.Context, cutoff time.Time) ([]domain.TransferOffer, error)
	ExpireTransferOffer(ctx context.Context, transferID string) (bool, error)
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	RequeueJob(ctx context.Context, jobID, from string) (bool, error)
}

// TransferSweeper expires stale direct transfer offers and puts their
// jobs back on the feed. The guarded expire makes the sweep and a
// concurrent accept or decline mutually exclusive per offer.
type TransferSweeper struct {
	store    TransferStore
	notifier payout.Notifier
	payments *config.PaymentsConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewTransferSweeper creates a TransferSweeper.
func NewTransferSweeper(store TransferStore, notifier payout.Notifier, payments *config.PaymentsConfig, logger *slog.Logger) *TransferSweeper {
	return &TransferSweeper{
		store:    store,
		notifier: notifier,
		payments: payments,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one sweep tick.
func (t *TransferSweeper) Run(ctx context.Context) {
	cutoff := t.now().UTC().Add(-t.payments.TransferExpiry())

	offers, err := t.store.ListExpiredPendingTransfers(ctx, cutoff)
	if err != nil {
		t.logger.Error("failed to list expired transfers", "error", err)
		return
	}

	for _, offer := range offers {
		if err := t.expire(ctx, offer); err != nil {
			t.logger.Error("failed to expire transfer",
				"transfer_id", offer.TransferID,
				"job_id", offer.JobID,
				"error", err)
		}
	}
}

func (t *TransferSweeper) expire(ctx context.Context, offer domain.TransferOffer) error {
	expired, err := t.store.ExpireTransferOffer(ctx, offer.TransferID)
	if err != nil {
		return err
	}
	if !expired {
		// Accepted or declined between listing and now.
		return nil
	}

	job, err := t.store.GetJobByID(ctx, offer.JobID)
	if err != nil {
		return err
	}

	if job.ClaimedBy.Valid && job.ClaimedBy.String == offer.FromWorker {
		requeued, err := t.store.RequeueJob(ctx, offer.JobID, job.Status)
		if err != nil {
			return err
		}
		if !requeued {
			t.logger.Warn("job changed state during transfer expiry",
				"transfer_id", offer.TransferID,
				"job_id", offer.JobID)
		}
	}

	t.notifier.Notify(ctx, notify.Event{
		Type:     "transfer.expired",
		JobID:    offer.JobID,
		WorkerID: offer.FromWorker,
		Data:     map[string]string{"transfer_id": offer.TransferID},
	})

	t.logger.Info("transfer expired", "transfer_id", offer.TransferID, "job_id", offer.JobID)
	return nil
}
