package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gigworks/marketplace-core/internal/domain"
	"github.com/gigworks/marketplace-core/internal/notify"
)

// TransferStore is the slice of the storage layer the handoff flow uses.
type TransferStore interface {
	CreateTransferOffer(ctx context.Context, offer *domain.TransferOffer) error
	GetTransferOffer(ctx context.Context, transferID string) (*domain.TransferOffer, error)
	ResolveTransferOffer(ctx context.Context, transferID, toStatus string) (bool, error)
}

// Transfers handles worker-to-worker job handoffs. A requeue offer puts
// the job straight back on the feed; a direct offer waits for the target
// worker's response and expires if none arrives.
type Transfers struct {
	svc   *Service
	store TransferStore
}

// NewTransfers creates the handoff flow on top of the lifecycle service.
func NewTransfers(svc *Service, store TransferStore) *Transfers {
	return &Transfers{svc: svc, store: store}
}

// Offer creates a transfer offer from the job's current assignee.
func (t *Transfers) Offer(ctx context.Context, jobID, fromWorker, toWorker, transferType string) (*domain.TransferOffer, error) {
	if transferType != domain.TransferTypeDirect && transferType != domain.TransferTypeRequeue {
		return nil, fmt.Errorf("unknown transfer type %q", transferType)
	}
	if transferType == domain.TransferTypeDirect && toWorker == "" {
		return nil, fmt.Errorf("direct transfer requires a target worker")
	}

	job, err := t.svc.requireAssignee(ctx, jobID, fromWorker)
	if err != nil {
		return nil, err
	}

	if !domain.PreCompletion(job.Status) {
		return nil, fmt.Errorf("job %s cannot be transferred from %s", jobID, job.Status)
	}

	now := t.svc.now().UTC()
	offer := &domain.TransferOffer{
		TransferID:     uuid.NewString(),
		JobID:          jobID,
		FromWorker:     fromWorker,
		FromWorkerName: job.ClaimedByName.String,
		ToWorker:       toWorker,
		TransferType:   transferType,
		Status:         domain.TransferStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := t.store.CreateTransferOffer(ctx, offer); err != nil {
		return nil, err
	}

	if transferType == domain.TransferTypeRequeue {
		return t.requeue(ctx, offer, job.Status)
	}

	t.svc.notifier.Notify(ctx, notify.Event{
		Type:     "transfer.offered",
		JobID:    jobID,
		WorkerID: toWorker,
		Data: map[string]string{
			"transfer_id": offer.TransferID,
			"from_worker": fromWorker,
		},
	})

	t.svc.logger.Info("transfer offered",
		"transfer_id", offer.TransferID,
		"job_id", jobID,
		"to_worker", toWorker)
	return offer, nil
}

// requeue resolves the offer immediately and puts the job back on the feed.
func (t *Transfers) requeue(ctx context.Context, offer *domain.TransferOffer, fromStatus string) (*domain.TransferOffer, error) {
	requeued, err := t.svc.store.RequeueJob(ctx, offer.JobID, fromStatus)
	if err != nil {
		return nil, err
	}
	if !requeued {
		return nil, fmt.Errorf("job %s changed state during requeue", offer.JobID)
	}

	if _, err := t.store.ResolveTransferOffer(ctx, offer.TransferID, domain.TransferStatusAccepted); err != nil {
		return nil, err
	}
	offer.Status = domain.TransferStatusAccepted

	t.svc.notifier.Notify(ctx, notify.Event{
		Type:  "job.requeued",
		JobID: offer.JobID,
		Data:  map[string]string{"transfer_id": offer.TransferID},
	})

	t.svc.logger.Info("job requeued via transfer", "transfer_id", offer.TransferID, "job_id", offer.JobID)
	return offer, nil
}

// Accept reassigns the job to the target worker. The pending-status guard
// makes accept, decline, and the expiry sweep mutually exclusive.
func (t *Transfers) Accept(ctx context.Context, transferID, workerID, workerName string) (*domain.TransferOffer, error) {
	offer, err := t.store.GetTransferOffer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if offer.ToWorker != workerID {
		return nil, fmt.Errorf("transfer %s is not addressed to worker %s", transferID, workerID)
	}

	resolved, err := t.store.ResolveTransferOffer(ctx, transferID, domain.TransferStatusAccepted)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, domain.ErrTransferNotPending
	}
	offer.Status = domain.TransferStatusAccepted

	if err := t.svc.store.ReassignJob(ctx, offer.JobID, workerID, workerName); err != nil {
		return nil, err
	}

	t.svc.notifier.Notify(ctx, notify.Event{
		Type:     "transfer.accepted",
		JobID:    offer.JobID,
		WorkerID: offer.FromWorker,
		Data:     map[string]string{"transfer_id": transferID},
	})

	t.svc.logger.Info("transfer accepted", "transfer_id", transferID, "job_id", offer.JobID)
	return offer, nil
}

// Decline rejects a pending direct offer; the job stays with the holder.
func (t *Transfers) Decline(ctx context.Context, transferID, workerID string) (*domain.TransferOffer, error) {
	offer, err := t.store.GetTransferOffer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if offer.ToWorker != workerID {
		return nil, fmt.Errorf("transfer %s is not addressed to worker %s", transferID, workerID)
	}

	resolved, err := t.store.ResolveTransferOffer(ctx, transferID, domain.TransferStatusDeclined)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, domain.ErrTransferNotPending
	}
	offer.Status = domain.TransferStatusDeclined

	t.svc.notifier.Notify(ctx, notify.Event{
		Type:     "transfer.declined",
		JobID:    offer.JobID,
		WorkerID: offer.FromWorker,
		Data:     map[string]string{"transfer_id": transferID},
	})

	t.svc.logger.Info("transfer declined", "transfer_id", transferID, "job_id", offer.JobID)
	return offer, nil
}
