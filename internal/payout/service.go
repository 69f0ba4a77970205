package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/domain"
	"github.com/gigworks/marketplace-core/internal/notify"
)

// Store is the slice of the storage layer the payout engine uses.
type Store interface {
	InsertPayout(ctx context.Context, payout *domain.Payout) (bool, error)
	GetLivePayout(ctx context.Context, jobID, splitType string) (*domain.Payout, error)
	GetPayoutByID(ctx context.Context, payoutID string) (*domain.Payout, error)
	GetPayoutByTransferID(ctx context.Context, transferID string) (*domain.Payout, error)
	MarkPayoutProcessing(ctx context.Context, payoutID, transferID string) error
	MarkPayoutManual(ctx context.Context, payoutID, reason string) error
	MarkPayoutPaid(ctx context.Context, payoutID, paymentMethod string, paidAt time.Time) error
	MarkPayoutFailed(ctx context.Context, payoutID, reason string) error
	GetPayoutAccount(ctx context.Context, workerID string) (*domain.PayoutAccount, error)
	RecordPayoutRef(ctx context.Context, jobID, splitType, payoutID string) error
}

// Notifier is the slice of the notification publisher the engine uses.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event)
	AdminAlert(ctx context.Context, event notify.Event)
}

// Service creates split payouts and settles their async gateway outcomes.
type Service struct {
	store    Store
	gateway  Gateway
	notifier Notifier
	payments *config.PaymentsConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a payout Service.
func NewService(store Store, gateway Gateway, notifier Notifier, payments *config.PaymentsConfig, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		payments: payments,
		logger:   logger,
		now:      time.Now,
	}
}

// SplitPercent returns the configured percentage for a split type.
func (s *Service) SplitPercent(splitType string) int {
	if splitType == domain.SplitCheckin {
		return s.payments.CheckinPercent
	}
	return s.payments.CompletionPercent
}

// CreateSplitPayout creates and dispatches one split of a job's payout.
// Calling it again for the same (job, split) returns the existing payout:
// the insert races on a partial unique index, so exactly one caller ever
// creates the record. Gateway failures downgrade the payout to the manual
// path and raise an admin alert; money is never silently dropped.
func (s *Service) CreateSplitPayout(ctx context.Context, job *domain.Job, splitType string) (*domain.Payout, error) {
	if !job.ClaimedBy.Valid {
		return nil, domain.NewInvariantViolation("payout requested for unclaimed job %s", job.JobID)
	}

	amount := domain.SplitAmountCents(job.TotalCents(), s.SplitPercent(splitType))

	payout := &domain.Payout{
		PayoutID:      uuid.NewString(),
		JobID:         job.JobID,
		RecipientID:   job.ClaimedBy.String,
		RecipientName: job.ClaimedByName.String,
		AmountCents:   amount,
		SplitType:     splitType,
		Status:        domain.PayoutStatusPending,
		PaymentMethod: domain.PaymentMethodGateway,
		CreatedAt:     s.now().UTC(),
	}

	inserted, err := s.store.InsertPayout(ctx, payout)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payout: %w", err)
	}

	if !inserted {
		existing, err := s.store.GetLivePayout(ctx, job.JobID, splitType)
		if err != nil {
			return nil, fmt.Errorf("payout exists but could not be loaded: %w", err)
		}
		s.logger.Info("payout already exists, skipping dispatch",
			"job_id", job.JobID,
			"split_type", splitType,
			"payout_id", existing.PayoutID)
		return existing, nil
	}

	if err := s.store.RecordPayoutRef(ctx, job.JobID, splitType, payout.PayoutID); err != nil {
		s.logger.Error("failed to record payout ref on job",
			"job_id", job.JobID,
			"payout_id", payout.PayoutID,
			"error", err)
	}

	s.dispatch(ctx, job, payout)
	return payout, nil
}

// dispatch sends the payout through the gateway when the recipient has a
// payout-enabled account, and falls back to the manual path otherwise.
func (s *Service) dispatch(ctx context.Context, job *domain.Job, payout *domain.Payout) {
	account, err := s.store.GetPayoutAccount(ctx, payout.RecipientID)
	if err != nil {
		s.toManual(ctx, payout, fmt.Sprintf("account lookup failed: %v", err))
		return
	}

	if account == nil {
		s.toManual(ctx, payout, "no payout-enabled account")
		return
	}

	transferID, err := s.gateway.CreateTransfer(ctx, TransferRequest{
		AccountID:      account.ExternalAccountID,
		AmountCents:    payout.AmountCents,
		Currency:       "usd",
		IdempotencyKey: payout.PayoutID,
		Description:    fmt.Sprintf("%s for job %s", payout.SplitType, job.JobID),
	})
	if err != nil {
		s.toManual(ctx, payout, err.Error())
		return
	}

	if err := s.store.MarkPayoutProcessing(ctx, payout.PayoutID, transferID); err != nil {
		s.logger.Error("failed to mark payout processing",
			"payout_id", payout.PayoutID,
			"transfer_id", transferID,
			"error", err)
		return
	}

	payout.Status = domain.PayoutStatusProcessing
	payout.ExternalTransferID.String = transferID
	payout.ExternalTransferID.Valid = true

	s.logger.Info("payout dispatched to gateway",
		"payout_id", payout.PayoutID,
		"job_id", payout.JobID,
		"split_type", payout.SplitType,
		"amount_cents", payout.AmountCents,
		"transfer_id", transferID)
}

func (s *Service) toManual(ctx context.Context, payout *domain.Payout, reason string) {
	s.logger.Warn("payout downgraded to manual",
		"payout_id", payout.PayoutID,
		"job_id", payout.JobID,
		"reason", reason)

	if err := s.store.MarkPayoutManual(ctx, payout.PayoutID, reason); err != nil {
		s.logger.Error("failed to mark payout manual",
			"payout_id", payout.PayoutID,
			"error", err)
	}

	payout.PaymentMethod = domain.PaymentMethodManual
	payout.FailureReason.String = reason
	payout.FailureReason.Valid = true

	s.notifier.AdminAlert(ctx, notify.Event{
		Type:  "payout.manual_required",
		JobID: payout.JobID,
		Data: map[string]string{
			"payout_id":  payout.PayoutID,
			"split_type": payout.SplitType,
			"reason":     reason,
		},
	})
}

// Transfer outcome values reported by the gateway webhook.
const (
	OutcomePaid   = "paid"
	OutcomeFailed = "failed"
)

// HandleTransferOutcome settles an async gateway callback. The payout is
// located by the transfer id recorded at dispatch time.
func (s *Service) HandleTransferOutcome(ctx context.Context, transferID, outcome, reason string) error {
	payout, err := s.store.GetPayoutByTransferID(ctx, transferID)
	if err != nil {
		if errors.Is(err, domain.ErrPayoutNotFound) {
			s.logger.Warn("transfer outcome for unknown transfer", "transfer_id", transferID)
		}
		return err
	}

	switch outcome {
	case OutcomePaid:
		if payout.Status == domain.PayoutStatusPaid {
			return nil
		}
		if err := s.store.MarkPayoutPaid(ctx, payout.PayoutID, domain.PaymentMethodGateway, s.now().UTC()); err != nil {
			return fmt.Errorf("failed to settle paid outcome: %w", err)
		}
		s.notifier.Notify(ctx, notify.Event{
			Type:     "payout.paid",
			JobID:    payout.JobID,
			WorkerID: payout.RecipientID,
			Data: map[string]string{
				"payout_id":  payout.PayoutID,
				"split_type": payout.SplitType,
			},
		})
		return nil

	case OutcomeFailed:
		if err := s.store.MarkPayoutFailed(ctx, payout.PayoutID, reason); err != nil {
			return fmt.Errorf("failed to settle failed outcome: %w", err)
		}
		s.notifier.AdminAlert(ctx, notify.Event{
			Type:  "payout.transfer_failed",
			JobID: payout.JobID,
			Data: map[string]string{
				"payout_id":   payout.PayoutID,
				"transfer_id": transferID,
				"reason":      reason,
			},
		})
		return nil

	default:
		return fmt.Errorf("unknown transfer outcome %q", outcome)
	}
}

// MarkManualPaid records that an operator settled a manual payout outside
// the gateway.
func (s *Service) MarkManualPaid(ctx context.Context, payoutID string) (*domain.Payout, error) {
	payout, err := s.store.GetPayoutByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	if payout.Status == domain.PayoutStatusPaid {
		return payout, nil
	}

	if err := s.store.MarkPayoutPaid(ctx, payoutID, domain.PaymentMethodManual, s.now().UTC()); err != nil {
		return nil, err
	}

	payout.Status = domain.PayoutStatusPaid
	payout.PaymentMethod = domain.PaymentMethodManual
	return payout, nil
}
