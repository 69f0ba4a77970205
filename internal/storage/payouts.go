package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gigworks/marketplace-core/internal/domain"
)

const payoutColumns = `
	payout_id, job_id, recipient_id, recipient_name, amount_cents,
	split_type, status, payment_method, external_transfer_id,
	hold_reason, failure_reason, created_at, paid_at
`

// InsertPayout inserts a payout. A partial unique index on
// (job_id, split_type) WHERE status <> 'failed' enforces the one-live-
// payout-per-split invariant at the storage layer; a conflicting insert
// returns false instead of racing a check-then-act window.
func (s *Storage) InsertPayout(ctx context.Context, payout *domain.Payout) (bool, error) {
	query := `
		INSERT INTO payouts (
			payout_id, job_id, recipient_id, recipient_name, amount_cents,
			split_type, status, payment_method, external_transfer_id,
			failure_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id, split_type) WHERE status <> 'failed' DO NOTHING
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		payout.PayoutID,
		payout.JobID,
		payout.RecipientID,
		payout.RecipientName,
		payout.AmountCents,
		payout.SplitType,
		payout.Status,
		payout.PaymentMethod,
		payout.ExternalTransferID,
		payout.FailureReason,
		payout.CreatedAt,
	)

	if err != nil {
		return false, fmt.Errorf("failed to insert payout: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// GetPayoutByID retrieves a payout by its ID.
func (s *Storage) GetPayoutByID(ctx context.Context, payoutID string) (*domain.Payout, error) {
	var payout domain.Payout
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE payout_id = $1`

	err := s.db.GetContext(ctx, &payout, query, payoutID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}

	return &payout, nil
}

// GetLivePayout returns the non-failed payout for (job, split), or
// ErrPayoutNotFound when none exists.
func (s *Storage) GetLivePayout(ctx context.Context, jobID, splitType string) (*domain.Payout, error) {
	var payout domain.Payout
	query := `
		SELECT ` + payoutColumns + `
		FROM payouts
		WHERE job_id = $1 AND split_type = $2 AND status <> $3
	`

	err := s.db.GetContext(ctx, &payout, query, jobID, splitType, domain.PayoutStatusFailed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get live payout: %w", err)
	}

	return &payout, nil
}

// GetPayoutByTransferID correlates an async gateway outcome back to its
// payout via the stored external transfer id.
func (s *Storage) GetPayoutByTransferID(ctx context.Context, transferID string) (*domain.Payout, error) {
	var payout domain.Payout
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE external_transfer_id = $1`

	err := s.db.GetContext(ctx, &payout, query, transferID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout by transfer id: %w", err)
	}

	return &payout, nil
}

// MarkPayoutProcessing records a successful gateway dispatch. The guard on
// pending keeps a late webhook from being overwritten by a slow dispatcher.
func (s *Storage) MarkPayoutProcessing(ctx context.Context, payoutID, transferID string) error {
	query := `
		UPDATE payouts
		SET status = $1, external_transfer_id = $2
		WHERE payout_id = $3 AND status = $4
	`

	if _, err := s.db.ExecContext(ctx, query, domain.PayoutStatusProcessing, transferID, payoutID, domain.PayoutStatusPending); err != nil {
		return fmt.Errorf("failed to mark payout processing: %w", err)
	}

	return nil
}

// MarkPayoutManual downgrades a pending payout to the manual payment path
// after a gateway dispatch failure.
func (s *Storage) MarkPayoutManual(ctx context.Context, payoutID, reason string) error {
	query := `
		UPDATE payouts
		SET payment_method = $1, failure_reason = $2
		WHERE payout_id = $3 AND status = $4
	`

	if _, err := s.db.ExecContext(ctx, query, domain.PaymentMethodManual, reason, payoutID, domain.PayoutStatusPending); err != nil {
		return fmt.Errorf("failed to mark payout manual: %w", err)
	}

	return nil
}

// MarkPayoutPaid finalizes a payout as paid.
func (s *Storage) MarkPayoutPaid(ctx context.Context, payoutID, paymentMethod string, paidAt time.Time) error {
	query := `
		UPDATE payouts
		SET status = $1, payment_method = $2, paid_at = $3
		WHERE payout_id = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.PayoutStatusPaid, paymentMethod, paidAt, payoutID)
	if err != nil {
		return fmt.Errorf("failed to mark payout paid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrPayoutNotFound
	}

	return nil
}

// MarkPayoutFailed records a failed transfer outcome.
func (s *Storage) MarkPayoutFailed(ctx context.Context, payoutID, reason string) error {
	query := `
		UPDATE payouts
		SET status = $1, failure_reason = $2
		WHERE payout_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.PayoutStatusFailed, reason, payoutID); err != nil {
		return fmt.Errorf("failed to mark payout failed: %w", err)
	}

	return nil
}

// HoldLivePayout places the pending/processing payout for (job, split)
// on hold. Paid and failed payouts are never touched.
func (s *Storage) HoldLivePayout(ctx context.Context, jobID, splitType, reason string) (bool, error) {
	query := `
		UPDATE payouts
		SET status = $1, hold_reason = $2
		WHERE job_id = $3 AND split_type = $4 AND status IN ($5, $6)
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.PayoutStatusHeld,
		reason,
		jobID,
		splitType,
		domain.PayoutStatusPending,
		domain.PayoutStatusProcessing,
	)

	if err != nil {
		return false, fmt.Errorf("failed to hold payout: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// ListPaidPayoutsBetween returns payouts paid within [start, end) for reporting.
func (s *Storage) ListPaidPayoutsBetween(ctx context.Context, start, end time.Time) ([]domain.Payout, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payouts
		WHERE status = $1 AND paid_at >= $2 AND paid_at < $3
		ORDER BY paid_at
	`

	var payouts []domain.Payout
	if err := s.db.SelectContext(ctx, &payouts, query, domain.PayoutStatusPaid, start, end); err != nil {
		return nil, fmt.Errorf("failed to list paid payouts: %w", err)
	}

	return payouts, nil
}
