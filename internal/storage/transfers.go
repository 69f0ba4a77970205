package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gigworks/marketplace-core/internal/domain"
)

const transferColumns = `
	transfer_id, job_id, from_worker, from_worker_name, to_worker,
	transfer_type, status, created_at, updated_at
`

// CreateTransferOffer inserts a new transfer offer.
func (s *Storage) CreateTransferOffer(ctx context.Context, offer *domain.TransferOffer) error {
	query := `
		INSERT INTO transfer_offers (
			transfer_id, job_id, from_worker, from_worker_name, to_worker,
			transfer_type, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		offer.TransferID,
		offer.JobID,
		offer.FromWorker,
		offer.FromWorkerName,
		offer.ToWorker,
		offer.TransferType,
		offer.Status,
		offer.CreatedAt,
		offer.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create transfer offer: %w", err)
	}

	return nil
}

// GetTransferOffer retrieves a transfer offer by ID.
func (s *Storage) GetTransferOffer(ctx context.Context, transferID string) (*domain.TransferOffer, error) {
	var offer domain.TransferOffer
	query := `SELECT ` + transferColumns + ` FROM transfer_offers WHERE transfer_id = $1`

	err := s.db.GetContext(ctx, &offer, query, transferID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrTransferNotPending
		}
		return nil, fmt.Errorf("failed to get transfer offer: %w", err)
	}

	return &offer, nil
}

// ResolveTransferOffer moves a pending offer to accepted or declined.
// Exactly one of accept, decline, or the expiry sweep wins; the status
// guard makes the losers no-ops.
func (s *Storage) ResolveTransferOffer(ctx context.Context, transferID, toStatus string) (bool, error) {
	query := `
		UPDATE transfer_offers
		SET status = $1, updated_at = NOW()
		WHERE transfer_id = $2 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, toStatus, transferID, domain.TransferStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve transfer offer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// ListExpiredPendingTransfers returns direct offers still pending past the
// cutoff. Requeue offers resolve synchronously and never appear here.
func (s *Storage) ListExpiredPendingTransfers(ctx context.Context, cutoff time.Time) ([]domain.TransferOffer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_offers
		WHERE transfer_type = $1 AND status = $2 AND created_at < $3
		ORDER BY created_at
	`

	var offers []domain.TransferOffer
	if err := s.db.SelectContext(ctx, &offers, query, domain.TransferTypeDirect, domain.TransferStatusPending, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list expired pending transfers: %w", err)
	}

	return offers, nil
}

// ExpireTransferOffer marks a pending offer expired. Returns false when a
// concurrent accept or decline got there first.
func (s *Storage) ExpireTransferOffer(ctx context.Context, transferID string) (bool, error) {
	return s.ResolveTransferOffer(ctx, transferID, domain.TransferStatusExpired)
}
