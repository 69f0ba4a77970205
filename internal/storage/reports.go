package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gigworks/marketplace-core/internal/domain"
)

const periodColumns = `
	period_id, start_date, end_date, total_payouts, total_cents,
	breakdown, csv, status, created_at, reported_at
`

// UpsertPayoutPeriod stores a closed reporting period. Re-running the
// reporter for the same period replaces the snapshot rather than failing.
func (s *Storage) UpsertPayoutPeriod(ctx context.Context, period *domain.PayoutPeriod) error {
	query := `
		INSERT INTO payout_periods (
			period_id, start_date, end_date, total_payouts, total_cents,
			breakdown, csv, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (period_id) DO UPDATE
		SET total_payouts = EXCLUDED.total_payouts,
		    total_cents = EXCLUDED.total_cents,
		    breakdown = EXCLUDED.breakdown,
		    csv = EXCLUDED.csv,
		    status = EXCLUDED.status
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		period.PeriodID,
		period.StartDate,
		period.EndDate,
		period.TotalPayouts,
		period.TotalCents,
		period.Breakdown,
		period.CSV,
		period.Status,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert payout period: %w", err)
	}

	return nil
}

// GetPayoutPeriod retrieves a stored reporting period by ID.
func (s *Storage) GetPayoutPeriod(ctx context.Context, periodID string) (*domain.PayoutPeriod, error) {
	var period domain.PayoutPeriod
	query := `SELECT ` + periodColumns + ` FROM payout_periods WHERE period_id = $1`

	err := s.db.GetContext(ctx, &period, query, periodID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPeriodNotFound
		}
		return nil, fmt.Errorf("failed to get payout period: %w", err)
	}

	return &period, nil
}

// MarkPeriodReported records that the period snapshot was published.
func (s *Storage) MarkPeriodReported(ctx context.Context, periodID string) error {
	query := `
		UPDATE payout_periods
		SET status = $1, reported_at = NOW()
		WHERE period_id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, domain.PeriodStatusReported, periodID); err != nil {
		return fmt.Errorf("failed to mark period reported: %w", err)
	}

	return nil
}
