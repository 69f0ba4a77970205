package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gigworks/marketplace-core/internal/domain"
)

// GetPayoutAccount returns the worker's payout account, or nil when the
// worker has none or payouts are disabled on it.
func (s *Storage) GetPayoutAccount(ctx context.Context, workerID string) (*domain.PayoutAccount, error) {
	var account domain.PayoutAccount
	query := `
		SELECT worker_id, external_account_id, payouts_enabled, created_at
		FROM payout_accounts
		WHERE worker_id = $1 AND payouts_enabled = TRUE
	`

	err := s.db.GetContext(ctx, &account, query, workerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payout account: %w", err)
	}

	return &account, nil
}

// UpsertPayoutAccount creates or updates a worker's payout account link.
func (s *Storage) UpsertPayoutAccount(ctx context.Context, account *domain.PayoutAccount) error {
	query := `
		INSERT INTO payout_accounts (worker_id, external_account_id, payouts_enabled, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (worker_id) DO UPDATE
		SET external_account_id = EXCLUDED.external_account_id,
		    payouts_enabled = EXCLUDED.payouts_enabled
	`

	if _, err := s.db.ExecContext(ctx, query, account.WorkerID, account.ExternalAccountID, account.PayoutsEnabled); err != nil {
		return fmt.Errorf("failed to upsert payout account: %w", err)
	}

	return nil
}

// IncrementWorkerStats bumps lifetime counters on job approval.
func (s *Storage) IncrementWorkerStats(ctx context.Context, workerID string, earningsCents int64) error {
	query := `
		INSERT INTO worker_stats (worker_id, jobs_completed, earnings_cents, updated_at)
		VALUES ($1, 1, $2, NOW())
		ON CONFLICT (worker_id) DO UPDATE
		SET jobs_completed = worker_stats.jobs_completed + 1,
		    earnings_cents = worker_stats.earnings_cents + EXCLUDED.earnings_cents,
		    updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, workerID, earningsCents); err != nil {
		return fmt.Errorf("failed to increment worker stats: %w", err)
	}

	return nil
}

// GetWorkerStats retrieves a worker's lifetime counters.
func (s *Storage) GetWorkerStats(ctx context.Context, workerID string) (*domain.WorkerStats, error) {
	var stats domain.WorkerStats
	query := `
		SELECT worker_id, jobs_completed, earnings_cents, updated_at
		FROM worker_stats
		WHERE worker_id = $1
	`

	err := s.db.GetContext(ctx, &stats, query, workerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return &domain.WorkerStats{WorkerID: workerID}, nil
		}
		return nil, fmt.Errorf("failed to get worker stats: %w", err)
	}

	return &stats, nil
}

// IncrementGoalProgress advances every goal of the given type for the
// worker's current month. Missing goals are a no-op, not an error.
func (s *Storage) IncrementGoalProgress(ctx context.Context, workerID, monthKey, goalType string, delta int64) error {
	query := `
		UPDATE worker_goals
		SET progress = progress + $1
		WHERE worker_id = $2 AND month_key = $3 AND goal_type = $4
	`

	if _, err := s.db.ExecContext(ctx, query, delta, workerID, monthKey, goalType); err != nil {
		return fmt.Errorf("failed to increment goal progress: %w", err)
	}

	return nil
}

// ListWorkerGoals returns a worker's goals for one month.
func (s *Storage) ListWorkerGoals(ctx context.Context, workerID, monthKey string) ([]domain.WorkerGoal, error) {
	query := `
		SELECT worker_id, month_key, goal_type, target, progress, created_at
		FROM worker_goals
		WHERE worker_id = $1 AND month_key = $2
		ORDER BY goal_type
	`

	var goals []domain.WorkerGoal
	if err := s.db.SelectContext(ctx, &goals, query, workerID, monthKey); err != nil {
		return nil, fmt.Errorf("failed to list worker goals: %w", err)
	}

	return goals, nil
}
