package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/gigworks/marketplace-core/internal/domain"
)

const jobColumns = `
	job_id, title, status, claimed_by, claimed_by_name, claimed_at,
	payout_base_cents, rush_bonus_cents, payment_status,
	first_payout_id, second_payout_id, reopen_count, created_at, updated_at
`

// CreateJob inserts a newly posted job.
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, title, status, payout_base_cents, rush_bonus_cents,
			payment_status, reopen_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.Title,
		job.Status,
		job.PayoutBaseCents,
		job.RushBonusCents,
		job.PaymentStatus,
		job.ReopenCount,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobByID retrieves a job by its ID.
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ClaimJob atomically assigns an open or reopened job to a worker.
// The precondition (claimable status, no owner) and the write commit in
// one statement, so of any number of concurrent claimants exactly one
// observes a row; the rest get ErrClaimConflict.
func (s *Storage) ClaimJob(ctx context.Context, jobID, workerID, workerName string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    claimed_by = $2,
		    claimed_by_name = $3,
		    claimed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $4
		  AND status IN ($5, $6)
		  AND claimed_by IS NULL
		RETURNING ` + jobColumns

	var job domain.Job
	err := s.db.QueryRowxContext(
		ctx,
		query,
		domain.JobStatusUpcoming,
		workerID,
		workerName,
		jobID,
		domain.JobStatusOpen,
		domain.JobStatusReopened,
	).StructScan(&job)

	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("Failed to claim job - already claimed or not open",
				slog.String("job_id", jobID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrClaimConflict
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Info("Job claimed successfully",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
	)

	return &job, nil
}

// TransitionJob moves a job from one status to another, guarded on the
// expected prior status. Returns false when the guard missed, which makes
// duplicate event delivery a no-op for callers.
func (s *Storage) TransitionJob(ctx context.Context, jobID, from, to string) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = NOW()
		WHERE job_id = $2 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, to, jobID, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// RequeueJob puts a job back on the feed: REOPENED, owner cleared,
// reopen count incremented. Guarded on the expected prior status.
func (s *Storage) RequeueJob(ctx context.Context, jobID, from string) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    claimed_by = NULL,
		    claimed_by_name = NULL,
		    claimed_at = NULL,
		    reopen_count = reopen_count + 1,
		    updated_at = NOW()
		WHERE job_id = $2 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusReopened, jobID, from)
	if err != nil {
		return false, fmt.Errorf("failed to requeue job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// ReassignJob hands a claimed job to another worker (transfer accept).
func (s *Storage) ReassignJob(ctx context.Context, jobID, toWorker, toWorkerName string) error {
	query := `
		UPDATE jobs
		SET claimed_by = $1,
		    claimed_by_name = $2,
		    claimed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
	`

	result, err := s.db.ExecContext(ctx, query, toWorker, toWorkerName, jobID)
	if err != nil {
		return fmt.Errorf("failed to reassign job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrJobNotFound
	}

	return nil
}

// SetPaymentStatus flips a job's payment status, guarded on the prior value.
func (s *Storage) SetPaymentStatus(ctx context.Context, jobID, from, to string) (bool, error) {
	query := `
		UPDATE jobs
		SET payment_status = $1, updated_at = NOW()
		WHERE job_id = $2 AND payment_status = $3
	`

	result, err := s.db.ExecContext(ctx, query, to, jobID, from)
	if err != nil {
		return false, fmt.Errorf("failed to set payment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// HoldJobPayment flips a job to held regardless of prior payment status,
// except fully paid.
func (s *Storage) HoldJobPayment(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET payment_status = $1, updated_at = NOW()
		WHERE job_id = $2 AND payment_status <> $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.PaymentStatusHeld, jobID, domain.PaymentStatusFullyPaid); err != nil {
		return fmt.Errorf("failed to hold job payment: %w", err)
	}

	return nil
}

// RecordPayoutRef stores a payout reference on the job (first or second split).
func (s *Storage) RecordPayoutRef(ctx context.Context, jobID, splitType, payoutID string) error {
	column := "first_payout_id"
	if splitType == domain.SplitCompletion {
		column = "second_payout_id"
	}

	query := fmt.Sprintf(`UPDATE jobs SET %s = $1, updated_at = NOW() WHERE job_id = $2`, column)

	if _, err := s.db.ExecContext(ctx, query, payoutID, jobID); err != nil {
		return fmt.Errorf("failed to record payout ref: %w", err)
	}

	return nil
}

// ListJobsAwaitingRelease returns jobs whose second split is still owed.
// Narrowly scoped to payment_status=first_paid so the sweep never scans
// terminal history.
func (s *Storage) ListJobsAwaitingRelease(ctx context.Context) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE payment_status = $1`

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, domain.PaymentStatusFirstPaid); err != nil {
		return nil, fmt.Errorf("failed to list jobs awaiting release: %w", err)
	}

	return jobs, nil
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	Status        string
	ClaimedBy     string
	PaymentStatus string
	PageSize      int
	Cursor        *JobCursor
}

// JobCursor is a (created_at, job_id) keyset pagination cursor.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns jobs matching the filter, newest first, cursor-paginated.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.ClaimedBy != "" {
		query += fmt.Sprintf(" AND claimed_by = $%d", argIdx)
		args = append(args, filter.ClaimedBy)
		argIdx++
	}

	if filter.PaymentStatus != "" {
		query += fmt.Sprintf(" AND payment_status = $%d", argIdx)
		args = append(args, filter.PaymentStatus)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// InsertRecentClaim appends to the recent-claims feed. Best-effort side
// channel; callers log and swallow errors.
func (s *Storage) InsertRecentClaim(ctx context.Context, claim *domain.RecentClaim) error {
	query := `
		INSERT INTO recent_claims (job_id, job_title, worker_id, worker_first_name, amount_cents, claimed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		claim.JobID,
		claim.JobTitle,
		claim.WorkerID,
		claim.WorkerFirstName,
		claim.AmountCents,
		claim.ClaimedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert recent claim: %w", err)
	}

	return nil
}

// TrimRecentClaims deletes feed rows beyond the newest keep entries.
func (s *Storage) TrimRecentClaims(ctx context.Context, keep int) error {
	query := `
		DELETE FROM recent_claims
		WHERE id NOT IN (
			SELECT id FROM recent_claims
			ORDER BY claimed_at DESC, id DESC
			LIMIT $1
		)
	`

	if _, err := s.db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("failed to trim recent claims: %w", err)
	}

	return nil
}

// ListRecentClaims returns the newest feed rows.
func (s *Storage) ListRecentClaims(ctx context.Context, limit int) ([]domain.RecentClaim, error) {
	query := `
		SELECT id, job_id, job_title, worker_id, worker_first_name, amount_cents, claimed_at
		FROM recent_claims
		ORDER BY claimed_at DESC, id DESC
		LIMIT $1
	`

	var claims []domain.RecentClaim
	if err := s.db.SelectContext(ctx, &claims, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent claims: %w", err)
	}

	return claims, nil
}
