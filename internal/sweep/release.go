package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/domain"
)

// ReleaseStore is the slice of the storage layer the release sweep uses.
type ReleaseStore interface {
	ListExpiredUnlockedScores(ctx context.Context, now time.Time) ([]domain.QualityScore, error)
	LockScore(ctx context.Context, jobID string, finalScore float64, now time.Time) (bool, error)
	ListJobsAwaitingRelease(ctx context.Context) ([]domain.Job, error)
	GetQualityScore(ctx context.Context, jobID string) (*domain.QualityScore, error)
	SetPaymentStatus(ctx context.Context, jobID, from, to string) (bool, error)
}

// Payouts is the slice of the payout engine the release sweep uses.
type Payouts interface {
	CreateSplitPayout(ctx context.Context, job *domain.Job, splitType string) (*domain.Payout, error)
}

// ReleaseSweeper locks expired quality scores and releases the second
// payout split on jobs that cleared every gate. Both passes are bounded:
// locked scores and settled jobs never re-enter the working set, and a
// failure on one record is logged and skipped so the rest still settle.
type ReleaseSweeper struct {
	store    ReleaseStore
	payouts  Payouts
	scoring  *config.ScoringConfig
	payments *config.PaymentsConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewReleaseSweeper creates a ReleaseSweeper.
func NewReleaseSweeper(store ReleaseStore, payouts Payouts, scoring *config.ScoringConfig, payments *config.PaymentsConfig, logger *slog.Logger) *ReleaseSweeper {
	return &ReleaseSweeper{
		store:    store,
		payouts:  payouts,
		scoring:  scoring,
		payments: payments,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one sweep tick.
func (r *ReleaseSweeper) Run(ctx context.Context) {
	r.lockScores(ctx)
	r.releasePayouts(ctx)
}

// lockScores finalizes every score whose complaint window has elapsed.
func (r *ReleaseSweeper) lockScores(ctx context.Context) {
	now := r.now().UTC()

	scores, err := r.store.ListExpiredUnlockedScores(ctx, now)
	if err != nil {
		r.logger.Error("failed to list expired scores", "error", err)
		return
	}

	for _, score := range scores {
		final := score.Finalize(r.scoring.Weights)

		locked, err := r.store.LockScore(ctx, score.JobID, final, now)
		if err != nil {
			r.logger.Error("failed to lock score", "job_id", score.JobID, "error", err)
			continue
		}
		if !locked {
			continue
		}

		r.logger.Info("score locked", "job_id", score.JobID, "final_score", final)
	}
}

// releasePayouts walks jobs with the first split paid and settles each:
// held on complaint or a score below the minimum, paid once the release
// delay past the window has elapsed, untouched while the score is unlocked.
func (r *ReleaseSweeper) releasePayouts(ctx context.Context) {
	jobs, err := r.store.ListJobsAwaitingRelease(ctx)
	if err != nil {
		r.logger.Error("failed to list jobs awaiting release", "error", err)
		return
	}

	now := r.now().UTC()
	releaseDelay := time.Duration(r.payments.ReleaseHours-r.scoring.LockHours) * time.Hour

	for i := range jobs {
		job := &jobs[i]

		score, err := r.store.GetQualityScore(ctx, job.JobID)
		if err != nil {
			r.logger.Error("failed to load score for release", "job_id", job.JobID, "error", err)
			continue
		}

		if !score.ScoreLocked {
			continue
		}

		if score.CustomerComplaint {
			r.hold(ctx, job.JobID, "customer complaint")
			continue
		}

		if score.FinalScore < r.scoring.MinimumForPayout {
			r.hold(ctx, job.JobID, "score below minimum")
			continue
		}

		if now.Before(score.ComplaintWindowEnd.Add(releaseDelay)) {
			continue
		}

		if _, err := r.payouts.CreateSplitPayout(ctx, job, domain.SplitCompletion); err != nil {
			r.logger.Error("failed to create completion payout", "job_id", job.JobID, "error", err)
			continue
		}

		moved, err := r.store.SetPaymentStatus(ctx, job.JobID, domain.PaymentStatusFirstPaid, domain.PaymentStatusFullyPaid)
		if err != nil {
			r.logger.Error("failed to set payment status", "job_id", job.JobID, "error", err)
			continue
		}
		if !moved {
			continue
		}

		r.logger.Info("completion payout released", "job_id", job.JobID)
	}
}

func (r *ReleaseSweeper) hold(ctx context.Context, jobID, reason string) {
	moved, err := r.store.SetPaymentStatus(ctx, jobID, domain.PaymentStatusFirstPaid, domain.PaymentStatusHeld)
	if err != nil {
		r.logger.Error("failed to hold payment", "job_id", jobID, "error", err)
		return
	}
	if moved {
		r.logger.Warn("payment held", "job_id", jobID, "reason", reason)
	}
}
