package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/domain"
	"github.com/gigworks/marketplace-core/internal/notify"
	"github.com/gigworks/marketplace-core/internal/payout"
)

// MaxRecentClaims bounds the recent-claims feed.
const MaxRecentClaims = 50

// Store is the slice of the storage layer the orchestrator uses.
type Store interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	ClaimJob(ctx context.Context, jobID, workerID, workerName string) (*domain.Job, error)
	TransitionJob(ctx context.Context, jobID, from, to string) (bool, error)
	RequeueJob(ctx context.Context, jobID, from string) (bool, error)
	ReassignJob(ctx context.Context, jobID, toWorker, toWorkerName string) error
	SetPaymentStatus(ctx context.Context, jobID, from, to string) (bool, error)
	HoldJobPayment(ctx context.Context, jobID string) error
	InsertRecentClaim(ctx context.Context, claim *domain.RecentClaim) error
	TrimRecentClaims(ctx context.Context, keep int) error
	GetQualityScore(ctx context.Context, jobID string) (*domain.QualityScore, error)
	CreateQualityScore(ctx context.Context, score *domain.QualityScore) error
	ApplyComplaint(ctx context.Context, jobID, description string) (bool, error)
	HoldLivePayout(ctx context.Context, jobID, splitType, reason string) (bool, error)
	IncrementWorkerStats(ctx context.Context, workerID string, earningsCents int64) error
	IncrementGoalProgress(ctx context.Context, workerID, monthKey, goalType string, delta int64) error
}

// Payouts is the slice of the payout engine the orchestrator uses.
type Payouts interface {
	CreateSplitPayout(ctx context.Context, job *domain.Job, splitType string) (*domain.Payout, error)
}

// Service orchestrates job lifecycle transitions and their side effects.
// Every transition is a guarded update on the expected prior status, so a
// replayed request settles as a no-op instead of corrupting state.
type Service struct {
	store    Store
	payouts  Payouts
	notifier payout.Notifier
	scoring  *config.ScoringConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a lifecycle Service.
func NewService(store Store, payouts Payouts, notifier payout.Notifier, scoring *config.ScoringConfig, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		payouts:  payouts,
		notifier: notifier,
		scoring:  scoring,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateJob posts a new job in OPEN.
func (s *Service) CreateJob(ctx context.Context, title string, baseCents, rushBonusCents int64) (*domain.Job, error) {
	if title == "" {
		return nil, fmt.Errorf("job title is required")
	}
	if baseCents <= 0 {
		return nil, fmt.Errorf("payout base must be greater than 0")
	}

	now := s.now().UTC()
	job := &domain.Job{
		JobID:           uuid.NewString(),
		Title:           title,
		Status:          domain.JobStatusOpen,
		PayoutBaseCents: baseCents,
		RushBonusCents:  rushBonusCents,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("job created", "job_id", job.JobID, "total_cents", job.TotalCents())
	return job, nil
}

// Claim assigns an open job to a worker. Concurrent claims race on a
// single guarded update in storage; all losers get ErrClaimConflict.
// The recent-claims feed append is best effort and never fails the claim.
func (s *Service) Claim(ctx context.Context, jobID, workerID, workerName string) (*domain.Job, error) {
	job, err := s.store.ClaimJob(ctx, jobID, workerID, workerName)
	if err != nil {
		return nil, err
	}

	s.appendRecentClaim(ctx, job)

	s.notifier.Notify(ctx, notify.Event{
		Type:     "job.claimed",
		JobID:    job.JobID,
		WorkerID: workerID,
		Data:     map[string]string{"title": job.Title},
	})

	s.logger.Info("job claimed", "job_id", job.JobID, "worker_id", workerID)
	return job, nil
}

func (s *Service) appendRecentClaim(ctx context.Context, job *domain.Job) {
	claim := &domain.RecentClaim{
		JobID:           job.JobID,
		JobTitle:        job.Title,
		WorkerID:        job.ClaimedBy.String,
		WorkerFirstName: firstName(job.ClaimedByName.String),
		AmountCents:     job.TotalCents(),
		ClaimedAt:       s.now().UTC(),
	}

	if err := s.store.InsertRecentClaim(ctx, claim); err != nil {
		s.logger.Warn("failed to append recent claim", "job_id", job.JobID, "error", err)
		return
	}

	if err := s.store.TrimRecentClaims(ctx, MaxRecentClaims); err != nil {
		s.logger.Warn("failed to trim recent claims", "error", err)
	}
}

func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

// CheckIn moves a claimed job to IN_PROGRESS and releases the first
// payout split. The payout engine is idempotent per (job, split), so a
// replayed check-in cannot pay twice.
func (s *Service) CheckIn(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	job, err := s.requireAssignee(ctx, jobID, workerID)
	if err != nil {
		return nil, err
	}

	moved, err := s.store.TransitionJob(ctx, jobID, domain.JobStatusUpcoming, domain.JobStatusInProgress)
	if err != nil {
		return nil, err
	}
	if !moved && job.Status != domain.JobStatusInProgress {
		return nil, fmt.Errorf("job %s cannot check in from %s", jobID, job.Status)
	}

	if _, err := s.payouts.CreateSplitPayout(ctx, job, domain.SplitCheckin); err != nil {
		return nil, fmt.Errorf("failed to create check-in payout: %w", err)
	}

	if _, err := s.store.SetPaymentStatus(ctx, jobID, domain.PaymentStatusUnpaid, domain.PaymentStatusFirstPaid); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:     "job.checked_in",
		JobID:    jobID,
		WorkerID: workerID,
	})

	s.logger.Info("job checked in", "job_id", jobID, "worker_id", workerID)
	return s.store.GetJobByID(ctx, jobID)
}

// CheckOut moves a job to REVIEW_PENDING and opens its quality score with
// the complaint window running.
func (s *Service) CheckOut(ctx context.Context, jobID, workerID string, photo, completion, timeliness float64) (*domain.Job, error) {
	job, err := s.requireAssignee(ctx, jobID, workerID)
	if err != nil {
		return nil, err
	}

	for _, component := range []float64{photo, completion, timeliness} {
		if component < domain.ScoreMin || component > domain.ScoreMax {
			return nil, fmt.Errorf("score component %v out of range [%v, %v]", component, domain.ScoreMin, domain.ScoreMax)
		}
	}

	moved, err := s.store.TransitionJob(ctx, jobID, domain.JobStatusInProgress, domain.JobStatusReviewPending)
	if err != nil {
		return nil, err
	}
	if !moved && job.Status != domain.JobStatusReviewPending {
		return nil, fmt.Errorf("job %s cannot check out from %s", jobID, job.Status)
	}

	now := s.now().UTC()
	score := &domain.QualityScore{
		JobID:              jobID,
		WorkerID:           workerID,
		PhotoScore:         photo,
		CompletionScore:    completion,
		TimelinessScore:    timeliness,
		ComplaintWindowEnd: now.Add(s.scoring.ComplaintWindow()),
		CreatedAt:          now,
	}

	if err := s.store.CreateQualityScore(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to create quality score: %w", err)
	}

	s.notifier.AdminAlert(ctx, notify.Event{
		Type:  "job.review_pending",
		JobID: jobID,
		Data:  map[string]string{"worker_id": workerID},
	})

	s.logger.Info("job checked out", "job_id", jobID, "worker_id", workerID)
	return s.store.GetJobByID(ctx, jobID)
}

// Approve completes a reviewed job and credits the worker's lifetime
// stats and current-month goals.
func (s *Service) Approve(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.store.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	moved, err := s.store.TransitionJob(ctx, jobID, domain.JobStatusReviewPending, domain.JobStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("job %s cannot be approved from %s", jobID, job.Status)
	}

	if job.ClaimedBy.Valid {
		workerID := job.ClaimedBy.String
		monthKey := s.now().UTC().Format("2006-01")

		if err := s.store.IncrementWorkerStats(ctx, workerID, job.TotalCents()); err != nil {
			s.logger.Error("failed to increment worker stats", "worker_id", workerID, "error", err)
		}
		if err := s.store.IncrementGoalProgress(ctx, workerID, monthKey, domain.GoalTypeJobs, 1); err != nil {
			s.logger.Error("failed to increment jobs goal", "worker_id", workerID, "error", err)
		}
		if err := s.store.IncrementGoalProgress(ctx, workerID, monthKey, domain.GoalTypeEarnings, job.TotalCents()); err != nil {
			s.logger.Error("failed to increment earnings goal", "worker_id", workerID, "error", err)
		}

		s.notifier.Notify(ctx, notify.Event{
			Type:     "job.approved",
			JobID:    jobID,
			WorkerID: workerID,
		})
	}

	s.logger.Info("job approved", "job_id", jobID)
	return s.store.GetJobByID(ctx, jobID)
}

// Dispute moves a job to DISPUTED. Only an admin resolution moves it out.
func (s *Service) Dispute(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.store.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status == domain.JobStatusDisputed {
		return job, nil
	}

	if !domain.CanTransition(job.Status, domain.JobStatusDisputed) {
		return nil, fmt.Errorf("job %s cannot be disputed from %s", jobID, job.Status)
	}

	moved, err := s.store.TransitionJob(ctx, jobID, job.Status, domain.JobStatusDisputed)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("job %s changed state during dispute", jobID)
	}

	s.logger.Info("job disputed", "job_id", jobID, "from", job.Status)
	return s.store.GetJobByID(ctx, jobID)
}

// Dispute resolution outcomes.
const (
	ResolveComplete = "complete"
	ResolveReopen   = "reopen"
)

// ResolveDispute settles a disputed job by admin action: complete it, or
// reopen it for claiming with the previous assignee cleared.
func (s *Service) ResolveDispute(ctx context.Context, jobID, outcome string) (*domain.Job, error) {
	switch outcome {
	case ResolveComplete:
		moved, err := s.store.TransitionJob(ctx, jobID, domain.JobStatusDisputed, domain.JobStatusCompleted)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, fmt.Errorf("job %s is not disputed", jobID)
		}

	case ResolveReopen:
		moved, err := s.store.RequeueJob(ctx, jobID, domain.JobStatusDisputed)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, fmt.Errorf("job %s is not disputed", jobID)
		}

	default:
		return nil, fmt.Errorf("unknown dispute outcome %q", outcome)
	}

	s.logger.Info("dispute resolved", "job_id", jobID, "outcome", outcome)
	return s.store.GetJobByID(ctx, jobID)
}

// Cancel cancels a job from any pre-completion state.
func (s *Service) Cancel(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.store.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !domain.PreCompletion(job.Status) {
		return nil, fmt.Errorf("job %s cannot be cancelled from %s", jobID, job.Status)
	}

	moved, err := s.store.TransitionJob(ctx, jobID, job.Status, domain.JobStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("job %s changed state during cancel", jobID)
	}

	s.logger.Info("job cancelled", "job_id", jobID)
	return s.store.GetJobByID(ctx, jobID)
}

// FileComplaint records a customer complaint inside the window: the
// completion score is halved, the job moves to DISPUTED, and the pending
// completion split is held. The check-in split is never touched. After
// the score locks the complaint is rejected with ErrWindowClosed.
func (s *Service) FileComplaint(ctx context.Context, jobID, description string) error {
	score, err := s.store.GetQualityScore(ctx, jobID)
	if err != nil {
		return err
	}

	if score.ScoreLocked {
		return domain.ErrWindowClosed
	}

	applied, err := s.store.ApplyComplaint(ctx, jobID, description)
	if err != nil {
		return err
	}
	if !applied {
		// Lost the race with the lock sweep.
		return domain.ErrWindowClosed
	}

	if _, err := s.Dispute(ctx, jobID); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		s.logger.Error("failed to dispute job on complaint", "job_id", jobID, "error", err)
	}

	held, err := s.store.HoldLivePayout(ctx, jobID, domain.SplitCompletion, "customer complaint")
	if err != nil {
		s.logger.Error("failed to hold completion payout", "job_id", jobID, "error", err)
	}

	if err := s.store.HoldJobPayment(ctx, jobID); err != nil {
		s.logger.Error("failed to hold job payment status", "job_id", jobID, "error", err)
	}

	s.notifier.AdminAlert(ctx, notify.Event{
		Type:  "job.complaint_filed",
		JobID: jobID,
		Data: map[string]string{
			"description": description,
			"payout_held": fmt.Sprintf("%t", held),
		},
	})

	s.logger.Info("complaint filed", "job_id", jobID, "payout_held", held)
	return nil
}

func (s *Service) requireAssignee(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	job, err := s.store.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !job.ClaimedBy.Valid || job.ClaimedBy.String != workerID {
		return nil, fmt.Errorf("job %s is not assigned to worker %s", jobID, workerID)
	}

	return job, nil
}
