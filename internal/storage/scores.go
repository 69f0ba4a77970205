package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gigworks/marketplace-core/internal/domain"
)

const scoreColumns = `
	job_id, worker_id, photo_score, completion_score, timeliness_score,
	final_score, score_locked, score_locked_at, complaint_window_end,
	customer_complaint, complaint_description, created_at
`

// CreateQualityScore inserts the initial score record for a job entering
// review. ON CONFLICT DO NOTHING keeps a replayed check-out event from
// resetting an existing score.
func (s *Storage) CreateQualityScore(ctx context.Context, score *domain.QualityScore) error {
	query := `
		INSERT INTO quality_scores (
			job_id, worker_id, photo_score, completion_score, timeliness_score,
			final_score, score_locked, complaint_window_end, customer_complaint, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, FALSE, $8)
		ON CONFLICT (job_id) DO NOTHING
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		score.JobID,
		score.WorkerID,
		score.PhotoScore,
		score.CompletionScore,
		score.TimelinessScore,
		score.FinalScore,
		score.ComplaintWindowEnd,
		score.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create quality score: %w", err)
	}

	return nil
}

// GetQualityScore retrieves the score for a job.
func (s *Storage) GetQualityScore(ctx context.Context, jobID string) (*domain.QualityScore, error) {
	var score domain.QualityScore
	query := `SELECT ` + scoreColumns + ` FROM quality_scores WHERE job_id = $1`

	err := s.db.GetContext(ctx, &score, query, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrScoreNotFound
		}
		return nil, fmt.Errorf("failed to get quality score: %w", err)
	}

	return &score, nil
}

// UpdateScoreComponents sets the graded components on an unlocked score.
func (s *Storage) UpdateScoreComponents(ctx context.Context, jobID string, photo, completion, timeliness float64) (bool, error) {
	query := `
		UPDATE quality_scores
		SET photo_score = $1, completion_score = $2, timeliness_score = $3
		WHERE job_id = $4 AND score_locked = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, photo, completion, timeliness, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to update score components: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// ListExpiredUnlockedScores returns scores whose complaint window has
/// elapsed but which have not been locked yet. Bounded: locked rows never
// re-enter the set.
func (s *Storage) ListExpiredUnlockedScores(ctx context.Context, now time.Time) ([]domain.QualityScore, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM quality_scores
		WHERE score_locked = FALSE AND complaint_window_end <= $1
	`

	var scores []domain.QualityScore
	if err := s.db.SelectContext(ctx, &scores, query, now); err != nil {
		return nil, fmt.Errorf("failed to list expired unlocked scores: %w", err)
	}

	return scores, nil
}

// LockScore finalizes a score exactly once. The score_locked guard makes
// a concurrent or replayed sweep tick a no-op.
func (s *Storage) LockScore(ctx context.Context, jobID string, finalScore float64, now time.Time) (bool, error) {
	query := `
		UPDATE quality_scores
		SET final_score = $1, score_locked = TRUE, score_locked_at = $2
		WHERE job_id = $3 AND score_locked = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, finalScore, now, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to lock score: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// ApplyComplaint records a customer complaint on an unlocked score and
// halves the completion component. Returns false when the score is
// already locked (window closed) so the caller can reject the complaint.
func (s *Storage) ApplyComplaint(ctx context.Context, jobID, description string) (bool, error) {
	query := `
		UPDATE quality_scores
		SET customer_complaint = TRUE,
		    complaint_description = $1,
		    completion_score = GREATEST(0, completion_score * 0.5)
		WHERE job_id = $2 AND score_locked = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, description, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to apply complaint: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}
