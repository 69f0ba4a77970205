package domain

import (
	"database/sql"
	"time"
)

// Score component bounds
const (
	ScoreMin = 0.0
	ScoreMax = 5.0
)

// ScoreWeights are the component weights used to compute a final quality
// score. They must sum to exactly 1.0; config validation enforces this.
type ScoreWeights struct {
	Photo      float64 `yaml:"photo"`
	Completion float64 `yaml:"completion"`
	Timeliness float64 `yaml:"timeliness"`
}

// Sum returns the total weight.
func (w ScoreWeights) Sum() float64 {
	return w.Photo + w.Completion + w.Timeliness
}

// QualityScore is the per-job quality record. It is created when a job
// enters review and becomes immutable once the complaint window elapses
// and the release sweep locks it.
type QualityScore struct {
	JobID                string         `db:"job_id"`
	WorkerID             string         `db:"worker_id"`
	PhotoScore           float64        `db:"photo_score"`
	CompletionScore      float64        `db:"completion_score"`
	TimelinessScore      float64        `db:"timeliness_score"`
	FinalScore           float64        `db:"final_score"`
	ScoreLocked          bool           `db:"score_locked"`
	ScoreLockedAt        sql.NullTime   `db:"score_locked_at"`
	ComplaintWindowEnd   time.Time      `db:"complaint_window_end"`
	CustomerComplaint    bool           `db:"customer_complaint"`
	ComplaintDescription sql.NullString `db:"complaint_description"`
	CreatedAt            time.Time      `db:"created_at"`
}

// Finalize computes the weighted final score from the components.
func (q *QualityScore) Finalize(w ScoreWeights) float64 {
	return q.PhotoScore*w.Photo + q.CompletionScore*w.Completion + q.TimelinessScore*w.Timeliness
}
