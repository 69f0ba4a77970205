package domain

import (
	"database/sql"
	"time"
)

// Job status constants
const (
	JobStatusOpen          = "OPEN"
	JobStatusUpcoming      = "UPCOMING"
	JobStatusInProgress    = "IN_PROGRESS"
	JobStatusReviewPending = "REVIEW_PENDING"
	JobStatusCompleted     = "COMPLETED"
	JobStatusDisputed      = "DISPUTED"
	JobStatusReopened      = "REOPENED"
	JobStatusCancelled     = "CANCELLED"
)

// Payment status constants
const (
	PaymentStatusUnpaid    = "unpaid"
	PaymentStatusFirstPaid = "first_paid"
	PaymentStatusHeld      = "held"
	PaymentStatusFullyPaid = "fully_paid"
)

// Job is a posted marketplace job. Rows are never hard-deleted;
// terminal states stay queryable for reporting.
type Job struct {
	JobID           string         `db:"job_id"`
	Title           string         `db:"title"`
	Status          string         `db:"status"`
	ClaimedBy       sql.NullString `db:"claimed_by"`
	ClaimedByName   sql.NullString `db:"claimed_by_name"`
	ClaimedAt       sql.NullTime   `db:"claimed_at"`
	PayoutBaseCents int64          `db:"payout_base_cents"`
	RushBonusCents  int64          `db:"rush_bonus_cents"`
	PaymentStatus   string         `db:"payment_status"`
	FirstPayoutID   sql.NullString `db:"first_payout_id"`
	SecondPayoutID  sql.NullString `db:"second_payout_id"`
	ReopenCount     int            `db:"reopen_count"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// TotalCents is the full worker compensation for the job.
func (j *Job) TotalCents() int64 {
	return j.PayoutBaseCents + j.RushBonusCents
}

// Claimable reports whether the job is in a state the claim arbiter accepts.
func (j *Job) Claimable() bool {
	return (j.Status == JobStatusOpen || j.Status == JobStatusReopened) && !j.ClaimedBy.Valid
}

// transitions is the only source of truth for legal status changes.
// Any (from, to) pair not listed here is rejected.
var transitions = map[string][]string{
	JobStatusOpen:          {JobStatusUpcoming, JobStatusDisputed, JobStatusCancelled},
	JobStatusReopened:      {JobStatusUpcoming, JobStatusDisputed, JobStatusCancelled},
	JobStatusUpcoming:      {JobStatusInProgress, JobStatusDisputed, JobStatusCancelled},
	JobStatusInProgress:    {JobStatusReviewPending, JobStatusDisputed, JobStatusCancelled},
	JobStatusReviewPending: {JobStatusCompleted, JobStatusDisputed, JobStatusCancelled},
	JobStatusDisputed:      {JobStatusCompleted, JobStatusReopened},
	JobStatusCompleted:     {JobStatusDisputed},
	JobStatusCancelled:     {},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PreCompletion reports whether a status precedes COMPLETED in the lifecycle,
// i.e. the job can still be disputed or cancelled from it.
func PreCompletion(status string) bool {
	switch status {
	case JobStatusOpen, JobStatusReopened, JobStatusUpcoming, JobStatusInProgress, JobStatusReviewPending:
		return true
	}
	return false
}
