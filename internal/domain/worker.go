package domain

import "time"

// Goal types
const (
	GoalTypeJobs     = "jobs"
	GoalTypeEarnings = "earnings"
)

// PayoutAccount links a worker to an external payout-capable account.
// Onboarding happens outside the core; the ledger only reads the flag.
type PayoutAccount struct {
	WorkerID          string    `db:"worker_id"`
	ExternalAccountID string    `db:"external_account_id"`
	PayoutsEnabled    bool      `db:"payouts_enabled"`
	CreatedAt         time.Time `db:"created_at"`
}

// WorkerStats holds lifetime counters, incremented on job approval.
type WorkerStats struct {
	WorkerID      string    `db:"worker_id"`
	JobsCompleted int       `db:"jobs_completed"`
	EarningsCents int64     `db:"earnings_cents"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// WorkerGoal is one monthly target; progress moves with job approvals.
type WorkerGoal struct {
	WorkerID string    `db:"worker_id"`
	MonthKey string    `db:"month_key"`
	GoalType string    `db:"goal_type"`
	Target   int64     `db:"target"`
	Progress int64     `db:"progress"`
	CreatedAt time.Time `db:"created_at"`
}

// RecentClaim is one row of the bounded "recent claims" feed.
type RecentClaim struct {
	ID              int64     `db:"id"`
	JobID           string    `db:"job_id"`
	JobTitle        string    `db:"job_title"`
	WorkerID        string    `db:"worker_id"`
	WorkerFirstName string    `db:"worker_first_name"`
	AmountCents     int64     `db:"amount_cents"`
	ClaimedAt       time.Time `db:"claimed_at"`
}
