package domain

import (
	"database/sql"
	"time"
)

// Split types
const (
	SplitCheckin    = "checkin_50"
	SplitCompletion = "completion_50"
	SplitResale     = "resale"
)

// Payout status constants
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusPaid       = "paid"
	PayoutStatusFailed     = "failed"
	PayoutStatusHeld       = "held"
)

// Payment methods
const (
	PaymentMethodGateway = "gateway"
	PaymentMethodManual  = "manual"
)

// Payout is one installment of a job's worker compensation. At most one
// non-failed payout may exist per (job_id, split_type); the storage layer
// enforces this with a partial unique index.
type Payout struct {
	PayoutID           string         `db:"payout_id"`
	JobID              string         `db:"job_id"`
	RecipientID        string         `db:"recipient_id"`
	RecipientName      string         `db:"recipient_name"`
	AmountCents        int64          `db:"amount_cents"`
	SplitType          string         `db:"split_type"`
	Status             string         `db:"status"`
	PaymentMethod      string         `db:"payment_method"`
	ExternalTransferID sql.NullString `db:"external_transfer_id"`
	HoldReason         sql.NullString `db:"hold_reason"`
	FailureReason      sql.NullString `db:"failure_reason"`
	CreatedAt          time.Time      `db:"created_at"`
	PaidAt             sql.NullTime   `db:"paid_at"`
}

// Holdable reports whether the payout can still be placed on hold.
// Paid and failed payouts are terminal.
func (p *Payout) Holdable() bool {
	return p.Status == PayoutStatusPending || p.Status == PayoutStatusProcessing
}

// SplitAmountCents computes one split of a total as round(total × percent/100).
// Each split is computed independently from the total rather than as a
// remainder, which keeps rounding deterministic per split.
func SplitAmountCents(totalCents int64, percent int) int64 {
	return (totalCents*int64(percent) + 50) / 100
}

// PayoutPeriod is a closed biweekly reporting snapshot over paid payouts.
type PayoutPeriod struct {
	PeriodID     string       `db:"period_id"`
	StartDate    time.Time    `db:"start_date"`
	EndDate      time.Time    `db:"end_date"`
	TotalPayouts int          `db:"total_payouts"`
	TotalCents   int64        `db:"total_cents"`
	Breakdown    []byte       `db:"breakdown"`
	CSV          string       `db:"csv"`
	Status       string       `db:"status"`
	CreatedAt    time.Time    `db:"created_at"`
	ReportedAt   sql.NullTime `db:"reported_at"`
}

// Payout period status constants
const (
	PeriodStatusClosed   = "closed"
	PeriodStatusReported = "reported"
)

// RecipientTotal is one row of a period breakdown.
type RecipientTotal struct {
	RecipientID   string `json:"recipient_id"`
	RecipientName string `json:"recipient_name"`
	PayoutCount   int    `json:"payout_count"`
	TotalCents    int64  `json:"total_cents"`
}
