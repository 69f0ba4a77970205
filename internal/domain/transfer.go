package domain

import "time"

// Transfer types
const (
	TransferTypeDirect  = "direct"
	TransferTypeRequeue = "requeue"
)

// Transfer offer status constants
const (
	TransferStatusPending  = "pending"
	TransferStatusAccepted = "accepted"
	TransferStatusDeclined = "declined"
	TransferStatusExpired  = "expired"
)

// TransferOffer is a worker-to-worker job handoff. Direct offers expire
// if the recipient never responds; requeue offers put the job straight
// back on the feed.
type TransferOffer struct {
	TransferID     string    `db:"transfer_id"`
	JobID          string    `db:"job_id"`
	FromWorker     string    `db:"from_worker"`
	FromWorkerName string    `db:"from_worker_name"`
	ToWorker       string    `db:"to_worker"`
	TransferType   string    `db:"transfer_type"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
