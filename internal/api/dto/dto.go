package dto

type CreateJobRequest struct {
	Title           string `json:"title" binding:"required"`
	PayoutBaseCents int64  `json:"payout_base_cents" binding:"required"`
	RushBonusCents  int64  `json:"rush_bonus_cents"`
}

type ClaimJobRequest struct {
	WorkerID   string `json:"worker_id" binding:"required"`
	WorkerName string `json:"worker_name" binding:"required"`
}

type CheckInRequest struct {
	WorkerID string `json:"worker_id" binding:"required"`
}

type CheckOutRequest struct {
	WorkerID        string  `json:"worker_id" binding:"required"`
	PhotoScore      float64 `json:"photo_score"`
	CompletionScore float64 `json:"completion_score"`
	TimelinessScore float64 `json:"timeliness_score"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

type ComplaintRequest struct {
	Description string   `json:"description" binding:"required"`
	PhotoURLs   []string `json:"photo_urls"`
}

type ListJobsRequest struct {
	Status        string `form:"status"`
	ClaimedBy     string `form:"claimed_by"`
	PaymentStatus string `form:"payment_status"`
	PageSize      int    `form:"page_size"`
	Cursor        string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID           string `json:"job_id"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	ClaimedBy       string `json:"claimed_by,omitempty"`
	ClaimedByName   string `json:"claimed_by_name,omitempty"`
	ClaimedAt       string `json:"claimed_at,omitempty"`
	PayoutBaseCents int64  `json:"payout_base_cents"`
	RushBonusCents  int64  `json:"rush_bonus_cents"`
	TotalCents      int64  `json:"total_cents"`
	PaymentStatus   string `json:"payment_status"`
	ReopenCount     int    `json:"reopen_count"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type RecentClaimDTO struct {
	JobID           string `json:"job_id"`
	JobTitle        string `json:"job_title"`
	WorkerFirstName string `json:"worker_first_name"`
	AmountCents     int64  `json:"amount_cents"`
	ClaimedAt       string `json:"claimed_at"`
}

type OfferTransferRequest struct {
	FromWorker   string `json:"from_worker" binding:"required"`
	ToWorker     string `json:"to_worker"`
	TransferType string `json:"transfer_type" binding:"required"`
}

type TransferActionRequest struct {
	WorkerID   string `json:"worker_id" binding:"required"`
	WorkerName string `json:"worker_name"`
}

type TransferDTO struct {
	TransferID   string `json:"transfer_id"`
	JobID        string `json:"job_id"`
	FromWorker   string `json:"from_worker"`
	ToWorker     string `json:"to_worker,omitempty"`
	TransferType string `json:"transfer_type"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

type GatewayCallbackRequest struct {
	TransferID string `json:"transfer_id" binding:"required"`
	Outcome    string `json:"outcome" binding:"required"`
	Reason     string `json:"reason"`
}

type PayoutDTO struct {
	PayoutID      string `json:"payout_id"`
	JobID         string `json:"job_id"`
	RecipientID   string `json:"recipient_id"`
	AmountCents   int64  `json:"amount_cents"`
	SplitType     string `json:"split_type"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	PaidAt        string `json:"paid_at,omitempty"`
}

type PeriodDTO struct {
	PeriodID     string `json:"period_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	TotalPayouts int    `json:"total_payouts"`
	TotalCents   int64  `json:"total_cents"`
	Status       string `json:"status"`
	CSV          string `json:"csv"`
}
