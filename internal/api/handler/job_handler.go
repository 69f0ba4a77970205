package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gigworks/marketplace-core/internal/api/dto"
	"github.com/gigworks/marketplace-core/internal/lifecycle"
	"github.com/gigworks/marketplace-core/internal/storage"
)

// JobHandler handles job lifecycle HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	lifecycle *lifecycle.Service
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		storage:   deps.Storage,
		lifecycle: deps.Lifecycle,
	}
}

// CreateJob handles POST /api/v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	job, err := h.lifecycle.CreateJob(c.Request.Context(), req.Title, req.PayoutBaseCents, req.RushBonusCents)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, jobToDTO(job))
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	filter := storage.JobFilter{
		Status:        req.Status,
		ClaimedBy:     req.ClaimedBy,
		PaymentStatus: req.PaymentStatus,
		PageSize:      req.PageSize,
		Cursor:        cursor,
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = jobToDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor, err = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// ClaimJob handles POST /api/v1/jobs/:job_id/claim
func (h *JobHandler) ClaimJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	var req dto.ClaimJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	job, err := h.lifecycle.Claim(c.Request.Context(), jobID, req.WorkerID, req.WorkerName)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// CheckIn handles POST /api/v1/jobs/:job_id/checkin
func (h *JobHandler) CheckIn(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	job, err := h.lifecycle.CheckIn(c.Request.Context(), jobID, req.WorkerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// CheckOut handles POST /api/v1/jobs/:job_id/checkout
func (h *JobHandler) CheckOut(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	var req dto.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	job, err := h.lifecycle.CheckOut(c.Request.Context(), jobID, req.WorkerID,
		req.PhotoScore, req.CompletionScore, req.TimelinessScore)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// ApproveJob handles POST /api/v1/jobs/:job_id/approve
func (h *JobHandler) ApproveJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := h.lifecycle.Approve(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := h.lifecycle.Cancel(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// DisputeJob handles POST /api/v1/jobs/:job_id/dispute
func (h *JobHandler) DisputeJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := h.lifecycle.Dispute(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// ResolveDispute handles POST /api/v1/jobs/:job_id/resolve
func (h *JobHandler) ResolveDispute(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	job, err := h.lifecycle.ResolveDispute(c.Request.Context(), jobID, req.Outcome)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// FileComplaint handles POST /api/v1/jobs/:job_id/complaint
func (h *JobHandler) FileComplaint(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	var req dto.ComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.lifecycle.FileComplaint(c.Request.Context(), jobID, req.Description); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "status": "complaint recorded"})
}

// ListRecentClaims handles GET /api/v1/claims/recent
func (h *JobHandler) ListRecentClaims(c *gin.Context) {
	claims, err := h.storage.ListRecentClaims(c.Request.Context(), lifecycle.MaxRecentClaims)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := make([]dto.RecentClaimDTO, len(claims))
	for i, claim := range claims {
		response[i] = dto.RecentClaimDTO{
			JobID:           claim.JobID,
			JobTitle:        claim.JobTitle,
			WorkerFirstName: claim.WorkerFirstName,
			AmountCents:     claim.AmountCents,
			ClaimedAt:       claim.ClaimedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"claims": response})
}

func (h *JobHandler) jobID(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id must be a valid UUID"})
		return "", false
	}
	return jobID, true
}
