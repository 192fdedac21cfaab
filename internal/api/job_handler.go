package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"etiqueta/internal/api/middleware"
	"etiqueta/internal/database"
	"etiqueta/internal/notify"
	"etiqueta/internal/store"
	"etiqueta/internal/tasks"
)

// PreviewURLSigner turns a stored preview object key into a download URL.
type PreviewURLSigner interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// JobHandler serves the print queue view and its user actions: retry, cancel,
// reprocess, printer reassignment, preview.
type JobHandler struct {
	jobs        *store.JobStore
	printers    *store.PrinterStore
	asynqClient *asynq.Client
	signer      PreviewURLSigner
	notifier    *notify.Publisher
	logger      *slog.Logger
}

func NewJobHandler(
	jobs *store.JobStore,
	printers *store.PrinterStore,
	asynqClient *asynq.Client,
	signer PreviewURLSigner,
	notifier *notify.Publisher,
	logger *slog.Logger,
) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		jobs:        jobs,
		printers:    printers,
		asynqClient: asynqClient,
		signer:      signer,
		notifier:    notifier,
		logger:      logger,
	}
}

type jobResponse struct {
	ID           uint      `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Status       string    `json:"status"`
	PrinterID    *uint     `json:"printer_id"`
	Quantity     int       `json:"quantity"`
	TestPrint    bool      `json:"test_print"`
	ErrorMessage string    `json:"error_message,omitempty"`
	HasPreview   bool      `json:"has_preview"`
}

// GET /v1/jobs?status=
// Without a status filter the queue view gets all active jobs (pending,
// printing, failed) plus today's finished ones; storage itself is unbounded
// but the display window for terminal jobs is the current day.
func (h *JobHandler) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()
	status := c.Query("status")

	var (
		jobs []database.PrintJob
		err  error
	)
	switch status {
	case "":
		jobs, err = h.listQueueView(ctx)
	case database.JobStatusCompleted, database.JobStatusCancelled:
		jobs, err = h.jobs.ListSince(ctx, status, startOfToday())
	case database.JobStatusPending, database.JobStatusPrinting, database.JobStatusFailed:
		jobs, err = h.jobs.ListByStatus(ctx, status)
	default:
		BadRequest(c, "invalid status filter")
		return
	}
	if err != nil {
		Internal(c, "failed to list jobs")
		return
	}

	items := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, toJobResponse(&jobs[i]))
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	resp := toJobResponse(job)
	c.JSON(http.StatusOK, gin.H{
		"id":            resp.ID,
		"created_at":    resp.CreatedAt,
		"status":        resp.Status,
		"printer_id":    resp.PrinterID,
		"quantity":      resp.Quantity,
		"test_print":    resp.TestPrint,
		"error_message": resp.ErrorMessage,
		"has_preview":   resp.HasPreview,
		"command":       job.Command,
	})
}

// POST /v1/jobs/:id/retry
// failed → pending; clears the stored error message.
func (h *JobHandler) RetryJob(c *gin.Context) {
	h.applyTransition(c, h.jobs.Retry, "job is not in a retryable state")
}

// POST /v1/jobs/:id/cancel
// pending/printing → cancelled. An in-flight send finishes on its own; the
// dispatcher observes the cancellation at its next check.
func (h *JobHandler) CancelJob(c *gin.Context) {
	h.applyTransition(c, h.jobs.Cancel, "job is not cancellable")
}

// POST /v1/jobs/:id/reprocess
// completed/cancelled → pending, re-queued unchanged.
func (h *JobHandler) ReprocessJob(c *gin.Context) {
	h.applyTransition(c, h.jobs.Reprocess, "job is not finished")
}

type changePrinterRequest struct {
	PrinterID *uint `json:"printer_id"`
}

// PUT /v1/jobs/:id/printer
func (h *JobHandler) ChangePrinter(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	var req changePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if req.PrinterID != nil {
		if _, err := h.printers.GetByID(c.Request.Context(), *req.PrinterID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFound(c, "printer not found")
			} else {
				Internal(c, "failed to query printer")
			}
			return
		}
	}

	switch err := h.jobs.UpdatePrinter(c.Request.Context(), id, req.PrinterID); {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"id": id, "printer_id": req.PrinterID})
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "job not found")
	default:
		Internal(c, "failed to change printer")
	}
}

const previewURLTTL = time.Hour

// GET /v1/jobs/:id/preview
// Returns a presigned URL when a cached render exists; otherwise enqueues a
// render task and answers 202. The queue view is notified over the websocket
// feed once the render lands.
func (h *JobHandler) JobPreview(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if job.PreviewObjectKey != "" {
		url, err := h.signer.GeneratePresignedURL(ctx, job.PreviewObjectKey, previewURLTTL)
		if err != nil {
			Internal(c, "failed to sign preview url")
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
		return
	}

	task, err := tasks.NewPreviewRenderTask(job.ID, middleware.GetCorrelationID(c))
	if err != nil {
		Internal(c, "failed to build preview task")
		return
	}
	if _, err := h.asynqClient.EnqueueContext(ctx, task); err != nil {
		h.logger.Error("enqueue preview task failed",
			slog.Uint64("job_id", uint64(job.ID)),
			slog.Any("error", err),
		)
		Internal(c, "failed to enqueue preview task")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "rendering"})
}

func (h *JobHandler) applyTransition(
	c *gin.Context,
	transition func(ctx context.Context, id uint) (bool, error),
	conflictMsg string,
) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	applied, err := transition(c.Request.Context(), id)
	if err != nil {
		Internal(c, "failed to update job")
		return
	}
	if !applied {
		// Either the job does not exist or it is not in an eligible state;
		// distinguish for the UI.
		if _, getErr := h.jobs.GetByID(c.Request.Context(), id); errors.Is(getErr, store.ErrNotFound) {
			NotFound(c, "job not found")
			return
		}
		Conflict(c, conflictMsg)
		return
	}

	job, err := h.jobs.GetByID(c.Request.Context(), id)
	if err != nil {
		Internal(c, "failed to query job")
		return
	}

	h.publishStatus(c.Request.Context(), job)
	c.JSON(http.StatusOK, gin.H{"id": job.ID, "status": job.Status})
}

func (h *JobHandler) publishStatus(ctx context.Context, job *database.PrintJob) {
	if h.notifier == nil {
		return
	}
	msg := notify.JobStatusMessage{
		Event:        notify.EventStatus,
		JobID:        job.ID,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage,
	}
	if err := h.notifier.Publish(ctx, msg); err != nil {
		h.logger.Warn("publish job status failed",
			slog.Uint64("job_id", uint64(job.ID)),
			slog.Any("error", err),
		)
	}
}

func (h *JobHandler) loadJob(c *gin.Context) (*database.PrintJob, bool) {
	id, ok := jobID(c)
	if !ok {
		return nil, false
	}
	job, err := h.jobs.GetByID(c.Request.Context(), id)
	switch {
	case err == nil:
		return job, true
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "job not found")
	default:
		Internal(c, "failed to query job")
	}
	return nil, false
}

func toJobResponse(job *database.PrintJob) jobResponse {
	return jobResponse{
		ID:           job.ID,
		CreatedAt:    job.CreatedAt,
		Status:       job.Status,
		PrinterID:    job.PrinterID,
		Quantity:     job.Quantity,
		TestPrint:    job.TestPrint,
		ErrorMessage: job.ErrorMessage,
		HasPreview:   job.PreviewObjectKey != "",
	}
}

func (h *JobHandler) listQueueView(ctx context.Context) ([]database.PrintJob, error) {
	var all []database.PrintJob
	for _, status := range []string{
		database.JobStatusPending,
		database.JobStatusPrinting,
		database.JobStatusFailed,
	} {
		jobs, err := h.jobs.ListByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		all = append(all, jobs...)
	}
	for _, status := range []string{
		database.JobStatusCompleted,
		database.JobStatusCancelled,
	} {
		jobs, err := h.jobs.ListSince(ctx, status, startOfToday())
		if err != nil {
			return nil, err
		}
		all = append(all, jobs...)
	}
	return all, nil
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func jobID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid job id")
		return 0, false
	}
	return uint(id), true
}
