package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants keep the queue producer and consumer in sync.
const (
	TypePreviewRender = "preview:render"
	TypeJobsRetention = "jobs:retention"
)

// PreviewRenderPayload identifies the job whose command should be rasterized.
type PreviewRenderPayload struct {
	JobID         uint   `json:"job_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPreviewRenderTask builds a preview rendering task for a job.
func NewPreviewRenderTask(jobID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PreviewRenderPayload{
		JobID:         jobID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePreviewRender, payload), nil
}

// NewJobsRetentionTask builds the periodic retention sweep task. It carries no
// payload; the sweep reads its cutoffs from worker configuration.
func NewJobsRetentionTask() *asynq.Task {
	return asynq.NewTask(TypeJobsRetention, nil)
}
