package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"

	"etiqueta/internal/database"
	"etiqueta/internal/errcode"
	"etiqueta/internal/notify"
	"etiqueta/internal/store"
	"etiqueta/internal/tasks"
)

// LabelRenderer rasterizes a ZPL command into a PNG.
type LabelRenderer interface {
	Render(ctx context.Context, command string, widthDots, heightDots int) ([]byte, error)
}

// PreviewStorage is the slice of object storage the preview worker needs.
type PreviewStorage interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// JobPreviewStore is the slice of the job store the preview worker needs.
type JobPreviewStore interface {
	GetByID(ctx context.Context, id uint) (*database.PrintJob, error)
	SetPreviewObjectKey(ctx context.Context, id uint, objectKey string) error
}

// Notifier publishes preview-ready events to the queue view.
type Notifier interface {
	Publish(ctx context.Context, msg notify.JobStatusMessage) error
}

// PreviewTaskHandler consumes preview render tasks: rasterize the job's
// command via the external renderer, store the PNG, record the object key on
// the job row, and notify the queue view.
type PreviewTaskHandler struct {
	jobs     JobPreviewStore
	renderer LabelRenderer
	storage  PreviewStorage
	notifier Notifier
	logger   *slog.Logger
}

func NewPreviewTaskHandler(
	jobs JobPreviewStore,
	renderer LabelRenderer,
	storage PreviewStorage,
	notifier Notifier,
	logger *slog.Logger,
) *PreviewTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreviewTaskHandler{
		jobs:     jobs,
		renderer: renderer,
		storage:  storage,
		notifier: notifier,
		logger:   logger,
	}
}

// ProcessTask implements asynq.Handler.
func (h *PreviewTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.PreviewRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal preview task payload failed", slog.Any("error", err))
		return err
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("job_id", uint64(payload.JobID)),
	)

	job, err := h.jobs.GetByID(ctx, payload.JobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("job no longer exists, skipping preview")
			return nil
		}
		log.Error("load job failed", slog.Any("error", err))
		return err
	}
	if job.Command == "" {
		log.Warn("job has no command, skipping preview")
		return nil
	}

	pngBytes, err := h.renderer.Render(ctx, job.Command, job.LabelWidth, job.LabelHeight)
	if err != nil {
		log.Error("render label preview failed", slog.Any("error", err))
		return err
	}

	objectKey := fmt.Sprintf("previews/%d.png", job.ID)
	reader := bytes.NewReader(pngBytes)
	if _, err := h.storage.UploadFile(ctx, objectKey, reader, int64(len(pngBytes)), "image/png"); err != nil {
		log.Error("upload preview failed", slog.Any("error", err))
		return err
	}

	if err := h.jobs.SetPreviewObjectKey(ctx, job.ID, objectKey); err != nil {
		log.Error("record preview key failed", slog.Any("error", err))
		return err
	}

	if h.notifier != nil {
		msg := notify.JobStatusMessage{
			Event:      notify.EventPreview,
			JobID:      job.ID,
			Status:     job.Status,
			ErrorCode:  errcode.OK,
			PreviewKey: objectKey,
		}
		if err := h.notifier.Publish(ctx, msg); err != nil {
			log.Warn("publish preview notification failed", slog.Any("error", err))
		}
	}

	log.Info("label preview stored", slog.String("object_key", objectKey))
	return nil
}
