package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"etiqueta/internal/config"
)

// RetentionStore is the slice of the job store the sweep needs.
type RetentionStore interface {
	PreviewKeysForFinishedBefore(ctx context.Context, cutoff time.Time, testPrintOnly bool) ([]string, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time, testPrintOnly bool) (int64, error)
}

// PreviewDeleter removes stored preview objects for swept jobs.
type PreviewDeleter interface {
	DeleteObject(ctx context.Context, objectKey string) error
}

// RetentionTaskHandler bounds the otherwise unbounded job history: finished
// (completed/cancelled) jobs older than the configured window are deleted, and
// ephemeral test prints are swept on a much shorter window. Pending, printing
// and failed jobs are never touched. Preview PNGs of swept jobs are removed
// from object storage first.
type RetentionTaskHandler struct {
	jobs    RetentionStore
	storage PreviewDeleter
	cfg     config.RetentionConfig
	logger  *slog.Logger
	now     func() time.Time
}

func NewRetentionTaskHandler(jobs RetentionStore, storage PreviewDeleter, cfg config.RetentionConfig, logger *slog.Logger) *RetentionTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionTaskHandler{
		jobs:    jobs,
		storage: storage,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// ProcessTask implements asynq.Handler.
func (h *RetentionTaskHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	now := h.now()

	finishedCutoff := now.AddDate(0, 0, -h.cfg.Days)
	deleted, err := h.sweep(ctx, finishedCutoff, false)
	if err != nil {
		h.logger.Error("retention sweep failed", slog.Any("error", err))
		return err
	}

	testCutoff := now.Add(-time.Duration(h.cfg.TestPrintHours) * time.Hour)
	deletedTests, err := h.sweep(ctx, testCutoff, true)
	if err != nil {
		h.logger.Error("test print sweep failed", slog.Any("error", err))
		return err
	}

	h.logger.Info("retention sweep completed",
		slog.Int64("deleted_jobs", deleted),
		slog.Int64("deleted_test_prints", deletedTests),
	)
	return nil
}

// sweep removes the preview objects first, then the rows. A failed object
// delete is logged and skipped: an orphaned PNG is preferable to a job row
// that outlives its retention window.
func (h *RetentionTaskHandler) sweep(ctx context.Context, cutoff time.Time, testPrintOnly bool) (int64, error) {
	if h.storage != nil {
		keys, err := h.jobs.PreviewKeysForFinishedBefore(ctx, cutoff, testPrintOnly)
		if err != nil {
			return 0, err
		}
		for _, key := range keys {
			if err := h.storage.DeleteObject(ctx, key); err != nil {
				h.logger.Warn("delete preview object failed",
					slog.String("object_key", key),
					slog.Any("error", err),
				)
			}
		}
	}

	return h.jobs.DeleteFinishedBefore(ctx, cutoff, testPrintOnly)
}
