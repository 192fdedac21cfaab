package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"etiqueta/internal/database"
)

// JobStore is the persisted print queue. It is shared between the web process
// (enqueue, cancel, retry) and the dispatcher agent (claim, status updates);
// all coordination happens through row-level updates here.
type JobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

// Insert persists a new job. On storage failure no partial state remains.
func (s *JobStore) Insert(ctx context.Context, job *database.PrintJob) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("insert print job: %w", err)
	}
	return nil
}

func (s *JobStore) GetByID(ctx context.Context, id uint) (*database.PrintJob, error) {
	var job database.PrintJob
	if err := s.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// ListByStatus returns jobs with the given status, oldest first. Dispatch
// order within one printer's queue follows this retrieval order.
func (s *JobStore) ListByStatus(ctx context.Context, status string) ([]database.PrintJob, error) {
	var jobs []database.PrintJob
	if err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC, id ASC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	return jobs, nil
}

// ListSince returns jobs with the given status created at or after since.
// The queue view uses it to show finished jobs from today only.
func (s *JobStore) ListSince(ctx context.Context, status string, since time.Time) ([]database.PrintJob, error) {
	var jobs []database.PrintJob
	if err := s.db.WithContext(ctx).
		Where("status = ? AND created_at >= ?", status, since).
		Order("created_at DESC, id DESC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs since: %w", err)
	}
	return jobs, nil
}

// Claim atomically moves a job from pending to printing. The conditional
// update means only one dispatcher wins when several poll the same queue;
// losing agents see false and skip the job.
func (s *JobStore) Claim(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&database.PrintJob{}).
		Where("id = ? AND status = ?", id, database.JobStatusPending).
		Update("status", database.JobStatusPrinting)
	if res.Error != nil {
		return false, fmt.Errorf("claim job %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdateStatus records a status transition along with an optional error
// message. An empty message clears any previous one.
func (s *JobStore) UpdateStatus(ctx context.Context, id uint, status, errorMessage string) error {
	res := s.db.WithContext(ctx).
		Model(&database.PrintJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"error_message": errorMessage,
		})
	if res.Error != nil {
		return fmt.Errorf("update job %d status: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Retry re-queues a failed job and clears its error message. Returns false if
// the job was not in the failed state.
func (s *JobStore) Retry(ctx context.Context, id uint) (bool, error) {
	return s.transition(ctx, id,
		[]string{database.JobStatusFailed},
		database.JobStatusPending)
}

// Cancel marks a pending or printing job cancelled. An in-flight socket write
// is allowed to finish; the dispatcher observes the cancellation on its next
// check.
func (s *JobStore) Cancel(ctx context.Context, id uint) (bool, error) {
	return s.transition(ctx, id,
		[]string{database.JobStatusPending, database.JobStatusPrinting},
		database.JobStatusCancelled)
}

// Reprocess re-queues a finished (completed or cancelled) job unchanged.
func (s *JobStore) Reprocess(ctx context.Context, id uint) (bool, error) {
	return s.transition(ctx, id,
		[]string{database.JobStatusCompleted, database.JobStatusCancelled},
		database.JobStatusPending)
}

func (s *JobStore) transition(ctx context.Context, id uint, from []string, to string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&database.PrintJob{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":        to,
			"error_message": "",
		})
	if res.Error != nil {
		return false, fmt.Errorf("transition job %d to %s: %w", id, to, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdatePrinter reassigns the job's target printer.
func (s *JobStore) UpdatePrinter(ctx context.Context, id uint, printerID *uint) error {
	res := s.db.WithContext(ctx).
		Model(&database.PrintJob{}).
		Where("id = ?", id).
		Update("printer_id", printerID)
	if res.Error != nil {
		return fmt.Errorf("update job %d printer: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPreviewObjectKey records where the rendered preview PNG was stored.
func (s *JobStore) SetPreviewObjectKey(ctx context.Context, id uint, objectKey string) error {
	res := s.db.WithContext(ctx).
		Model(&database.PrintJob{}).
		Where("id = ?", id).
		Update("preview_object_key", objectKey)
	if res.Error != nil {
		return fmt.Errorf("update job %d preview key: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PreviewKeysForFinishedBefore returns the preview object keys of the jobs a
// DeleteFinishedBefore call with the same arguments would remove, so their
// stored PNGs can be cleaned up alongside the rows.
func (s *JobStore) PreviewKeysForFinishedBefore(ctx context.Context, cutoff time.Time, testPrintOnly bool) ([]string, error) {
	query := s.db.WithContext(ctx).
		Model(&database.PrintJob{}).
		Where("status IN ?", []string{database.JobStatusCompleted, database.JobStatusCancelled}).
		Where("created_at < ?", cutoff).
		Where("preview_object_key <> ''")
	if testPrintOnly {
		query = query.Where("test_print = ?", true)
	}
	var keys []string
	if err := query.Pluck("preview_object_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("list preview keys: %w", err)
	}
	return keys, nil
}

// DeleteFinishedBefore permanently removes completed/cancelled jobs created
// before the cutoff. Pending, printing and failed jobs are never swept.
func (s *JobStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time, testPrintOnly bool) (int64, error) {
	query := s.db.WithContext(ctx).
		Where("status IN ?", []string{database.JobStatusCompleted, database.JobStatusCancelled}).
		Where("created_at < ?", cutoff)
	if testPrintOnly {
		query = query.Where("test_print = ?", true)
	}
	res := query.Unscoped().Delete(&database.PrintJob{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete finished jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
