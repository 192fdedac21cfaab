// Package agent implements the print dispatcher: a long-lived loop that polls
// the shared job store for pending work, resolves each job to a configured
// network printer, and streams the raw ZPL command over TCP.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"etiqueta/internal/database"
	"etiqueta/internal/errcode"
	"etiqueta/internal/metrics"
	"etiqueta/internal/notify"
	"etiqueta/internal/store"
)

// JobQueue is the slice of the job store the dispatcher consumes.
type JobQueue interface {
	ListByStatus(ctx context.Context, status string) ([]database.PrintJob, error)
	GetByID(ctx context.Context, id uint) (*database.PrintJob, error)
	Claim(ctx context.Context, id uint) (bool, error)
	UpdateStatus(ctx context.Context, id uint, status, errorMessage string) error
}

// PrinterDirectory resolves printer ids to connection records.
type PrinterDirectory interface {
	GetByID(ctx context.Context, id uint) (*database.Printer, error)
}

// Notifier publishes job lifecycle events for the queue view.
type Notifier interface {
	Publish(ctx context.Context, msg notify.JobStatusMessage) error
}

// Dispatcher coordinates one poll/dispatch cycle at a time. The job store is
// the single source of truth; the dispatcher holds no job state between
// cycles.
type Dispatcher struct {
	jobs          JobQueue
	printers      PrinterDirectory
	notifier      Notifier
	logger        *slog.Logger
	pollInterval  time.Duration
	socketTimeout time.Duration
}

func New(
	jobs JobQueue,
	printers PrinterDirectory,
	notifier Notifier,
	logger *slog.Logger,
	pollInterval time.Duration,
	socketTimeout time.Duration,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		jobs:          jobs,
		printers:      printers,
		notifier:      notifier,
		logger:        logger,
		pollInterval:  pollInterval,
		socketTimeout: socketTimeout,
	}
}

// Run polls the job store on a fixed interval until the context is cancelled.
// The store is a passive external system with no push notifications, so the
// loop is timer-driven rather than event-driven.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started",
		slog.Duration("poll_interval", d.pollInterval),
		slog.Duration("socket_timeout", d.socketTimeout),
	)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		d.runCycle(ctx)
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// runCycle fetches all pending jobs and dispatches them. Jobs targeting the
// same printer are sent strictly in order on one goroutine (a label is a
// contiguous byte stream; interleaved writers would corrupt output); distinct
// printers dispatch concurrently.
func (d *Dispatcher) runCycle(ctx context.Context) {
	started := time.Now()

	jobs, err := d.jobs.ListByStatus(ctx, database.JobStatusPending)
	if err != nil {
		d.logger.Error("list pending jobs failed", slog.Any("error", err))
		return
	}
	if len(jobs) == 0 {
		return
	}

	queues := make(map[uint][]database.PrintJob)
	var unrouted []database.PrintJob
	for _, job := range jobs {
		if job.PrinterID == nil {
			unrouted = append(unrouted, job)
			continue
		}
		queues[*job.PrinterID] = append(queues[*job.PrinterID], job)
	}

	for _, job := range unrouted {
		d.failUnrouted(ctx, job)
	}

	var wg sync.WaitGroup
	for printerID, queue := range queues {
		wg.Add(1)
		go func(printerID uint, queue []database.PrintJob) {
			defer wg.Done()
			d.dispatchQueue(ctx, printerID, queue)
		}(printerID, queue)
	}
	wg.Wait()

	metrics.ObserveDispatchCycle(time.Since(started), len(jobs))
}

// failUnrouted marks a job with no target printer failed. The operator can
// assign a printer and retry; the job itself is preserved.
func (d *Dispatcher) failUnrouted(ctx context.Context, job database.PrintJob) {
	claimed, err := d.jobs.Claim(ctx, job.ID)
	if err != nil {
		d.logger.Error("claim unrouted job failed", slog.Uint64("job_id", uint64(job.ID)), slog.Any("error", err))
		return
	}
	if !claimed {
		return
	}
	d.markFailed(ctx, job.ID, "job has no printer assigned", errcode.NoPrinter)
}

func (d *Dispatcher) dispatchQueue(ctx context.Context, printerID uint, queue []database.PrintJob) {
	printer, err := d.printers.GetByID(ctx, printerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			for _, job := range queue {
				claimed, claimErr := d.jobs.Claim(ctx, job.ID)
				if claimErr != nil || !claimed {
					continue
				}
				d.markFailed(ctx, job.ID, "assigned printer no longer exists", errcode.NoPrinter)
			}
			return
		}
		d.logger.Error("resolve printer failed",
			slog.Uint64("printer_id", uint64(printerID)),
			slog.Any("error", err),
		)
		return
	}

	for _, job := range queue {
		d.dispatchJob(ctx, printer, job)
		if ctx.Err() != nil {
			return
		}
	}
}

// dispatchJob claims a single job and streams it to its printer. The claim is
// a conditional pending→printing update, so the status is visibly "printing"
// before any I/O starts; a crash mid-send leaves the job inspectable rather
// than silently lost.
func (d *Dispatcher) dispatchJob(ctx context.Context, printer *database.Printer, job database.PrintJob) {
	log := d.logger.With(
		slog.Uint64("job_id", uint64(job.ID)),
		slog.String("printer", printer.Name),
	)

	claimed, err := d.jobs.Claim(ctx, job.ID)
	if err != nil {
		log.Error("claim job failed", slog.Any("error", err))
		return
	}
	if !claimed {
		// Another agent won the claim, or the user cancelled between the
		// poll and now. Either way this job is no longer ours.
		return
	}

	d.publish(ctx, notify.JobStatusMessage{
		Event:  notify.EventStatus,
		JobID:  job.ID,
		Status: database.JobStatusPrinting,
	})

	started := time.Now()
	err = d.sendJob(ctx, printer, job)
	switch {
	case errors.Is(err, errJobCancelled):
		// The user cancelled mid-send; the store already says cancelled and
		// last-write-wins means we must not overwrite it.
		log.Info("job cancelled during send")
		metrics.ObserveDispatch(database.JobStatusCancelled, time.Since(started))
	case err != nil:
		log.Warn("dispatch failed", slog.Any("error", err))
		d.markFailed(ctx, job.ID, summarize(err), errcode.DispatchError)
		metrics.ObserveDispatch(database.JobStatusFailed, time.Since(started))
	default:
		if updateErr := d.jobs.UpdateStatus(ctx, job.ID, database.JobStatusCompleted, ""); updateErr != nil {
			log.Error("mark job completed failed", slog.Any("error", updateErr))
			return
		}
		log.Info("job completed", slog.Int("quantity", job.Quantity))
		d.publish(ctx, notify.JobStatusMessage{
			Event:  notify.EventStatus,
			JobID:  job.ID,
			Status: database.JobStatusCompleted,
		})
		metrics.ObserveDispatch(database.JobStatusCompleted, time.Since(started))
	}
}

func (d *Dispatcher) markFailed(ctx context.Context, jobID uint, message string, code int) {
	if err := d.jobs.UpdateStatus(ctx, jobID, database.JobStatusFailed, message); err != nil {
		d.logger.Error("mark job failed failed",
			slog.Uint64("job_id", uint64(jobID)),
			slog.Any("error", err),
		)
		return
	}
	d.publish(ctx, notify.JobStatusMessage{
		Event:        notify.EventStatus,
		JobID:        jobID,
		Status:       database.JobStatusFailed,
		ErrorCode:    code,
		ErrorMessage: message,
	})
}

func (d *Dispatcher) publish(ctx context.Context, msg notify.JobStatusMessage) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Publish(ctx, msg); err != nil {
		d.logger.Warn("publish job status failed",
			slog.Uint64("job_id", uint64(msg.JobID)),
			slog.Any("error", err),
		)
	}
}

// summarize turns a low-level socket error into the human-readable message
// stored on the job row.
func summarize(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "dispatch failed"
	}
	return msg
}
