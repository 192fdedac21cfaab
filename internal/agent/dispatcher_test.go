package agent

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"etiqueta/internal/database"
	"etiqueta/internal/notify"
	"etiqueta/internal/store"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs map[uint]*database.PrintJob
}

func newFakeQueue(jobs ...*database.PrintJob) *fakeQueue {
	q := &fakeQueue{jobs: make(map[uint]*database.PrintJob)}
	for _, job := range jobs {
		q.jobs[job.ID] = job
	}
	return q
}

func (q *fakeQueue) ListByStatus(_ context.Context, status string) ([]database.PrintJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []database.PrintJob
	for id := uint(1); id <= uint(len(q.jobs)); id++ {
		if job, ok := q.jobs[id]; ok && job.Status == status {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (q *fakeQueue) GetByID(_ context.Context, id uint) (*database.PrintJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (q *fakeQueue) Claim(_ context.Context, id uint) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok || job.Status != database.JobStatusPending {
		return false, nil
	}
	job.Status = database.JobStatusPrinting
	return true, nil
}

func (q *fakeQueue) UpdateStatus(_ context.Context, id uint, status, errorMessage string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	job.Status = status
	job.ErrorMessage = errorMessage
	return nil
}

func (q *fakeQueue) status(t *testing.T, id uint) *database.PrintJob {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		t.Fatalf("job %d missing", id)
	}
	copied := *job
	return &copied
}

type fakeDirectory struct {
	printers map[uint]*database.Printer
}

func (d *fakeDirectory) GetByID(_ context.Context, id uint) (*database.Printer, error) {
	printer, ok := d.printers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return printer, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.JobStatusMessage
}

func (n *recordingNotifier) Publish(_ context.Context, msg notify.JobStatusMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

// mockPrinter accepts one connection and returns everything written to it.
func mockPrinter(t *testing.T) (*database.Printer, <-chan string) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	received := make(chan string, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- string(data)
	}()

	addr := listener.Addr().(*net.TCPAddr)
	return &database.Printer{Name: "balcao", IP: addr.IP.String(), Port: addr.Port}, received
}

func pendingJob(id uint, printerID *uint, quantity int) *database.PrintJob {
	job := &database.PrintJob{
		Status:    database.JobStatusPending,
		Command:   "^XA\n^FO10,10^AAN,12^FB390,5,0,L,0^FDCARNE BOVINA^FS\n^XZ",
		PrinterID: printerID,
		Quantity:  quantity,
	}
	job.ID = id
	return job
}

func TestDispatch_QuantitySendsFullCommandCopies(t *testing.T) {
	printer, received := mockPrinter(t)
	printerID := uint(1)
	queue := newFakeQueue(pendingJob(1, &printerID, 3))
	notifier := &recordingNotifier{}

	d := New(queue, &fakeDirectory{printers: map[uint]*database.Printer{1: printer}}, notifier, nil, time.Second, time.Second)
	d.runCycle(context.Background())

	var payload string
	select {
	case payload = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("printer never received the payload")
	}

	if got := strings.Count(payload, "^XA"); got != 3 {
		t.Fatalf("expected 3 label starts, got %d: %q", got, payload)
	}
	if got := strings.Count(payload, "^XZ"); got != 3 {
		t.Fatalf("expected 3 label ends, got %d", got)
	}

	job := queue.status(t, 1)
	if job.Status != database.JobStatusCompleted {
		t.Fatalf("job should be completed, got %q (error %q)", job.Status, job.ErrorMessage)
	}

	// The operator screen saw printing first, then completed.
	if len(notifier.messages) != 2 {
		t.Fatalf("expected 2 status events, got %d", len(notifier.messages))
	}
	if notifier.messages[0].Status != database.JobStatusPrinting ||
		notifier.messages[1].Status != database.JobStatusCompleted {
		t.Fatalf("unexpected event order: %+v", notifier.messages)
	}
}

func TestDispatch_UnreachablePrinterFailsJob(t *testing.T) {
	// Learn a closed port so the dial is refused immediately.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	printer := &database.Printer{Name: "cozinha", IP: addr.IP.String(), Port: addr.Port}
	printerID := uint(1)
	queue := newFakeQueue(pendingJob(1, &printerID, 1))

	d := New(queue, &fakeDirectory{printers: map[uint]*database.Printer{1: printer}}, nil, nil, time.Second, 500*time.Millisecond)
	d.runCycle(context.Background())

	job := queue.status(t, 1)
	if job.Status != database.JobStatusFailed {
		t.Fatalf("job should be failed, got %q", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Fatal("failed job must carry a diagnostic message")
	}

	// Retrying against the same dead printer fails the same way.
	queue.jobs[1].Status = database.JobStatusPending
	d.runCycle(context.Background())
	again := queue.status(t, 1)
	if again.Status != database.JobStatusFailed || again.ErrorMessage == "" {
		t.Fatalf("retry should fail identically, got %q (%q)", again.Status, again.ErrorMessage)
	}
}

func TestDispatch_UnroutedJobFails(t *testing.T) {
	queue := newFakeQueue(pendingJob(1, nil, 1))

	d := New(queue, &fakeDirectory{}, nil, nil, time.Second, time.Second)
	d.runCycle(context.Background())

	job := queue.status(t, 1)
	if job.Status != database.JobStatusFailed {
		t.Fatalf("unrouted job should fail, got %q", job.Status)
	}
	if job.ErrorMessage != "job has no printer assigned" {
		t.Fatalf("unexpected message: %q", job.ErrorMessage)
	}
}

func TestDispatch_MissingPrinterFailsJob(t *testing.T) {
	printerID := uint(9)
	queue := newFakeQueue(pendingJob(1, &printerID, 1))

	d := New(queue, &fakeDirectory{}, nil, nil, time.Second, time.Second)
	d.runCycle(context.Background())

	job := queue.status(t, 1)
	if job.Status != database.JobStatusFailed {
		t.Fatalf("job should fail, got %q", job.Status)
	}
	if job.ErrorMessage != "assigned printer no longer exists" {
		t.Fatalf("unexpected message: %q", job.ErrorMessage)
	}
}

// cancellingQueue flips the job to cancelled as soon as the dispatcher wins
// the claim, modelling a user hitting cancel while the first copy is on the
// wire.
type cancellingQueue struct {
	*fakeQueue
}

func (q *cancellingQueue) Claim(ctx context.Context, id uint) (bool, error) {
	claimed, err := q.fakeQueue.Claim(ctx, id)
	if claimed {
		q.mu.Lock()
		q.jobs[id].Status = database.JobStatusCancelled
		q.mu.Unlock()
	}
	return claimed, err
}

func TestDispatch_CancelBetweenCopiesStopsRemaining(t *testing.T) {
	printer, received := mockPrinter(t)
	printerID := uint(1)
	queue := &cancellingQueue{fakeQueue: newFakeQueue(pendingJob(1, &printerID, 5))}

	d := New(queue, &fakeDirectory{printers: map[uint]*database.Printer{1: printer}}, nil, nil, time.Second, time.Second)
	d.runCycle(context.Background())

	var payload string
	select {
	case payload = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("printer never received the payload")
	}

	// The copy already started is allowed to finish; the re-check before the
	// second copy observes the cancellation and stops there.
	if got := strings.Count(payload, "^XA"); got != 1 {
		t.Fatalf("expected exactly 1 label after cancellation, got %d: %q", got, payload)
	}

	job := queue.status(t, 1)
	if job.Status != database.JobStatusCancelled {
		t.Fatalf("dispatcher must not overwrite the cancelled status, got %q", job.Status)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("cancellation is not a failure, got error %q", job.ErrorMessage)
	}
}

func TestDispatch_LostClaimIsSkipped(t *testing.T) {
	printer, _ := mockPrinter(t)
	printerID := uint(1)
	job := pendingJob(1, &printerID, 1)
	queue := newFakeQueue(job)
	// Simulate a cancellation between the poll and the claim.
	queue.jobs[1].Status = database.JobStatusCancelled

	d := New(queue, &fakeDirectory{printers: map[uint]*database.Printer{1: printer}}, nil, nil, time.Second, time.Second)
	d.dispatchQueue(context.Background(), 1, []database.PrintJob{*job})

	got := queue.status(t, 1)
	if got.Status != database.JobStatusCancelled {
		t.Fatalf("lost claim must leave the job untouched, got %q", got.Status)
	}
}
