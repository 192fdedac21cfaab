package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"etiqueta/internal/config"
	"etiqueta/internal/tasks"
)

type sweepCall struct {
	cutoff        time.Time
	testPrintOnly bool
}

type fakeRetentionStore struct {
	calls       []sweepCall
	previewKeys []string
	err         error
}

func (f *fakeRetentionStore) PreviewKeysForFinishedBefore(_ context.Context, _ time.Time, _ bool) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.previewKeys, nil
}

func (f *fakeRetentionStore) DeleteFinishedBefore(_ context.Context, cutoff time.Time, testPrintOnly bool) (int64, error) {
	f.calls = append(f.calls, sweepCall{cutoff: cutoff, testPrintOnly: testPrintOnly})
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

type fakeDeleter struct {
	deleted []string
}

func (f *fakeDeleter) DeleteObject(_ context.Context, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func TestRetentionSweep_Cutoffs(t *testing.T) {
	store := &fakeRetentionStore{previewKeys: []string{"previews/3.png"}}
	deleter := &fakeDeleter{}
	h := NewRetentionTaskHandler(store, deleter, config.RetentionConfig{Days: 30, TestPrintHours: 24}, nil)
	fixed := time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	if err := h.ProcessTask(context.Background(), tasks.NewJobsRetentionTask()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(store.calls) != 2 {
		t.Fatalf("expected 2 sweeps, got %d", len(store.calls))
	}

	finished := store.calls[0]
	if finished.testPrintOnly {
		t.Fatal("first sweep must cover all finished jobs")
	}
	if want := fixed.AddDate(0, 0, -30); !finished.cutoff.Equal(want) {
		t.Fatalf("finished cutoff: got %v want %v", finished.cutoff, want)
	}

	testPrints := store.calls[1]
	if !testPrints.testPrintOnly {
		t.Fatal("second sweep must target test prints only")
	}
	if want := fixed.Add(-24 * time.Hour); !testPrints.cutoff.Equal(want) {
		t.Fatalf("test print cutoff: got %v want %v", testPrints.cutoff, want)
	}

	// Both sweeps remove the stored preview PNGs before the rows.
	if len(deleter.deleted) != 2 || deleter.deleted[0] != "previews/3.png" {
		t.Fatalf("preview objects not cleaned up: %v", deleter.deleted)
	}
}

func TestRetentionSweep_StoreErrorPropagates(t *testing.T) {
	wantErr := errors.New("db gone")
	h := NewRetentionTaskHandler(&fakeRetentionStore{err: wantErr}, nil, config.RetentionConfig{Days: 30, TestPrintHours: 24}, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeJobsRetention, nil))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected store error back for asynq retry, got %v", err)
	}
}
