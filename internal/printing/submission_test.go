package printing

import (
	"context"
	"errors"
	"testing"

	"etiqueta/internal/database"
	"etiqueta/internal/store"
)

type fakeTemplates struct {
	templates map[uint]*database.Template
}

func (f *fakeTemplates) GetByID(_ context.Context, id uint) (*database.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return tpl, nil
}

type fakeJobs struct {
	inserted []*database.PrintJob
	err      error
}

func (f *fakeJobs) Insert(_ context.Context, job *database.PrintJob) error {
	if f.err != nil {
		return f.err
	}
	job.ID = uint(len(f.inserted) + 1)
	f.inserted = append(f.inserted, job)
	return nil
}

func newService(templates map[uint]*database.Template, jobs *fakeJobs) *SubmissionService {
	return NewSubmissionService(&fakeTemplates{templates: templates}, jobs, nil)
}

func TestSubmit_TemplateSubstitution(t *testing.T) {
	jobs := &fakeJobs{}
	svc := newService(map[uint]*database.Template{
		7: {
			Width:  400,
			Height: 300,
			RawZPL: "^XA\n^FO10,10^AAN,12^FB390,5,0,L,0^FD{produto}^FS\n^FO10,60^AAN,10^FB390,5,0,L,0^FDVal: {validade}^FS\n^XZ",
		},
	}, jobs)

	job, err := svc.Submit(context.Background(), SubmitRequest{
		TemplateID: 7,
		Values:     map[string]string{"produto": "CARNE BOVINA"},
		Quantity:   3,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := "^XA\n^FO10,10^AAN,12^FB390,5,0,L,0^FDCARNE BOVINA^FS\n^FO10,60^AAN,10^FB390,5,0,L,0^FDVal: ^FS\n^XZ"
	if job.Command != want {
		t.Fatalf("command mismatch:\n got: %q\nwant: %q", job.Command, want)
	}
	if job.Status != database.JobStatusPending {
		t.Fatalf("new job should be pending, got %q", job.Status)
	}
	if job.Quantity != 3 {
		t.Fatalf("quantity not carried: %d", job.Quantity)
	}
	if job.LabelWidth != 400 || job.LabelHeight != 300 {
		t.Fatalf("template dimensions not carried: %dx%d", job.LabelWidth, job.LabelHeight)
	}
	if len(jobs.inserted) != 1 {
		t.Fatalf("expected 1 inserted job, got %d", len(jobs.inserted))
	}
}

func TestSubmit_QuantityDefaultsToOne(t *testing.T) {
	jobs := &fakeJobs{}
	svc := newService(nil, jobs)

	job, err := svc.Submit(context.Background(), SubmitRequest{RawZPL: "^XA^XZ"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Quantity != 1 {
		t.Fatalf("zero quantity should default to 1, got %d", job.Quantity)
	}
}

func TestSubmit_UnsavedTestPrint(t *testing.T) {
	jobs := &fakeJobs{}
	svc := newService(nil, jobs)

	printerID := uint(2)
	job, err := svc.Submit(context.Background(), SubmitRequest{
		RawZPL:      "^XA\n^FO10,10^AAN,12^FB390,5,0,L,0^FD{nome}^FS\n^XZ",
		Values:      map[string]string{"nome": "rascunho"},
		PrinterID:   &printerID,
		TestPrint:   true,
		LabelWidth:  400,
		LabelHeight: 240,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !job.TestPrint {
		t.Fatal("test print flag not carried")
	}
	if job.PrinterID == nil || *job.PrinterID != printerID {
		t.Fatalf("printer not carried: %v", job.PrinterID)
	}
	if job.LabelWidth != 400 || job.LabelHeight != 240 {
		t.Fatalf("explicit dimensions not carried: %dx%d", job.LabelWidth, job.LabelHeight)
	}
}

func TestSubmit_MissingTemplate(t *testing.T) {
	svc := newService(nil, &fakeJobs{})

	_, err := svc.Submit(context.Background(), SubmitRequest{TemplateID: 42})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmit_NoCommand(t *testing.T) {
	svc := newService(nil, &fakeJobs{})

	_, err := svc.Submit(context.Background(), SubmitRequest{})
	if !errors.Is(err, ErrNoCommand) {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
}

func TestSubmit_InsertFailurePropagates(t *testing.T) {
	wantErr := errors.New("db down")
	svc := newService(nil, &fakeJobs{err: wantErr})

	_, err := svc.Submit(context.Background(), SubmitRequest{RawZPL: "^XA^XZ"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected insert error, got %v", err)
	}
}
