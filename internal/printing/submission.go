package printing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"etiqueta/internal/database"
	"etiqueta/internal/zpl"
)

// ErrNoCommand reports a submission that carries neither a saved template id
// nor raw ZPL for the unsaved test-print path.
var ErrNoCommand = errors.New("submission has no template and no raw zpl")

// TemplateResolver is the slice of the template store the service consumes.
type TemplateResolver interface {
	GetByID(ctx context.Context, id uint) (*database.Template, error)
}

// JobInserter is the slice of the job store the service consumes.
type JobInserter interface {
	Insert(ctx context.Context, job *database.PrintJob) error
}

// SubmitRequest describes one print request. All inputs are explicit; the
// service keeps no ambient operator/sector state.
type SubmitRequest struct {
	// TemplateID selects a saved template. Zero means "unsaved": RawZPL must
	// carry the command text directly (test print before saving).
	TemplateID uint
	RawZPL     string
	Values     map[string]string
	Quantity   int
	PrinterID  *uint
	TestPrint  bool
	// Label dimensions in dots for the unsaved path; ignored when TemplateID
	// is set (the template's dimensions win).
	LabelWidth  int
	LabelHeight int
}

// SubmissionService turns a template plus runtime values into a concrete ZPL
// command and enqueues it as a pending job. Enqueue is fire-and-forget
// relative to dispatch: the caller gets the job back immediately.
type SubmissionService struct {
	templates TemplateResolver
	jobs      JobInserter
	logger    *slog.Logger
}

func NewSubmissionService(templates TemplateResolver, jobs JobInserter, logger *slog.Logger) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{templates: templates, jobs: jobs, logger: logger}
}

// Submit resolves the command text, substitutes every {key} placeholder
// (absent keys become empty), and inserts a pending job. A missing template
// surfaces store.ErrNotFound; an insert failure leaves no partial state.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (*database.PrintJob, error) {
	command, width, height, err := s.resolveCommand(ctx, req)
	if err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	job := &database.PrintJob{
		Status:      database.JobStatusPending,
		Command:     zpl.Substitute(command, req.Values),
		PrinterID:   req.PrinterID,
		Quantity:    quantity,
		TestPrint:   req.TestPrint,
		LabelWidth:  width,
		LabelHeight: height,
	}
	if err := s.jobs.Insert(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("print job enqueued",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.Int("quantity", job.Quantity),
		slog.Bool("test_print", job.TestPrint),
	)
	return job, nil
}

func (s *SubmissionService) resolveCommand(ctx context.Context, req SubmitRequest) (command string, width, height int, err error) {
	if req.TemplateID == 0 {
		if req.RawZPL == "" {
			return "", 0, 0, ErrNoCommand
		}
		return req.RawZPL, req.LabelWidth, req.LabelHeight, nil
	}

	tpl, err := s.templates.GetByID(ctx, req.TemplateID)
	if err != nil {
		return "", 0, 0, fmt.Errorf("resolve template %d: %w", req.TemplateID, err)
	}
	return tpl.RawZPL, tpl.Width, tpl.Height, nil
}
