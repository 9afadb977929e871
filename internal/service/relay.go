// Package service implements the message handler: it classifies chat events,
// runs accepted PDFs through download, page count and print submission, and
// reports every outcome to the sender and to the admin chat.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"printbot/internal/model"
	"printbot/internal/printer"
	"printbot/internal/storage"
	"printbot/internal/transport"
)

// ArchivePrefix is the object key prefix printed files are mirrored under.
const ArchivePrefix = "uploads"

// Recorder receives pipeline measurements.
type Recorder interface {
	Observe(outcome string, pages uint, took time.Duration)
	ArchiveFailed()
	ReportFailed()
}

type noopRecorder struct{}

func (noopRecorder) Observe(string, uint, time.Duration) {}
func (noopRecorder) ArchiveFailed()                      {}
func (noopRecorder) ReportFailed()                       {}

// RelayConfig wires the relay's collaborators.
// Archive, Recorder, Location and Logger are optional.
type RelayConfig struct {
	Transport   transport.Transport
	PageCounter printer.PageCounter
	Submitter   printer.Submitter
	Uploads     *storage.UploadDir
	Archive     storage.ObjectStore
	Recorder    Recorder
	Admin       model.Destination
	Location    *time.Location
	Logger      *slog.Logger
}

// Relay processes chat events one at a time.
type Relay struct {
	transport transport.Transport
	counter   printer.PageCounter
	submitter printer.Submitter
	uploads   *storage.UploadDir
	archive   storage.ObjectStore
	recorder  Recorder
	admin     model.Destination
	loc       *time.Location
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewRelay validates cfg and builds a Relay.
func NewRelay(cfg RelayConfig) (*Relay, error) {
	var errs []error
	if cfg.Transport == nil {
		errs = append(errs, errors.New("transport is required"))
	}
	if cfg.PageCounter == nil {
		errs = append(errs, errors.New("page counter is required"))
	}
	if cfg.Submitter == nil {
		errs = append(errs, errors.New("print submitter is required"))
	}
	if cfg.Uploads == nil {
		errs = append(errs, errors.New("upload directory is required"))
	}
	if cfg.Admin.IsZero() {
		errs = append(errs, errors.New("admin destination is required"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	r := &Relay{
		transport: cfg.Transport,
		counter:   cfg.PageCounter,
		submitter: cfg.Submitter,
		uploads:   cfg.Uploads,
		archive:   cfg.Archive,
		recorder:  cfg.Recorder,
		admin:     cfg.Admin,
		loc:       cfg.Location,
		logger:    cfg.Logger,
		tracer:    otel.Tracer("printbot/internal/service"),
	}
	if r.recorder == nil {
		r.recorder = noopRecorder{}
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Classify decides whether ev carries a printable attachment.
// It returns the attachment for PDFs and the matching failure otherwise.
func Classify(ev model.Event) (*model.Attachment, model.Failure) {
	switch {
	case !ev.HasContent:
		return nil, model.UnrecognizedEvent{}
	case ev.Document == nil:
		return nil, model.NoDocument{}
	case ev.Document.MIMEType != model.MIMETypePDF:
		return nil, model.WrongFileType{MIMEType: ev.Document.MIMEType}
	}
	return ev.Document, nil
}

// Run consumes events sequentially until ctx is cancelled or events is closed.
// Report failures are logged and never stop the loop.
func (r *Relay) Run(ctx context.Context, events <-chan model.Event) error {
	r.logger.Info("relay_started", "upload_dir", r.uploads.Path(), "admin_chat", r.admin.String())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay_stopped", "reason", ctx.Err().Error())
			return nil
		case ev, ok := <-events:
			if !ok {
				r.logger.Info("relay_stopped", "reason", "event stream closed")
				return nil
			}
			if err := r.Handle(ctx, ev); err != nil {
				r.recorder.ReportFailed()
				r.logger.Error("report_failed",
					"update_id", ev.UpdateID,
					"chat_id", ev.Chat.String(),
					"error", err.Error(),
				)
			}
		}
	}
}

// Handle runs one event through the pipeline and reports the outcome.
// The returned error is only ever a report delivery failure.
func (r *Relay) Handle(ctx context.Context, ev model.Event) error {
	jobID := uuid.NewString()
	sender := ev.SenderIdentity()
	logger := r.logger.With(
		"job_id", jobID,
		"update_id", ev.UpdateID,
		"chat_id", ev.Chat.String(),
		"sender", sender,
	)

	ctx, span := r.tracer.Start(ctx, "relay.handle", trace.WithAttributes(
		attribute.String("job_id", jobID),
		attribute.Int64("update_id", ev.UpdateID),
		attribute.String("sender", sender),
	))
	defer span.End()

	start := time.Now()
	job, failure := r.Process(ctx, ev)
	took := time.Since(start)

	if failure != nil {
		span.SetAttributes(attribute.String("outcome", string(failure.Kind())))
		span.SetStatus(codes.Error, string(failure.Kind()))
		r.recorder.Observe(string(failure.Kind()), 0, took)
		logger.Warn("event_rejected",
			"kind", string(failure.Kind()),
			"error", failure.Error(),
			"duration_ms", took.Milliseconds(),
		)
		if err := r.reportFailure(ctx, ev.Chat, sender, failure); err != nil {
			span.RecordError(err)
			return err
		}
		return nil
	}

	span.SetAttributes(
		attribute.String("outcome", string(model.KindSuccess)),
		attribute.Int64("pages", int64(job.Pages)),
	)
	r.recorder.Observe(string(model.KindSuccess), job.Pages, took)
	logger.Info("print_submitted",
		"path", job.Path,
		"pages", job.Pages,
		"printer_job_id", job.PrinterJobID,
		"duration_ms", took.Milliseconds(),
	)

	r.mirror(ctx, logger, sender, job)

	if err := r.reportSuccess(ctx, ev.Chat, sender, job); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Process classifies ev and, for PDFs, runs the pipeline steps in order.
// It sends nothing.
func (r *Relay) Process(ctx context.Context, ev model.Event) (model.PrintJob, model.Failure) {
	doc, failure := Classify(ev)
	if failure != nil {
		return model.PrintJob{}, failure
	}

	originalName := doc.FileName
	if originalName == "" {
		originalName = model.DefaultFileName
	}
	name := model.StoredFileName(ev.Timestamp, r.loc, ev.SenderIdentity(), doc.FileName)

	localPath, failure := r.fetch(ctx, doc.FileID, name)
	if failure != nil {
		return model.PrintJob{}, failure
	}

	pages, err := r.counter.CountPages(ctx, localPath)
	if err != nil {
		return model.PrintJob{}, model.PageCountFailed{Cause: err}
	}

	sub, err := r.submitter.Submit(ctx, localPath)
	if err != nil {
		return model.PrintJob{}, model.PrintSubmissionFailed{Cause: err}
	}

	return model.PrintJob{
		Pages:        pages,
		FileName:     originalName,
		Path:         localPath,
		PrinterJobID: sub.JobID,
	}, nil
}

// fetch stages the local file, resolves the remote descriptor and downloads
// into it. The file only appears under name once every byte has arrived.
func (r *Relay) fetch(ctx context.Context, fileID, name string) (string, model.Failure) {
	ctx, span := r.tracer.Start(ctx, "relay.fetch", trace.WithAttributes(
		attribute.String("file_id", fileID),
		attribute.String("file_name", name),
	))
	defer span.End()

	staged, err := r.uploads.Stage(name)
	if err != nil {
		span.RecordError(err)
		return "", model.DownloadFailed{Cause: err}
	}
	defer staged.Discard()

	fd, err := r.transport.FileDescriptor(ctx, fileID)
	if err != nil {
		span.RecordError(err)
		return "", model.TransportRequestFailed{Cause: err}
	}

	if err := r.transport.Download(ctx, fd, staged); err != nil {
		span.RecordError(err)
		return "", model.DownloadFailed{Cause: err}
	}

	localPath, err := staged.Commit()
	if err != nil {
		span.RecordError(err)
		return "", model.DownloadFailed{Cause: err}
	}
	return localPath, nil
}

func (r *Relay) reportSuccess(ctx context.Context, chat model.Destination, sender string, job model.PrintJob) error {
	text := job.SuccessMessage()
	if err := r.transport.Send(ctx, chat, text); err != nil {
		return fmt.Errorf("notify user: %w", err)
	}
	if err := r.transport.Send(ctx, r.admin, sender+": "+text); err != nil {
		return fmt.Errorf("notify admin: %w", err)
	}
	return nil
}

func (r *Relay) reportFailure(ctx context.Context, chat model.Destination, sender string, failure model.Failure) error {
	if err := r.transport.Send(ctx, r.admin, sender+": "+failure.AdminMessage()); err != nil {
		return fmt.Errorf("notify admin: %w", err)
	}
	if err := r.transport.Send(ctx, chat, failure.UserMessage()); err != nil {
		return fmt.Errorf("notify user: %w", err)
	}
	return nil
}

// mirror uploads a printed file to the archive. Failures are logged only.
func (r *Relay) mirror(ctx context.Context, logger *slog.Logger, sender string, job model.PrintJob) {
	if r.archive == nil {
		return
	}
	if err := r.upload(ctx, sender, job); err != nil {
		r.recorder.ArchiveFailed()
		logger.Warn("archive_failed", "path", job.Path, "error", err.Error())
	}
}

func (r *Relay) upload(ctx context.Context, sender string, job model.PrintJob) error {
	f, err := os.Open(job.Path)
	if err != nil {
		return fmt.Errorf("open stored file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat stored file: %w", err)
	}

	key := path.Join(ArchivePrefix, filepath.Base(job.Path))
	_, err = r.archive.Put(ctx, key, f, storage.PutObjectOptions{
		Size:        info.Size(),
		ContentType: model.MIMETypePDF,
		Metadata: map[string]string{
			"original-filename": job.FileName,
			"sender":            sender,
			"pages":             strconv.FormatUint(uint64(job.Pages), 10),
		},
	})
	if err != nil {
		return fmt.Errorf("upload to archive: %w", err)
	}
	return nil
}
