package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/five82/ferry/internal/config"
	"github.com/five82/ferry/internal/job"
	"github.com/five82/ferry/internal/processor"
	"github.com/five82/ferry/internal/state"
	"github.com/five82/ferry/internal/telemetry"
)

var (
	// ErrJobNotFound is returned when an id is not in the session.
	ErrJobNotFound = errors.New("job not found")
	// ErrNotCompleted is returned when downloading a job that has not finished.
	ErrNotCompleted = errors.New("job not completed")
)

// Options configures a Tracker. Zero values select defaults.
type Options struct {
	CheckMode config.CheckMode
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Now       func() time.Time
}

// Tracker drives jobs through the processing service and records every
// response in the store.
type Tracker struct {
	svc     processor.Service
	store   *state.Store
	mode    config.CheckMode
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// New builds a tracker over svc and store.
func New(svc processor.Service, store *state.Store, opts Options) *Tracker {
	t := &Tracker{
		svc:     svc,
		store:   store,
		mode:    opts.CheckMode,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tracer:  telemetry.Tracer("ferry/tracker"),
		now:     opts.Now,
	}
	if t.mode == "" {
		t.mode = config.CheckStatus
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Store returns the job list the tracker writes to.
func (t *Tracker) Store() *state.Store { return t.store }

// Mode reports the configured check mode.
func (t *Tracker) Mode() config.CheckMode { return t.mode }

// Enqueue adds a pending job for path to the front of the list. An empty
// path is ignored and reports false.
func (t *Tracker) Enqueue(path string) (job.Job, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return job.Job{}, false
	}
	j := job.New(path, t.now())
	t.store.Add(j)
	t.publish()
	t.logger.Info("upload queued", "job", j.ID, "file", j.FileName)
	return j, true
}

// Submit enqueues path and uploads it. An empty path is a no-op: no request
// is made and the store is untouched.
func (t *Tracker) Submit(ctx context.Context, path string) (job.Job, bool) {
	j, ok := t.Enqueue(path)
	if !ok {
		return job.Job{}, false
	}
	updated, _ := t.Upload(ctx, j.ID)
	return updated, true
}

// Upload sends the job's file to the service. Every failure marks the job
// Failed with no download reference. The error is returned for logging only.
func (t *Tracker) Upload(ctx context.Context, id uuid.UUID) (job.Job, error) {
	current, ok := t.store.Get(id)
	if !ok {
		return job.Job{}, ErrJobNotFound
	}

	ctx, span := t.tracer.Start(ctx, "tracker.upload", trace.WithAttributes(
		attribute.String("ferry.job_id", id.String()),
		attribute.String("ferry.file", current.FileName),
	))
	defer span.End()

	start := t.now()
	resp, err := t.svc.Upload(ctx, current.LocalPath)
	t.metrics.ObserveUpload(t.now().Sub(start), err)

	updated, _ := t.update(id, func(j *job.Job) {
		j.Confirmed = true
		if err != nil {
			j.Status = job.StatusFailed
			j.Token = ""
			j.DownloadURL = ""
			j.RemoteJobID = ""
			return
		}
		j.ApplyToken(resp.Status)
		j.DownloadURL = strings.TrimSpace(resp.DownloadURL)
		j.RemoteJobID = resp.JobID()
	})
	t.publish()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		t.logger.Error("upload failed", "job", id, "file", current.FileName, "error", err)
		return updated, fmt.Errorf("upload %s: %w", current.FileName, err)
	}
	span.SetAttributes(attribute.String("ferry.token", resp.Status))
	t.logger.Info("upload accepted",
		"job", id,
		"file", current.FileName,
		"status", resp.Status,
		"remote_id", updated.RemoteJobID,
	)
	return updated, nil
}

// Check asks the service about one job using the configured mode. Only the
// targeted job changes. A failed request leaves the job as it was.
func (t *Tracker) Check(ctx context.Context, id uuid.UUID) (job.Job, error) {
	current, ok := t.store.Get(id)
	if !ok {
		return job.Job{}, ErrJobNotFound
	}
	if current.DownloadURL == "" {
		return current, processor.ErrNoDownloadURL
	}

	ctx, span := t.tracer.Start(ctx, "tracker.check", trace.WithAttributes(
		attribute.String("ferry.job_id", id.String()),
		attribute.String("ferry.check_mode", string(t.mode)),
	))
	defer span.End()

	var (
		apply func(*job.Job)
		err   error
	)
	switch t.mode {
	case config.CheckHead:
		apply, err = t.checkHead(ctx, current)
	default:
		apply, err = t.checkStatus(ctx, current)
	}
	t.metrics.ObserveCheck(string(t.mode), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check failed")
		t.logger.Warn("status check failed", "job", id, "mode", t.mode, "error", err)
		return current, fmt.Errorf("check %s: %w", current.FileName, err)
	}

	checkedAt := t.now()
	updated, _ := t.update(id, func(j *job.Job) {
		apply(j)
		j.Checks++
		j.CheckedAt = checkedAt
	})
	t.publish()

	if updated.Status != current.Status {
		t.logger.Info("job status changed",
			"job", id,
			"file", updated.FileName,
			"from", current.Label(),
			"to", updated.Label(),
		)
	} else {
		t.logger.Debug("job status unchanged", "job", id, "status", updated.Label())
	}
	return updated, nil
}

func (t *Tracker) checkHead(ctx context.Context, current job.Job) (func(*job.Job), error) {
	ready, err := t.svc.Head(ctx, current.DownloadURL)
	if err != nil {
		return nil, err
	}
	return func(j *job.Job) {
		if ready {
			j.Status = job.StatusCompleted
		}
	}, nil
}

func (t *Tracker) checkStatus(ctx context.Context, current job.Job) (func(*job.Job), error) {
	remoteID := current.RemoteJobID
	if remoteID == "" {
		remoteID = processor.JobIDFromDownloadURL(current.DownloadURL)
	}
	resp, err := t.svc.Status(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	return func(j *job.Job) {
		j.RemoteJobID = remoteID
		j.ApplyToken(resp.Status)
		if resp.Progress == nil {
			return
		}
		if j.Progress == nil {
			j.Progress = &job.Progress{}
		}
		j.Progress.Merge(toProgress(resp.Progress))
	}, nil
}

// Download fetches a completed job's artifact into dir and records the path.
// Jobs that are not Completed return ErrNotCompleted without a request.
func (t *Tracker) Download(ctx context.Context, id uuid.UUID, dir string) (job.Job, error) {
	current, ok := t.store.Get(id)
	if !ok {
		return job.Job{}, ErrJobNotFound
	}
	if current.Status != job.StatusCompleted {
		return current, ErrNotCompleted
	}
	if current.DownloadURL == "" {
		return current, processor.ErrNoDownloadURL
	}

	ctx, span := t.tracer.Start(ctx, "tracker.download", trace.WithAttributes(
		attribute.String("ferry.job_id", id.String()),
	))
	defer span.End()

	dest, err := t.fetch(ctx, current, dir)
	t.metrics.ObserveDownload(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		t.logger.Error("download failed", "job", id, "file", current.FileName, "error", err)
		return current, err
	}

	updated, _ := t.update(id, func(j *job.Job) {
		j.DownloadedTo = dest
	})
	t.publish()
	t.logger.Info("artifact downloaded", "job", id, "path", dest)
	return updated, nil
}

func (t *Tracker) fetch(ctx context.Context, j job.Job, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("download dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ferry-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	art, err := t.svc.Download(ctx, j.DownloadURL, tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close temp file: %w", closeErr)
	}
	if err != nil {
		cleanup()
		return "", err
	}

	name := art.Filename
	if name == "" {
		name = ProcessedName(j.FileName)
	}
	dest := filepath.Join(dir, name)
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return "", fmt.Errorf("move artifact: %w", err)
	}
	return dest, nil
}

// update applies fn to the stored job and stamps UpdatedAt from the
// tracker's clock.
func (t *Tracker) update(id uuid.UUID, fn func(*job.Job)) (job.Job, bool) {
	now := t.now()
	return t.store.Update(id, func(j *job.Job) {
		fn(j)
		j.UpdatedAt = now
	})
}

// MarkFailed forces a job to Failed, used when polling gives up.
func (t *Tracker) MarkFailed(id uuid.UUID, reason string) (job.Job, bool) {
	updated, ok := t.update(id, func(j *job.Job) {
		j.Status = job.StatusFailed
	})
	if !ok {
		return job.Job{}, false
	}
	t.publish()
	t.logger.Warn("job marked failed", "job", id, "file", updated.FileName, "reason", reason)
	return updated, true
}

// ProcessedName is the fallback artifact name for an uploaded file.
func ProcessedName(fileName string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "upload"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return stem + "-processed.csv"
}

func (t *Tracker) publish() {
	if t.metrics == nil {
		return
	}
	counts := t.store.Snapshot().Counts()
	byKey := make(map[string]int, len(counts))
	for status, n := range counts {
		byKey[status.Key()] = n
	}
	t.metrics.SetJobCounts(byKey)
}

func toProgress(p *processor.ProgressPayload) job.Progress {
	if p == nil {
		return job.Progress{}
	}
	return job.Progress{
		LinesProcessed: p.LinesProcessed,
		Departments:    p.Departments,
		ElapsedSeconds: p.TimeElapsed,
	}
}
