package tracker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/five82/ferry/internal/config"
	"github.com/five82/ferry/internal/job"
	"github.com/five82/ferry/internal/processor"
	"github.com/five82/ferry/internal/state"
	"github.com/five82/ferry/internal/telemetry"
)

type fakeService struct {
	mu sync.Mutex

	uploadResp  processor.UploadResponse
	uploadErr   error
	statusResp  map[string]processor.StatusResponse
	statusErr   error
	headReady   bool
	headErr     error
	artifact    processor.Artifact
	body        string
	downloadErr error
	onUpload    func()

	uploads   []string
	statuses  []string
	heads     []string
	downloads []string
}

func (f *fakeService) Upload(_ context.Context, path string) (processor.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	if f.onUpload != nil {
		f.onUpload()
	}
	return f.uploadResp, f.uploadErr
}

func (f *fakeService) Status(_ context.Context, id string) (processor.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, id)
	if f.statusErr != nil {
		return processor.StatusResponse{}, f.statusErr
	}
	return f.statusResp[id], nil
}

func (f *fakeService) Head(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads = append(f.heads, url)
	return f.headReady, f.headErr
}

func (f *fakeService) Download(_ context.Context, url string, dst io.Writer) (processor.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, url)
	if f.downloadErr != nil {
		return processor.Artifact{}, f.downloadErr
	}
	n, _ := io.WriteString(dst, f.body)
	art := f.artifact
	art.Bytes = int64(n)
	return art, nil
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads) + len(f.statuses) + len(f.heads) + len(f.downloads)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func newTracker(svc processor.Service, mode config.CheckMode) *Tracker {
	return New(svc, &state.Store{}, Options{CheckMode: mode})
}

func TestSubmit_EmptyPathIsNoop(t *testing.T) {
	svc := &fakeService{}
	tr := newTracker(svc, config.CheckStatus)

	for _, path := range []string{"", "   "} {
		if _, ok := tr.Submit(context.Background(), path); ok {
			t.Fatalf("Submit(%q) reported ok, want no-op", path)
		}
	}
	if svc.calls() != 0 {
		t.Fatalf("service calls = %d, want 0", svc.calls())
	}
	snap := tr.Store().Snapshot()
	if len(snap.Jobs) != 0 || snap.Version != 0 {
		t.Fatalf("store changed: %d jobs, version %d", len(snap.Jobs), snap.Version)
	}
}

func TestSubmit_SuccessYieldsCompletedWithDownload(t *testing.T) {
	svc := &fakeService{uploadResp: processor.UploadResponse{
		Status:      job.TokenSuccess,
		DownloadURL: "http://localhost:8000/download/abc-123",
	}}
	tr := newTracker(svc, config.CheckStatus)

	j, ok := tr.Submit(context.Background(), "/data/sales.csv")
	if !ok {
		t.Fatalf("Submit returned ok=false")
	}
	if j.Label() != "Completed" || !j.HasDownload() {
		t.Fatalf("job = %q download=%q, want Completed with download", j.Label(), j.DownloadURL)
	}
	if j.RemoteJobID != "abc-123" || !j.Confirmed {
		t.Fatalf("remote id/confirmed = %q/%v, want abc-123/true", j.RemoteJobID, j.Confirmed)
	}
	if len(svc.uploads) != 1 || svc.uploads[0] != "/data/sales.csv" {
		t.Fatalf("uploads = %v, want one for /data/sales.csv", svc.uploads)
	}
}

func TestSubmit_UnknownTokenShownVerbatim(t *testing.T) {
	svc := &fakeService{uploadResp: processor.UploadResponse{Status: "REVOKED", DownloadURL: "/download/x"}}
	tr := newTracker(svc, config.CheckStatus)

	j, _ := tr.Submit(context.Background(), "a.csv")
	if j.Status != job.StatusUnknown || j.Label() != "REVOKED" {
		t.Fatalf("label = %q (%v), want REVOKED verbatim", j.Label(), j.Status)
	}
}

func TestSubmit_NetworkFailureMarksFailed(t *testing.T) {
	svc := &fakeService{
		uploadResp: processor.UploadResponse{Status: job.TokenSuccess, DownloadURL: "/download/ignored"},
		uploadErr:  errors.New("execute request: connection refused"),
	}
	tr := newTracker(svc, config.CheckStatus)

	j, ok := tr.Submit(context.Background(), "a.csv")
	if !ok {
		t.Fatalf("Submit returned ok=false")
	}
	if j.Label() != "Failed" || j.DownloadURL != "" || j.RemoteJobID != "" {
		t.Fatalf("job = %q url=%q id=%q, want Failed without download", j.Label(), j.DownloadURL, j.RemoteJobID)
	}
	stored, _ := tr.Store().Get(j.ID)
	if stored.Status != job.StatusFailed {
		t.Fatalf("stored status = %v, want Failed", stored.Status)
	}
}

func TestUpload_ReturnsWrappedErrorAndUnknownID(t *testing.T) {
	cause := errors.New("boom")
	tr := newTracker(&fakeService{uploadErr: cause}, config.CheckStatus)

	j, _ := tr.Enqueue("b.csv")
	if _, err := tr.Upload(context.Background(), j.ID); !errors.Is(err, cause) {
		t.Fatalf("Upload error = %v, want wrapped cause", err)
	}
	if _, err := tr.Upload(context.Background(), uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Upload unknown error = %v, want ErrJobNotFound", err)
	}
}

func TestSubmit_NewestFirst(t *testing.T) {
	svc := &fakeService{uploadResp: processor.UploadResponse{Status: job.TokenPending, DownloadURL: "/download/1"}}
	tr := newTracker(svc, config.CheckStatus)

	first, _ := tr.Submit(context.Background(), "first.csv")
	second, _ := tr.Submit(context.Background(), "second.csv")

	jobs := tr.Store().Snapshot().Jobs
	if len(jobs) != 2 || jobs[0].ID != second.ID || jobs[1].ID != first.ID {
		t.Fatalf("order = %v, want newest first", jobs)
	}
}

func TestCheck_StatusModeMergesProgressAndTargetsOneJob(t *testing.T) {
	svc := &fakeService{
		uploadResp: processor.UploadResponse{Status: job.TokenPending, DownloadURL: "/download/job-a"},
		statusResp: map[string]processor.StatusResponse{
			"job-a": {Status: job.TokenStarted, Progress: &processor.ProgressPayload{
				LinesProcessed: intPtr(1200),
				TimeElapsed:    floatPtr(1.5),
			}},
		},
	}
	tr := newTracker(svc, config.CheckStatus)

	a, _ := tr.Submit(context.Background(), "a.csv")
	svc.uploadResp.DownloadURL = "/download/job-b"
	b, _ := tr.Submit(context.Background(), "b.csv")
	before, _ := tr.Store().Get(b.ID)

	updated, err := tr.Check(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if updated.Status != job.StatusProcessing || updated.Checks != 1 || updated.CheckedAt.IsZero() {
		t.Fatalf("updated = %v checks=%d, want Processing after one check", updated.Status, updated.Checks)
	}
	if updated.Progress.LinesText() != "1200" || updated.Progress.DepartmentsText() != "" || updated.Progress.ElapsedText() != "1.50" {
		t.Fatalf("progress = %q/%q/%q", updated.Progress.LinesText(), updated.Progress.DepartmentsText(), updated.Progress.ElapsedText())
	}
	if len(svc.statuses) != 1 || svc.statuses[0] != "job-a" {
		t.Fatalf("status calls = %v, want [job-a]", svc.statuses)
	}

	after, _ := tr.Store().Get(b.ID)
	if after.Status != before.Status || after.Checks != before.Checks || after.UpdatedAt != before.UpdatedAt {
		t.Fatalf("untargeted job changed: before %+v after %+v", before, after)
	}

	svc.statusResp["job-a"] = processor.StatusResponse{Status: job.TokenSuccess, Progress: &processor.ProgressPayload{
		Departments: intPtr(4),
	}}
	updated, err = tr.Check(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("second Check returned error: %v", err)
	}
	if updated.Label() != "Completed" || updated.Checks != 2 {
		t.Fatalf("second check = %q checks=%d", updated.Label(), updated.Checks)
	}
	if updated.Progress.LinesText() != "1200" || updated.Progress.DepartmentsText() != "4" {
		t.Fatalf("merged progress = %q/%q, want 1200/4", updated.Progress.LinesText(), updated.Progress.DepartmentsText())
	}
}

func TestCheck_HeadModePromotesOnReady(t *testing.T) {
	svc := &fakeService{uploadResp: processor.UploadResponse{Status: job.TokenPending, DownloadURL: "/download/h"}}
	tr := newTracker(svc, config.CheckHead)
	j, _ := tr.Submit(context.Background(), "h.csv")

	got, err := tr.Check(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if got.Status != job.StatusPending || got.Checks != 1 {
		t.Fatalf("not-ready check = %v checks=%d, want Pending/1", got.Status, got.Checks)
	}

	svc.headReady = true
	got, err = tr.Check(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if got.Status != job.StatusCompleted {
		t.Fatalf("ready check = %v, want Completed", got.Status)
	}
	if len(svc.heads) != 2 || len(svc.statuses) != 0 {
		t.Fatalf("heads=%d statuses=%d, want 2/0", len(svc.heads), len(svc.statuses))
	}
}

func TestCheck_FailureLeavesJobUnchanged(t *testing.T) {
	svc := &fakeService{uploadResp: processor.UploadResponse{Status: job.TokenStarted, DownloadURL: "/download/z"}}
	tr := newTracker(svc, config.CheckStatus)
	j, _ := tr.Submit(context.Background(), "z.csv")
	before, _ := tr.Store().Get(j.ID)

	svc.statusErr = errors.New("execute request: timeout")
	if _, err := tr.Check(context.Background(), j.ID); err == nil {
		t.Fatalf("Check returned nil error, want failure")
	}
	after, _ := tr.Store().Get(j.ID)
	if after.Status != before.Status || after.Checks != before.Checks || after.UpdatedAt != before.UpdatedAt {
		t.Fatalf("job changed after failed check: %+v", after)
	}
}

func TestCheck_RequiresDownloadReference(t *testing.T) {
	svc := &fakeService{uploadErr: errors.New("down")}
	tr := newTracker(svc, config.CheckStatus)
	j, _ := tr.Submit(context.Background(), "x.csv")

	if _, err := tr.Check(context.Background(), j.ID); !errors.Is(err, processor.ErrNoDownloadURL) {
		t.Fatalf("Check error = %v, want ErrNoDownloadURL", err)
	}
	if _, err := tr.Check(context.Background(), uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Check unknown error = %v, want ErrJobNotFound", err)
	}
	if len(svc.statuses) != 0 {
		t.Fatalf("status calls = %d, want 0", len(svc.statuses))
	}
}

func TestDownload_NotCompletedMakesNoRequest(t *testing.T) {
	svc := &fakeService{uploadResp: processor.UploadResponse{Status: job.TokenStarted, DownloadURL: "/download/p"}}
	tr := newTracker(svc, config.CheckStatus)
	j, _ := tr.Submit(context.Background(), "p.csv")

	if _, err := tr.Download(context.Background(), j.ID, t.TempDir()); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("Download error = %v, want ErrNotCompleted", err)
	}
	if len(svc.downloads) != 0 {
		t.Fatalf("downloads = %d, want 0", len(svc.downloads))
	}
}

func TestDownload_WritesArtifact(t *testing.T) {
	svc := &fakeService{
		uploadResp: processor.UploadResponse{Status: job.TokenSuccess, DownloadURL: "/download/d"},
		body:       "Department Name,Total Number of Sales\nBeauty,924\n",
	}
	tr := newTracker(svc, config.CheckStatus)
	j, _ := tr.Submit(context.Background(), "/in/sales.csv")
	dir := filepath.Join(t.TempDir(), "out")

	got, err := tr.Download(context.Background(), j.ID, dir)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	want := filepath.Join(dir, "sales-processed.csv")
	if got.DownloadedTo != want {
		t.Fatalf("DownloadedTo = %q, want %q", got.DownloadedTo, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "Department Name") {
		t.Fatalf("artifact = %q", data)
	}

	svc.artifact.Filename = "server-name.csv"
	got, err = tr.Download(context.Background(), j.ID, dir)
	if err != nil {
		t.Fatalf("second Download returned error: %v", err)
	}
	if filepath.Base(got.DownloadedTo) != "server-name.csv" {
		t.Fatalf("DownloadedTo = %q, want server-name.csv", got.DownloadedTo)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestDownload_FailureCleansUp(t *testing.T) {
	svc := &fakeService{
		uploadResp:  processor.UploadResponse{Status: job.TokenSuccess, DownloadURL: "/download/e"},
		downloadErr: errors.New("download returned status 500"),
	}
	tr := newTracker(svc, config.CheckStatus)
	j, _ := tr.Submit(context.Background(), "e.csv")
	dir := t.TempDir()

	got, err := tr.Download(context.Background(), j.ID, dir)
	if err == nil {
		t.Fatalf("Download returned nil error")
	}
	if got.DownloadedTo != "" {
		t.Fatalf("DownloadedTo = %q, want empty", got.DownloadedTo)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("download dir has %d entries, want 0", len(entries))
	}
}

func TestMarkFailed(t *testing.T) {
	svc := &fakeService{uploadResp: processor.UploadResponse{Status: job.TokenRetry, DownloadURL: "/download/r"}}
	tr := newTracker(svc, config.CheckStatus)
	j, _ := tr.Submit(context.Background(), "r.csv")

	got, ok := tr.MarkFailed(j.ID, "poll timeout")
	if !ok || got.Status != job.StatusFailed {
		t.Fatalf("MarkFailed = %v/%v, want Failed", got.Status, ok)
	}
	if _, ok := tr.MarkFailed(uuid.New(), "x"); ok {
		t.Fatalf("MarkFailed unknown id reported ok")
	}
}

func TestProcessedName(t *testing.T) {
	cases := map[string]string{
		"sales.csv":        "sales-processed.csv",
		"/tmp/q3.data.csv": "q3.data-processed.csv",
		"noext":            "noext-processed.csv",
		"":                 "upload-processed.csv",
		".hidden":          ".hidden-processed.csv",
	}
	for in, want := range cases {
		if got := ProcessedName(in); got != want {
			t.Fatalf("ProcessedName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetricsRecorded(t *testing.T) {
	m := telemetry.NewMetrics()
	svc := &fakeService{
		uploadResp: processor.UploadResponse{Status: job.TokenPending, DownloadURL: "/download/m"},
		statusResp: map[string]processor.StatusResponse{"m": {Status: job.TokenPending}},
	}
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	tr := New(svc, &state.Store{}, Options{Metrics: m, Now: func() time.Time { return now }})

	j, _ := tr.Submit(context.Background(), "m.csv")
	_, _ = tr.Check(context.Background(), j.ID)

	expected := `
# HELP ferry_uploads_total CSV uploads submitted to the processing service.
# TYPE ferry_uploads_total counter
ferry_uploads_total{result="ok"} 1
# HELP ferry_checks_total Job status checks by mode.
# TYPE ferry_checks_total counter
ferry_checks_total{mode="status",result="ok"} 1
# HELP ferry_jobs Jobs in the session by status.
# TYPE ferry_jobs gauge
ferry_jobs{status="pending"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"ferry_uploads_total", "ferry_checks_total", "ferry_jobs"); err != nil {
		t.Fatalf("metrics mismatch: %v", err)
	}
}

func TestUploadDurationAndUpdatedAtUseClock(t *testing.T) {
	m := telemetry.NewMetrics()
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	svc := &fakeService{
		uploadResp: processor.UploadResponse{Status: job.TokenPending, DownloadURL: "/download/c"},
		statusResp: map[string]processor.StatusResponse{"c": {Status: job.TokenPending}},
	}
	svc.onUpload = func() { now = now.Add(3 * time.Second) }
	tr := New(svc, &state.Store{}, Options{Metrics: m, Now: func() time.Time { return now }})

	j, _ := tr.Submit(context.Background(), "c.csv")
	uploaded := time.Date(2026, 10, 14, 9, 0, 3, 0, time.UTC)
	if !j.UpdatedAt.Equal(uploaded) {
		t.Fatalf("UpdatedAt after upload = %v, want %v", j.UpdatedAt, uploaded)
	}

	now = now.Add(time.Minute)
	checked, _ := tr.Check(context.Background(), j.ID)
	if !checked.UpdatedAt.Equal(uploaded.Add(time.Minute)) {
		t.Fatalf("UpdatedAt after check = %v, want %v", checked.UpdatedAt, uploaded.Add(time.Minute))
	}

	expected := `
# HELP ferry_upload_duration_seconds Upload request latency in seconds.
# TYPE ferry_upload_duration_seconds histogram
ferry_upload_duration_seconds_bucket{le="0.05"} 0
ferry_upload_duration_seconds_bucket{le="0.1"} 0
ferry_upload_duration_seconds_bucket{le="0.25"} 0
ferry_upload_duration_seconds_bucket{le="0.5"} 0
ferry_upload_duration_seconds_bucket{le="1"} 0
ferry_upload_duration_seconds_bucket{le="2"} 0
ferry_upload_duration_seconds_bucket{le="5"} 1
ferry_upload_duration_seconds_bucket{le="10"} 1
ferry_upload_duration_seconds_bucket{le="30"} 1
ferry_upload_duration_seconds_bucket{le="+Inf"} 1
ferry_upload_duration_seconds_sum 3
ferry_upload_duration_seconds_count 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"ferry_upload_duration_seconds"); err != nil {
		t.Fatalf("upload duration mismatch: %v", err)
	}
}
