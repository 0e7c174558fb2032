package app

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/five82/ferry/internal/job"
	"github.com/five82/ferry/internal/processor"
	"github.com/five82/ferry/internal/state"
	"github.com/five82/ferry/internal/tracker"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type fakeService struct {
	mu        sync.Mutex
	token     string
	statusErr error
	statuses  int
	uploadErr error
	noURL     bool
}

func (f *fakeService) Upload(_ context.Context, path string) (processor.UploadResponse, error) {
	if f.uploadErr != nil {
		return processor.UploadResponse{}, f.uploadErr
	}
	if f.noURL {
		return processor.UploadResponse{Status: job.TokenPending}, nil
	}
	return processor.UploadResponse{Status: job.TokenPending, DownloadURL: "/download/" + filepath.Base(path)}, nil
}

func (f *fakeService) Status(_ context.Context, _ string) (processor.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses++
	if f.statusErr != nil {
		return processor.StatusResponse{}, f.statusErr
	}
	return processor.StatusResponse{Status: f.token}, nil
}

func (f *fakeService) Head(context.Context, string) (bool, error) { return false, nil }

func (f *fakeService) Download(_ context.Context, _ string, dst io.Writer) (processor.Artifact, error) {
	n, err := io.WriteString(dst, "Department Name,Total Number of Sales\n")
	return processor.Artifact{Bytes: int64(n)}, err
}

func (f *fakeService) set(token string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.statusErr = err
}

func (f *fakeService) statusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPoller(svc *fakeService, clk *clock, timeout time.Duration) (*tracker.Tracker, *Poller) {
	tr := tracker.New(svc, &state.Store{}, tracker.Options{Now: clk.Now})
	p := NewPoller(tr, 2*time.Second, timeout, nil)
	p.now = clk.Now
	return tr, p
}

func TestPoller_ChecksOnlyNonTerminalJobs(t *testing.T) {
	clk := &clock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	svc := &fakeService{token: job.TokenStarted}
	tr, p := newTestPoller(svc, clk, 0)

	active, _ := tr.Submit(context.Background(), "active.csv")
	svc.uploadErr = errors.New("refused")
	failed, _ := tr.Submit(context.Background(), "failed.csv")

	p.Poll(context.Background())

	if svc.statusCalls() != 1 {
		t.Fatalf("status calls = %d, want 1", svc.statusCalls())
	}
	got, _ := tr.Store().Get(active.ID)
	if got.Status != job.StatusProcessing {
		t.Fatalf("active status = %v, want Processing", got.Status)
	}
	if got, _ := tr.Store().Get(failed.ID); got.Checks != 0 {
		t.Fatalf("failed job was checked %d times", got.Checks)
	}

	svc.set(job.TokenSuccess, nil)
	clk.Advance(2 * time.Second)
	p.Poll(context.Background())
	clk.Advance(2 * time.Second)
	p.Poll(context.Background())

	if svc.statusCalls() != 2 {
		t.Fatalf("status calls = %d, want 2 (no checks after Completed)", svc.statusCalls())
	}
}

func TestPoller_BacksOffAfterErrors(t *testing.T) {
	clk := &clock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	svc := &fakeService{}
	svc.set("", errors.New("execute request: connection refused"))
	tr, p := newTestPoller(svc, clk, 0)
	j, _ := tr.Submit(context.Background(), "a.csv")

	p.Poll(context.Background())
	if svc.statusCalls() != 1 {
		t.Fatalf("status calls = %d, want 1", svc.statusCalls())
	}

	clk.Advance(2 * time.Second)
	p.Poll(context.Background())
	if svc.statusCalls() != 1 {
		t.Fatalf("status calls = %d, want 1 while backing off 4s", svc.statusCalls())
	}

	clk.Advance(2 * time.Second)
	p.Poll(context.Background())
	if svc.statusCalls() != 2 {
		t.Fatalf("status calls = %d, want 2 after backoff elapsed", svc.statusCalls())
	}

	got, _ := tr.Store().Get(j.ID)
	if got.Status != job.StatusPending {
		t.Fatalf("status = %v, want Pending unchanged by failed checks", got.Status)
	}
}

func TestPoller_TimeoutMarksFailed(t *testing.T) {
	clk := &clock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	svc := &fakeService{token: job.TokenRetry}
	tr, p := newTestPoller(svc, clk, 10*time.Minute)
	j, _ := tr.Submit(context.Background(), "slow.csv")

	p.Poll(context.Background())
	if got, _ := tr.Store().Get(j.ID); got.Status != job.StatusRetrying {
		t.Fatalf("status = %v, want Retrying", got.Status)
	}

	clk.Advance(10 * time.Minute)
	calls := svc.statusCalls()
	p.Poll(context.Background())

	got, _ := tr.Store().Get(j.ID)
	if got.Status != job.StatusFailed {
		t.Fatalf("status = %v, want Failed after timeout", got.Status)
	}
	if svc.statusCalls() != calls {
		t.Fatalf("status calls grew from %d to %d after timeout", calls, svc.statusCalls())
	}
}

func TestPoller_TimeoutCoversJobsWithoutDownloadURL(t *testing.T) {
	clk := &clock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	svc := &fakeService{token: job.TokenStarted, noURL: true}
	tr, p := newTestPoller(svc, clk, time.Minute)
	j, _ := tr.Submit(context.Background(), "nourl.csv")
	if j.DownloadURL != "" || j.Status != job.StatusPending {
		t.Fatalf("submitted job = %s url=%q, want Pending without url", j.Label(), j.DownloadURL)
	}

	p.Poll(context.Background())
	if got, _ := tr.Store().Get(j.ID); got.Status != job.StatusPending {
		t.Fatalf("status = %v, want Pending before timeout", got.Status)
	}

	clk.Advance(time.Minute)
	p.Poll(context.Background())

	got, _ := tr.Store().Get(j.ID)
	if got.Status != job.StatusFailed {
		t.Fatalf("status = %v, want Failed after timeout", got.Status)
	}
	if svc.statusCalls() != 0 {
		t.Fatalf("status calls = %d, want 0 for a job without a download reference", svc.statusCalls())
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	svc := &fakeService{token: job.TokenStarted}
	tr := tracker.New(svc, &state.Store{}, tracker.Options{})
	p := NewPoller(tr, 10*time.Millisecond, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
