package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/ferry/internal/job"
	"github.com/five82/ferry/internal/state"
)

const (
	defaultPollInterval = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// checker is the part of the tracker the poller drives.
type checker interface {
	Check(ctx context.Context, id uuid.UUID) (job.Job, error)
	MarkFailed(id uuid.UUID, reason string) (job.Job, bool)
	Store() *state.Store
}

type pollState struct {
	failures int
	next     time.Time
}

// Poller checks every confirmed, non-terminal job on a cadence, backing off
// per job on errors and failing jobs that exceed the timeout.
type Poller struct {
	target   checker
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	state map[uuid.UUID]*pollState
}

// NewPoller builds a poller. A non-positive interval uses the default; a
// non-positive timeout disables it.
func NewPoller(target checker, interval, timeout time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		target:   target,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		state:    make(map[uuid.UUID]*pollState),
	}
}

// Interval reports the base polling interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// Start runs the poller in a background goroutine until ctx is cancelled.
// It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	go p.Run(ctx)
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one pass over the job list and returns once every due check
// has finished.
func (p *Poller) Poll(ctx context.Context) {
	now := p.now()
	snap := p.target.Store().Snapshot()

	var wg sync.WaitGroup
	live := make(map[uuid.UUID]struct{}, len(snap.Jobs))
	for _, j := range snap.Jobs {
		if !awaiting(j) {
			continue
		}
		live[j.ID] = struct{}{}

		// Jobs without a download reference are never checked but still time out.
		if p.timeout > 0 && now.Sub(j.SubmittedAt) >= p.timeout {
			p.target.MarkFailed(j.ID, "poll timeout exceeded")
			continue
		}
		if j.DownloadURL == "" || !p.due(j.ID, now) {
			continue
		}

		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			_, err := p.target.Check(ctx, id)
			p.record(id, err)
		}(j.ID)
	}
	wg.Wait()

	p.prune(live)
}

// awaiting reports whether j has an upload response and is still waiting on
// the service.
func awaiting(j job.Job) bool {
	return j.Confirmed && !j.Status.Terminal()
}

func (p *Poller) due(id uuid.UUID, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.state[id]
	if !ok {
		return true
	}
	return !now.Before(s.next)
}

func (p *Poller) record(id uuid.UUID, err error) {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.state[id]
	if !ok {
		s = &pollState{}
		p.state[id] = s
	}
	if err != nil {
		s.failures++
		wait := calculateBackoff(s.failures, p.interval)
		s.next = now.Add(wait)
		p.logger.Debug("poll backing off", "job", id, "failures", s.failures, "wait", wait)
		return
	}
	s.failures = 0
	s.next = now.Add(p.interval)
}

func (p *Poller) prune(live map[uuid.UUID]struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.state {
		if _, ok := live[id]; !ok {
			delete(p.state, id)
		}
	}
}

// calculateBackoff returns base * 2^failures, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures < 0 {
		failures = 0
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
