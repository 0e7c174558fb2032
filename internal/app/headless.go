package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/ferry/internal/job"
	"github.com/five82/ferry/internal/state"
	"github.com/five82/ferry/internal/tracker"
)

// ErrJobsFailed is returned by headless runs when at least one job failed.
var ErrJobsFailed = errors.New("one or more uploads failed")

type headlessOptions struct {
	Tracker     *tracker.Tracker
	Poller      *Poller
	Files       []string
	Download    bool
	DownloadDir string
	Out         io.Writer
}

func runHeadless(ctx context.Context, opts headlessOptions) error {
	files := make([]string, 0, len(opts.Files))
	for _, f := range opts.Files {
		if strings.TrimSpace(f) != "" {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return errors.New("no files to submit")
	}

	printer := newTransitionPrinter(opts.Out)
	store := opts.Tracker.Store()

	var wg sync.WaitGroup
	for _, f := range files {
		j, ok := opts.Tracker.Enqueue(f)
		if !ok {
			continue
		}
		printer.observe(j)
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			updated, _ := opts.Tracker.Upload(ctx, id)
			printer.observe(updated)
		}(j.ID)
	}
	wg.Wait()

	interval := opts.Poller.Interval()
	for !allTerminal(store.Snapshot()) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		opts.Poller.Poll(ctx)
		for _, j := range store.Snapshot().Jobs {
			printer.observe(j)
		}
	}

	snap := store.Snapshot()
	failed := 0
	for _, j := range snap.Jobs {
		if j.Status == job.StatusFailed {
			failed++
			continue
		}
		if !opts.Download || !j.HasDownload() {
			continue
		}
		updated, err := opts.Tracker.Download(ctx, j.ID, opts.DownloadDir)
		if err != nil {
			printer.printf("%s\tdownload failed: %v\n", j.FileName, err)
			continue
		}
		printer.printf("%s\tsaved %s\n", updated.FileName, updated.DownloadedTo)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrJobsFailed, failed, len(snap.Jobs))
	}
	return nil
}

func allTerminal(snap state.Snapshot) bool {
	for _, j := range snap.Jobs {
		if !j.Status.Terminal() {
			return false
		}
	}
	return true
}

// transitionPrinter writes one line each time a job's label changes.
type transitionPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	seen map[uuid.UUID]string
}

func newTransitionPrinter(out io.Writer) *transitionPrinter {
	return &transitionPrinter{out: out, seen: make(map[uuid.UUID]string)}
}

func (p *transitionPrinter) observe(j job.Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	label := j.Label()
	if p.seen[j.ID] == label {
		return
	}
	p.seen[j.ID] = label
	line := j.FileName + "\t" + label
	if j.Progress != nil && j.Progress.LinesText() != "" {
		line += "\tlines=" + j.Progress.LinesText()
	}
	fmt.Fprintln(p.out, line)
}

func (p *transitionPrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}
