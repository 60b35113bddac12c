// Package batch runs per-scene asset-generation jobs in concurrency-bounded
// windows. Jobs within a window run concurrently; the next window starts
// only after the previous one fully settles, with a short pacing delay in
// between to stay under upstream rate limits.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-video-studio/internal/gen"
	"github.com/fpang/ai-video-studio/internal/scene"
)

// Defaults match the generation pipeline's tuning: three concurrent Gemini
// calls, 200 ms between windows.
const (
	DefaultConcurrency = 3
	DefaultPause       = 200 * time.Millisecond
)

// ErrBusy is returned when a batch is already running.
var ErrBusy = errors.New("a generation batch is already running")

// Job is one unit of work: generate one asset for one scene. Run performs
// the generation and applies the result to the scene store; its error is
// captured at the job boundary and never aborts siblings.
type Job struct {
	SceneID int
	Kind    scene.AssetKind
	Run     func(ctx context.Context) error
}

// Report summarises a finished batch.
type Report struct {
	Total     int
	Succeeded int
	Failed    int

	// QuotaErr is the most recent quota-classified failure seen during the
	// batch, or nil. Quota exhaustion is surfaced once to the caller; it
	// does not abort remaining jobs.
	QuotaErr error
}

// Scheduler runs batches one at a time with windowed concurrency.
type Scheduler struct {
	concurrency int
	pause       time.Duration
	busy        atomic.Bool

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a scheduler with the given window size. Values below 1 fall
// back to the default.
func New(concurrency int) *Scheduler {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{
		concurrency: concurrency,
		pause:       DefaultPause,
		sleep:       sleepCtx,
	}
}

// Run executes jobs in windows of the configured concurrency. It mutates
// nothing itself; each job applies its own result. Only one batch may run
// at a time; a second call while one is active returns ErrBusy without
// touching any job.
func (s *Scheduler) Run(ctx context.Context, jobs []Job) (*Report, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	report := &Report{Total: len(jobs)}
	var mu sync.Mutex

	for start := 0; start < len(jobs); start += s.concurrency {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		end := start + s.concurrency
		if end > len(jobs) {
			end = len(jobs)
		}
		group := jobs[start:end]

		var wg sync.WaitGroup
		for _, job := range group {
			wg.Add(1)
			go func(job Job) {
				defer wg.Done()
				err := runJob(ctx, job)

				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					report.Succeeded++
					return
				}
				report.Failed++
				if gen.ClassOf(err) == gen.ClassQuota {
					// Most recent quota error wins.
					report.QuotaErr = err
				}
				log.Warn().
					Int("scene", job.SceneID).
					Stringer("kind", job.Kind).
					Err(err).
					Msg("Generation job failed")
			}(job)
		}
		wg.Wait()

		if end < len(jobs) {
			if err := s.sleep(ctx, s.pause); err != nil {
				return report, err
			}
		}
	}

	log.Info().
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Bool("quota_hit", report.QuotaErr != nil).
		Msg("Batch complete")

	return report, nil
}

// runJob confines panics and errors to the job boundary.
func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
