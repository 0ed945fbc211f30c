// Package workerpool implements the fixed-size pool of worker
// goroutines that claim ready jobs under a channel mask and run them to
// completion.
package workerpool

import (
	"context"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"flowjobs/internal/scheduler"
)

// pollFallback is how often a worker re-checks for ready work even if
// it never observed a wake signal — kept strictly as a fallback, not
// the primary signalling path.
const pollFallback = 100 * time.Millisecond

// Pool runs N named workers, each restricted to a channel mask, against
// a shared Scheduler.
type Pool struct {
	sched   *scheduler.Scheduler
	workers []workerSpec
	group   *errgroup.Group
	cancel  context.CancelFunc
}

type workerSpec struct {
	name string
	mask uint32
}

// New builds a pool with one worker per entry in masks (name -> channel
// mask).
func New(sched *scheduler.Scheduler, masks map[string]uint32) *Pool {
	p := &Pool{sched: sched}
	for name, mask := range masks {
		p.workers = append(p.workers, workerSpec{name: name, mask: mask})
	}
	return p
}

// DefaultSize returns the number of available CPUs minus one (minimum
// 1), a reasonable default worker count that leaves a core free for the
// scheduler and other housekeeping.
func DefaultSize() int {
	if n := runtime.NumCPU() - 1; n > 0 {
		return n
	}
	return 1
}

// Start launches every worker goroutine in an errgroup, so Stop can
// cancel them all and wait for each to exit in one place. Workers
// always return nil, so Wait never reports an error.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	p.group = g

	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			runWorker(gctx, p.sched, w.name, w.mask)
			return nil
		})
	}
}

// Stop cancels every worker's context and waits for them to exit.
func (p *Pool) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.group != nil {
		return p.group.Wait()
	}
	return nil
}

// runWorker implements the claim/execute/complete loop: claim a job
// under mask, execute it, run its completion hook, mark it complete in
// the scheduler, and claim again straight away. Only when nothing is
// claimable does it wait for either a wake signal or the poll fallback.
func runWorker(ctx context.Context, sched *scheduler.Scheduler, name string, mask uint32) {
	log := logrus.WithField("worker", name)
	log.Info("workerpool: worker starting")

	for {
		select {
		case <-ctx.Done():
			log.Info("workerpool: worker stopping")
			return
		default:
		}

		j, ok := sched.Claim(mask)
		if !ok {
			waitForWork(ctx, sched)
			continue
		}

		jobLog := log.WithField("job_id", j.ID()).WithField("job_type", j.Type())
		if err := j.Execute(ctx); err != nil {
			jobLog.WithError(err).Warn("workerpool: job execution reported an error")
		}
		j.OnComplete()

		if err := sched.MarkCompleted(ctx, j.ID()); err != nil {
			jobLog.WithError(err).Error("workerpool: failed to record job completion")
		}
	}
}

func waitForWork(ctx context.Context, sched *scheduler.Scheduler) {
	select {
	case <-ctx.Done():
	case <-sched.WakeChannel():
	case <-time.After(pollFallback):
	}
}
