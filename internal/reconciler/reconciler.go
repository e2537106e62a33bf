// Package reconciler periodically recomputes denormalized counters
// (follower, following, post, like and comment counts) from the rows they
// summarize.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/pulse-social/pulse/internal/config"
	"github.com/pulse-social/pulse/internal/repository"
	pkglog "github.com/pulse-social/pulse/pkg/log"
)

const defaultInterval = 5 * time.Minute

type pass struct {
	name string
	run  func(context.Context) (int64, error)
}

type Reconciler struct {
	passes     []pass
	interval   time.Duration
	runOnStart bool

	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

func New(repo repository.CounterRepository, cfg config.ReconcilerConfig) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Reconciler{
		passes: []pass{
			{name: "users", run: repo.ReconcileUserCounters},
			{name: "posts", run: repo.ReconcilePostCounters},
		},
		interval:   interval,
		runOnStart: cfg.RunOnStart,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs passes every interval until Stop or until ctx is done.
func (r *Reconciler) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop returns at once; wait on Done for the loop to exit.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}

func (r *Reconciler) loop(ctx context.Context) {
	defer close(r.done)

	if r.runOnStart {
		r.RunOnce(ctx)
	}

	tick := time.NewTicker(r.interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			r.RunOnce(ctx)
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs every pass and returns the number of rows corrected. A
// failed pass is logged and does not stop the others.
func (r *Reconciler) RunOnce(ctx context.Context) int64 {
	l := pkglog.L()
	began := time.Now()

	var fixed int64
	counts := l.Info()
	for _, p := range r.passes {
		n, err := p.run(ctx)
		if err != nil {
			l.Error().Err(err).Str("pass", p.name).Msg("reconciler: pass failed")
			continue
		}
		fixed += n
		counts = counts.Int64(p.name, n)
	}

	if fixed == 0 {
		counts.Discard()
		l.Debug().Dur("took", time.Since(began)).Msg("reconciler: counters consistent")
		return 0
	}
	counts.Dur("took", time.Since(began)).Msg("reconciler: corrected counter drift")
	return fixed
}
