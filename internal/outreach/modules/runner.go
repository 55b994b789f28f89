// Package modules contains the six automation strategies and the shared
// runner harness that schedules them. Each runner ticks on its own fixed
// interval, serializes its own execution, and absorbs all failures at the
// harness boundary so one module can never take down the others.
package modules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"outreach_backend/internal/events"
	"outreach_backend/platform/clock"
	"outreach_backend/platform/logger"
)

// State is the lifecycle state of one module runner.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateError   State = "error"
)

// Status is the last-published view of one module. It is rebuilt each tick
// and lost on restart, which is acceptable.
type Status struct {
	Name           string    `json:"name"`
	State          State     `json:"state"`
	LastCycleAt    time.Time `json:"lastCycleAt"`
	ProcessedToday int       `json:"processedToday"`
	SentToday      int       `json:"sentToday"`
	ErrorCount     int       `json:"errorCount"`
}

// Outcome reports what one tick accomplished.
type Outcome struct {
	Processed int
	Sent      int
}

// Strategy is one automation concern plugged into the runner harness.
type Strategy interface {
	Name() string
	Interval() time.Duration
	// Tick performs one bounded cycle: fetch a slice of eligible targets,
	// check each against state machine, pacing, and budget, and act on the
	// ones that pass. Tick must be safe to re-run; idempotency comes from
	// tags and link statuses, not from the caller.
	Tick(ctx context.Context) (Outcome, error)
}

// perTick bounds how long one cycle may run before its context expires.
const tickTimeout = 5 * time.Minute

// Runner schedules one strategy on its interval. All ticks and manual runs
// execute on a single goroutine, so a tick always finishes before its
// successor starts.
type Runner struct {
	strategy Strategy
	clk      clock.Clock
	bus      events.Bus
	log      *logger.Logger

	mu     sync.Mutex
	status Status
	day    time.Time
	paused bool

	cancel context.CancelFunc
	done   chan struct{}
	runNow chan chan error
}

// NewRunner wraps a strategy in the harness.
func NewRunner(strategy Strategy, clk clock.Clock, bus events.Bus, log *logger.Logger) *Runner {
	return &Runner{
		strategy: strategy,
		clk:      clk,
		bus:      bus,
		log:      log.WithModule(strategy.Name()),
		status:   Status{Name: strategy.Name(), State: StateStopped},
		runNow:   make(chan chan error),
	}
}

// Name returns the wrapped strategy's name.
func (r *Runner) Name() string {
	return r.strategy.Name()
}

// Start launches the tick loop. Starting a running module is an error.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return fmt.Errorf("module %s already running", r.strategy.Name())
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.status.State = StateRunning

	go r.loop(loopCtx, r.done)
	r.log.Info("module started", "interval", r.strategy.Interval().String())
	return nil
}

// Stop cancels pending timers and waits for any in-flight tick to complete,
// so counters and lead state are never left partially updated.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	r.mu.Lock()
	r.status.State = StateStopped
	r.paused = false
	r.mu.Unlock()
	r.log.Info("module stopped")
}

// Pause suspends scheduled ticks without tearing down the loop. Manual runs
// via RunOnce still execute. Pausing a stopped module is an error.
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return fmt.Errorf("module %s not running", r.strategy.Name())
	}
	r.paused = true
	r.status.State = StatePaused
	r.log.Info("module paused")
	return nil
}

// Resume re-enables scheduled ticks on a paused module.
func (r *Runner) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return fmt.Errorf("module %s not running", r.strategy.Name())
	}
	r.paused = false
	r.status.State = StateRunning
	r.log.Info("module resumed")
	return nil
}

func (r *Runner) isPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := r.clk.NewTicker(r.strategy.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if r.isPaused() {
				continue
			}
			r.executeTick(ctx)
		case reply := <-r.runNow:
			reply <- r.executeTick(ctx)
		}
	}
}

// RunOnce triggers one cycle out of band. If the loop is running the cycle
// is serialized with scheduled ticks; on a stopped module it executes
// directly.
func (r *Runner) RunOnce(ctx context.Context) error {
	r.mu.Lock()
	running := r.done != nil
	r.mu.Unlock()

	if !running {
		return r.executeTick(ctx)
	}

	reply := make(chan error, 1)
	select {
	case r.runNow <- reply:
		return <-reply
	case <-ctx.Done():
		return ctx.Err()
	}
}

// executeTick runs one cycle with panic isolation. The tick context is
// detached from the loop context so an in-flight send may complete and
// record its outcome even while the orchestrator is shutting down.
func (r *Runner) executeTick(ctx context.Context) (err error) {
	tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tickTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("module %s panicked: %v", r.strategy.Name(), rec)
		}
		if err != nil {
			r.recordFailure(err)
		}
	}()

	outcome, err := r.strategy.Tick(tickCtx)
	if err != nil {
		return err
	}

	r.recordSuccess(outcome)
	return nil
}

func (r *Runner) recordSuccess(outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rolloverLocked()

	switch {
	case r.done == nil:
		r.status.State = StateStopped
	case r.paused:
		r.status.State = StatePaused
	default:
		r.status.State = StateRunning
	}
	r.status.LastCycleAt = r.clk.Now()
	r.status.ProcessedToday += outcome.Processed
	r.status.SentToday += outcome.Sent
}

func (r *Runner) recordFailure(err error) {
	r.mu.Lock()
	r.rolloverLocked()
	r.status.State = StateError
	r.status.LastCycleAt = r.clk.Now()
	r.status.ErrorCount++
	r.mu.Unlock()

	r.log.Error("module tick failed", "error", err)
	if r.bus != nil {
		r.bus.Publish(context.Background(), events.ModuleErrored{
			BaseEvent: events.NewBaseEvent(),
			Module:    r.strategy.Name(),
			Error:     err.Error(),
		})
	}
}

// rolloverLocked resets the per-day counters when the accounting day
// changes. Callers must hold the mutex.
func (r *Runner) rolloverLocked() {
	now := r.clk.Now()
	if !r.day.IsZero() && clock.SameDay(r.day, now) {
		return
	}
	r.day = now
	r.status.ProcessedToday = 0
	r.status.SentToday = 0
}

// Status returns the module's last-published status without touching the
// strategy, so aggregation never blocks on a mid-tick module.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
