// Package outreach wires the six automation modules, the budget governor,
// and the pacing engine into one orchestrator with a fixed start order and
// a single operational surface.
package outreach

import (
	"context"
	"fmt"
	"sync"

	"outreach_backend/internal/outreach/modules"
	"outreach_backend/platform/clock"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Orchestrator owns the module runners. Modules start in dependency order,
// discovery first so the pipeline fills from the top, reporting last, and
// stop in reverse. A module that fails to start is left in error while the
// rest keep running.
type Orchestrator struct {
	cfg     config.OrchestratorConfig
	clk     clock.Clock
	log     *logger.Logger
	runners []*modules.Runner
	byName  map[string]*modules.Runner

	mu      sync.Mutex
	started bool
}

// New builds the orchestrator over an already-constructed runner set. The
// slice order is the start order.
func New(cfg config.OrchestratorConfig, clk clock.Clock, log *logger.Logger, runners []*modules.Runner) *Orchestrator {
	byName := make(map[string]*modules.Runner, len(runners))
	for _, r := range runners {
		byName[r.Name()] = r
	}
	return &Orchestrator{
		cfg:     cfg,
		clk:     clk,
		log:     log.WithModule("orchestrator"),
		runners: runners,
		byName:  byName,
	}
}

// Start launches every module with a stagger between starts so the ticks do
// not align on one instant. Start errors are collected, not fatal: the
// orchestrator runs with whatever subset came up.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true

	var failed []string
	for i, runner := range o.runners {
		if i > 0 && o.cfg.GetStartStagger() > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-o.clk.After(o.cfg.GetStartStagger()):
			}
		}
		if err := runner.Start(ctx); err != nil {
			o.log.Error("module failed to start", "module", runner.Name(), "error", err)
			failed = append(failed, runner.Name())
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("modules failed to start: %v", failed)
	}
	o.log.Info("all modules started", "count", len(o.runners))
	return nil
}

// Stop halts modules in reverse start order, waiting for each in-flight
// tick so no send is cut off mid-flight.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return
	}

	for i := len(o.runners) - 1; i >= 0; i-- {
		o.runners[i].Stop()
	}
	o.started = false
	o.log.Info("all modules stopped")
}

// RunModule triggers one out-of-band cycle for the named module.
func (o *Orchestrator) RunModule(ctx context.Context, name string) error {
	runner, ok := o.byName[name]
	if !ok {
		return fmt.Errorf("unknown module %q", name)
	}
	return runner.RunOnce(ctx)
}

// PauseModule suspends the named module's scheduled ticks.
func (o *Orchestrator) PauseModule(name string) error {
	runner, ok := o.byName[name]
	if !ok {
		return fmt.Errorf("unknown module %q", name)
	}
	return runner.Pause()
}

// ResumeModule re-enables scheduled ticks for a paused module.
func (o *Orchestrator) ResumeModule(name string) error {
	runner, ok := o.byName[name]
	if !ok {
		return fmt.Errorf("unknown module %q", name)
	}
	return runner.Resume()
}

// Statuses returns every module's status in start order.
func (o *Orchestrator) Statuses() []modules.Status {
	out := make([]modules.Status, 0, len(o.runners))
	for _, runner := range o.runners {
		out = append(out, runner.Status())
	}
	return out
}

// Running reports whether the orchestrator has been started.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// ModuleNames lists the known module names in start order.
func (o *Orchestrator) ModuleNames() []string {
	names := make([]string, 0, len(o.runners))
	for _, runner := range o.runners {
		names = append(names, runner.Name())
	}
	return names
}
