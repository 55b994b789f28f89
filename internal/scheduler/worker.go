package scheduler

import (
	"context"
	"fmt"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ModuleRunner is the slice of the orchestrator the worker consumes.
type ModuleRunner interface {
	RunModule(ctx context.Context, name string) error
}

// Worker consumes queued orchestrator tasks. It runs inside the same
// process as the orchestrator so module cycles stay serialized with the
// scheduled ticks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner ModuleRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner ModuleRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log.WithModule("scheduler"),
	}

	mux.HandleFunc(TaskModuleRun, w.handleModuleRun)
	mux.HandleFunc(TaskDigest, w.handleDigest)

	return w, nil
}

func (w *Worker) handleModuleRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseModuleRunPayload(task)
	if err != nil {
		return err
	}
	if payload.Module == "" {
		return fmt.Errorf("module run task missing module name")
	}

	w.log.Info("queued module run", "module", payload.Module, "requestedBy", payload.RequestedBy)
	if err := w.runner.RunModule(ctx, payload.Module); err != nil {
		return fmt.Errorf("run module %s: %w", payload.Module, err)
	}
	return nil
}

func (w *Worker) handleDigest(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDigestPayload(task)
	if err != nil {
		return err
	}

	w.log.Info("queued digest", "requestedFor", payload.RequestedFor)
	if err := w.runner.RunModule(ctx, "client_success"); err != nil {
		return fmt.Errorf("run digest: %w", err)
	}
	return nil
}

// Run blocks serving tasks until the context is cancelled, then drains.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start task server: %w", err)
	}

	<-ctx.Done()
	w.server.Shutdown()
	return ctx.Err()
}
