package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"outreach_backend/internal/content"
	"outreach_backend/internal/discovery"
	"outreach_backend/internal/email"
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/http/router"
	"outreach_backend/internal/notify"
	"outreach_backend/internal/outreach"
	"outreach_backend/internal/outreach/budget"
	"outreach_backend/internal/outreach/handler"
	"outreach_backend/internal/outreach/modules"
	"outreach_backend/internal/outreach/pacing"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/internal/scheduler"
	"outreach_backend/platform/clock"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	clk := clock.NewReal()
	store := repository.New(pool)
	sender := email.NewSender(cfg, log)
	generator := content.New(cfg, log)

	convos, err := modules.NewConversationCache()
	if err != nil {
		panic("failed to initialize conversation cache: " + err.Error())
	}

	// ========================================================================
	// Orchestration Core (Composition Root)
	// ========================================================================

	governor := budget.New(cfg, clk, eventBus, log)
	pacer := pacing.New(cfg, clk)

	deps := &modules.Deps{
		Store:   store,
		Budget:  governor,
		Pacing:  pacer,
		Content: generator,
		Sender:  sender,
		Source:  discovery.NewFakeSource(0),
		Convos:  convos,
		Clock:   clk,
		Bus:     eventBus,
		Log:     log,
	}

	// The reporter reads sibling statuses through the orchestrator, which is
	// built on top of the runners; resolve the cycle with a late binding.
	var orch *outreach.Orchestrator
	statuses := func() []modules.Status {
		if orch == nil {
			return nil
		}
		return orch.Statuses()
	}

	runners := outreach.BuildRunners(cfg, cfg.GetOpsEmailAddress(), deps, eventBus, clk, log, statuses)
	orch = outreach.New(cfg, clk, log, runners)

	notifier := notify.New(sender, cfg.GetOpsEmailAddress(), clk, log)
	notifier.Register(eventBus)

	queue, closeQueue := initTaskQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	apiHandler := handler.New(orch, store, governor, queue, clk, eventBus)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			handler.NewModule(apiHandler),
		},
	}

	engine := router.New(app)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		return engine.Run(cfg.HTTPAddr)
	})

	group.Go(func() error {
		return outreach.NewCampaignDayReset(store, clk, log).Run(groupCtx)
	})

	if worker := initWorker(cfg, orch, log); worker != nil {
		group.Go(func() error {
			return worker.Run(groupCtx)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		orch.Stop()
		return groupCtx.Err()
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func initTaskQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; queued module runs disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		return nil, nil
	}
	return client, func() { _ = client.Close() }
}

func initWorker(cfg config.SchedulerConfig, orch *outreach.Orchestrator, log *logger.Logger) *scheduler.Worker {
	if cfg.GetRedisURL() == "" {
		return nil
	}

	worker, err := scheduler.NewWorker(cfg, orch, log)
	if err != nil {
		log.Error("failed to initialize task worker", "error", err)
		return nil
	}
	return worker
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
