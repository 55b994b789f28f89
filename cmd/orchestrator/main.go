// The orchestrator binary runs the automation modules headless: no HTTP
// surface, modules auto-started, queued task consumption, and the daily
// campaign counter reset. Deploy it when the control API runs elsewhere or
// is not needed.
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
	"outreach_backend/internal/notify"
	"outreach_backend/internal/outreach"
	"outreach_backend/internal/outreach/budget"
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
	log.Info("starting orchestrator", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	clk := clock.NewReal()
	store := repository.New(pool)
	sender := email.NewSender(cfg, log)

	convos, err := modules.NewConversationCache()
	if err != nil {
		panic("failed to initialize conversation cache: " + err.Error())
	}

	deps := &modules.Deps{
		Store:   store,
		Budget:  budget.New(cfg, clk, eventBus, log),
		Pacing:  pacing.New(cfg, clk),
		Content: content.New(cfg, log),
		Sender:  sender,
		Source:  discovery.NewFakeSource(0),
		Convos:  convos,
		Clock:   clk,
		Bus:     eventBus,
		Log:     log,
	}

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

	if err := orch.Start(ctx); err != nil {
		// Partial starts are tolerated; the error names the failed modules.
		log.Error("orchestrator started degraded", "error", err)
	}
	defer orch.Stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return outreach.NewCampaignDayReset(store, clk, log).Run(groupCtx)
	})

	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, orch, log)
		if err != nil {
			log.Error("failed to initialize task worker", "error", err)
		} else {
			group.Go(func() error {
				return worker.Run(groupCtx)
			})
		}
	} else {
		log.Warn("REDIS_URL not configured; queued module runs disabled")
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("orchestrator error", "error", err)
		panic("orchestrator error: " + err.Error())
	}
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
