// Package notify turns domain events into operator alerts. Alerts are
// throttled to one per event kind per accounting day so a flapping module
// or a budget sitting at its threshold cannot flood the ops mailbox.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"outreach_backend/internal/email"
	"outreach_backend/internal/events"
	"outreach_backend/platform/clock"
	"outreach_backend/platform/logger"
)

// Notifier subscribes to operational events and emails the ops address.
type Notifier struct {
	sender   email.Sender
	opsEmail string
	clk      clock.Clock
	log      *logger.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// New creates a notifier. Register wires it to the bus.
func New(sender email.Sender, opsEmail string, clk clock.Clock, log *logger.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		opsEmail: opsEmail,
		clk:      clk,
		log:      log.WithModule("notify"),
		lastSent: make(map[string]time.Time),
	}
}

// Register subscribes the notifier to the operational events it handles.
func (n *Notifier) Register(bus events.Bus) {
	bus.Subscribe(events.BudgetThresholdCrossed{}.EventName(), events.HandlerFunc(n.handleBudgetThreshold))
	bus.Subscribe(events.ModuleErrored{}.EventName(), events.HandlerFunc(n.handleModuleError))
}

func (n *Notifier) handleBudgetThreshold(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.BudgetThresholdCrossed)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	key := fmt.Sprintf("budget_%.0f", evt.Threshold*100)
	subject := fmt.Sprintf("Outreach budget at %.0f%%", evt.Threshold*100)
	body := fmt.Sprintf(
		"The daily send budget crossed %.0f%%: %d of %d sends used.\nGovernor state: %s.\n",
		evt.Threshold*100, evt.Used, evt.Limit, evt.State,
	)
	return n.alert(ctx, key, subject, body)
}

func (n *Notifier) handleModuleError(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.ModuleErrored)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	key := "module_error_" + evt.Module
	subject := fmt.Sprintf("Module %s errored", evt.Module)
	body := fmt.Sprintf(
		"Module %s failed its last cycle:\n\n%s\n\nThe module stays scheduled and will retry on its next tick.\n",
		evt.Module, evt.Error,
	)
	return n.alert(ctx, key, subject, body)
}

// alert sends at most one email per key per accounting day.
func (n *Notifier) alert(ctx context.Context, key, subject, body string) error {
	if n.opsEmail == "" {
		return nil
	}

	now := n.clk.Now()
	n.mu.Lock()
	if last, ok := n.lastSent[key]; ok && clock.SameDay(last, now) {
		n.mu.Unlock()
		return nil
	}
	n.lastSent[key] = now
	n.mu.Unlock()

	if err := n.sender.Send(ctx, n.opsEmail, subject, body); err != nil {
		// Allow a retry on the next occurrence instead of eating the day.
		n.mu.Lock()
		delete(n.lastSent, key)
		n.mu.Unlock()
		return fmt.Errorf("send ops alert: %w", err)
	}

	n.log.Info("ops alert sent", "key", key)
	return nil
}
