// Package budget implements the global daily send budget governor.
// The governor is the single source of truth for "may one more message be
// sent system-wide today" and is shared by every automation module.
package budget

import (
	"context"
	"sync"
	"time"

	"outreach_backend/internal/events"
	"outreach_backend/platform/clock"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// State classifies the governor's current position against its thresholds.
type State string

const (
	StateNormal  State = "normal"
	StatePaused  State = "paused"  // past the auto-pause threshold, sends denied
	StateStopped State = "stopped" // past the hard-stop threshold, sends denied
)

// informational crossing logged between normal and pause.
const halfwayThreshold = 0.50

// Governor tracks the rolling daily counter of outbound sends.
// All methods are safe for concurrent use; the check-then-increment pair in
// RecordSend is a single atomic operation under the mutex.
type Governor struct {
	mu sync.Mutex

	clk clock.Clock
	bus events.Bus
	log *logger.Logger

	dailyLimit        int
	pauseThreshold    float64
	hardStopThreshold float64

	day          time.Time
	sendCount    int
	moduleCounts map[string]int
	crossedToday map[float64]bool
}

// New creates a governor. The day anchor and counters initialize lazily on
// first use, so a process started at any time of day accounts correctly.
func New(cfg config.BudgetConfig, clk clock.Clock, bus events.Bus, log *logger.Logger) *Governor {
	return &Governor{
		clk:               clk,
		bus:               bus,
		log:               log,
		dailyLimit:        cfg.GetDailySendLimit(),
		pauseThreshold:    cfg.GetPauseThreshold(),
		hardStopThreshold: cfg.GetHardStopThreshold(),
		moduleCounts:      make(map[string]int),
		crossedToday:      make(map[float64]bool),
	}
}

// rollover resets counters when the calendar day has changed since the last
// access. Callers must hold the mutex. The reset is lazy: no midnight daemon
// is required, and uptime gaps self-heal on the next call.
func (g *Governor) rollover() {
	now := g.clk.Now()
	if !g.day.IsZero() && clock.SameDay(g.day, now) {
		return
	}
	if !g.day.IsZero() {
		g.log.Info("budget day rollover",
			"previous_day", g.day.Format("2006-01-02"),
			"sent", g.sendCount)
	}
	g.day = now
	g.sendCount = 0
	g.moduleCounts = make(map[string]int)
	g.crossedToday = make(map[float64]bool)
}

func (g *Governor) usedFraction() float64 {
	return float64(g.sendCount) / float64(g.dailyLimit)
}

func (g *Governor) state() State {
	used := g.usedFraction()
	switch {
	case used >= g.hardStopThreshold:
		return StateStopped
	case used >= g.pauseThreshold:
		return StatePaused
	default:
		return StateNormal
	}
}

// CanSend reports whether one more message may be sent system-wide today.
// Both auto-pause and hard-stop deny sends; they differ only in the state
// surfaced by Snapshot.
func (g *Governor) CanSend() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()

	return g.state() == StateNormal
}

// RecordSend increments the daily counter and the named module's counter.
// Call exactly once per attempted send, successful or not, so the budget
// stays conservative under ambiguous transport outcomes.
func (g *Governor) RecordSend(module string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()

	g.sendCount++
	g.moduleCounts[module]++
	g.noteCrossings()
}

// noteCrossings logs and publishes each threshold crossing exactly once per
// day. Callers must hold the mutex.
func (g *Governor) noteCrossings() {
	used := g.usedFraction()
	for _, threshold := range []float64{halfwayThreshold, g.pauseThreshold, g.hardStopThreshold} {
		if used < threshold || g.crossedToday[threshold] {
			continue
		}
		g.crossedToday[threshold] = true

		state := g.state()
		g.log.Info("budget threshold crossed",
			"threshold", threshold,
			"sent", g.sendCount,
			"limit", g.dailyLimit,
			"state", string(state))

		if g.bus != nil {
			g.bus.Publish(context.Background(), events.BudgetThresholdCrossed{
				BaseEvent: events.NewBaseEvent(),
				Threshold: threshold,
				Used:      g.sendCount,
				Limit:     g.dailyLimit,
				State:     string(state),
			})
		}
	}
}

// Snapshot is a read-only view of the governor for reporting.
type Snapshot struct {
	Day          string         `json:"day"`
	Sent         int            `json:"sent"`
	Limit        int            `json:"limit"`
	UsedFraction float64        `json:"usedFraction"`
	State        State          `json:"state"`
	ModuleCounts map[string]int `json:"moduleCounts"`
}

// Snapshot returns the current budget accounting for the status surface.
func (g *Governor) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()

	counts := make(map[string]int, len(g.moduleCounts))
	for module, count := range g.moduleCounts {
		counts[module] = count
	}

	return Snapshot{
		Day:          g.day.Format("2006-01-02"),
		Sent:         g.sendCount,
		Limit:        g.dailyLimit,
		UsedFraction: g.usedFraction(),
		State:        g.state(),
		ModuleCounts: counts,
	}
}
