// Package health provides periodic health checks for the daemon.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/wattquest/wattquest/internal/infra/metrics"
	"github.com/wattquest/wattquest/internal/infra/sqlite"
)

// staleTickLimit is how old the last progress tick may be before the
// engine counts as stuck.
const staleTickLimit = 5 * time.Minute

// Check defines a single health check.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status is the result of one health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// TickSource reports when the engine last completed a progress tick.
type TickSource interface {
	LastTick() time.Time
}

// Checker runs periodic health checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	started  time.Time
}

// NewChecker creates a checker with the standard checks: sqlite reachability,
// data directory sanity, and engine tick freshness.
func NewChecker(db *sqlite.DB, dataDir string, ticks TickSource) *Checker {
	started := time.Now()
	return &Checker{
		interval: 60 * time.Second,
		started:  started,
		checks: []Check{
			{
				Name: "sqlite",
				CheckFn: func(ctx context.Context) error {
					return db.Ping()
				},
			},
			{
				Name: "data_dir",
				CheckFn: func(ctx context.Context) error {
					return checkDataDir(dataDir)
				},
			},
			{
				Name: "engine_tick",
				CheckFn: func(ctx context.Context) error {
					return checkTick(ticks, started)
				},
			},
		},
	}
}

// Run starts the check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{Name: check.Name, CheckedAt: time.Now()}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
		} else {
			s.Healthy = true
		}
		statuses[i] = s

		v := 0.0
		if s.Healthy {
			v = 1.0
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(v)
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Status, len(c.statuses))
	copy(out, c.statuses)
	return out
}

// IsHealthy reports whether every check passed.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func checkTick(ticks TickSource, started time.Time) error {
	if ticks == nil {
		return nil
	}
	last := ticks.LastTick()
	if last.IsZero() {
		// Not ticked yet. Only a problem if the daemon has been up a while.
		if time.Since(started) > staleTickLimit {
			return fmt.Errorf("engine has never ticked")
		}
		return nil
	}
	if age := time.Since(last); age > staleTickLimit {
		return fmt.Errorf("last engine tick %s ago", age.Round(time.Second))
	}
	return nil
}
