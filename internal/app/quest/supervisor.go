package quest

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/wattquest/wattquest/internal/domain"
	"github.com/wattquest/wattquest/internal/infra/metrics"
)

// Default supervisor cadences.
const (
	DefaultProgressInterval   = 60 * time.Second
	DefaultGenerationInterval = 24 * time.Hour
)

// Supervisor drives the engine's background cadence: a frequent progress
// tick (buffer drain, expiry sweep, slot top-up) and a slow generation
// cycle. Both ticks take the current time as a parameter so tests can drive
// them directly.
type Supervisor struct {
	engine *Engine
	store  domain.QuestStore

	progressEvery time.Duration
	generateEvery time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	lastTick time.Time
}

// NewSupervisor returns a supervisor over the engine. Zero intervals fall
// back to the shipped defaults.
func NewSupervisor(engine *Engine, store domain.QuestStore, progressEvery, generateEvery time.Duration) *Supervisor {
	if progressEvery <= 0 {
		progressEvery = DefaultProgressInterval
	}
	if generateEvery <= 0 {
		generateEvery = DefaultGenerationInterval
	}
	return &Supervisor{
		engine:        engine,
		store:         store,
		progressEvery: progressEvery,
		generateEvery: generateEvery,
	}
}

// Start launches the tick loops. An immediate generation cycle runs first so
// a fresh install has quests before the first slow tick.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	log.Printf("[supervisor] started (progress every %s, generation every %s)", s.progressEvery, s.generateEvery)
}

// Stop halts the loops and waits for the current tick to finish.
func (s *Supervisor) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	log.Printf("[supervisor] stopped")
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	s.GenerationCycle(time.Now())

	progress := time.NewTicker(s.progressEvery)
	defer progress.Stop()
	generate := time.NewTicker(s.generateEvery)
	defer generate.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-progress.C:
			s.ProgressTick(now)
		case now := <-generate.C:
			s.GenerationCycle(now)
		}
	}
}

// ProgressTick runs one maintenance pass: drain buffered readings, expire
// overdue quests, and refill free active slots.
func (s *Supervisor) ProgressTick(now time.Time) {
	start := time.Now()
	defer func() { metrics.ProgressTickDuration.Observe(time.Since(start).Seconds()) }()

	s.engine.tracker.Flush()
	s.ExpireOverdue(now)

	if s.engine.autoActivate {
		for _, userID := range s.engine.AttachedUsers() {
			unlock := s.engine.tracker.Lock(userID)
			if err := s.engine.topUpLocked(userID, now); err != nil {
				log.Printf("[supervisor] top up %s: %v", userID, err)
			}
			unlock()
		}
	}
	s.mu.Lock()
	s.lastTick = now
	s.mu.Unlock()
}

// GenerationCycle runs one analysis-and-instantiation pass for every
// attached user.
func (s *Supervisor) GenerationCycle(now time.Time) {
	for _, userID := range s.engine.AttachedUsers() {
		created, err := s.engine.GenerateQuestsForUser(userID, now)
		if err != nil {
			log.Printf("[supervisor] generate for %s: %v", userID, err)
			continue
		}
		if len(created) > 0 {
			log.Printf("[supervisor] generated %d quest(s) for %s", len(created), userID)
		}
	}
}

// ExpireOverdue transitions active quests past their validity window to
// expired. No reward is paid regardless of partial progress; milestone
// bonuses already credited are kept.
func (s *Supervisor) ExpireOverdue(now time.Time) {
	overdue, err := s.store.ExpiringBefore(now)
	if err != nil {
		log.Printf("[supervisor] expiry sweep: %v", err)
		return
	}
	for _, q := range overdue {
		unlock := s.engine.tracker.Lock(q.UserID)
		fresh, err := s.store.Quest(q.ID)
		if err != nil || fresh.Status != domain.StatusActive {
			unlock()
			continue
		}
		fresh.Status = domain.StatusExpired
		fresh.LastActivity = now
		if err := s.store.UpdateQuest(*fresh); err != nil {
			log.Printf("[supervisor] expire quest %s: %v", q.ID, err)
			unlock()
			continue
		}
		metrics.QuestsExpired.Inc()
		metrics.QuestsActive.Dec()
		s.engine.tracker.publish(domain.ProgressEvent{
			QuestID:    fresh.ID,
			UserID:     fresh.UserID,
			Percentage: fresh.Percentage,
			Status:     domain.StatusExpired,
		})
		unlock()
	}
}

// LastTick reports when the last progress tick completed. Zero until the
// first tick. Consumed by health checks.
func (s *Supervisor) LastTick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}
