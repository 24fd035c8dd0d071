// Package quest implements the quest engine: template registry, opportunity
// analysis, instantiation, progress tracking, and lifecycle supervision.
package quest

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wattquest/wattquest/internal/app/reward"
	"github.com/wattquest/wattquest/internal/domain"
	"github.com/wattquest/wattquest/internal/infra/metrics"
)

// DefaultMaxActive is the per-user concurrent active quest cap.
const DefaultMaxActive = 3

// Options tune the engine. Zero values fall back to shipped defaults.
type Options struct {
	MaxActive    int
	Throttle     time.Duration
	AutoActivate bool // fill free active slots from available quests
}

// Engine is the quest subsystem facade: generation on one side, telemetry
// driven progress on the other. All methods are safe for concurrent use.
type Engine struct {
	registry     *Registry
	analyzer     *Analyzer
	instantiator *Instantiator
	tracker      *Tracker

	store     domain.QuestStore
	profiles  domain.ProfileStore
	rewards   *reward.Service
	snapshots domain.SnapshotSource
	readings  domain.ReadingSource

	maxActive    int
	autoActivate bool

	mu       sync.Mutex
	attached map[string]func() // user ID → telemetry unsubscribe
}

// NewEngine wires the engine over its collaborators.
func NewEngine(store domain.QuestStore, profiles domain.ProfileStore, rewards *reward.Service, snapshots domain.SnapshotSource, readings domain.ReadingSource, registry *Registry, opts Options) *Engine {
	if opts.MaxActive <= 0 {
		opts.MaxActive = DefaultMaxActive
	}
	return &Engine{
		registry:     registry,
		analyzer:     NewAnalyzer(registry),
		instantiator: NewInstantiator(registry),
		tracker:      NewTracker(store, profiles, rewards, registry, opts.Throttle),
		store:        store,
		profiles:     profiles,
		rewards:      rewards,
		snapshots:    snapshots,
		readings:     readings,
		maxActive:    opts.MaxActive,
		autoActivate: opts.AutoActivate,
		attached:     make(map[string]func()),
	}
}

// Registry exposes the template catalogue.
func (e *Engine) Registry() *Registry { return e.registry }

// ─── User Attachment ────────────────────────────────────────────────────────

// AttachUser subscribes the user's telemetry stream to progress tracking.
// Attaching an already-attached user is a no-op.
func (e *Engine) AttachUser(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.attached[userID]; ok {
		return
	}
	e.attached[userID] = e.readings.Subscribe(userID, func(r domain.Reading) {
		if err := e.tracker.Record(userID, r); err != nil {
			log.Printf("[engine] record reading for %s: %v", userID, err)
		}
	})
}

// DetachUser unsubscribes the user and drops their in-memory state.
func (e *Engine) DetachUser(userID string) {
	e.mu.Lock()
	unsub, ok := e.attached[userID]
	delete(e.attached, userID)
	e.mu.Unlock()
	if ok {
		unsub()
	}
	e.tracker.Detach(userID)
}

// AttachedUsers lists users with a live telemetry subscription.
func (e *Engine) AttachedUsers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.attached))
	for id := range e.attached {
		ids = append(ids, id)
	}
	return ids
}

// ─── Generation ─────────────────────────────────────────────────────────────

// GenerateQuestsForUser runs one analysis pass and instantiates quests for
// the highest-scoring opportunities. Templates already present among the
// user's live quests are skipped; at most maxActive new quests are created
// per pass. Returns the freshly created quests.
func (e *Engine) GenerateQuestsForUser(userID string, now time.Time) ([]domain.Quest, error) {
	start := time.Now()
	defer func() { metrics.GenerationDuration.Observe(time.Since(start).Seconds()) }()

	level, err := e.profiles.Level(userID)
	if err != nil {
		return nil, fmt.Errorf("load level: %w", err)
	}
	completed, err := e.profiles.CompletedQuestIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("load completions: %w", err)
	}
	eligible := e.registry.EligibleFor(level, completed)
	if len(eligible) == 0 {
		return nil, nil
	}

	snapshot, err := e.snapshots.Snapshot(userID)
	if err != nil {
		return nil, fmt.Errorf("usage snapshot: %w", err)
	}
	opportunities := e.analyzer.Analyze(snapshot, eligible)
	if len(opportunities) == 0 {
		return nil, nil
	}

	unlock := e.tracker.Lock(userID)
	defer unlock()

	live, err := e.liveTemplateIDs(userID)
	if err != nil {
		return nil, err
	}

	var created []domain.Quest
	for _, opp := range opportunities {
		if len(created) >= e.maxActive {
			break
		}
		if live[opp.TemplateID] {
			continue
		}
		tmpl, err := e.registry.Template(opp.TemplateID)
		if err != nil {
			continue
		}
		q, err := e.instantiator.Instantiate(userID, tmpl, opp, now)
		if err != nil {
			log.Printf("[engine] instantiate %s for %s: %v", opp.TemplateID, userID, err)
			continue
		}
		if err := e.store.InsertQuest(q); err != nil {
			return created, fmt.Errorf("insert quest: %w", err)
		}
		metrics.QuestsGenerated.WithLabelValues(string(tmpl.Type)).Inc()
		live[opp.TemplateID] = true
		created = append(created, q)
	}

	if e.autoActivate {
		if err := e.topUpLocked(userID, now); err != nil {
			log.Printf("[engine] top up %s: %v", userID, err)
		}
	}
	return created, nil
}

// liveTemplateIDs returns the template IDs backing the user's available and
// active quests.
func (e *Engine) liveTemplateIDs(userID string) (map[string]bool, error) {
	live := make(map[string]bool)
	for _, load := range []func(string) ([]domain.Quest, error){e.store.ActiveForUser, e.store.AvailableForUser} {
		quests, err := load(userID)
		if err != nil {
			return nil, fmt.Errorf("load quests: %w", err)
		}
		for _, q := range quests {
			live[q.TemplateID] = true
		}
	}
	return live, nil
}

// topUpLocked activates available quests until the cap is filled. Available
// quests are already ordered by the ranking that created them. Callers must
// hold the user's progress lock.
func (e *Engine) topUpLocked(userID string, now time.Time) error {
	active, err := e.store.CountActive(userID)
	if err != nil {
		return err
	}
	if active >= e.maxActive {
		return nil
	}
	available, err := e.store.AvailableForUser(userID)
	if err != nil {
		return err
	}
	for _, q := range available {
		if active >= e.maxActive {
			break
		}
		if q.IsExpired(now) {
			continue
		}
		q.Status = domain.StatusActive
		q.StartedAt = now
		q.LastActivity = now
		if err := e.store.UpdateQuest(q); err != nil {
			return err
		}
		metrics.QuestsActive.Inc()
		active++
	}
	return nil
}

// ─── Lifecycle Operations ───────────────────────────────────────────────────

// StartQuest activates an available quest. Enforces ownership, the forward
// lifecycle, and the per-user active cap.
func (e *Engine) StartQuest(userID, questID string, now time.Time) (*domain.Quest, error) {
	unlock := e.tracker.Lock(userID)
	defer unlock()

	q, err := e.store.Quest(questID)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, domain.ErrQuestNotFound
	}
	switch q.Status {
	case domain.StatusAvailable:
	case domain.StatusActive:
		return nil, domain.ErrQuestAlreadyActive
	default:
		return nil, domain.ErrQuestNotStartable
	}
	if q.IsExpired(now) {
		return nil, domain.ErrQuestNotStartable
	}

	active, err := e.store.CountActive(userID)
	if err != nil {
		return nil, fmt.Errorf("count active: %w", err)
	}
	if active >= e.maxActive {
		return nil, domain.ErrQuestCapReached
	}

	q.Status = domain.StatusActive
	q.StartedAt = now
	q.LastActivity = now
	if err := e.store.UpdateQuest(*q); err != nil {
		return nil, fmt.Errorf("persist quest: %w", err)
	}
	metrics.QuestsActive.Inc()
	return q, nil
}

// CompleteQuest finalizes an active quest whose objectives are met.
func (e *Engine) CompleteQuest(userID, questID string, now time.Time) (*domain.Quest, error) {
	return e.tracker.Complete(userID, questID, now)
}

// AbandonQuest fails an active quest at the user's request.
func (e *Engine) AbandonQuest(userID, questID string, now time.Time) (*domain.Quest, error) {
	return e.tracker.Abandon(userID, questID, now)
}

// RecordReading feeds one telemetry sample into progress tracking. Exposed
// for push-style sources; subscribed users flow through AttachUser instead.
func (e *Engine) RecordReading(userID string, r domain.Reading) error {
	return e.tracker.Record(userID, r)
}

// RecordAction credits an ad-hoc point-earning action.
func (e *Engine) RecordAction(userID string, kind domain.ActionKind, at time.Time) (int, error) {
	pts, err := e.rewards.RecordAction(userID, kind, at)
	if err == nil && pts > 0 {
		metrics.PointsAwarded.WithLabelValues(string(kind)).Add(float64(pts))
	}
	return pts, err
}

// ActiveQuests returns the user's active quests.
func (e *Engine) ActiveQuests(userID string) ([]domain.Quest, error) {
	return e.store.ActiveForUser(userID)
}

// AvailableQuests returns the user's startable quests.
func (e *Engine) AvailableQuests(userID string) ([]domain.Quest, error) {
	return e.store.AvailableForUser(userID)
}

// Quest returns one quest, scoped to its owner.
func (e *Engine) Quest(userID, questID string) (*domain.Quest, error) {
	q, err := e.store.Quest(questID)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, domain.ErrQuestNotFound
	}
	return q, nil
}

// SubscribeProgress registers a progress event callback for the user.
func (e *Engine) SubscribeProgress(userID string, fn func(domain.ProgressEvent)) func() {
	return e.tracker.SubscribeProgress(userID, fn)
}

// OnCompleted registers the quest completion hook.
func (e *Engine) OnCompleted(fn CompletionHook) { e.tracker.OnCompleted(fn) }

// OnMilestone registers the milestone hook.
func (e *Engine) OnMilestone(fn MilestoneHook) { e.tracker.OnMilestone(fn) }
