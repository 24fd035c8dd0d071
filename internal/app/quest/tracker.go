package quest

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/wattquest/wattquest/internal/app/reward"
	"github.com/wattquest/wattquest/internal/domain"
	"github.com/wattquest/wattquest/internal/infra/metrics"
)

// DefaultThrottleWindow is the minimum reading spacing per quest.
const DefaultThrottleWindow = 10 * time.Second

// CompletionHook fires after a quest completes and its reward is applied.
type CompletionHook func(q domain.Quest, res domain.RewardResult, leveledUp bool, newLevel int)

// MilestoneHook fires after a milestone bonus is credited.
type MilestoneHook func(q domain.Quest, milestone, bonus int)

// userState serializes progress updates for one user. Readings arriving
// inside the throttle window are buffered, not dropped, and drained on the
// next progress tick.
type userState struct {
	mu           sync.Mutex
	lastAccepted map[string]time.Time       // quest ID → last accepted reading timestamp
	buffered     map[string][]domain.Reading // quest ID → readings awaiting the tick
}

// Tracker applies telemetry readings to active quests: throttling, monotonic
// progress, milestone bonuses, and completion. All timestamp comparisons use
// reading time, never wall clock, so replays behave deterministically.
type Tracker struct {
	store    domain.QuestStore
	profiles domain.ProfileStore
	rewards  *reward.Service
	registry *Registry
	throttle time.Duration

	onCompleted CompletionHook
	onMilestone MilestoneHook

	mu    sync.Mutex
	users map[string]*userState

	subMu   sync.RWMutex
	subs    map[string]map[int]func(domain.ProgressEvent)
	nextSub int
}

// NewTracker returns a tracker over the given stores. A zero throttle falls
// back to DefaultThrottleWindow.
func NewTracker(store domain.QuestStore, profiles domain.ProfileStore, rewards *reward.Service, registry *Registry, throttle time.Duration) *Tracker {
	if throttle <= 0 {
		throttle = DefaultThrottleWindow
	}
	return &Tracker{
		store:    store,
		profiles: profiles,
		rewards:  rewards,
		registry: registry,
		throttle: throttle,
		users:    make(map[string]*userState),
		subs:     make(map[string]map[int]func(domain.ProgressEvent)),
	}
}

// OnCompleted registers the completion hook. Call before readings flow.
func (t *Tracker) OnCompleted(fn CompletionHook) { t.onCompleted = fn }

// OnMilestone registers the milestone hook. Call before readings flow.
func (t *Tracker) OnMilestone(fn MilestoneHook) { t.onMilestone = fn }

// SubscribeProgress registers a callback for the user's progress events and
// returns an unsubscribe function. Unsubscribing twice is harmless.
func (t *Tracker) SubscribeProgress(userID string, fn func(domain.ProgressEvent)) func() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	id := t.nextSub
	t.nextSub++
	if t.subs[userID] == nil {
		t.subs[userID] = make(map[int]func(domain.ProgressEvent))
	}
	t.subs[userID][id] = fn
	return func() {
		t.subMu.Lock()
		defer t.subMu.Unlock()
		delete(t.subs[userID], id)
	}
}

// Record routes one reading to every active quest of the user. Readings
// closer than the throttle window to the quest's last accepted reading are
// buffered for the next Flush.
func (t *Tracker) Record(userID string, r domain.Reading) error {
	st := t.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	quests, err := t.store.ActiveForUser(userID)
	if err != nil {
		return fmt.Errorf("load active quests: %w", err)
	}

	accepted := false
	for i := range quests {
		q := &quests[i]
		last, seen := st.lastAccepted[q.ID]
		if seen && r.Timestamp.Sub(last) < t.throttle {
			// Covers bursts, duplicates, and out-of-order arrivals alike.
			st.buffered[q.ID] = append(st.buffered[q.ID], r)
			metrics.ReadingsThrottled.Inc()
			continue
		}
		if err := t.apply(q, r); err != nil {
			st.buffered[q.ID] = append(st.buffered[q.ID], r)
			log.Printf("[tracker] apply reading to quest %s: %v", q.ID, err)
			continue
		}
		st.lastAccepted[q.ID] = r.Timestamp
		accepted = true
	}

	if accepted {
		metrics.ReadingsIngested.Inc()
		if err := t.profiles.RecordActiveDay(userID, r.Timestamp); err != nil {
			log.Printf("[tracker] record active day for %s: %v", userID, err)
		}
	}
	return nil
}

// Flush drains buffered readings for every tracked user. Called from the
// progress tick; also retries readings whose persistence failed.
func (t *Tracker) Flush() {
	for _, userID := range t.userIDs() {
		t.flushUser(userID)
	}
}

func (t *Tracker) flushUser(userID string) {
	st := t.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.buffered) == 0 {
		return
	}

	quests, err := t.store.ActiveForUser(userID)
	if err != nil {
		log.Printf("[tracker] flush %s: load active quests: %v", userID, err)
		return
	}
	byID := make(map[string]*domain.Quest, len(quests))
	for i := range quests {
		byID[quests[i].ID] = &quests[i]
	}

	// Swap the backlog out before applying: failures re-buffer into the
	// fresh map, so the loop never iterates a map it is also writing.
	batch := st.buffered
	st.buffered = make(map[string][]domain.Reading)

	for qid, readings := range batch {
		q, ok := byID[qid]
		if !ok {
			continue // quest reached a terminal state, drop the backlog
		}
		sort.Slice(readings, func(i, j int) bool {
			return readings[i].Timestamp.Before(readings[j].Timestamp)
		})
		for i, r := range readings {
			if err := t.apply(q, r); err != nil {
				st.buffered[qid] = append(st.buffered[qid], readings[i:]...)
				log.Printf("[tracker] flush quest %s: %v", qid, err)
				break
			}
			if r.Timestamp.After(st.lastAccepted[qid]) {
				st.lastAccepted[qid] = r.Timestamp
			}
		}
	}
}

// apply advances one quest with one reading and persists the result.
// Progress never regresses; milestones and completion pay exactly once.
// Callers must hold the user's state lock.
func (t *Tracker) apply(q *domain.Quest, r domain.Reading) error {
	if q.Status != domain.StatusActive || q.IsExpired(r.Timestamp) {
		return nil
	}

	old := q.Percentage
	if pct := computeProgress(q, r); pct > q.Percentage {
		q.Percentage = pct
	}
	q.LastActivity = r.Timestamp

	crossed := crossedMilestones(q, old, q.Percentage)
	q.Milestones = append(q.Milestones, crossed...)

	completed := q.Percentage >= 100
	if completed {
		q.Status = domain.StatusCompleted
		q.CompletedAt = r.Timestamp
		for i := range q.Objectives {
			q.Objectives[i].Done = true
		}
	}

	if err := t.store.UpdateQuest(*q); err != nil {
		return fmt.Errorf("persist quest: %w", err)
	}

	// Awards run after the quest row is durable. The ledger makes each
	// award key at-most-once, so a retried reading cannot pay twice.
	for _, m := range crossed {
		bonus, err := t.rewards.ApplyMilestoneBonus(q.UserID, q.ID, m)
		if err != nil {
			log.Printf("[tracker] milestone bonus %d for quest %s: %v", m, q.ID, err)
		} else if bonus > 0 {
			metrics.PointsAwarded.WithLabelValues(string(domain.ActionMilestoneReached)).Add(float64(bonus))
			if t.onMilestone != nil {
				t.onMilestone(*q, m, bonus)
			}
		}
		t.publish(domain.ProgressEvent{
			QuestID:    q.ID,
			UserID:     q.UserID,
			Percentage: q.Percentage,
			Status:     q.Status,
			Milestone:  m,
		})
	}

	if completed {
		t.settleCompletion(q, r.Timestamp)
	} else if q.Percentage > old && len(crossed) == 0 {
		t.publish(domain.ProgressEvent{
			QuestID:    q.ID,
			UserID:     q.UserID,
			Percentage: q.Percentage,
			Status:     q.Status,
		})
	}
	return nil
}

// settleCompletion credits the completion reward and fires hooks. The quest
// row is already persisted as completed.
func (t *Tracker) settleCompletion(q *domain.Quest, at time.Time) {
	res, leveledUp, newLevel, err := t.rewards.ApplyQuestCompletion(q, at)
	if err != nil {
		log.Printf("[tracker] completion reward for quest %s: %v", q.ID, err)
		return
	}
	if res.Points > 0 {
		metrics.PointsAwarded.WithLabelValues(string(domain.ActionQuestCompleted)).Add(float64(res.Points))
	}
	if leveledUp {
		metrics.LevelUps.Inc()
	}
	metrics.QuestsCompleted.WithLabelValues(t.questType(q.TemplateID)).Inc()
	metrics.QuestsActive.Dec()

	if t.onCompleted != nil {
		t.onCompleted(*q, res, leveledUp, newLevel)
	}
	t.publish(domain.ProgressEvent{
		QuestID:    q.ID,
		UserID:     q.UserID,
		Percentage: q.Percentage,
		Status:     domain.StatusCompleted,
	})
}

// Complete finalizes an active quest on the user's request. Only quests
// whose objectives already read 100% may be completed by hand.
func (t *Tracker) Complete(userID, questID string, now time.Time) (*domain.Quest, error) {
	st := t.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	q, err := t.store.Quest(questID)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, domain.ErrQuestNotFound
	}
	if q.Status != domain.StatusActive {
		return nil, domain.ErrQuestNotActive
	}
	if q.Percentage < 100 {
		return nil, domain.ErrQuestIncomplete
	}

	q.Status = domain.StatusCompleted
	q.CompletedAt = now
	q.LastActivity = now
	for i := range q.Objectives {
		q.Objectives[i].Done = true
	}
	if err := t.store.UpdateQuest(*q); err != nil {
		return nil, fmt.Errorf("persist quest: %w", err)
	}
	t.settleCompletion(q, now)
	return q, nil
}

// Abandon marks an active quest failed at the user's request. No reward is
// paid; the template frees up for a future generation cycle.
func (t *Tracker) Abandon(userID, questID string, now time.Time) (*domain.Quest, error) {
	st := t.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	q, err := t.store.Quest(questID)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, domain.ErrQuestNotFound
	}
	if q.Status != domain.StatusActive {
		return nil, domain.ErrQuestNotActive
	}

	q.Status = domain.StatusFailed
	q.LastActivity = now
	if err := t.store.UpdateQuest(*q); err != nil {
		return nil, fmt.Errorf("persist quest: %w", err)
	}
	delete(st.buffered, q.ID)
	delete(st.lastAccepted, q.ID)
	metrics.QuestsActive.Dec()
	t.publish(domain.ProgressEvent{
		QuestID:    q.ID,
		UserID:     q.UserID,
		Percentage: q.Percentage,
		Status:     q.Status,
	})
	return q, nil
}

// Detach drops the user's in-memory state. Buffered readings are discarded;
// persisted progress is untouched.
func (t *Tracker) Detach(userID string) {
	t.mu.Lock()
	delete(t.users, userID)
	t.mu.Unlock()
}

// Lock acquires the user's progress lock. Generation and activation run
// under it so quest state cannot move beneath a telemetry update.
func (t *Tracker) Lock(userID string) func() {
	st := t.state(userID)
	st.mu.Lock()
	return st.mu.Unlock
}

func (t *Tracker) publish(ev domain.ProgressEvent) {
	t.subMu.RLock()
	fns := make([]func(domain.ProgressEvent), 0, len(t.subs[ev.UserID]))
	for _, fn := range t.subs[ev.UserID] {
		fns = append(fns, fn)
	}
	t.subMu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (t *Tracker) questType(templateID string) string {
	if tmpl, err := t.registry.Template(templateID); err == nil {
		return string(tmpl.Type)
	}
	return "unknown"
}

func (t *Tracker) state(userID string) *userState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.users[userID]
	if !ok {
		st = &userState{
			lastAccepted: make(map[string]time.Time),
			buffered:     make(map[string][]domain.Reading),
		}
		t.users[userID] = st
	}
	return st
}

func (t *Tracker) userIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.users))
	for id := range t.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
