package quest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wattquest/wattquest/internal/app/reward"
	"github.com/wattquest/wattquest/internal/domain"
	"github.com/wattquest/wattquest/internal/infra/sqlite"
)

func newTestTracker(t *testing.T, throttle time.Duration) (*Tracker, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	rewards := reward.NewService(db)
	return NewTracker(db, db, rewards, NewRegistry(), throttle), db
}

func activeReduceQuest(t *testing.T, db *sqlite.DB, userID string, now time.Time) domain.Quest {
	t.Helper()
	q := domain.Quest{
		ID:         "q-" + userID,
		TemplateID: "weekly-consumption-cut",
		UserID:     userID,
		Title:      "Cut weekly consumption",
		Baseline:   12,
		Target:     9.6,
		Difficulty: domain.DifficultyMedium,
		Objectives: []domain.Objective{
			{Kind: domain.ObjectiveReduceConsumption, Target: 9.6, Unit: "kwh"},
		},
		RewardPoints: 150,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		StartedAt:    now,
		ValidUntil:   now.Add(168 * time.Hour),
	}
	if err := db.InsertQuest(q); err != nil {
		t.Fatalf("insert quest: %v", err)
	}
	return q
}

func reading(ts time.Time, powerW float64) domain.Reading {
	return domain.Reading{Timestamp: ts, PowerW: powerW}
}

func TestRecord_AdvancesAndPersists(t *testing.T) {
	tr, db := newTestTracker(t, 0)
	now := time.Now()
	q := activeReduceQuest(t, db, "alice", now)

	// 450 W projects to 10.8 kWh/day: halfway from 12 to 9.6.
	if err := tr.Record("alice", reading(now, 450)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	got, err := db.Quest(q.ID)
	if err != nil {
		t.Fatalf("load quest: %v", err)
	}
	if got.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50", got.Percentage)
	}
	if got.Status != domain.StatusActive {
		t.Errorf("Status = %q, want active", got.Status)
	}

	// Crossing 25 and 50 pays both milestone bonuses once.
	p, err := db.Profile("alice")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if p.Points != 30 {
		t.Errorf("Points = %d, want 30 (milestone bonuses 10+20)", p.Points)
	}
}

func TestRecord_PersistsObjectiveState(t *testing.T) {
	tr, db := newTestTracker(t, 0)
	now := time.Now()
	q := activeReduceQuest(t, db, "alice", now)

	if err := tr.Record("alice", reading(now, 450)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	got, _ := db.Quest(q.ID)
	if got.Objectives[0].Current != 10.8 {
		t.Errorf("Objectives[0].Current = %v, want 10.8 (450 W daily projection)", got.Objectives[0].Current)
	}
	if got.Objectives[0].Done {
		t.Error("Objectives[0].Done = true before completion")
	}

	// 300 W projects to 7.2 kWh/day, well past the 9.6 target.
	if err := tr.Record("alice", reading(now.Add(time.Minute), 300)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	got, _ = db.Quest(q.ID)
	if got.Objectives[0].Current != 7.2 {
		t.Errorf("Objectives[0].Current = %v, want 7.2", got.Objectives[0].Current)
	}
	if !got.Objectives[0].Done {
		t.Error("Objectives[0].Done = false on completed quest")
	}
}

func TestRecord_ProgressNeverRegresses(t *testing.T) {
	tr, db := newTestTracker(t, 0)
	now := time.Now()
	q := activeReduceQuest(t, db, "alice", now)

	if err := tr.Record("alice", reading(now, 450)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	// Usage climbs back up: the stored percentage holds.
	if err := tr.Record("alice", reading(now.Add(time.Minute), 600)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	got, _ := db.Quest(q.ID)
	if got.Percentage != 50 {
		t.Errorf("Percentage after worse reading = %v, want 50", got.Percentage)
	}
}

func TestRecord_ThrottleBuffersUntilFlush(t *testing.T) {
	tr, db := newTestTracker(t, 10*time.Second)
	now := time.Now()
	q := activeReduceQuest(t, db, "alice", now)

	if err := tr.Record("alice", reading(now, 500)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	// 5s later and better, but inside the throttle window: buffered.
	if err := tr.Record("alice", reading(now.Add(5*time.Second), 400)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	got, _ := db.Quest(q.ID)
	if got.Percentage != 0 {
		t.Errorf("Percentage before flush = %v, want 0 (12 kWh/day is the baseline)", got.Percentage)
	}

	tr.Flush()

	got, _ = db.Quest(q.ID)
	if got.Percentage != 100 {
		t.Errorf("Percentage after flush = %v, want 100 (400 W beats the 9.6 target)", got.Percentage)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("Status after flush = %q, want completed", got.Status)
	}
}

// flakyQuestStore fails UpdateQuest on demand so the persistence-retry
// path can be driven deterministically.
type flakyQuestStore struct {
	domain.QuestStore
	failUpdates bool
}

func (s *flakyQuestStore) UpdateQuest(q domain.Quest) error {
	if s.failUpdates {
		return errors.New("update rejected")
	}
	return s.QuestStore.UpdateQuest(q)
}

func TestFlush_RetainsBacklogOnPersistFailure(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := &flakyQuestStore{QuestStore: db}
	tr := NewTracker(store, db, reward.NewService(db), NewRegistry(), 10*time.Second)

	now := time.Now()
	q := activeReduceQuest(t, db, "alice", now)

	if err := tr.Record("alice", reading(now, 600)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	// Two more inside the throttle window land in the buffer.
	if err := tr.Record("alice", reading(now.Add(3*time.Second), 500)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := tr.Record("alice", reading(now.Add(6*time.Second), 450)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	store.failUpdates = true
	tr.Flush()

	st := tr.state("alice")
	if got := len(st.buffered[q.ID]); got != 2 {
		t.Fatalf("buffered readings after failed flush = %d, want 2 (kept once, no duplicates)", got)
	}

	store.failUpdates = false
	tr.Flush()

	if got := len(st.buffered[q.ID]); got != 0 {
		t.Errorf("buffered readings after successful flush = %d, want 0", got)
	}
	persisted, err := db.Quest(q.ID)
	if err != nil {
		t.Fatalf("load quest: %v", err)
	}
	if persisted.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50 (450 W projects to 10.8 kWh/day)", persisted.Percentage)
	}
}

func TestCompletion_PaysExactlyOnce(t *testing.T) {
	tr, db := newTestTracker(t, 0)
	now := time.Now()
	q := activeReduceQuest(t, db, "alice", now)

	// 300 W projects to 7.2 kWh/day: past the target, quest completes.
	if err := tr.Record("alice", reading(now, 300)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	got, _ := db.Quest(q.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("Status = %q, want completed", got.Status)
	}
	if got.CompletedAt.IsZero() {
		t.Error("CompletedAt should be set")
	}

	p, _ := db.Profile("alice")
	want := int64(150 + 10 + 20 + 30) // reward plus the three milestone bonuses
	if p.Points != want {
		t.Errorf("Points = %d, want %d", p.Points, want)
	}
	if p.QuestsCompleted != 1 {
		t.Errorf("QuestsCompleted = %d, want 1", p.QuestsCompleted)
	}
	if math.Abs(p.EnergySavedKWh-2.4) > 1e-9 {
		t.Errorf("EnergySavedKWh = %v, want 2.4", p.EnergySavedKWh)
	}

	// A late duplicate reading finds no active quest and pays nothing.
	if err := tr.Record("alice", reading(now.Add(time.Minute), 300)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	p, _ = db.Profile("alice")
	if p.Points != want {
		t.Errorf("Points after duplicate = %d, want %d", p.Points, want)
	}
	if p.QuestsCompleted != 1 {
		t.Errorf("QuestsCompleted after duplicate = %d, want 1", p.QuestsCompleted)
	}
}

func TestCompletionHook_Fires(t *testing.T) {
	tr, db := newTestTracker(t, 0)
	now := time.Now()
	activeReduceQuest(t, db, "alice", now)

	var hookQuest domain.Quest
	var hookPoints int
	tr.OnCompleted(func(q domain.Quest, res domain.RewardResult, leveledUp bool, newLevel int) {
		hookQuest = q
		hookPoints = res.Points
	})

	var milestones []int
	tr.OnMilestone(func(q domain.Quest, milestone, bonus int) {
		milestones = append(milestones, milestone)
	})

	if err := tr.Record("alice", reading(now, 300)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if hookQuest.ID == "" {
		t.Fatal("completion hook did not fire")
	}
	if hookPoints != 150 {
		t.Errorf("hook points = %d, want 150", hookPoints)
	}
	if len(milestones) != 3 {
		t.Errorf("milestone hooks fired %d times, want 3", len(milestones))
	}
}

func TestComplete_Errors(t *testing.T) {
	tr, db := newTestTracker(t, 0)
	now := time.Now()
	q := activeReduceQuest(t, db, "alice", now)

	if _, err := tr.Complete("alice", q.ID, now); !errors.Is(err, domain.ErrQuestIncomplete) {
		t.Errorf("Complete() at 0%% = %v, want ErrQuestIncomplete", err)
	}
	if _, err := tr.Complete("mallory", q.ID, now); !errors.Is(err, domain.ErrQuestNotFound) {
		t.Errorf("Complete() by another user = %v, want ErrQuestNotFound", err)
	}
	if _, err := tr.Complete("alice", "missing", now); !errors.Is(err, domain.ErrQuestNotFound) {
		t.Errorf("Complete() on missing quest = %v, want ErrQuestNotFound", err)
	}

	avail := q
	avail.ID = "q-available"
	avail.Status = domain.StatusAvailable
	if err := db.InsertQuest(avail); err != nil {
		t.Fatalf("insert quest: %v", err)
	}
	if _, err := tr.Complete("alice", avail.ID, now); !errors.Is(err, domain.ErrQuestNotActive) {
		t.Errorf("Complete() on available quest = %v, want ErrQuestNotActive", err)
	}
}

func TestAbandon(t *testing.T) {
	tr, db := newTestTracker(t, 0)
	now := time.Now()
	q := activeReduceQuest(t, db, "alice", now)

	if err := tr.Record("alice", reading(now, 450)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	got, err := tr.Abandon("alice", q.ID, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Abandon() error: %v", err)
	}
	if got.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50 kept for display", got.Percentage)
	}

	// Terminal state is forward-only: no revival, no further progress.
	if _, err := tr.Abandon("alice", q.ID, now); !errors.Is(err, domain.ErrQuestNotActive) {
		t.Errorf("second Abandon() = %v, want ErrQuestNotActive", err)
	}
	if err := tr.Record("alice", reading(now.Add(2*time.Minute), 300)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	stored, _ := db.Quest(q.ID)
	if stored.Status != domain.StatusFailed || stored.Percentage != 50 {
		t.Errorf("quest = %q/%v after abandon, want failed/50", stored.Status, stored.Percentage)
	}

	// Abandonment pays nothing beyond already-earned milestones.
	p, _ := db.Profile("alice")
	if p.Points != 30 {
		t.Errorf("Points = %d, want 30", p.Points)
	}
	if p.QuestsCompleted != 0 {
		t.Errorf("QuestsCompleted = %d, want 0", p.QuestsCompleted)
	}

	if _, err := tr.Abandon("mallory", q.ID, now); !errors.Is(err, domain.ErrQuestNotFound) {
		t.Errorf("foreign Abandon() = %v, want ErrQuestNotFound", err)
	}
}

func TestRecord_IgnoresExpiredQuest(t *testing.T) {
	tr, db := newTestTracker(t, 0)
	now := time.Now()
	q := activeReduceQuest(t, db, "alice", now.Add(-200*time.Hour))

	if err := tr.Record("alice", reading(now, 300)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	got, _ := db.Quest(q.ID)
	if got.Percentage != 0 {
		t.Errorf("Percentage on expired quest = %v, want 0", got.Percentage)
	}
	if got.Status != domain.StatusActive {
		t.Errorf("Status = %q, want active (expiry is the supervisor's call)", got.Status)
	}
}

func TestSubscribeProgress(t *testing.T) {
	tr, db := newTestTracker(t, 0)
	now := time.Now()
	activeReduceQuest(t, db, "alice", now)

	var events []domain.ProgressEvent
	cancel := tr.SubscribeProgress("alice", func(ev domain.ProgressEvent) {
		events = append(events, ev)
	})

	if err := tr.Record("alice", reading(now, 450)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected progress events")
	}
	last := events[len(events)-1]
	if last.Percentage != 50 {
		t.Errorf("last event percentage = %v, want 50", last.Percentage)
	}

	cancel()
	n := len(events)
	if err := tr.Record("alice", reading(now.Add(time.Minute), 350)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if len(events) != n {
		t.Error("events delivered after unsubscribe")
	}
}
