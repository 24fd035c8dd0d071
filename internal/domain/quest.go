package domain

import "time"

// ─── Quest Instance Types ───────────────────────────────────────────────────

// QuestStatus is the lifecycle state of a quest instance.
// Transitions are forward-only: available → active → completed|expired|failed.
// No terminal state re-enters active; a new instance must be generated instead.
type QuestStatus string

const (
	StatusAvailable QuestStatus = "available"
	StatusActive    QuestStatus = "active"
	StatusCompleted QuestStatus = "completed"
	StatusExpired   QuestStatus = "expired"
	StatusFailed    QuestStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s QuestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired || s == StatusFailed
}

// Objective is one measurable sub-goal within a quest.
type Objective struct {
	Kind    ObjectiveKind `json:"kind"`
	Target  float64       `json:"target"`
	Current float64       `json:"current"`
	Unit    string        `json:"unit"`
	Done    bool          `json:"done"`
}

// Milestones are the progress thresholds that pay a one-time bonus.
var Milestones = []int{25, 50, 75}

// MilestoneBonus is the fixed point award for crossing a milestone.
func MilestoneBonus(milestone int) int {
	return 10 * (milestone / 25)
}

// Quest is a time-boxed, personalized goal instance derived from a template.
// Target is fixed at creation; Percentage is monotonically non-decreasing
// while the quest is active.
type Quest struct {
	ID          string      `json:"id"`
	TemplateID  string      `json:"template_id"`
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Objectives  []Objective `json:"objectives"`
	Conditions  []Condition `json:"conditions,omitempty"`

	Baseline   float64    `json:"baseline"`
	Target     float64    `json:"target"`
	DeviceID   string     `json:"device_id,omitempty"`
	DeviceType string     `json:"device_type,omitempty"`
	Difficulty Difficulty `json:"difficulty"`

	RewardPoints int `json:"reward_points"`

	Status     QuestStatus `json:"status"`
	Percentage float64     `json:"percentage"` // 0–100
	Milestones []int       `json:"milestones_awarded"`

	// Streak-objective bookkeeping: count of distinct qualifying days and
	// the set of days already counted (YYYY-MM-DD, UTC). The set survives
	// out-of-order delivery; StreakDays is always its length.
	StreakDays     int      `json:"streak_days"`
	QualifyingDays []string `json:"qualifying_days,omitempty"`

	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	StartedAt    time.Time `json:"started_at"`
	ValidUntil   time.Time `json:"valid_until"`
	CompletedAt  time.Time `json:"completed_at,omitzero"`
}

// IsExpired reports whether the validity window has elapsed at t.
func (q Quest) IsExpired(t time.Time) bool {
	return t.After(q.ValidUntil)
}

// MilestoneAwarded reports whether the given milestone bonus was already paid.
func (q Quest) MilestoneAwarded(m int) bool {
	for _, awarded := range q.Milestones {
		if awarded == m {
			return true
		}
	}
	return false
}

// DayCounted reports whether the given day (YYYY-MM-DD) already credited
// the streak.
func (q Quest) DayCounted(day string) bool {
	for _, d := range q.QualifyingDays {
		if d == day {
			return true
		}
	}
	return false
}

// ObjectiveKind returns the kind of the primary objective.
func (q Quest) ObjectiveKind() ObjectiveKind {
	if len(q.Objectives) == 0 {
		return ""
	}
	return q.Objectives[0].Kind
}

// ProgressEvent is delivered to progress subscribers when a quest advances.
type ProgressEvent struct {
	QuestID    string      `json:"quest_id"`
	UserID     string      `json:"user_id"`
	Percentage float64     `json:"percentage"`
	Status     QuestStatus `json:"status"`
	Milestone  int         `json:"milestone,omitempty"` // crossed milestone, 0 if none
}
