package domain

import "time"

// ─── Reward Types ───────────────────────────────────────────────────────────

// ActionKind categorizes a point-earning action.
type ActionKind string

const (
	ActionQuestCompleted   ActionKind = "quest_completed"
	ActionMilestoneReached ActionKind = "milestone_reached"
	ActionTurnOffAppliance ActionKind = "turn_off_appliance"
	ActionReduceUsage      ActionKind = "reduce_usage"
	ActionEcoMode          ActionKind = "eco_mode"
	ActionShiftUsage       ActionKind = "shift_usage"
)

// TimeOfDay buckets the tariff period an action falls into.
type TimeOfDay string

const (
	PeakHours         TimeOfDay = "peak"           // 18:00–22:00
	OffPeakHours      TimeOfDay = "off_peak"
	SuperOffPeakHours TimeOfDay = "super_off_peak" // 00:00–06:00
)

// TimeOfDayFor classifies a timestamp into its tariff period.
func TimeOfDayFor(t time.Time) TimeOfDay {
	h := t.Hour()
	switch {
	case h >= 18 && h < 22:
		return PeakHours
	case h < 6:
		return SuperOffPeakHours
	default:
		return OffPeakHours
	}
}

// RewardResult is computed exactly once per quest completion and applied
// idempotently to the owning user's profile.
type RewardResult struct {
	QuestID      string   `json:"quest_id"`
	Points       int      `json:"points"`
	Badges       []string `json:"badges,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// ─── Profile Types ──────────────────────────────────────────────────────────

// Profile is the user's accumulated standing. Owned by the profile store;
// the engine references it, never embeds it in quest records.
type Profile struct {
	UserID          string    `json:"user_id"`
	Points          int64     `json:"points"`
	Level           int       `json:"level"`
	QuestsCompleted int       `json:"quests_completed"`
	CurrentStreak   int       `json:"current_streak"` // consecutive active days
	LongestStreak   int       `json:"longest_streak"`
	LastActiveDay   time.Time `json:"last_active_day"`
	EnergySavedKWh  float64   `json:"energy_saved_kwh"`
	SocialHelps     int       `json:"social_helps"`
	Badges          []string  `json:"badges,omitempty"`
	Achievements    []string  `json:"achievements,omitempty"`
}

// HasBadge reports whether the badge is already unlocked.
func (p Profile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes user-facing messages.
type NotificationType string

const (
	NotifyQuestComplete NotificationType = "quest_complete"
	NotifyMilestone     NotificationType = "milestone"
	NotifyLevelUp       NotificationType = "level_up"
	NotifyBadge         NotificationType = "badge"
)

// Notification is a user-facing message queued for display.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// NotificationPolicy governs delivery frequency per user.
type NotificationPolicy struct {
	MaxPerDay  int    `json:"max_per_day"`
	QuietStart string `json:"quiet_start"` // "22:00"
	QuietEnd   string `json:"quiet_end"`   // "08:00"
}

// DefaultNotificationPolicy returns the shipped policy.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		MaxPerDay:  5,
		QuietStart: "22:00",
		QuietEnd:   "08:00",
	}
}
