// Package domain holds the pure types of the WattQuest engine.
// It imports no infrastructure; sqlite, telemetry, and HTTP all depend on
// this package, never the other way around.
package domain

import "time"

// ─── Template Types ─────────────────────────────────────────────────────────

// QuestType is the duration class of a quest template.
type QuestType string

const (
	QuestDaily     QuestType = "daily"
	QuestWeekly    QuestType = "weekly"
	QuestMonthly   QuestType = "monthly"
	QuestChallenge QuestType = "challenge"
	QuestCommunity QuestType = "community"
)

// Duration returns the validity window for this duration class.
// Challenge and community quests run on the weekly window.
func (t QuestType) Duration() time.Duration {
	switch t {
	case QuestDaily:
		return 24 * time.Hour
	case QuestMonthly:
		return 720 * time.Hour
	default:
		return 168 * time.Hour
	}
}

// Difficulty tiers a template's demand on the user.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// TargetMultiplier scales the instantiated reward by difficulty tier.
func (d Difficulty) TargetMultiplier() float64 {
	switch d {
	case DifficultyEasy:
		return 0.8
	case DifficultyHard:
		return 1.2
	default:
		return 1.0
	}
}

// ObjectiveKind selects the progress function applied to a quest.
type ObjectiveKind string

const (
	ObjectiveReduceConsumption    ObjectiveKind = "reduce_consumption"
	ObjectiveDeviceUsageThreshold ObjectiveKind = "device_usage_threshold"
	ObjectiveTimeWindowCompliance ObjectiveKind = "time_window_compliance"
	ObjectiveEfficiencyThreshold  ObjectiveKind = "efficiency_threshold"
	ObjectiveStreak               ObjectiveKind = "streak"
)

// ConditionKind names the metric a condition predicate inspects.
type ConditionKind string

const (
	CondDevicePower    ConditionKind = "device_power"    // watts drawn by the quest's device
	CondDeviceSetpoint ConditionKind = "device_setpoint" // °C setpoint reported by the device
	CondTotalPower     ConditionKind = "total_power"     // aggregate watts
	CondPowerFactor    ConditionKind = "power_factor"    // 0.0–1.0
)

// Operator compares an observed value against a condition threshold.
type Operator string

const (
	OpGTE Operator = "gte"
	OpLTE Operator = "lte"
	OpGT  Operator = "gt"
	OpLT  Operator = "lt"
)

// Compare applies the operator to (observed, threshold).
func (o Operator) Compare(observed, threshold float64) bool {
	switch o {
	case OpGTE:
		return observed >= threshold
	case OpLTE:
		return observed <= threshold
	case OpGT:
		return observed > threshold
	case OpLT:
		return observed < threshold
	}
	return false
}

// TimeWindow is an hour-of-day range. Wraps midnight when Start > End.
type TimeWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Contains reports whether t's hour falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	h := t.Hour()
	if w.StartHour <= w.EndHour {
		return h >= w.StartHour && h < w.EndHour
	}
	return h >= w.StartHour || h < w.EndHour
}

// Condition is one predicate a reading must satisfy to count toward a quest.
// DeviceType and Window are optional filters: a zero DeviceType matches the
// quest's own device, a nil Window matches any hour.
type Condition struct {
	Kind       ConditionKind `json:"kind"`
	Operator   Operator      `json:"operator"`
	Threshold  float64       `json:"threshold"`
	DeviceType string        `json:"device_type,omitempty"`
	Window     *TimeWindow   `json:"window,omitempty"`
}

// QuestTemplate is an immutable catalogue entry describing a quest family.
// Templates never mutate after registration.
type QuestTemplate struct {
	ID               string        `json:"id"`
	Category         string        `json:"category"`
	Type             QuestType     `json:"type"`
	Difficulty       Difficulty    `json:"difficulty"`
	Objective        ObjectiveKind `json:"objective"`
	Unit             string        `json:"unit"`
	BaseReward       int           `json:"base_reward"`
	Conditions       []Condition   `json:"conditions"`
	LevelRequirement int           `json:"level_requirement"`
	Prerequisites    []string      `json:"prerequisites,omitempty"`
	Repeatable       bool          `json:"repeatable"`
	TitleTemplate    string        `json:"title_template"`
	DescTemplate     string        `json:"desc_template"`
}

// ─── Opportunity Types ──────────────────────────────────────────────────────

// OpportunityContext records which device or metric drove an analyzer match.
// Ephemeral; opportunities are never persisted.
type OpportunityContext struct {
	DeviceID   string  `json:"device_id,omitempty"`
	DeviceType string  `json:"device_type,omitempty"`
	Metric     string  `json:"metric"`
	Value      float64 `json:"value"`
}

// Opportunity is a scored signal that a template fits the user's usage.
type Opportunity struct {
	TemplateID string             `json:"template_id"`
	Priority   int                `json:"priority"`  // rule weight, 1–10
	Potential  float64            `json:"potential"` // numeric gap driving the rule
	Context    OpportunityContext `json:"context"`
}

// Score ranks opportunities: priority dominates, potential breaks within-rule ties.
func (o Opportunity) Score() float64 {
	return float64(o.Priority)*10 + o.Potential
}
