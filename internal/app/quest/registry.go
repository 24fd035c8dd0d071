// Package quest implements the WattQuest quest engine: template catalogue,
// opportunity analysis, instantiation, progress tracking, and lifecycle
// supervision. Readings flow in, completed quests and reward handoffs flow out.
package quest

import (
	"github.com/wattquest/wattquest/internal/domain"
)

// Registry holds the fixed quest template catalogue, partitioned by duration
// class. Read-only after construction; safe for concurrent use.
type Registry struct {
	templates []domain.QuestTemplate
	byID      map[string]*domain.QuestTemplate
}

// NewRegistry creates a registry with the shipped catalogue.
func NewRegistry() *Registry {
	return NewRegistryWith(DefaultTemplates())
}

// NewRegistryWith creates a registry from an explicit template list.
// Registration order is preserved; analyzer tie-breaking depends on it.
func NewRegistryWith(templates []domain.QuestTemplate) *Registry {
	r := &Registry{
		templates: templates,
		byID:      make(map[string]*domain.QuestTemplate, len(templates)),
	}
	for i := range r.templates {
		r.byID[r.templates[i].ID] = &r.templates[i]
	}
	return r
}

// Template returns the template with the given id.
func (r *Registry) Template(id string) (domain.QuestTemplate, error) {
	t, ok := r.byID[id]
	if !ok {
		return domain.QuestTemplate{}, domain.ErrTemplateNotFound
	}
	return *t, nil
}

// All returns the full catalogue in registration order.
func (r *Registry) All() []domain.QuestTemplate {
	out := make([]domain.QuestTemplate, len(r.templates))
	copy(out, r.templates)
	return out
}

// ByType returns the catalogue partition for one duration class.
func (r *Registry) ByType(t domain.QuestType) []domain.QuestTemplate {
	var out []domain.QuestTemplate
	for _, tmpl := range r.templates {
		if tmpl.Type == t {
			out = append(out, tmpl)
		}
	}
	return out
}

// RegistrationIndex returns the position of a template in the catalogue.
// Used by the analyzer to break score ties deterministically.
func (r *Registry) RegistrationIndex(id string) int {
	for i, tmpl := range r.templates {
		if tmpl.ID == id {
			return i
		}
	}
	return len(r.templates)
}

// EligibleFor filters the catalogue for a user: level requirement met,
// prerequisites completed, and non-repeatable templates not yet completed.
// Pure lookup, no side effects.
func (r *Registry) EligibleFor(userLevel int, completedIDs []string) []domain.QuestTemplate {
	completed := make(map[string]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}

	var eligible []domain.QuestTemplate
	for _, tmpl := range r.templates {
		if tmpl.LevelRequirement > userLevel {
			continue
		}
		if !tmpl.Repeatable && completed[tmpl.ID] {
			continue
		}
		prereqsMet := true
		for _, pre := range tmpl.Prerequisites {
			if !completed[pre] {
				prereqsMet = false
				break
			}
		}
		if !prereqsMet {
			continue
		}
		eligible = append(eligible, tmpl)
	}
	return eligible
}

// ─── Template Catalogue ─────────────────────────────────────────────────────

// DefaultTemplates returns the shipped quest catalogue.
// Title and description templates use {device}, {target}, {percent}, {count}
// and {peak} placeholders filled in at instantiation.
func DefaultTemplates() []domain.QuestTemplate {
	return []domain.QuestTemplate{
		// ── Daily ──────────────────────────────────────────────────────
		{
			ID: "daily-device-diet", Category: "device_usage",
			Type: domain.QuestDaily, Difficulty: domain.DifficultyEasy,
			Objective: domain.ObjectiveDeviceUsageThreshold, Unit: "kWh",
			BaseReward: 50, Repeatable: true,
			Conditions: []domain.Condition{
				{Kind: domain.CondDevicePower, Operator: domain.OpLTE, Threshold: 400},
			},
			TitleTemplate: "Give your {device} a day off",
			DescTemplate:  "Keep your {device} under {target} kWh today.",
		},
		{
			ID: "daily-peak-dodger", Category: "peak_shaving",
			Type: domain.QuestDaily, Difficulty: domain.DifficultyMedium,
			Objective: domain.ObjectiveTimeWindowCompliance, Unit: "days",
			BaseReward: 80, Repeatable: true,
			Conditions: []domain.Condition{
				{Kind: domain.CondTotalPower, Operator: domain.OpLTE, Threshold: 1500,
					Window: &domain.TimeWindow{StartHour: 18, EndHour: 22}},
			},
			TitleTemplate: "Dodge the {peak} peak",
			DescTemplate:  "Keep total draw under 1.5 kW during the {peak} peak window.",
		},
		// ── Weekly ─────────────────────────────────────────────────────
		{
			ID: "weekly-consumption-cut", Category: "reduction",
			Type: domain.QuestWeekly, Difficulty: domain.DifficultyMedium,
			Objective: domain.ObjectiveReduceConsumption, Unit: "kWh",
			BaseReward: 150, Repeatable: true,
			TitleTemplate: "Cut {device} usage by {percent}%",
			DescTemplate:  "Bring your {device} down from {baseline} to {target} kWh per day this week.",
		},
		{
			ID: "ac-temperature-optimization", Category: "cooling",
			Type: domain.QuestWeekly, Difficulty: domain.DifficultyMedium,
			Objective: domain.ObjectiveStreak, Unit: "days",
			BaseReward: 120, Repeatable: true,
			Conditions: []domain.Condition{
				{Kind: domain.CondDeviceSetpoint, Operator: domain.OpGTE, Threshold: 24, DeviceType: "ac"},
			},
			TitleTemplate: "Comfort at 24°C",
			DescTemplate:  "Hold your AC at 24°C or above for {count} days.",
		},
		{
			ID: "weekly-efficiency-push", Category: "efficiency",
			Type: domain.QuestWeekly, Difficulty: domain.DifficultyHard,
			Objective: domain.ObjectiveEfficiencyThreshold, Unit: "score",
			BaseReward: 200, LevelRequirement: 3, Repeatable: true,
			Conditions: []domain.Condition{
				{Kind: domain.CondPowerFactor, Operator: domain.OpGTE, Threshold: 0.8},
			},
			TitleTemplate: "Reach efficiency {target}",
			DescTemplate:  "Raise your home efficiency score from {baseline} to {target}.",
		},
		// ── Monthly ────────────────────────────────────────────────────
		{
			ID: "monthly-household-trim", Category: "reduction",
			Type: domain.QuestMonthly, Difficulty: domain.DifficultyHard,
			Objective: domain.ObjectiveReduceConsumption, Unit: "kWh",
			BaseReward: 500, LevelRequirement: 5, Repeatable: true,
			Prerequisites: []string{"weekly-consumption-cut"},
			TitleTemplate: "The {percent}% household trim",
			DescTemplate:  "Reduce whole-home consumption from {baseline} to {target} kWh per day this month.",
		},
		// ── Challenge ──────────────────────────────────────────────────
		{
			ID: "challenge-night-owl", Category: "peak_shaving",
			Type: domain.QuestChallenge, Difficulty: domain.DifficultyHard,
			Objective: domain.ObjectiveStreak, Unit: "days",
			BaseReward: 300, LevelRequirement: 4,
			Conditions: []domain.Condition{
				{Kind: domain.CondTotalPower, Operator: domain.OpLTE, Threshold: 800,
					Window: &domain.TimeWindow{StartHour: 18, EndHour: 22}},
			},
			TitleTemplate: "Night owl challenge",
			DescTemplate:  "Stay under 800 W during the evening peak for {count} days straight.",
		},
		// ── Community ──────────────────────────────────────────────────
		{
			ID: "community-efficiency-club", Category: "efficiency",
			Type: domain.QuestCommunity, Difficulty: domain.DifficultyMedium,
			Objective: domain.ObjectiveEfficiencyThreshold, Unit: "score",
			BaseReward: 180, LevelRequirement: 2, Repeatable: true,
			Conditions: []domain.Condition{
				{Kind: domain.CondPowerFactor, Operator: domain.OpGTE, Threshold: 0.75},
			},
			TitleTemplate: "Neighborhood efficiency club",
			DescTemplate:  "Match the neighborhood's efficiency score of {target} this week.",
		},
	}
}
