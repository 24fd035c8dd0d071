package quest

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wattquest/wattquest/internal/domain"
)

// Instantiator materializes a (template, opportunity) pair into a concrete,
// personalized quest instance. Pure computation plus id generation; the
// caller persists the result.
type Instantiator struct {
	registry *Registry
}

// NewInstantiator creates an instantiator over the given registry.
func NewInstantiator(registry *Registry) *Instantiator {
	return &Instantiator{registry: registry}
}

// reductionFraction is the cut asked of reduce_consumption quests.
const reductionFraction = 0.20

// Instantiate builds a quest from a template and the opportunity that
// selected it. Target is fixed here and never changes afterward.
func (in *Instantiator) Instantiate(userID string, tmpl domain.QuestTemplate, opp domain.Opportunity, now time.Time) (domain.Quest, error) {
	baseline, target := in.baselineTarget(tmpl, opp)

	q := domain.Quest{
		ID:           uuid.NewString(),
		TemplateID:   tmpl.ID,
		UserID:       userID,
		Baseline:     baseline,
		Target:       target,
		DeviceID:     opp.Context.DeviceID,
		DeviceType:   opp.Context.DeviceType,
		Difficulty:   tmpl.Difficulty,
		Conditions:   tmpl.Conditions,
		RewardPoints: RewardFor(tmpl, opp),
		Status:       domain.StatusAvailable,
		CreatedAt:    now,
		ValidUntil:   now.Add(tmpl.Type.Duration()),
		Objectives: []domain.Objective{
			{Kind: tmpl.Objective, Target: target, Unit: tmpl.Unit},
		},
	}

	q.Title = in.fill(tmpl.TitleTemplate, q, tmpl)
	q.Description = in.fill(tmpl.DescTemplate, q, tmpl)
	return q, nil
}

// baselineTarget computes the personalized baseline/target pair.
func (in *Instantiator) baselineTarget(tmpl domain.QuestTemplate, opp domain.Opportunity) (baseline, target float64) {
	switch tmpl.Objective {
	case domain.ObjectiveReduceConsumption:
		// Reduce current usage by a fixed fraction of its average.
		baseline = opp.Context.Value
		target = round1(baseline * (1 - reductionFraction))

	case domain.ObjectiveDeviceUsageThreshold:
		// Hold the device 15% below its current average.
		baseline = opp.Context.Value
		target = round1(baseline * 0.85)

	case domain.ObjectiveEfficiencyThreshold:
		baseline = opp.Context.Value
		target = targetEfficiency
		if target <= baseline {
			target = round1(baseline + 0.5)
		}

	case domain.ObjectiveTimeWindowCompliance, domain.ObjectiveStreak:
		baseline = 0
		target = float64(streakTargetDays(tmpl.Type))
	}
	return baseline, target
}

// streakTargetDays is the number of qualifying days asked of day-counting
// objectives, by duration class.
func streakTargetDays(t domain.QuestType) int {
	switch t {
	case domain.QuestDaily:
		return 1
	case domain.QuestMonthly:
		return 10
	case domain.QuestChallenge:
		return 5
	default:
		return 3
	}
}

// RewardFor computes the instantiated reward:
// round(baseReward * potentialMultiplier * difficultyMultiplier) with
// potentialMultiplier = min(2.0, 1 + potential/20).
func RewardFor(tmpl domain.QuestTemplate, opp domain.Opportunity) int {
	potentialMult := math.Min(2.0, 1+opp.Potential/20)
	return int(math.Round(float64(tmpl.BaseReward) * potentialMult * tmpl.Difficulty.TargetMultiplier()))
}

// fill substitutes named placeholders in title/description templates.
// Pure string formatting, no side effects.
func (in *Instantiator) fill(tpl string, q domain.Quest, tmpl domain.QuestTemplate) string {
	device := q.DeviceType
	if device == "" {
		device = "home"
	}
	r := strings.NewReplacer(
		"{device}", device,
		"{target}", trimFloat(q.Target),
		"{baseline}", trimFloat(q.Baseline),
		"{percent}", fmt.Sprintf("%.0f", reductionFraction*100),
		"{count}", fmt.Sprintf("%d", int(q.Target)),
		"{peak}", "18:00–22:00",
	)
	return r.Replace(tpl)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// trimFloat renders 8.0 as "8" and 3.4 as "3.4".
func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
