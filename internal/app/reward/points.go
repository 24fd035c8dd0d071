// Package reward implements point scoring, leveling, and badge unlocking.
// Points compound through an ordered multiplier chain; every award goes
// through the ledger so re-application is a no-op.
package reward

import (
	"math"

	"github.com/wattquest/wattquest/internal/domain"
)

// ─── Base Point Values ──────────────────────────────────────────────────────

var basePoints = map[domain.ActionKind]int{
	domain.ActionQuestCompleted:   50,
	domain.ActionMilestoneReached: 10,
	domain.ActionTurnOffAppliance: 15,
	domain.ActionReduceUsage:      20,
	domain.ActionEcoMode:          25,
	domain.ActionShiftUsage:       18,
}

// ─── Multiplier Tables ──────────────────────────────────────────────────────
// Monotonic step tables: the highest applicable tier wins.

type tier struct {
	min  int
	mult float64
}

var levelTiers = []tier{
	{1, 1.0},
	{5, 1.1},
	{10, 1.2},
	{20, 1.35},
	{35, 1.5},
	{50, 1.75},
}

var streakTiers = []tier{
	{0, 1.0},
	{3, 1.2},
	{7, 1.5},
	{14, 1.75},
	{30, 2.0},
}

var timeOfDayMult = map[domain.TimeOfDay]float64{
	domain.PeakHours:         2.0,
	domain.OffPeakHours:      1.0,
	domain.SuperOffPeakHours: 1.25,
}

var difficultyMult = map[domain.Difficulty]float64{
	domain.DifficultyEasy:   1.0,
	domain.DifficultyMedium: 1.3,
	domain.DifficultyHard:   1.6,
}

func tierMult(tiers []tier, value int) float64 {
	mult := tiers[0].mult
	for _, t := range tiers {
		if value >= t.min {
			mult = t.mult
		}
	}
	return mult
}

// PointsContext carries the user state the multiplier chain consumes.
type PointsContext struct {
	Level      int
	StreakDays int
	TimeOfDay  domain.TimeOfDay
	Difficulty domain.Difficulty
}

// ComputePoints scores an action: base value multiplied in order by the
// level, streak, time-of-day, and difficulty multipliers, rounded to the
// nearest integer.
func ComputePoints(action domain.ActionKind, ctx PointsContext) int {
	base, ok := basePoints[action]
	if !ok {
		base = 10
	}

	v := float64(base)
	v *= tierMult(levelTiers, ctx.Level)
	v *= tierMult(streakTiers, ctx.StreakDays)
	if m, ok := timeOfDayMult[ctx.TimeOfDay]; ok {
		v *= m
	}
	if m, ok := difficultyMult[ctx.Difficulty]; ok {
		v *= m
	}
	return int(math.Round(v))
}
