package reward

import "github.com/wattquest/wattquest/internal/domain"

// ─── Badge & Achievement Catalogue ──────────────────────────────────────────
// Each entry has a predicate over the user's profile snapshot. A badge
// unlocks the instant its predicate holds; unlocking is one-time and
// idempotent (enforced by the unlocks table).

// KindBadge and KindAchievement partition the catalogue.
const (
	KindBadge       = "badge"
	KindAchievement = "achievement"
)

// BadgeDef defines a single unlockable.
type BadgeDef struct {
	ID        string                    `json:"id"`
	Name      string                    `json:"name"`
	Icon      string                    `json:"icon"`
	Kind      string                    `json:"kind"`
	Predicate func(domain.Profile) bool `json:"-"`
}

// AllBadges returns the full unlockable catalogue.
func AllBadges() []BadgeDef {
	return []BadgeDef{
		// ── Badges: quest progress ─────────────────────────────────────
		{
			ID: "first-quest", Name: "First Steps", Icon: "🎯", Kind: KindBadge,
			Predicate: func(p domain.Profile) bool { return p.QuestsCompleted >= 1 },
		},
		{
			ID: "quest-veteran", Name: "Quest Veteran", Icon: "🏅", Kind: KindBadge,
			Predicate: func(p domain.Profile) bool { return p.QuestsCompleted >= 10 },
		},
		{
			ID: "quest-legend", Name: "Quest Legend", Icon: "👑", Kind: KindBadge,
			Predicate: func(p domain.Profile) bool { return p.QuestsCompleted >= 50 },
		},

		// ── Badges: streaks ────────────────────────────────────────────
		{
			ID: "streak-7", Name: "Week Warrior", Icon: "🔥", Kind: KindBadge,
			Predicate: func(p domain.Profile) bool { return p.CurrentStreak >= 7 },
		},
		{
			ID: "streak-30", Name: "Monthly Machine", Icon: "💪", Kind: KindBadge,
			Predicate: func(p domain.Profile) bool { return p.CurrentStreak >= 30 },
		},

		// ── Badges: savings ────────────────────────────────────────────
		{
			ID: "saver-50", Name: "Kilowatt Saver", Icon: "💡", Kind: KindBadge,
			Predicate: func(p domain.Profile) bool { return p.EnergySavedKWh >= 50 },
		},
		{
			ID: "saver-500", Name: "Grid Guardian", Icon: "⚡", Kind: KindBadge,
			Predicate: func(p domain.Profile) bool { return p.EnergySavedKWh >= 500 },
		},

		// ── Achievements: points & levels ──────────────────────────────
		{
			ID: "points-1k", Name: "Point Collector", Icon: "🌟", Kind: KindAchievement,
			Predicate: func(p domain.Profile) bool { return p.Points >= 1000 },
		},
		{
			ID: "points-10k", Name: "Point Hoarder", Icon: "💰", Kind: KindAchievement,
			Predicate: func(p domain.Profile) bool { return p.Points >= 10000 },
		},
		{
			ID: "level-5", Name: "Rising Star", Icon: "🌅", Kind: KindAchievement,
			Predicate: func(p domain.Profile) bool { return p.Level >= 5 },
		},
		{
			ID: "level-10", Name: "Energy Veteran", Icon: "🎖️", Kind: KindAchievement,
			Predicate: func(p domain.Profile) bool { return p.Level >= 10 },
		},

		// ── Achievements: community ────────────────────────────────────
		{
			ID: "good-neighbor", Name: "Good Neighbor", Icon: "🤝", Kind: KindAchievement,
			Predicate: func(p domain.Profile) bool { return p.SocialHelps >= 5 },
		},
		{
			ID: "all-rounder", Name: "All-Rounder", Icon: "🏆", Kind: KindAchievement,
			Predicate: func(p domain.Profile) bool {
				return p.QuestsCompleted >= 10 && p.CurrentStreak >= 7 && p.EnergySavedKWh >= 50
			},
		},
	}
}
