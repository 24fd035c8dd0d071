package reward

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/wattquest/wattquest/internal/domain"
)

// ─── Reward Service ─────────────────────────────────────────────────────────
// Applies point awards to the profile store. Every award carries a unique
// key; replaying a key is a no-op, so completion and milestone bonuses land
// at most once no matter how often the caller retries.

// Service computes and applies rewards.
type Service struct {
	profiles domain.ProfileStore
}

// NewService returns a reward service over the given profile store.
func NewService(profiles domain.ProfileStore) *Service {
	return &Service{profiles: profiles}
}

// ApplyQuestCompletion credits the quest's reward, updates lifetime stats,
// recomputes the level, and unlocks any newly-earned badges. The returned
// result lists everything that changed; leveledUp reports a level increase.
func (s *Service) ApplyQuestCompletion(q *domain.Quest, now time.Time) (domain.RewardResult, bool, int, error) {
	res := domain.RewardResult{QuestID: q.ID}

	key := "quest:" + q.ID
	applied, err := s.profiles.ApplyAward(q.UserID, key, domain.ActionQuestCompleted, q.RewardPoints)
	if err != nil {
		return res, false, 0, fmt.Errorf("apply completion award: %w", err)
	}
	if !applied {
		// Already credited on an earlier attempt. Nothing else to do.
		return res, false, 0, nil
	}
	res.Points = q.RewardPoints

	if err := s.profiles.IncrementQuestsCompleted(q.UserID); err != nil {
		return res, false, 0, fmt.Errorf("increment completions: %w", err)
	}
	if saved := q.Baseline - q.Target; saved > 0 {
		if err := s.profiles.AddEnergySaved(q.UserID, saved); err != nil {
			return res, false, 0, fmt.Errorf("add energy saved: %w", err)
		}
	}

	leveledUp, newLevel, err := s.syncLevel(q.UserID)
	if err != nil {
		return res, false, 0, err
	}

	badges, achievements, err := s.CheckAndUnlock(q.UserID, now)
	if err != nil {
		log.Printf("[reward] badge check for %s: %v", q.UserID, err)
	}
	res.Badges = badges
	res.Achievements = achievements

	return res, leveledUp, newLevel, nil
}

// ApplyMilestoneBonus credits the bonus for crossing a progress milestone.
// Returns the points credited, or 0 when this milestone was already paid.
func (s *Service) ApplyMilestoneBonus(userID, questID string, milestone int) (int, error) {
	bonus := domain.MilestoneBonus(milestone)
	if bonus <= 0 {
		return 0, nil
	}
	key := fmt.Sprintf("milestone:%s:%d", questID, milestone)
	applied, err := s.profiles.ApplyAward(userID, key, domain.ActionMilestoneReached, bonus)
	if err != nil {
		return 0, fmt.Errorf("apply milestone award: %w", err)
	}
	if !applied {
		return 0, nil
	}
	if _, _, err := s.syncLevel(userID); err != nil {
		return bonus, err
	}
	return bonus, nil
}

// RecordAction credits an ad-hoc point-earning action (eco mode, shifting
// usage off peak). Points scale with the user's level, streak, and the
// tariff period the action falls into.
func (s *Service) RecordAction(userID string, kind domain.ActionKind, at time.Time) (int, error) {
	p, err := s.profiles.Profile(userID)
	if err != nil {
		return 0, fmt.Errorf("load profile: %w", err)
	}
	// Ad-hoc actions carry no quest difficulty.
	pts := ComputePoints(kind, PointsContext{
		Level:      p.Level,
		StreakDays: p.CurrentStreak,
		TimeOfDay:  domain.TimeOfDayFor(at),
	})
	key := "action:" + uuid.NewString()
	if _, err := s.profiles.ApplyAward(userID, key, kind, pts); err != nil {
		return 0, fmt.Errorf("apply action award: %w", err)
	}
	if _, _, err := s.syncLevel(userID); err != nil {
		return pts, err
	}
	return pts, nil
}

// CheckAndUnlock evaluates the catalogue against the user's current profile
// and unlocks anything newly earned. Returns the freshly unlocked IDs split
// by kind.
func (s *Service) CheckAndUnlock(userID string, now time.Time) (badges, achievements []string, err error) {
	p, err := s.profiles.Profile(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	for _, def := range AllBadges() {
		if !def.Predicate(p) {
			continue
		}
		fresh, err := s.profiles.UnlockBadge(userID, def.ID, def.Kind, now)
		if err != nil {
			return badges, achievements, fmt.Errorf("unlock %s: %w", def.ID, err)
		}
		if !fresh {
			continue
		}
		if def.Kind == KindAchievement {
			achievements = append(achievements, def.ID)
		} else {
			badges = append(badges, def.ID)
		}
	}
	return badges, achievements, nil
}

// syncLevel recomputes the level from total points and persists an increase.
// Levels never go down.
func (s *Service) syncLevel(userID string) (bool, int, error) {
	p, err := s.profiles.Profile(userID)
	if err != nil {
		return false, 0, fmt.Errorf("load profile: %w", err)
	}
	want := LevelForPoints(p.Points)
	if want <= p.Level {
		return false, p.Level, nil
	}
	if err := s.profiles.SetLevel(userID, want); err != nil {
		return false, p.Level, fmt.Errorf("set level: %w", err)
	}
	return true, want, nil
}
