package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wattquest/wattquest/internal/domain"
)

// ─── Profile Store ──────────────────────────────────────────────────────────

// Profile retrieves the user's profile, creating a level-1 record on first use.
func (d *DB) Profile(userID string) (domain.Profile, error) {
	p, err := d.profileRow(userID)
	if err == sql.ErrNoRows {
		now := time.Now().Unix()
		_, insErr := d.db.Exec(
			`INSERT OR IGNORE INTO profiles (user_id, created_at, updated_at) VALUES (?, ?, ?)`,
			userID, now, now,
		)
		if insErr != nil {
			return domain.Profile{}, fmt.Errorf("create profile: %w", insErr)
		}
		p, err = d.profileRow(userID)
	}
	if err != nil {
		return domain.Profile{}, err
	}

	badges, achievements, err := d.unlocks(userID)
	if err != nil {
		return domain.Profile{}, err
	}
	p.Badges = badges
	p.Achievements = achievements
	return p, nil
}

func (d *DB) profileRow(userID string) (domain.Profile, error) {
	var p domain.Profile
	var lastActive sql.NullInt64
	err := d.db.QueryRow(
		`SELECT user_id, points, level, quests_completed, current_streak, longest_streak,
			last_active_day, energy_saved_kwh, social_helps
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.Points, &p.Level, &p.QuestsCompleted, &p.CurrentStreak,
		&p.LongestStreak, &lastActive, &p.EnergySavedKWh, &p.SocialHelps)
	if err != nil {
		return p, err
	}
	if lastActive.Valid {
		p.LastActiveDay = time.Unix(lastActive.Int64, 0).UTC()
	}
	return p, nil
}

// Level returns the user's current level (1 for unknown users).
func (d *DB) Level(userID string) (int, error) {
	var level int
	err := d.db.QueryRow(`SELECT level FROM profiles WHERE user_id = ?`, userID).Scan(&level)
	if err == sql.ErrNoRows {
		return 1, nil
	}
	return level, err
}

// SetLevel persists a recomputed level.
func (d *DB) SetLevel(userID string, level int) error {
	_, err := d.db.Exec(
		`UPDATE profiles SET level = ?, updated_at = ? WHERE user_id = ?`,
		level, time.Now().Unix(), userID,
	)
	return err
}

// ApplyAward credits points under a unique award key inside one transaction.
// Returns false when the key was already applied; the caller treats that as
// a clean no-op, which is what makes reward application idempotent.
func (d *DB) ApplyAward(userID, awardKey string, kind domain.ActionKind, points int) (bool, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT OR IGNORE INTO points_ledger (user_id, award_key, kind, points, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, awardKey, string(kind), points, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("ledger insert: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return false, nil // Already applied
	}

	if _, err := tx.Exec(
		`INSERT INTO profiles (user_id, points, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET points = points + excluded.points, updated_at = excluded.updated_at`,
		userID, points, time.Now().Unix(), time.Now().Unix(),
	); err != nil {
		return false, fmt.Errorf("credit points: %w", err)
	}

	return true, tx.Commit()
}

// TotalPoints returns the user's lifetime points.
func (d *DB) TotalPoints(userID string) (int64, error) {
	var points int64
	err := d.db.QueryRow(`SELECT points FROM profiles WHERE user_id = ?`, userID).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return points, err
}

// IncrementQuestsCompleted bumps the completed-quest counter.
func (d *DB) IncrementQuestsCompleted(userID string) error {
	_, err := d.db.Exec(
		`UPDATE profiles SET quests_completed = quests_completed + 1, updated_at = ? WHERE user_id = ?`,
		time.Now().Unix(), userID,
	)
	return err
}

// AddEnergySaved accumulates estimated kWh saved by completed quests.
func (d *DB) AddEnergySaved(userID string, kwh float64) error {
	if kwh <= 0 {
		return nil
	}
	_, err := d.db.Exec(
		`UPDATE profiles SET energy_saved_kwh = energy_saved_kwh + ?, updated_at = ? WHERE user_id = ?`,
		kwh, time.Now().Unix(), userID,
	)
	return err
}

// RecordActiveDay extends the user's daily-activity streak.
// Same or earlier day: no-op. Next day: extend. Longer gap: reset to 1.
func (d *DB) RecordActiveDay(userID string, day time.Time) error {
	p, err := d.Profile(userID)
	if err != nil {
		return err
	}

	today := day.UTC().Truncate(24 * time.Hour)
	if !p.LastActiveDay.IsZero() && !today.After(p.LastActiveDay.Truncate(24*time.Hour)) {
		return nil // Already counted, or a delayed reading from an earlier day
	}

	switch {
	case p.LastActiveDay.IsZero():
		p.CurrentStreak = 1
	case today.Sub(p.LastActiveDay.Truncate(24*time.Hour)) <= 24*time.Hour:
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}

	_, err = d.db.Exec(
		`UPDATE profiles SET current_streak = ?, longest_streak = ?, last_active_day = ?, updated_at = ?
		 WHERE user_id = ?`,
		p.CurrentStreak, p.LongestStreak, today.Unix(), time.Now().Unix(), userID,
	)
	return err
}

// ─── Badge / Achievement Unlocks ────────────────────────────────────────────

// UnlockBadge records a badge or achievement unlock.
// Returns false if already unlocked (idempotent).
func (d *DB) UnlockBadge(userID, badgeID, kind string, at time.Time) (bool, error) {
	result, err := d.db.Exec(
		`INSERT OR IGNORE INTO unlocks (user_id, unlock_id, kind, unlocked_at) VALUES (?, ?, ?, ?)`,
		userID, badgeID, kind, at.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil // true = newly unlocked
}

// unlocks returns the user's badge and achievement ids, oldest first.
func (d *DB) unlocks(userID string) (badges, achievements []string, err error) {
	rows, err := d.db.Query(
		`SELECT unlock_id, kind FROM unlocks WHERE user_id = ? ORDER BY unlocked_at ASC, unlock_id ASC`,
		userID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return nil, nil, err
		}
		if kind == "achievement" {
			achievements = append(achievements, id)
		} else {
			badges = append(badges, id)
		}
	}
	return badges, achievements, rows.Err()
}
