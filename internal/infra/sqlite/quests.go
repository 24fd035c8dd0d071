package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wattquest/wattquest/internal/domain"
)

// ─── Quest Store ────────────────────────────────────────────────────────────

const questColumns = `id, template_id, user_id, title, description, objectives, conditions,
	baseline, target, device_id, device_type, difficulty, reward_points,
	status, percentage, milestones, streak_days, qualifying_days,
	last_activity, created_at, started_at, valid_until, completed_at`

// InsertQuest creates a new quest instance record.
func (d *DB) InsertQuest(q domain.Quest) error {
	objectives, err := json.Marshal(q.Objectives)
	if err != nil {
		return fmt.Errorf("marshal objectives: %w", err)
	}
	conditions, err := json.Marshal(q.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	milestones, _ := json.Marshal(q.Milestones)
	days, _ := json.Marshal(q.QualifyingDays)

	_, err = d.db.Exec(
		`INSERT INTO quests (`+questColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.TemplateID, q.UserID, q.Title, q.Description, string(objectives), string(conditions),
		q.Baseline, q.Target, q.DeviceID, q.DeviceType, string(q.Difficulty), q.RewardPoints,
		string(q.Status), q.Percentage, string(milestones), q.StreakDays, string(days),
		nullableUnix(q.LastActivity), q.CreatedAt.Unix(), nullableUnix(q.StartedAt),
		q.ValidUntil.Unix(), nullableUnix(q.CompletedAt),
	)
	return err
}

// UpdateQuest persists the full mutable state of a quest.
// Progress application and persistence form one logical operation: callers
// retry on the next tick if this fails, so no partial state is committed.
func (d *DB) UpdateQuest(q domain.Quest) error {
	objectives, err := json.Marshal(q.Objectives)
	if err != nil {
		return fmt.Errorf("marshal objectives: %w", err)
	}
	milestones, _ := json.Marshal(q.Milestones)
	days, _ := json.Marshal(q.QualifyingDays)

	result, err := d.db.Exec(
		`UPDATE quests SET
			objectives = ?, status = ?, percentage = ?, milestones = ?,
			streak_days = ?, qualifying_days = ?, last_activity = ?,
			started_at = ?, valid_until = ?, completed_at = ?
		 WHERE id = ?`,
		string(objectives), string(q.Status), q.Percentage, string(milestones),
		q.StreakDays, string(days), nullableUnix(q.LastActivity),
		nullableUnix(q.StartedAt), q.ValidUntil.Unix(), nullableUnix(q.CompletedAt),
		q.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrQuestNotFound
	}
	return nil
}

// Quest retrieves a quest by ID. Returns ErrQuestNotFound if missing.
func (d *DB) Quest(id string) (*domain.Quest, error) {
	row := d.db.QueryRow(`SELECT `+questColumns+` FROM quests WHERE id = ?`, id)
	q, err := scanQuest(row)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, domain.ErrQuestNotFound
	}
	return q, nil
}

// ActiveForUser returns the user's active quests, oldest expiry first.
func (d *DB) ActiveForUser(userID string) ([]domain.Quest, error) {
	return d.questsByStatus(userID, domain.StatusActive)
}

// AvailableForUser returns the user's offered-but-unaccepted quests.
func (d *DB) AvailableForUser(userID string) ([]domain.Quest, error) {
	return d.questsByStatus(userID, domain.StatusAvailable)
}

func (d *DB) questsByStatus(userID string, status domain.QuestStatus) ([]domain.Quest, error) {
	rows, err := d.db.Query(
		`SELECT `+questColumns+` FROM quests
		 WHERE user_id = ? AND status = ? ORDER BY valid_until ASC`,
		userID, string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quests []domain.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, *q)
	}
	return quests, rows.Err()
}

// CountActive returns the number of active quests for the user.
func (d *DB) CountActive(userID string) (int, error) {
	var count int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM quests WHERE user_id = ? AND status = ?`,
		userID, string(domain.StatusActive),
	).Scan(&count)
	return count, err
}

// ExpiringBefore returns active quests whose validity window elapsed before t.
func (d *DB) ExpiringBefore(t time.Time) ([]domain.Quest, error) {
	rows, err := d.db.Query(
		`SELECT `+questColumns+` FROM quests
		 WHERE status = ? AND valid_until < ? ORDER BY valid_until ASC`,
		string(domain.StatusActive), t.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quests []domain.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, *q)
	}
	return quests, rows.Err()
}

// CompletedQuestIDs returns template ids the user has completed quests for.
func (d *DB) CompletedQuestIDs(userID string) ([]string, error) {
	rows, err := d.db.Query(
		`SELECT DISTINCT template_id FROM quests WHERE user_id = ? AND status = ?`,
		userID, string(domain.StatusCompleted),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ─── Scanners ───────────────────────────────────────────────────────────────

func scanQuest(s scanner) (*domain.Quest, error) {
	var q domain.Quest
	var objectives, conditions, milestones, days, status, difficulty string
	var lastActivity, startedAt, completedAt sql.NullInt64
	var createdAt, validUntil int64

	err := s.Scan(&q.ID, &q.TemplateID, &q.UserID, &q.Title, &q.Description,
		&objectives, &conditions, &q.Baseline, &q.Target, &q.DeviceID, &q.DeviceType,
		&difficulty, &q.RewardPoints, &status, &q.Percentage, &milestones,
		&q.StreakDays, &days, &lastActivity, &createdAt,
		&startedAt, &validUntil, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(objectives), &q.Objectives); err != nil {
		return nil, fmt.Errorf("unmarshal objectives: %w", err)
	}
	if err := json.Unmarshal([]byte(conditions), &q.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(milestones), &q.Milestones); err != nil {
		return nil, fmt.Errorf("unmarshal milestones: %w", err)
	}
	if err := json.Unmarshal([]byte(days), &q.QualifyingDays); err != nil {
		return nil, fmt.Errorf("unmarshal qualifying days: %w", err)
	}

	q.Status = domain.QuestStatus(status)
	q.Difficulty = domain.Difficulty(difficulty)
	q.CreatedAt = time.Unix(createdAt, 0)
	q.ValidUntil = time.Unix(validUntil, 0)
	if lastActivity.Valid {
		q.LastActivity = time.Unix(lastActivity.Int64, 0)
	}
	if startedAt.Valid {
		q.StartedAt = time.Unix(startedAt.Int64, 0)
	}
	if completedAt.Valid {
		q.CompletedAt = time.Unix(completedAt.Int64, 0)
	}
	return &q, nil
}

func nullableUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
