// Package notify queues user-facing messages under a delivery policy.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wattquest/wattquest/internal/domain"
	"github.com/wattquest/wattquest/internal/infra/sqlite"
)

// Service manages quest notifications:
//   - at most MaxPerDay notifications per user per day
//   - nothing during quiet hours (QuietStart–QuietEnd)
//   - quest completions, milestones, level ups, and badge unlocks only
type Service struct {
	db     *sqlite.DB
	policy domain.NotificationPolicy
}

// NewService creates a notification service with the default policy.
func NewService(db *sqlite.DB) *Service {
	return &Service{db: db, policy: domain.DefaultNotificationPolicy()}
}

// NewServiceWithPolicy creates a notification service with a custom policy.
func NewServiceWithPolicy(db *sqlite.DB, policy domain.NotificationPolicy) *Service {
	return &Service{db: db, policy: policy}
}

// Create queues a notification if the policy allows it.
// Returns the notification ID, or 0 when suppressed by policy.
func (s *Service) Create(notif domain.Notification) (int64, error) {
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	dayStart := time.Date(notif.CreatedAt.Year(), notif.CreatedAt.Month(), notif.CreatedAt.Day(), 0, 0, 0, 0, notif.CreatedAt.Location())
	todayCount, err := s.db.NotificationCountSince(notif.UserID, dayStart)
	if err != nil {
		return 0, fmt.Errorf("count today: %w", err)
	}
	if todayCount >= s.policy.MaxPerDay {
		return 0, nil // suppressed, daily limit reached
	}
	if s.isQuietHour(notif.CreatedAt) {
		return 0, nil // suppressed, quiet hours
	}

	notif.Shown = false
	id, err := s.db.InsertNotification(notif)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// QuestCompleted queues the completion notification for a quest.
func (s *Service) QuestCompleted(q domain.Quest, points int, at time.Time) (int64, error) {
	return s.Create(domain.Notification{
		UserID:    q.UserID,
		Type:      domain.NotifyQuestComplete,
		Title:     "Quest complete!",
		Body:      fmt.Sprintf("%s finished. +%d points.", q.Title, points),
		CreatedAt: at,
	})
}

// Milestone queues a milestone-crossing notification.
func (s *Service) Milestone(q domain.Quest, milestone, bonus int, at time.Time) (int64, error) {
	return s.Create(domain.Notification{
		UserID:    q.UserID,
		Type:      domain.NotifyMilestone,
		Title:     fmt.Sprintf("%d%% there!", milestone),
		Body:      fmt.Sprintf("%s reached %d%%. +%d bonus points.", q.Title, milestone, bonus),
		CreatedAt: at,
	})
}

// LevelUp queues a level-up notification.
func (s *Service) LevelUp(userID string, level int, at time.Time) (int64, error) {
	return s.Create(domain.Notification{
		UserID:    userID,
		Type:      domain.NotifyLevelUp,
		Title:     "Level up!",
		Body:      fmt.Sprintf("You reached level %d.", level),
		CreatedAt: at,
	})
}

// Pending returns the user's unshown notifications.
func (s *Service) Pending(userID string, limit int) ([]domain.Notification, error) {
	return s.db.ListPendingNotifications(userID, limit)
}

// MarkShown marks a notification as shown.
func (s *Service) MarkShown(id int64) error {
	return s.db.MarkNotificationShown(id)
}

// Policy returns the active delivery policy.
func (s *Service) Policy() domain.NotificationPolicy {
	return s.policy
}

// isQuietHour reports whether t falls inside the quiet window.
func (s *Service) isQuietHour(t time.Time) bool {
	startHour, startMin := parseHHMM(s.policy.QuietStart)
	endHour, endMin := parseHHMM(s.policy.QuietEnd)

	minute := t.Hour()*60 + t.Minute()
	start := startHour*60 + startMin
	end := endHour*60 + endMin

	if start > end {
		// Wraps midnight, e.g. 22:00 to 08:00
		return minute >= start || minute < end
	}
	return minute >= start && minute < end
}

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(v string) (int, int) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m
}
