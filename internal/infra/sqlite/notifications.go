package sqlite

import (
	"time"

	"github.com/wattquest/wattquest/internal/domain"
)

// ─── Notifications ──────────────────────────────────────────────────────────

// InsertNotification creates a new notification for a user.
func (d *DB) InsertNotification(n domain.Notification) (int64, error) {
	result, err := d.db.Exec(
		`INSERT INTO notifications (user_id, type, title, body, created_at, shown)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.UserID, string(n.Type), n.Title, n.Body, n.CreatedAt.Unix(), n.Shown,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// NotificationCountSince returns how many notifications the user received
// at or after the given time.
func (d *DB) NotificationCountSince(userID string, since time.Time) (int, error) {
	var count int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND created_at >= ?`,
		userID, since.Unix(),
	).Scan(&count)
	return count, err
}

// ListPendingNotifications returns a user's unshown notifications.
func (d *DB) ListPendingNotifications(userID string, limit int) ([]domain.Notification, error) {
	rows, err := d.db.Query(
		`SELECT id, user_id, type, title, body, created_at, shown
		 FROM notifications WHERE user_id = ? AND shown = 0
		 ORDER BY created_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var typ string
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Body, &createdAt, &n.Shown); err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(typ)
		n.CreatedAt = time.Unix(createdAt, 0)
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// MarkNotificationShown marks a notification as shown.
func (d *DB) MarkNotificationShown(id int64) error {
	_, err := d.db.Exec(`UPDATE notifications SET shown = 1 WHERE id = ?`, id)
	return err
}
