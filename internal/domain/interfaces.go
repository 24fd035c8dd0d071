package domain

import "time"

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// The engine consumes these narrow interfaces; sqlite and telemetry provide
// the shipped implementations. Constructors accept the interface, return the
// concrete service.

// ReadingSource is a per-user telemetry subscription.
type ReadingSource interface {
	// Subscribe registers a callback for the user's readings and returns
	// an unsubscribe function. Unsubscribing is idempotent.
	Subscribe(userID string, fn func(Reading)) (unsubscribe func())
}

// SnapshotSource produces the analyzer's per-user usage snapshot.
type SnapshotSource interface {
	Snapshot(userID string) (UsageSnapshot, error)
}

// ProfileStore owns user standing: points, level, badges, streaks.
type ProfileStore interface {
	Profile(userID string) (Profile, error)
	Level(userID string) (int, error)
	CompletedQuestIDs(userID string) ([]string, error)

	// ApplyAward credits points under a unique award key. Returns false
	// without error when the key was already applied, so at-most-once
	// semantics survive process restarts.
	ApplyAward(userID, awardKey string, kind ActionKind, points int) (bool, error)

	IncrementQuestsCompleted(userID string) error
	AddEnergySaved(userID string, kwh float64) error
	RecordActiveDay(userID string, day time.Time) error
	UnlockBadge(userID, badgeID, kind string, at time.Time) (bool, error)
	SetLevel(userID string, level int) error
}

// QuestStore persists quest instances and their progress state.
type QuestStore interface {
	InsertQuest(q Quest) error
	UpdateQuest(q Quest) error
	Quest(id string) (*Quest, error)
	ActiveForUser(userID string) ([]Quest, error)
	AvailableForUser(userID string) ([]Quest, error)
	CountActive(userID string) (int, error)
	ExpiringBefore(t time.Time) ([]Quest, error)
}
