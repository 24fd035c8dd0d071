package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency. The API layer maps them
// to HTTP statuses; background work logs and retries instead.

var (
	// Lookup errors
	ErrTemplateNotFound = errors.New("quest template not found")
	ErrQuestNotFound    = errors.New("quest not found")
	ErrUserNotFound     = errors.New("user profile not found")

	// StartQuest rejections, surfaced synchronously and never retried
	ErrQuestAlreadyActive = errors.New("quest is already active")
	ErrQuestCapReached    = errors.New("active quest cap reached")
	ErrQuestNotStartable  = errors.New("quest is not in the available state")

	// Eligibility errors
	ErrLevelTooLow       = errors.New("user level below template requirement")
	ErrPrerequisiteUnmet = errors.New("template prerequisite not completed")

	// Tracking errors
	ErrQuestNotActive  = errors.New("quest is not active")
	ErrQuestIncomplete = errors.New("quest objectives not yet met")
)
