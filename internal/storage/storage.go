// Package storage persists cycle configuration, daily logs, conversation
// state and sent-flags behind a narrow Store interface. Backends: sqlite
// (default), Postgres, and an in-memory store for tests.
package storage

import (
	"strings"

	"telegram-cycle-coach/internal/models"
)

// Store is the transactional row store the engine runs against. Every
// conditional mutation (claim a slot, insert-if-absent) is atomic at the
// store level; the engine holds no cross-invocation locks.
type Store interface {
	GetUser(chatID int64) (*models.User, error) // nil, nil when absent
	UpsertUser(u *models.User) error
	ListUsers() ([]models.User, error)
	ListActiveUsers() ([]models.User, error) // paused users excluded

	UpdateTimes(chatID int64, morning, evening string) error
	UpdateTargets(chatID int64, coffee, nicotine int) error
	// UpdateAnchor rewrites the cycle anchor and the accumulated pause days
	// together (skip and reset re-anchoring).
	UpdateAnchor(chatID int64, cycleStart string, pauseDays int) error
	// PauseUser marks the user paused as of day; no-op if already paused.
	PauseUser(chatID int64, day string) error
	// ResumeUser clears the pause and stores the new accumulated total;
	// no-op if not paused.
	ResumeUser(chatID int64, pauseDays int) error

	UpsertDailyLog(l models.DailyLog) error
	// InsertDailyLogIfAbsent writes the entry only when no row exists for
	// that day yet. Reports whether the insert happened.
	InsertDailyLogIfAbsent(l models.DailyLog) (bool, error)
	GetDailyLog(chatID int64, day string) (*models.DailyLog, error)
	ListLogsSince(chatID int64, fromDay string) ([]models.DailyLog, error)

	GetConversation(chatID int64) (*models.Conversation, error) // nil = idle
	SetConversation(c models.Conversation) error
	ClearConversation(chatID int64) error
	// ClearConversationIf deletes the conversation only while it still sits
	// on the given step.
	ClearConversationIf(chatID int64, step models.Step) error

	// ClaimSlot atomically records that a notification slot fired for
	// (chat, day). Reports whether this caller won the claim; a concurrent
	// tick losing the race gets false, nil.
	ClaimSlot(chatID int64, day string, slot models.Slot) (bool, error)

	Close() error
}

// Open picks a backend from the DSN: postgres:// URLs go to lib/pq,
// anything else is treated as a sqlite file path.
func Open(dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(dsn)
	}
	return NewSQLiteStore(dsn)
}
