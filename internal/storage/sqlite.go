package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"

	"telegram-cycle-coach/internal/models"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is the default file-backed store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// ---------- users -----------------------------------------------------------

func (s *SQLiteStore) UpsertUser(u *models.User) error {
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.Exec(`
        INSERT INTO users (chat_id, cycle_start, morning_at, evening_at,
                           coffee_target, nicotine_target, paused,
                           pause_started_on, pause_days, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(chat_id) DO UPDATE SET
            cycle_start=excluded.cycle_start,
            morning_at=excluded.morning_at,
            evening_at=excluded.evening_at,
            coffee_target=excluded.coffee_target,
            nicotine_target=excluded.nicotine_target,
            paused=excluded.paused,
            pause_started_on=excluded.pause_started_on,
            pause_days=excluded.pause_days
    `, u.ChatID, u.CycleStart, u.MorningAt, u.EveningAt,
		u.CoffeeTarget, u.NicotineTarget, u.Paused,
		nullable(u.PauseStartedOn), u.PauseDays, u.CreatedAt)
	return err
}

const userColumns = `chat_id, cycle_start, morning_at, evening_at,
    coffee_target, nicotine_target, paused, pause_started_on, pause_days, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var pauseStarted sql.NullString
	err := row.Scan(&u.ChatID, &u.CycleStart, &u.MorningAt, &u.EveningAt,
		&u.CoffeeTarget, &u.NicotineTarget, &u.Paused, &pauseStarted,
		&u.PauseDays, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.PauseStartedOn = pauseStarted.String
	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *SQLiteStore) GetUser(chatID int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE chat_id=?`, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (s *SQLiteStore) listUsers(where string) ([]models.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users` + where)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) ListUsers() ([]models.User, error) {
	return s.listUsers("")
}

func (s *SQLiteStore) ListActiveUsers() ([]models.User, error) {
	return s.listUsers(" WHERE paused=0")
}

func (s *SQLiteStore) UpdateTimes(chatID int64, morning, evening string) error {
	_, err := s.db.Exec(`UPDATE users SET morning_at=?, evening_at=? WHERE chat_id=?`,
		morning, evening, chatID)
	return err
}

func (s *SQLiteStore) UpdateTargets(chatID int64, coffee, nicotine int) error {
	_, err := s.db.Exec(`UPDATE users SET coffee_target=?, nicotine_target=? WHERE chat_id=?`,
		coffee, nicotine, chatID)
	return err
}

func (s *SQLiteStore) UpdateAnchor(chatID int64, cycleStart string, pauseDays int) error {
	_, err := s.db.Exec(`UPDATE users SET cycle_start=?, pause_days=? WHERE chat_id=?`,
		cycleStart, pauseDays, chatID)
	return err
}

// PauseUser is guarded on paused=0 so repeating the command never moves
// pause_started_on.
func (s *SQLiteStore) PauseUser(chatID int64, day string) error {
	_, err := s.db.Exec(`UPDATE users SET paused=1, pause_started_on=? WHERE chat_id=? AND paused=0`,
		day, chatID)
	return err
}

func (s *SQLiteStore) ResumeUser(chatID int64, pauseDays int) error {
	_, err := s.db.Exec(`UPDATE users SET paused=0, pause_started_on=NULL, pause_days=? WHERE chat_id=? AND paused=1`,
		pauseDays, chatID)
	return err
}

// ---------- daily logs ------------------------------------------------------

func (s *SQLiteStore) UpsertDailyLog(l models.DailyLog) error {
	_, err := s.db.Exec(`
        INSERT INTO daily_logs (chat_id, day, phase, units, note)
        VALUES (?,?,?,?,?)
        ON CONFLICT(chat_id, day) DO UPDATE SET
            phase=excluded.phase, units=excluded.units, note=excluded.note
    `, l.ChatID, l.Day, string(l.Phase), l.Units, l.Note)
	return err
}

func (s *SQLiteStore) InsertDailyLogIfAbsent(l models.DailyLog) (bool, error) {
	res, err := s.db.Exec(`
        INSERT INTO daily_logs (chat_id, day, phase, units, note)
        VALUES (?,?,?,?,?)
        ON CONFLICT(chat_id, day) DO NOTHING
    `, l.ChatID, l.Day, string(l.Phase), l.Units, l.Note)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *SQLiteStore) GetDailyLog(chatID int64, day string) (*models.DailyLog, error) {
	var l models.DailyLog
	var phase string
	err := s.db.QueryRow(`
        SELECT chat_id, day, phase, units, note FROM daily_logs
        WHERE chat_id=? AND day=?`, chatID, day,
	).Scan(&l.ChatID, &l.Day, &phase, &l.Units, &l.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.Phase = models.Phase(phase)
	return &l, nil
}

func (s *SQLiteStore) ListLogsSince(chatID int64, fromDay string) ([]models.DailyLog, error) {
	rows, err := s.db.Query(`
        SELECT chat_id, day, phase, units, note FROM daily_logs
        WHERE chat_id=? AND day>=? ORDER BY day`, chatID, fromDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.DailyLog
	for rows.Next() {
		var l models.DailyLog
		var phase string
		if err := rows.Scan(&l.ChatID, &l.Day, &phase, &l.Units, &l.Note); err != nil {
			return nil, err
		}
		l.Phase = models.Phase(phase)
		res = append(res, l)
	}
	return res, rows.Err()
}

// ---------- conversation state (fsm) ----------------------------------------

func (s *SQLiteStore) SetConversation(c models.Conversation) error {
	if c.StartedAt == 0 {
		c.StartedAt = time.Now().Unix()
	}
	_, err := s.db.Exec(`
        INSERT INTO conversations (chat_id, step, payload, started_at)
        VALUES (?,?,?,?)
        ON CONFLICT(chat_id) DO UPDATE SET
            step=excluded.step, payload=excluded.payload, started_at=excluded.started_at
    `, c.ChatID, string(c.Step), c.Payload, c.StartedAt)
	return err
}

func (s *SQLiteStore) GetConversation(chatID int64) (*models.Conversation, error) {
	var c models.Conversation
	var step string
	err := s.db.QueryRow(`
        SELECT chat_id, step, payload, started_at FROM conversations WHERE chat_id=?`,
		chatID,
	).Scan(&c.ChatID, &step, &c.Payload, &c.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Step = models.Step(step)
	return &c, nil
}

func (s *SQLiteStore) ClearConversation(chatID int64) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE chat_id=?`, chatID)
	return err
}

func (s *SQLiteStore) ClearConversationIf(chatID int64, step models.Step) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE chat_id=? AND step=?`,
		chatID, string(step))
	return err
}

// ---------- sent flags ------------------------------------------------------

func (s *SQLiteStore) ClaimSlot(chatID int64, day string, slot models.Slot) (bool, error) {
	res, err := s.db.Exec(`
        INSERT INTO sent_flags (chat_id, day, slot, sent_at)
        VALUES (?,?,?,?)
        ON CONFLICT(chat_id, day, slot) DO NOTHING
    `, chatID, day, string(slot), time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("claim slot: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
