package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"telegram-cycle-coach/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

var _ Store = (*PostgresStore)(nil)

// PostgresStore backs the engine with Postgres for deployments where the
// sqlite file is not an option (multiple stateless instances).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// ---------- users -----------------------------------------------------------

func (s *PostgresStore) UpsertUser(u *models.User) error {
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.Exec(`
        INSERT INTO users (chat_id, cycle_start, morning_at, evening_at,
                           coffee_target, nicotine_target, paused,
                           pause_started_on, pause_days, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
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

func (s *PostgresStore) GetUser(chatID int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE chat_id=$1`, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (s *PostgresStore) listUsers(where string) ([]models.User, error) {
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

func (s *PostgresStore) ListUsers() ([]models.User, error) {
	return s.listUsers("")
}

func (s *PostgresStore) ListActiveUsers() ([]models.User, error) {
	return s.listUsers(" WHERE NOT paused")
}

func (s *PostgresStore) UpdateTimes(chatID int64, morning, evening string) error {
	_, err := s.db.Exec(`UPDATE users SET morning_at=$1, evening_at=$2 WHERE chat_id=$3`,
		morning, evening, chatID)
	return err
}

func (s *PostgresStore) UpdateTargets(chatID int64, coffee, nicotine int) error {
	_, err := s.db.Exec(`UPDATE users SET coffee_target=$1, nicotine_target=$2 WHERE chat_id=$3`,
		coffee, nicotine, chatID)
	return err
}

func (s *PostgresStore) UpdateAnchor(chatID int64, cycleStart string, pauseDays int) error {
	_, err := s.db.Exec(`UPDATE users SET cycle_start=$1, pause_days=$2 WHERE chat_id=$3`,
		cycleStart, pauseDays, chatID)
	return err
}

func (s *PostgresStore) PauseUser(chatID int64, day string) error {
	_, err := s.db.Exec(`UPDATE users SET paused=TRUE, pause_started_on=$1 WHERE chat_id=$2 AND NOT paused`,
		day, chatID)
	return err
}

func (s *PostgresStore) ResumeUser(chatID int64, pauseDays int) error {
	_, err := s.db.Exec(`UPDATE users SET paused=FALSE, pause_started_on=NULL, pause_days=$1 WHERE chat_id=$2 AND paused`,
		pauseDays, chatID)
	return err
}

// ---------- daily logs ------------------------------------------------------

func (s *PostgresStore) UpsertDailyLog(l models.DailyLog) error {
	_, err := s.db.Exec(`
        INSERT INTO daily_logs (chat_id, day, phase, units, note)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT(chat_id, day) DO UPDATE SET
            phase=excluded.phase, units=excluded.units, note=excluded.note
    `, l.ChatID, l.Day, string(l.Phase), l.Units, l.Note)
	return err
}

func (s *PostgresStore) InsertDailyLogIfAbsent(l models.DailyLog) (bool, error) {
	res, err := s.db.Exec(`
        INSERT INTO daily_logs (chat_id, day, phase, units, note)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT(chat_id, day) DO NOTHING
    `, l.ChatID, l.Day, string(l.Phase), l.Units, l.Note)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *PostgresStore) GetDailyLog(chatID int64, day string) (*models.DailyLog, error) {
	var l models.DailyLog
	var phase string
	err := s.db.QueryRow(`
        SELECT chat_id, day, phase, units, note FROM daily_logs
        WHERE chat_id=$1 AND day=$2`, chatID, day,
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

func (s *PostgresStore) ListLogsSince(chatID int64, fromDay string) ([]models.DailyLog, error) {
	rows, err := s.db.Query(`
        SELECT chat_id, day, phase, units, note FROM daily_logs
        WHERE chat_id=$1 AND day>=$2 ORDER BY day`, chatID, fromDay)
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

func (s *PostgresStore) SetConversation(c models.Conversation) error {
	if c.StartedAt == 0 {
		c.StartedAt = time.Now().Unix()
	}
	_, err := s.db.Exec(`
        INSERT INTO conversations (chat_id, step, payload, started_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT(chat_id) DO UPDATE SET
            step=excluded.step, payload=excluded.payload, started_at=excluded.started_at
    `, c.ChatID, string(c.Step), c.Payload, c.StartedAt)
	return err
}

func (s *PostgresStore) GetConversation(chatID int64) (*models.Conversation, error) {
	var c models.Conversation
	var step string
	err := s.db.QueryRow(`
        SELECT chat_id, step, payload, started_at FROM conversations WHERE chat_id=$1`,
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

func (s *PostgresStore) ClearConversation(chatID int64) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE chat_id=$1`, chatID)
	return err
}

func (s *PostgresStore) ClearConversationIf(chatID int64, step models.Step) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE chat_id=$1 AND step=$2`,
		chatID, string(step))
	return err
}

// ---------- sent flags ------------------------------------------------------

func (s *PostgresStore) ClaimSlot(chatID int64, day string, slot models.Slot) (bool, error) {
	res, err := s.db.Exec(`
        INSERT INTO sent_flags (chat_id, day, slot, sent_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT(chat_id, day, slot) DO NOTHING
    `, chatID, day, string(slot), time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("claim slot: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
