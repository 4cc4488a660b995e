package storage

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"telegram-cycle-coach/internal/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in maps behind a mutex. It exists for tests;
// the mutex gives it the same conditional-write atomicity the SQL backends
// get from their unique keys.
type MemoryStore struct {
	mu    sync.Mutex
	users map[int64]models.User
	logs  map[int64]map[string]models.DailyLog
	convs map[int64]models.Conversation
	flags map[string]struct{} // "chatID|day|slot"
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]models.User),
		logs:  make(map[int64]map[string]models.DailyLog),
		convs: make(map[int64]models.Conversation),
		flags: make(map[string]struct{}),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetUser(chatID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chatID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemoryStore) UpsertUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	s.users[u.ChatID] = *u
	return nil
}

func (s *MemoryStore) list(active bool) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []models.User
	for _, u := range s.users {
		if active && u.Paused {
			continue
		}
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ChatID < res[j].ChatID })
	return res, nil
}

func (s *MemoryStore) ListUsers() ([]models.User, error)       { return s.list(false) }
func (s *MemoryStore) ListActiveUsers() ([]models.User, error) { return s.list(true) }

func (s *MemoryStore) update(chatID int64, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chatID]
	if !ok {
		return nil
	}
	fn(&u)
	s.users[chatID] = u
	return nil
}

func (s *MemoryStore) UpdateTimes(chatID int64, morning, evening string) error {
	return s.update(chatID, func(u *models.User) {
		u.MorningAt, u.EveningAt = morning, evening
	})
}

func (s *MemoryStore) UpdateTargets(chatID int64, coffee, nicotine int) error {
	return s.update(chatID, func(u *models.User) {
		u.CoffeeTarget, u.NicotineTarget = coffee, nicotine
	})
}

func (s *MemoryStore) UpdateAnchor(chatID int64, cycleStart string, pauseDays int) error {
	return s.update(chatID, func(u *models.User) {
		u.CycleStart, u.PauseDays = cycleStart, pauseDays
	})
}

func (s *MemoryStore) PauseUser(chatID int64, day string) error {
	return s.update(chatID, func(u *models.User) {
		if !u.Paused {
			u.Paused, u.PauseStartedOn = true, day
		}
	})
}

func (s *MemoryStore) ResumeUser(chatID int64, pauseDays int) error {
	return s.update(chatID, func(u *models.User) {
		if u.Paused {
			u.Paused, u.PauseStartedOn, u.PauseDays = false, "", pauseDays
		}
	})
}

func (s *MemoryStore) UpsertDailyLog(l models.DailyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logs[l.ChatID] == nil {
		s.logs[l.ChatID] = make(map[string]models.DailyLog)
	}
	s.logs[l.ChatID][l.Day] = l
	return nil
}

func (s *MemoryStore) InsertDailyLogIfAbsent(l models.DailyLog) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logs[l.ChatID] == nil {
		s.logs[l.ChatID] = make(map[string]models.DailyLog)
	}
	if _, exists := s.logs[l.ChatID][l.Day]; exists {
		return false, nil
	}
	s.logs[l.ChatID][l.Day] = l
	return true, nil
}

func (s *MemoryStore) GetDailyLog(chatID int64, day string) (*models.DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[chatID][day]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *MemoryStore) ListLogsSince(chatID int64, fromDay string) ([]models.DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []models.DailyLog
	for day, l := range s.logs[chatID] {
		if day >= fromDay {
			res = append(res, l)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Day < res[j].Day })
	return res, nil
}

func (s *MemoryStore) GetConversation(chatID int64) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[chatID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryStore) SetConversation(c models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.StartedAt == 0 {
		c.StartedAt = time.Now().Unix()
	}
	s.convs[c.ChatID] = c
	return nil
}

func (s *MemoryStore) ClearConversation(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, chatID)
	return nil
}

func (s *MemoryStore) ClearConversationIf(chatID int64, step models.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[chatID]; ok && c.Step == step {
		delete(s.convs, chatID)
	}
	return nil
}

func (s *MemoryStore) ClaimSlot(chatID int64, day string, slot models.Slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := day + "|" + string(slot) + "|" + strconv.FormatInt(chatID, 10)
	if _, claimed := s.flags[key]; claimed {
		return false, nil
	}
	s.flags[key] = struct{}{}
	return true, nil
}
