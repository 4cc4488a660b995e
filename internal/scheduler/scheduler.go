// Package scheduler turns minute ticks into notification slots. Each slot
// fires at most once per chat per day: a durable sent-flag is claimed
// before anything is emitted, so concurrent or duplicate ticks are safe.
package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"telegram-cycle-coach/internal/cycle"
	"telegram-cycle-coach/internal/dose"
	"telegram-cycle-coach/internal/messages"
	"telegram-cycle-coach/internal/models"
	"telegram-cycle-coach/internal/storage"
)

const (
	// nudgeDelay is how long after the evening prompt the reminder fires.
	nudgeDelay = 60
	// autoLogAt is when an unanswered day is closed with the no-data entry.
	autoLogAt = "23:55"
)

// Notifier decides which slots fire for a given instant.
type Notifier struct {
	store storage.Store
	loc   *time.Location
}

func NewNotifier(store storage.Store, loc *time.Location) *Notifier {
	return &Notifier{store: store, loc: loc}
}

// Tick evaluates all four slots for every non-paused user. A storage error
// for one user is logged and does not block the others.
func (n *Notifier) Tick(now time.Time) ([]models.Outbound, error) {
	users, err := n.store.ListActiveUsers()
	if err != nil {
		return nil, err
	}

	local := now.In(n.loc)
	var out []models.Outbound
	for _, u := range users {
		msgs, err := n.tickUser(u, local)
		if err != nil {
			log.Error().Err(err).Int64("chat_id", u.ChatID).Msg("tick failed for user")
			continue
		}
		out = append(out, msgs...)
	}
	return out, nil
}

func (n *Notifier) tickUser(u models.User, local time.Time) ([]models.Outbound, error) {
	day := cycle.Day(local)
	minute := local.Hour()*60 + local.Minute()

	var out []models.Outbound

	if due(minute, clockMinutes(u.MorningAt)) {
		msg, err := n.fireMorning(u, local, day)
		if err != nil {
			return out, err
		}
		out = append(out, msg...)
	}

	eveningMin := clockMinutes(u.EveningAt)
	if due(minute, eveningMin) {
		msg, err := n.fireEvening(u, day)
		if err != nil {
			return out, err
		}
		out = append(out, msg...)
	}

	if due(minute, eveningMin+nudgeDelay) {
		msg, err := n.fireNudge(u, day)
		if err != nil {
			return out, err
		}
		out = append(out, msg...)
	}

	if due(minute, clockMinutes(autoLogAt)) {
		msg, err := n.fireAutoLog(u, local, day)
		if err != nil {
			return out, err
		}
		out = append(out, msg...)
	}

	return out, nil
}

func (n *Notifier) fireMorning(u models.User, local time.Time, day string) ([]models.Outbound, error) {
	claimed, err := n.store.ClaimSlot(u.ChatID, day, models.SlotMorning)
	if err != nil || !claimed {
		return nil, err
	}
	pos, err := cycle.At(u, local)
	if err != nil {
		return nil, err
	}
	return []models.Outbound{{
		ChatID: u.ChatID,
		Text:   messages.Morning(pos, dose.FromUser(u)),
	}}, nil
}

// fireEvening opens the log dialogue along with the prompt.
func (n *Notifier) fireEvening(u models.User, day string) ([]models.Outbound, error) {
	claimed, err := n.store.ClaimSlot(u.ChatID, day, models.SlotEvening)
	if err != nil || !claimed {
		return nil, err
	}
	err = n.store.SetConversation(models.Conversation{ChatID: u.ChatID, Step: models.StepAwaitLog})
	if err != nil {
		return nil, err
	}
	return []models.Outbound{{ChatID: u.ChatID, Text: messages.AskLogValue}}, nil
}

// fireNudge reminds only while the day is still unlogged; it leaves the
// conversation alone.
func (n *Notifier) fireNudge(u models.User, day string) ([]models.Outbound, error) {
	entry, err := n.store.GetDailyLog(u.ChatID, day)
	if err != nil || entry != nil {
		return nil, err
	}
	claimed, err := n.store.ClaimSlot(u.ChatID, day, models.SlotNudge)
	if err != nil || !claimed {
		return nil, err
	}
	return []models.Outbound{{ChatID: u.ChatID, Text: messages.NudgeText}}, nil
}

// fireAutoLog closes an unanswered day with the no-data sentinel and drops
// a dangling log dialogue. The insert is conditional: if the user logged
// between the check and the write, nothing happens.
func (n *Notifier) fireAutoLog(u models.User, local time.Time, day string) ([]models.Outbound, error) {
	entry, err := n.store.GetDailyLog(u.ChatID, day)
	if err != nil || entry != nil {
		return nil, err
	}
	claimed, err := n.store.ClaimSlot(u.ChatID, day, models.SlotAutoLog)
	if err != nil || !claimed {
		return nil, err
	}
	pos, err := cycle.At(u, local)
	if err != nil {
		return nil, err
	}
	inserted, err := n.store.InsertDailyLogIfAbsent(models.DailyLog{
		ChatID: u.ChatID,
		Day:    day,
		Phase:  pos.Phase,
		Units:  models.NoData,
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, nil
	}
	if err := n.store.ClearConversationIf(u.ChatID, models.StepAwaitLog); err != nil {
		return nil, err
	}
	return []models.Outbound{{ChatID: u.ChatID, Text: messages.AutoLogText}}, nil
}

// due reports whether a slot time has arrived. The ≥ comparison lets a slot
// catch up if ticks were missed around its exact minute.
func due(nowMin, slotMin int) bool { return nowMin >= slotMin }

// clockMinutes converts "HH:MM" to minutes since midnight; malformed values
// park the slot past the end of the day.
func clockMinutes(clock string) int {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 24 * 60
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 24 * 60
	}
	return h*60 + m
}

// Start registers the minute job on a gocron scheduler and begins ticking.
// The clock is injected so tests can drive time by hand.
func Start(n *Notifier, clock clockwork.Clock, deliver func([]models.Outbound)) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			out, err := n.Tick(clock.Now())
			if err != nil {
				log.Error().Err(err).Msg("scheduler tick failed")
				return
			}
			if len(out) > 0 {
				deliver(out)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	return s, nil
}
