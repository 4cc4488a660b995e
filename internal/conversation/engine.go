// Package conversation advances the per-chat dialogue state machine.
// It consumes normalized inbound events and returns outbound payloads;
// all state lives in the store, so any instance can pick up any reply.
package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-cycle-coach/internal/analytics"
	"telegram-cycle-coach/internal/cycle"
	"telegram-cycle-coach/internal/dose"
	"telegram-cycle-coach/internal/messages"
	"telegram-cycle-coach/internal/models"
	"telegram-cycle-coach/internal/storage"
)

// historyDays bounds how far back analytics reads when reacting to input.
const historyDays = 60

// Defaults applied when a new chat starts the bot.
const (
	defaultMorning  = "09:00"
	defaultEvening  = "21:00"
	defaultCoffee   = 2
	defaultNicotine = 5
)

var clockRx = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Engine routes inbound events through commands and dialogue steps.
type Engine struct {
	store storage.Store
	loc   *time.Location
}

func New(store storage.Store, loc *time.Location) *Engine {
	return &Engine{store: store, loc: loc}
}

// Handle processes one inbound event at the given instant and returns the
// replies to deliver. A nil slice with nil error means deliberate silence.
func (e *Engine) Handle(now time.Time, ev models.Inbound) ([]models.Outbound, error) {
	today := now.In(e.loc)

	u, err := e.store.GetUser(ev.ChatID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return e.onboard(ev.ChatID, today)
	}

	cmd := command(ev.Text)

	if u.Paused {
		if cmd == "resume" {
			return e.resume(*u, today)
		}
		// Everything except resume is intercepted while paused.
		return reply(ev.ChatID, messages.PausedNotice, models.KeyboardPaused), nil
	}

	if cmd != "" {
		return e.dispatch(cmd, *u, today)
	}

	conv, err := e.store.GetConversation(ev.ChatID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return e.step(*u, *conv, ev.Text, today)
	}

	return reply(ev.ChatID, messages.UnknownIdle, models.KeyboardKeep), nil
}

// onboard creates the user row with defaults on first contact.
func (e *Engine) onboard(chatID int64, today time.Time) ([]models.Outbound, error) {
	u := &models.User{
		ChatID:         chatID,
		CycleStart:     cycle.Day(today),
		MorningAt:      defaultMorning,
		EveningAt:      defaultEvening,
		CoffeeTarget:   defaultCoffee,
		NicotineTarget: defaultNicotine,
	}
	if err := e.store.UpsertUser(u); err != nil {
		return nil, err
	}
	log.Info().Int64("chat_id", chatID).Msg("new user onboarded")
	return reply(chatID, messages.Welcome, models.KeyboardFull), nil
}

func (e *Engine) dispatch(cmd string, u models.User, today time.Time) ([]models.Outbound, error) {
	switch cmd {
	case "start":
		return reply(u.ChatID, messages.Welcome, models.KeyboardFull), nil
	case "help":
		return reply(u.ChatID, messages.Help, models.KeyboardKeep), nil
	case "status":
		return e.status(u, today)
	case "cycle":
		pos, err := cycle.At(u, today)
		if err != nil {
			return nil, err
		}
		return reply(u.ChatID, messages.CycleView(pos, u), models.KeyboardKeep), nil
	case "history":
		return e.history(u, today)
	case "log":
		return e.open(u.ChatID, models.StepAwaitLog, messages.AskLogValue)
	case "times":
		return e.open(u.ChatID, models.StepAwaitMorning, messages.AskMorning)
	case "doses":
		return e.open(u.ChatID, models.StepAwaitCoffee, messages.AskCoffee)
	case "skip":
		return e.skip(u, today)
	case "reset":
		return e.reset(u, today)
	case "pause":
		return e.pause(u, today)
	case "resume":
		return reply(u.ChatID, "The cycle isn't paused.", models.KeyboardKeep), nil
	default:
		return reply(u.ChatID, messages.UnknownIdle, models.KeyboardKeep), nil
	}
}

// open starts (or restarts) a dialogue flow; any previous flow is superseded.
func (e *Engine) open(chatID int64, step models.Step, prompt string) ([]models.Outbound, error) {
	err := e.store.SetConversation(models.Conversation{ChatID: chatID, Step: step})
	if err != nil {
		return nil, err
	}
	return reply(chatID, prompt, models.KeyboardKeep), nil
}

func (e *Engine) status(u models.User, today time.Time) ([]models.Outbound, error) {
	pos, err := cycle.At(u, today)
	if err != nil {
		return nil, err
	}
	day := cycle.Day(today)
	todayLog, err := e.store.GetDailyLog(u.ChatID, day)
	if err != nil {
		return nil, err
	}
	logs, err := e.recentLogs(u.ChatID, today)
	if err != nil {
		return nil, err
	}
	streak := analytics.ToleranceStreak(logs, dose.FromUser(u))
	win := analytics.Window(logs, today, 14)
	return reply(u.ChatID, messages.Status(pos, u, todayLog, streak, win), models.KeyboardKeep), nil
}

func (e *Engine) history(u models.User, today time.Time) ([]models.Outbound, error) {
	day, err := cycle.ParseDay(cycle.Day(today))
	if err != nil {
		return nil, err
	}
	logs, err := e.store.ListLogsSince(u.ChatID, cycle.Day(day.AddDate(0, 0, -13)))
	if err != nil {
		return nil, err
	}
	return reply(u.ChatID, messages.History(logs), models.KeyboardKeep), nil
}

func (e *Engine) skip(u models.User, today time.Time) ([]models.Outbound, error) {
	anchor, err := cycle.SkipAnchor(u, today)
	if err != nil {
		return nil, err
	}
	if err := e.store.UpdateAnchor(u.ChatID, anchor, u.PauseDays); err != nil {
		return nil, err
	}
	u.CycleStart = anchor
	pos, err := cycle.At(u, today)
	if err != nil {
		return nil, err
	}
	return reply(u.ChatID, messages.Skipped(pos), models.KeyboardKeep), nil
}

func (e *Engine) reset(u models.User, today time.Time) ([]models.Outbound, error) {
	pos, err := cycle.At(u, today)
	if err != nil {
		return nil, err
	}
	anchor := cycle.ResetAnchor(pos.Phase, today)
	// The fresh anchor subsumes earlier pauses.
	if err := e.store.UpdateAnchor(u.ChatID, anchor, 0); err != nil {
		return nil, err
	}
	u.CycleStart, u.PauseDays = anchor, 0
	pos, err = cycle.At(u, today)
	if err != nil {
		return nil, err
	}
	return reply(u.ChatID, messages.WasReset(pos), models.KeyboardKeep), nil
}

func (e *Engine) pause(u models.User, today time.Time) ([]models.Outbound, error) {
	day := cycle.Day(today)
	if err := e.store.PauseUser(u.ChatID, day); err != nil {
		return nil, err
	}
	if err := e.store.ClearConversation(u.ChatID); err != nil {
		return nil, err
	}
	log.Info().Int64("chat_id", u.ChatID).Str("day", day).Msg("cycle paused")
	return reply(u.ChatID, messages.PausedFrom(day), models.KeyboardPaused), nil
}

func (e *Engine) resume(u models.User, today time.Time) ([]models.Outbound, error) {
	pauseStart, err := cycle.ParseDay(u.PauseStartedOn)
	if err != nil {
		return nil, fmt.Errorf("pause start %q: %w", u.PauseStartedOn, err)
	}
	day, err := cycle.ParseDay(cycle.Day(today))
	if err != nil {
		return nil, err
	}
	total := u.PauseDays + int(day.Sub(pauseStart).Hours()/24)
	if err := e.store.ResumeUser(u.ChatID, total); err != nil {
		return nil, err
	}
	log.Info().Int64("chat_id", u.ChatID).Int("pause_days", total).Msg("cycle resumed")
	return reply(u.ChatID, messages.Resumed, models.KeyboardFull), nil
}

// step feeds dialogue input into the current flow.
func (e *Engine) step(u models.User, conv models.Conversation, text string, today time.Time) ([]models.Outbound, error) {
	text = strings.TrimSpace(text)

	switch conv.Step {
	case models.StepAwaitLog:
		return e.stepLog(u, text, today)

	case models.StepAwaitMorning:
		clock, ok := parseClock(text)
		if !ok {
			return reply(u.ChatID, messages.BadClock, models.KeyboardKeep), nil
		}
		conv.Step, conv.Payload = models.StepAwaitEvening, clock
		if err := e.store.SetConversation(conv); err != nil {
			return nil, err
		}
		return reply(u.ChatID, messages.AskEvening, models.KeyboardKeep), nil

	case models.StepAwaitEvening:
		clock, ok := parseClock(text)
		if !ok {
			return reply(u.ChatID, messages.BadClock, models.KeyboardKeep), nil
		}
		if err := e.store.UpdateTimes(u.ChatID, conv.Payload, clock); err != nil {
			return nil, err
		}
		if err := e.store.ClearConversation(u.ChatID); err != nil {
			return nil, err
		}
		return reply(u.ChatID, messages.TimesSaved(conv.Payload, clock), models.KeyboardKeep), nil

	case models.StepAwaitCoffee:
		n, err := strconv.Atoi(text)
		if err != nil || !dose.ValidCoffee(n) {
			return reply(u.ChatID, messages.BadCoffee, models.KeyboardKeep), nil
		}
		conv.Step, conv.Payload = models.StepAwaitNicotine, strconv.Itoa(n)
		if err := e.store.SetConversation(conv); err != nil {
			return nil, err
		}
		return reply(u.ChatID, messages.AskNicotine, models.KeyboardKeep), nil

	case models.StepAwaitNicotine:
		n, err := strconv.Atoi(text)
		if err != nil || !dose.ValidNicotine(n) {
			return reply(u.ChatID, messages.BadNicotine, models.KeyboardKeep), nil
		}
		coffee, err := strconv.Atoi(conv.Payload)
		if err != nil {
			return nil, fmt.Errorf("dose payload %q: %w", conv.Payload, err)
		}
		if err := e.store.UpdateTargets(u.ChatID, coffee, n); err != nil {
			return nil, err
		}
		if err := e.store.ClearConversation(u.ChatID); err != nil {
			return nil, err
		}
		return reply(u.ChatID, messages.DosesSaved(dose.Targets{Coffee: coffee, Nicotine: n}), models.KeyboardKeep), nil

	default:
		// Unknown persisted step, e.g. after a downgrade. Drop it.
		if err := e.store.ClearConversation(u.ChatID); err != nil {
			return nil, err
		}
		return reply(u.ChatID, messages.UnknownIdle, models.KeyboardKeep), nil
	}
}

// stepLog records today's consumption and runs the tolerance check.
func (e *Engine) stepLog(u models.User, text string, today time.Time) ([]models.Outbound, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return reply(u.ChatID, messages.BadLogValue, models.KeyboardKeep), nil
	}
	units, err := strconv.Atoi(fields[0])
	if err != nil || units < 0 {
		return reply(u.ChatID, messages.BadLogValue, models.KeyboardKeep), nil
	}

	pos, err := cycle.At(u, today)
	if err != nil {
		return nil, err
	}
	entry := models.DailyLog{
		ChatID: u.ChatID,
		Day:    cycle.Day(today),
		Phase:  pos.Phase,
		Units:  units,
		Note:   strings.Join(fields[1:], " "),
	}
	if err := e.store.UpsertDailyLog(entry); err != nil {
		return nil, err
	}
	if err := e.store.ClearConversation(u.ChatID); err != nil {
		return nil, err
	}

	logs, err := e.recentLogs(u.ChatID, today)
	if err != nil {
		return nil, err
	}
	out := reply(u.ChatID, messages.LogSaved(entry, dose.FromUser(u)), models.KeyboardKeep)
	if analytics.ToleranceStreak(logs, dose.FromUser(u)) == analytics.WarnStreak {
		out = append(out, models.Outbound{ChatID: u.ChatID, Text: messages.ToleranceWarning})
	}
	return out, nil
}

func (e *Engine) recentLogs(chatID int64, today time.Time) ([]models.DailyLog, error) {
	day, err := cycle.ParseDay(cycle.Day(today))
	if err != nil {
		return nil, err
	}
	return e.store.ListLogsSince(chatID, cycle.Day(day.AddDate(0, 0, -(historyDays-1))))
}

// command maps a slash command or a keyboard button press to its action
// name; "" means free text.
func command(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "/") {
		cmd := strings.TrimPrefix(t, "/")
		if i := strings.IndexAny(cmd, " @"); i >= 0 {
			cmd = cmd[:i]
		}
		switch cmd = strings.ToLower(cmd); cmd {
		case "start", "help", "status", "cycle", "history", "log",
			"times", "doses", "skip", "reset", "pause", "resume":
			return cmd
		}
		return ""
	}
	switch t {
	case messages.BtnStatus:
		return "status"
	case messages.BtnCycle:
		return "cycle"
	case messages.BtnLog:
		return "log"
	case messages.BtnTimes:
		return "times"
	case messages.BtnDoses:
		return "doses"
	case messages.BtnSkip:
		return "skip"
	case messages.BtnReset:
		return "reset"
	case messages.BtnPause:
		return "pause"
	case messages.BtnResume:
		return "resume"
	}
	return ""
}

func parseClock(text string) (string, bool) {
	m := clockRx.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if h > 23 || min > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, min), true
}

func reply(chatID int64, text string, kb models.Keyboard) []models.Outbound {
	return []models.Outbound{{ChatID: chatID, Text: text, Keyboard: kb}}
}
