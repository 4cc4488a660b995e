// Package messages holds every user-visible string: button labels, prompts
// and the formatters for status/cycle/history views.
package messages

import (
	"fmt"
	"strings"

	"telegram-cycle-coach/internal/analytics"
	"telegram-cycle-coach/internal/cycle"
	"telegram-cycle-coach/internal/dose"
	"telegram-cycle-coach/internal/models"
)

// Reply-keyboard button labels. Button presses arrive as plain text, so
// these double as command aliases.
const (
	BtnStatus = "📊 Status"
	BtnCycle  = "📅 Cycle"
	BtnLog    = "✍️ Log"
	BtnTimes  = "⏰ Times"
	BtnDoses  = "🎯 Doses"
	BtnSkip   = "⏭ Skip phase"
	BtnReset  = "🔄 Reset phase"
	BtnPause  = "⏸ Pause"
	BtnResume = "▶️ Resume"
)

const (
	Welcome = "Hi! I track your 7-day coffee/nicotine cycle: 4 coffee days, then 3 nicotine days.\n\n" +
		"Every morning I tell you the phase and target, every evening I ask what you consumed.\n" +
		"Use the menu below or /help for commands."

	Help = "Commands:\n" +
		"/status — today's phase, log and streaks\n" +
		"/cycle — where you are in the 7-day cycle\n" +
		"/history — the last 14 days\n" +
		"/log — record today's consumption\n" +
		"/times — change morning/evening notification times\n" +
		"/doses — change daily targets\n" +
		"/skip — jump to day 1 of the other phase\n" +
		"/reset — restart the current phase at day 1\n" +
		"/pause — suspend the cycle and all notifications\n" +
		"/resume — continue where you paused"

	PausedNotice = "The cycle is paused. Press " + BtnResume + " when you want to continue."
	Resumed      = "Welcome back! The cycle continues right where it stopped."

	AskLogValue   = "How many units did you consume today? Send a number (a note may follow, e.g. \"3 rough day\")."
	BadLogValue   = "I need a non-negative whole number, e.g. 2. Try again."
	AskMorning    = "When should the morning message arrive? (HH:MM, 24h)"
	AskEvening    = "And the evening prompt? (HH:MM, 24h)"
	BadClock      = "Please use HH:MM, e.g. 09:30."
	NudgeText     = "Still waiting for today's number. Log it before midnight or I'll file the day as no data."
	AutoLogText   = "No entry today, so I logged it as no data. Tomorrow is a fresh start."
	UnknownIdle   = "Not sure what you mean. /help lists everything I understand."
	AlreadyPaused = "Already paused."

	ToleranceWarning = "⚠️ Third day in a row at or above the tolerance threshold. Consider easing off, tolerance builds fast."
)

var (
	AskCoffee   = fmt.Sprintf("Daily coffee target? (%d–%d cups)", dose.CoffeeMin, dose.CoffeeMax)
	AskNicotine = fmt.Sprintf("Daily nicotine target? (%d–%d units)", dose.NicotineMin, dose.NicotineMax)
	BadCoffee   = fmt.Sprintf("A number between %d and %d, please.", dose.CoffeeMin, dose.CoffeeMax)
	BadNicotine = fmt.Sprintf("A number between %d and %d, please.", dose.NicotineMin, dose.NicotineMax)
)

func phaseName(p models.Phase) string {
	if p == models.PhaseNicotine {
		return "Nicotine 🚬"
	}
	return "Coffee ☕"
}

func phaseLen(p models.Phase) int {
	if p == models.PhaseNicotine {
		return cycle.CycleDays - cycle.CoffeeDays
	}
	return cycle.CoffeeDays
}

// Morning builds the morning slot message.
func Morning(pos cycle.Position, targets dose.Targets) string {
	target, _ := targets.ForPhase(pos.Phase)
	return fmt.Sprintf("Good morning! %s day %d of %d (cycle day %d/%d).\nToday's target: %d units.",
		phaseName(pos.Phase), pos.DayInPhase, phaseLen(pos.Phase),
		pos.DayInCycle, cycle.CycleDays, target)
}

// LogSaved confirms a stored entry against the phase target.
func LogSaved(l models.DailyLog, targets dose.Targets) string {
	target, threshold := targets.ForPhase(l.Phase)
	s := fmt.Sprintf("Logged %d units for %s.", l.Units, phaseName(l.Phase))
	switch {
	case l.Units <= target:
		s += " Within target 👍"
	case l.Units < threshold:
		s += fmt.Sprintf(" Over target (%d), still under the threshold (%d).", target, threshold)
	default:
		s += fmt.Sprintf(" At or above the threshold (%d).", threshold)
	}
	return s
}

// TimesSaved confirms the notification-times flow.
func TimesSaved(morning, evening string) string {
	return fmt.Sprintf("Saved. Morning message at %s, evening prompt at %s.", morning, evening)
}

// DosesSaved confirms the dose-set flow, naming the derived thresholds.
func DosesSaved(targets dose.Targets) string {
	_, ct := targets.ForPhase(models.PhaseCoffee)
	_, nt := targets.ForPhase(models.PhaseNicotine)
	return fmt.Sprintf("Saved. Coffee %d/day (warning from %d), nicotine %d/day (warning from %d).",
		targets.Coffee, ct, targets.Nicotine, nt)
}

// Skipped announces the phase jump.
func Skipped(pos cycle.Position) string {
	return fmt.Sprintf("Skipped ahead: today is now %s day 1.", phaseName(pos.Phase))
}

// WasReset announces the re-anchored phase.
func WasReset(pos cycle.Position) string {
	return fmt.Sprintf("Phase restarted: today is %s day 1 again.", phaseName(pos.Phase))
}

// PausedFrom announces a fresh pause.
func PausedFrom(day string) string {
	return fmt.Sprintf("Paused as of %s. No notifications until you resume; the cycle day is frozen.", day)
}

// CycleView renders the /cycle overview.
func CycleView(pos cycle.Position, u models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cycle day %d/%d — %s day %d of %d.\n",
		pos.DayInCycle, cycle.CycleDays, phaseName(pos.Phase), pos.DayInPhase, phaseLen(pos.Phase))
	fmt.Fprintf(&b, "Anchor: %s.", u.CycleStart)
	if u.PauseDays > 0 {
		fmt.Fprintf(&b, " Paused days so far: %d.", u.PauseDays)
	}
	return b.String()
}

// Status renders the /status report.
func Status(pos cycle.Position, u models.User, today *models.DailyLog,
	tolStreak int, win analytics.WindowReport) string {

	targets := dose.FromUser(u)
	target, threshold := targets.ForPhase(pos.Phase)

	var b strings.Builder
	fmt.Fprintf(&b, "%s day %d of %d (cycle day %d/%d)\n",
		phaseName(pos.Phase), pos.DayInPhase, phaseLen(pos.Phase), pos.DayInCycle, cycle.CycleDays)
	fmt.Fprintf(&b, "Target %d, warning from %d\n", target, threshold)

	switch {
	case today == nil:
		b.WriteString("Today: not logged yet\n")
	case !today.Logged():
		b.WriteString("Today: no data\n")
	default:
		fmt.Fprintf(&b, "Today: %d units\n", today.Units)
	}

	fmt.Fprintf(&b, "Tolerance streak: %d day(s)\n", tolStreak)
	fmt.Fprintf(&b, "Logging streak: %d day(s)\n", win.LoggedStreak)
	if win.LoggedDays > 0 {
		fmt.Fprintf(&b, "14-day average: %.1f units over %d logged day(s), trend %s",
			win.Average, win.LoggedDays, win.Trend)
	} else {
		b.WriteString("14-day average: no data yet")
	}
	return b.String()
}

// History renders the last-n-days listing, newest last.
func History(logs []models.DailyLog) string {
	if len(logs) == 0 {
		return "Nothing logged in the last 14 days."
	}
	var b strings.Builder
	b.WriteString("Last 14 days:\n")
	for _, l := range logs {
		glyph := "☕"
		if l.Phase == models.PhaseNicotine {
			glyph = "🚬"
		}
		if !l.Logged() {
			fmt.Fprintf(&b, "%s %s — no data\n", l.Day, glyph)
			continue
		}
		fmt.Fprintf(&b, "%s %s — %d", l.Day, glyph, l.Units)
		if l.Note != "" {
			fmt.Fprintf(&b, " (%s)", l.Note)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
