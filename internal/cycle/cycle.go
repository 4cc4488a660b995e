// Package cycle implements the 7-day phase calendar: four coffee days
// followed by three nicotine days, anchored to a per-user start date.
// Everything here is pure date arithmetic; "today" is always injected.
package cycle

import (
	"time"

	"telegram-cycle-coach/internal/models"
)

const (
	CycleDays  = 7
	CoffeeDays = 4
)

// Position locates a calendar day inside the cycle.
type Position struct {
	Phase      models.Phase
	DayInCycle int // 1..7
	DayInPhase int // 1..4 for coffee, 1..3 for nicotine
}

// Day formats a wall-clock instant as a civil date string.
func Day(t time.Time) string { return t.Format(models.DateLayout) }

// ParseDay parses a stored civil date. Dates are compared in a flat
// UTC-midnight space, independent of the bot's display time zone.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout, s, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// At returns the cycle position for today given the user's anchor and
// pause bookkeeping. Pausing freezes the position: days spent paused are
// subtracted from the elapsed count, so resuming continues exactly where
// the pause began.
func At(u models.User, today time.Time) (Position, error) {
	start, err := ParseDay(u.CycleStart)
	if err != nil {
		return Position{}, err
	}
	// Reduce the zoned instant to its civil date before comparing.
	day, err := ParseDay(Day(today))
	if err != nil {
		return Position{}, err
	}

	elapsed := daysBetween(start, day) - u.PauseDays
	if u.Paused && u.PauseStartedOn != "" {
		pauseStart, err := ParseDay(u.PauseStartedOn)
		if err != nil {
			return Position{}, err
		}
		elapsed -= daysBetween(pauseStart, day)
	}

	dic := ((elapsed%CycleDays)+CycleDays)%CycleDays + 1
	pos := Position{DayInCycle: dic}
	if dic <= CoffeeDays {
		pos.Phase = models.PhaseCoffee
		pos.DayInPhase = dic
	} else {
		pos.Phase = models.PhaseNicotine
		pos.DayInPhase = dic - CoffeeDays
	}
	return pos, nil
}

// SkipAnchor returns the new cycle_start after skipping the rest of the
// current phase: the anchor moves back by the days remaining in the phase,
// so today becomes day 1 of the opposite phase.
func SkipAnchor(u models.User, today time.Time) (string, error) {
	pos, err := At(u, today)
	if err != nil {
		return "", err
	}
	end := CoffeeDays
	if pos.Phase == models.PhaseNicotine {
		end = CycleDays
	}
	remaining := end - pos.DayInCycle + 1
	start, err := ParseDay(u.CycleStart)
	if err != nil {
		return "", err
	}
	return Day(start.AddDate(0, 0, -remaining)), nil
}

// ResetAnchor returns a cycle_start that makes today day 1 of the given
// phase. Callers zero the accumulated pause days alongside: the fresh
// anchor subsumes them.
func ResetAnchor(phase models.Phase, today time.Time) string {
	day, _ := ParseDay(Day(today))
	if phase == models.PhaseNicotine {
		day = day.AddDate(0, 0, -CoffeeDays)
	}
	return Day(day)
}
