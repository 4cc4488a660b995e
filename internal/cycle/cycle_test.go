package cycle

import (
	"testing"
	"time"

	"telegram-cycle-coach/internal/models"
)

func date(s string) time.Time {
	t, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func user(start string) models.User {
	return models.User{ChatID: 1, CycleStart: start}
}

func TestAtPhaseLayout(t *testing.T) {
	tests := []struct {
		today      string
		dayInCycle int
		phase      models.Phase
		dayInPhase int
	}{
		{"2024-01-01", 1, models.PhaseCoffee, 1},
		{"2024-01-02", 2, models.PhaseCoffee, 2},
		{"2024-01-04", 4, models.PhaseCoffee, 4},
		{"2024-01-05", 5, models.PhaseNicotine, 1},
		{"2024-01-07", 7, models.PhaseNicotine, 3},
		{"2024-01-08", 1, models.PhaseCoffee, 1}, // wraps
		{"2024-01-12", 5, models.PhaseNicotine, 1},
		{"2024-02-05", 1, models.PhaseCoffee, 1}, // 35 days later
	}
	for _, tc := range tests {
		pos, err := At(user("2024-01-01"), date(tc.today))
		if err != nil {
			t.Fatalf("At(%s): %v", tc.today, err)
		}
		if pos.DayInCycle != tc.dayInCycle || pos.Phase != tc.phase || pos.DayInPhase != tc.dayInPhase {
			t.Errorf("At(%s) = %+v, want day %d %s day-in-phase %d",
				tc.today, pos, tc.dayInCycle, tc.phase, tc.dayInPhase)
		}
	}
}

func TestAtPeriodSeven(t *testing.T) {
	u := user("2024-01-01")
	for i := 0; i < 60; i++ {
		day := date("2024-01-01").AddDate(0, 0, i)
		pos, err := At(u, day)
		if err != nil {
			t.Fatal(err)
		}
		if want := i%7 + 1; pos.DayInCycle != want {
			t.Fatalf("day offset %d: DayInCycle = %d, want %d", i, pos.DayInCycle, want)
		}
		later, err := At(u, day.AddDate(0, 0, 7))
		if err != nil {
			t.Fatal(err)
		}
		if later.DayInCycle != pos.DayInCycle {
			t.Fatalf("offset %d: period broken: %d vs %d", i, pos.DayInCycle, later.DayInCycle)
		}
	}
}

func TestAtZonedTodayUsesCivilDate(t *testing.T) {
	// 23:30 local on Jan 3 must still count as Jan 3.
	loc := time.FixedZone("UTC+3", 3*3600)
	today := time.Date(2024, 1, 3, 23, 30, 0, 0, loc)
	pos, err := At(user("2024-01-01"), today)
	if err != nil {
		t.Fatal(err)
	}
	if pos.DayInCycle != 3 {
		t.Errorf("DayInCycle = %d, want 3", pos.DayInCycle)
	}
}

func TestPauseFreezesPosition(t *testing.T) {
	u := user("2024-01-01")
	u.Paused = true
	u.PauseStartedOn = "2024-01-03"

	at, err := At(u, date("2024-01-03"))
	if err != nil {
		t.Fatal(err)
	}
	for _, today := range []string{"2024-01-04", "2024-01-10", "2024-03-01"} {
		pos, err := At(u, date(today))
		if err != nil {
			t.Fatal(err)
		}
		if pos != at {
			t.Errorf("paused position drifted by %s: %+v vs %+v", today, pos, at)
		}
	}
}

func TestResumeKeepsDayInCycle(t *testing.T) {
	u := user("2024-01-01")
	pauseDay := date("2024-01-03")
	before, err := At(u, pauseDay)
	if err != nil {
		t.Fatal(err)
	}

	// 12 real days pass while paused, then the pause is folded into
	// pause_days the way the resume command does it.
	resumeDay := pauseDay.AddDate(0, 0, 12)
	u.PauseDays = 12
	after, err := At(u, resumeDay)
	if err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Errorf("resume moved the cycle: %+v vs %+v", after, before)
	}
}

func TestSkipLandsOnOppositePhaseDayOne(t *testing.T) {
	for offset := 0; offset < 14; offset++ {
		u := user("2024-01-01")
		today := date("2024-01-01").AddDate(0, 0, offset)
		before, err := At(u, today)
		if err != nil {
			t.Fatal(err)
		}

		anchor, err := SkipAnchor(u, today)
		if err != nil {
			t.Fatal(err)
		}
		u.CycleStart = anchor
		after, err := At(u, today)
		if err != nil {
			t.Fatal(err)
		}

		if after.DayInPhase != 1 {
			t.Errorf("offset %d: DayInPhase = %d, want 1", offset, after.DayInPhase)
		}
		if after.Phase == before.Phase {
			t.Errorf("offset %d: phase did not flip (still %s)", offset, after.Phase)
		}
	}
}

func TestResetAnchorsTodayAsPhaseDayOne(t *testing.T) {
	for offset := 0; offset < 7; offset++ {
		u := user("2024-01-01")
		today := date("2024-03-01").AddDate(0, 0, offset)
		before, err := At(u, today)
		if err != nil {
			t.Fatal(err)
		}

		u.CycleStart = ResetAnchor(before.Phase, today)
		u.PauseDays = 0
		after, err := At(u, today)
		if err != nil {
			t.Fatal(err)
		}

		if after.Phase != before.Phase || after.DayInPhase != 1 {
			t.Errorf("offset %d: after reset %+v, want %s day 1", offset, after, before.Phase)
		}
	}
}

func TestAtNegativeElapsed(t *testing.T) {
	// Anchor in the future (clock skew, manual edits) must not panic and
	// must stay inside 1..7.
	pos, err := At(user("2024-06-01"), date("2024-05-30"))
	if err != nil {
		t.Fatal(err)
	}
	if pos.DayInCycle < 1 || pos.DayInCycle > CycleDays {
		t.Errorf("DayInCycle = %d out of range", pos.DayInCycle)
	}
}
