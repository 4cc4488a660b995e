// Package analytics derives streaks, rolling averages and a coarse trend
// from the daily log history.
package analytics

import (
	"sort"
	"time"

	"telegram-cycle-coach/internal/cycle"
	"telegram-cycle-coach/internal/dose"
	"telegram-cycle-coach/internal/models"
)

// WarnStreak is the tolerance-streak length that triggers a warning.
const WarnStreak = 3

// trendEpsilon is the half-window mean difference below which consumption
// counts as flat.
const trendEpsilon = 0.25

// Trend classifies the direction of the rolling window.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// WindowReport summarizes the last-n-days window.
type WindowReport struct {
	Average      float64 // mean over days with a real value
	LoggedDays   int     // days in the window with a real value
	Trend        Trend
	LoggedStreak int // consecutive logged days ending today or yesterday
}

func byDayDesc(logs []models.DailyLog) []models.DailyLog {
	out := make([]models.DailyLog, len(logs))
	copy(out, logs)
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}

// ToleranceStreak counts trailing consecutive days, ending at the most
// recent log entry, where consumption reached that day's phase threshold.
// A gap, a no-data day, or a below-threshold day breaks the run.
func ToleranceStreak(logs []models.DailyLog, targets dose.Targets) int {
	rows := byDayDesc(logs)
	if len(rows) == 0 {
		return 0
	}

	streak := 0
	expect, err := cycle.ParseDay(rows[0].Day)
	if err != nil {
		return 0
	}
	for _, row := range rows {
		day, err := cycle.ParseDay(row.Day)
		if err != nil || !day.Equal(expect) {
			break // gap in the history
		}
		_, threshold := targets.ForPhase(row.Phase)
		if !row.Logged() || row.Units < threshold {
			break
		}
		streak++
		expect = expect.AddDate(0, 0, -1)
	}
	return streak
}

// Window reports average, trend and logging streak over the n calendar days
// ending today. No-data days are excluded from the averages but still break
// the logging streak.
func Window(logs []models.DailyLog, today time.Time, n int) WindowReport {
	end, err := cycle.ParseDay(cycle.Day(today))
	if err != nil || n <= 0 {
		return WindowReport{Trend: TrendFlat}
	}
	start := end.AddDate(0, 0, -(n - 1))

	byDay := make(map[string]models.DailyLog, len(logs))
	for _, l := range logs {
		byDay[l.Day] = l
	}

	var sum, firstSum, secondSum float64
	var count, firstCount, secondCount int
	half := n / 2
	for i := 0; i < n; i++ {
		day := cycle.Day(start.AddDate(0, 0, i))
		l, ok := byDay[day]
		if !ok || !l.Logged() {
			continue
		}
		sum += float64(l.Units)
		count++
		if i < half {
			firstSum += float64(l.Units)
			firstCount++
		} else {
			secondSum += float64(l.Units)
			secondCount++
		}
	}

	rep := WindowReport{LoggedDays: count, Trend: TrendFlat}
	if count > 0 {
		rep.Average = sum / float64(count)
	}
	if firstCount > 0 && secondCount > 0 {
		diff := secondSum/float64(secondCount) - firstSum/float64(firstCount)
		switch {
		case diff > trendEpsilon:
			rep.Trend = TrendUp
		case diff < -trendEpsilon:
			rep.Trend = TrendDown
		}
	}

	// Logging streak: walk back from today (or yesterday, if today is not
	// logged yet) over days carrying a real value. A day already closed as
	// no-data is a broken streak, not an open one.
	cursor := end
	if l, ok := byDay[cycle.Day(cursor)]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
	} else if !l.Logged() {
		return rep
	}
	for {
		l, ok := byDay[cycle.Day(cursor)]
		if !ok || !l.Logged() {
			break
		}
		rep.LoggedStreak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return rep
}
