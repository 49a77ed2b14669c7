package services

import (
	"time"

	"github.com/clduab11/vibestack-backend/internal/models"
)

// StreakSnapshot is derived state: recomputed from the immutable ProgressRecord
// history instead of kept in a mutable column, so concurrent or out-of-order
// writes can never make it drift.
type StreakSnapshot struct {
	CurrentStreak    int     `json:"currentStreak"`
	LongestStreak    int     `json:"longestStreak"`
	TotalCompletions int     `json:"totalCompletions"`
	CompletionRate   float64 `json:"completionRate"`
}

var dayEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// NormalizeDate collapses a timestamp to midnight UTC of its calendar date in
// loc. Progress records store this value, so "same day" comparisons are exact.
func NormalizeDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayIndex(t time.Time) int {
	return int(t.Sub(dayEpoch).Hours() / 24)
}

// periodIndex maps a normalized date onto a contiguous integer axis for the
// habit's frequency: calendar days, ISO weeks (Monday-based) or calendar
// months. Two dates qualify as consecutive periods iff their indices differ by
// exactly one.
func periodIndex(freq models.HabitFrequency, t time.Time) int {
	switch freq {
	case models.FrequencyWeekly:
		// Shift back to the week's Monday, then count weeks since epoch.
		offset := (int(t.Weekday()) + 6) % 7
		return dayIndex(t.AddDate(0, 0, -offset)) / 7
	case models.FrequencyMonthly:
		y, m, _ := t.Date()
		return y*12 + int(m) - 1
	default:
		return dayIndex(t)
	}
}

// ComputeStreaks walks the ordered completion dates and derives the streak
// snapshot as of "today" in the user's timezone.
//
// The walk is equivalent to scanning from the most recent date backward: a
// streak continues while consecutive completions land in adjacent periods and
// halts at the first gap. The current streak lapses to zero once the latest
// completion is more than one full period old.
func ComputeStreaks(dates []time.Time, freq models.HabitFrequency, today time.Time, loc *time.Location) StreakSnapshot {
	snap := StreakSnapshot{TotalCompletions: len(dates)}
	if len(dates) == 0 {
		return snap
	}

	// Multiple completions within one period count once.
	indices := make([]int, 0, len(dates))
	for _, d := range dates {
		idx := periodIndex(freq, d)
		if n := len(indices); n > 0 && indices[n-1] == idx {
			continue
		}
		indices = append(indices, idx)
	}

	longest, run := 1, 1
	for i := 1; i < len(indices); i++ {
		if indices[i]-indices[i-1] == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	snap.LongestStreak = longest

	todayIdx := periodIndex(freq, NormalizeDate(today, loc))
	lastIdx := indices[len(indices)-1]
	if todayIdx-lastIdx <= 1 {
		// The trailing run is still alive: count it.
		current := 1
		for i := len(indices) - 1; i > 0; i-- {
			if indices[i]-indices[i-1] != 1 {
				break
			}
			current++
		}
		snap.CurrentStreak = current
	}

	// Completion rate over the window from the first completion to today.
	expected := todayIdx - indices[0] + 1
	if expected > 0 {
		rate := float64(len(indices)) / float64(expected)
		if rate > 1 {
			rate = 1
		}
		snap.CompletionRate = rate
	}

	return snap
}
