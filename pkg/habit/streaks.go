package habit

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// ComputeStreaks derives the streak pair from entry dates. days holds the
// calendar-day strings of all entries (duplicates allowed), today is the
// current calendar day in the tracker's timezone.
//
// Longest is the longest run of consecutive days anywhere in the history.
// Current is the run ending at today, or at yesterday when today has no
// practice yet; a gap of a full day breaks it.
func ComputeStreaks(days []string, today time.Time) Streaks {
	unique := make(map[string]bool, len(days))
	for _, d := range days {
		unique[d] = true
	}
	if len(unique) == 0 {
		return Streaks{}
	}

	sorted := make([]time.Time, 0, len(unique))
	for d := range unique {
		parsed, err := time.Parse(DateLayout, d)
		if err != nil {
			logrus.Warnf("skipping malformed habit date %q: %v", d, err)
			continue
		}
		sorted = append(sorted, parsed)
	}
	if len(sorted) == 0 {
		return Streaks{}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	// Current streak: walk backwards from the most recent day. It only counts
	// if that day is today or yesterday.
	todayDay, _ := time.Parse(DateLayout, today.Format(DateLayout))
	last := sorted[len(sorted)-1]
	gap := todayDay.Sub(last)
	if gap < 0 || gap > 24*time.Hour {
		return Streaks{Current: 0, Longest: longest}
	}

	current := 1
	for i := len(sorted) - 2; i >= 0; i-- {
		if sorted[i+1].Sub(sorted[i]) != 24*time.Hour {
			break
		}
		current++
	}

	return Streaks{Current: current, Longest: longest}
}
