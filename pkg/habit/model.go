package habit

import "time"

// DateLayout is the calendar-day format used for entry dates and streak math.
const DateLayout = "2006-01-02"

// Entry is one persisted record of a completed or sufficiently-listened
// session. Entries are append-only.
type Entry struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"`
	SessionID       string    `json:"sessionId"`
	SessionTitle    string    `json:"sessionTitle"`
	DurationMinutes int       `json:"duration"`
	ListenedMinutes int       `json:"listenedMinutes"`
	CompletedAt     time.Time `json:"completedAt"`
}

// Streaks is the persisted streak pair for an account.
type Streaks struct {
	Current int `json:"currentStreak"`
	Longest int `json:"longestStreak"`
}

// MonthlyStats summarizes one calendar month of practice. Sessions counts
// distinct practice days, not individual entries.
type MonthlyStats struct {
	Sessions int `json:"sessions"`
	Minutes  int `json:"minutes"`
}
