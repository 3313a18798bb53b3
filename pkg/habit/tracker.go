package habit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stillmind/meditation-service/pkg/metrics"
)

// Tracker owns habit history, the completed-session set and the streak pair
// for all accounts. All reads go straight to the repository; the tracker keeps
// no cache, so concurrent playback sessions for different accounts never see
// stale state.
type Tracker struct {
	repo     *Repository
	location *time.Location
	now      func() time.Time
}

type TrackerConfig struct {
	// Location is the timezone used to assign entries to calendar days and to
	// anchor streak computation. Defaults to UTC.
	Location *time.Location
}

// NewTracker creates a habit tracker.
func NewTracker(repo *Repository, cfg TrackerConfig) *Tracker {
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	return &Tracker{
		repo:     repo,
		location: location,
		now:      time.Now,
	}
}

// AddEntry appends one habit entry and recomputes the account's streaks.
func (t *Tracker) AddEntry(ctx context.Context, accountID, sessionID, sessionTitle string, durationMinutes, listenedMinutes int) error {
	now := t.now().In(t.location)

	entries, err := t.repo.Entries(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load habit entries: %w", err)
	}

	entry := Entry{
		ID:              uuid.New().String(),
		Date:            now.Format(DateLayout),
		SessionID:       sessionID,
		SessionTitle:    sessionTitle,
		DurationMinutes: durationMinutes,
		ListenedMinutes: listenedMinutes,
		CompletedAt:     now,
	}
	entries = append(entries, entry)

	if err := t.repo.SaveEntries(ctx, accountID, entries); err != nil {
		return fmt.Errorf("failed to save habit entries: %w", err)
	}
	metrics.HabitEntriesSaved.Inc()

	if err := t.recomputeStreaks(ctx, accountID, entries, now); err != nil {
		// The entry is already saved. A failed streak write degrades the
		// counters until the next successful recompute, nothing more.
		logrus.Errorf("failed to recompute streaks for account %s: %v", accountID, err)
	}

	logrus.Infof("recorded habit entry for account %s: session=%s listened=%dmin", accountID, sessionID, listenedMinutes)
	return nil
}

func (t *Tracker) recomputeStreaks(ctx context.Context, accountID string, entries []Entry, now time.Time) error {
	days := make([]string, len(entries))
	for i, e := range entries {
		days[i] = e.Date
	}

	streaks := ComputeStreaks(days, now)

	// Longest never shrinks, even if older entries were cleared.
	previous, err := t.repo.Streaks(ctx, accountID)
	if err != nil {
		return err
	}
	if previous.Longest > streaks.Longest {
		streaks.Longest = previous.Longest
	}

	return t.repo.SaveStreaks(ctx, accountID, streaks)
}

// MarkCompleted adds a session id to the account's completed set.
func (t *Tracker) MarkCompleted(ctx context.Context, accountID, sessionID string) error {
	set, err := t.repo.CompletedSessions(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load completed sessions: %w", err)
	}
	if set[sessionID] {
		return nil
	}
	set[sessionID] = true

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return t.repo.SaveCompletedSessions(ctx, accountID, ids)
}

// IsCompleted reports whether a session id is in the account's completed set.
func (t *Tracker) IsCompleted(ctx context.Context, accountID, sessionID string) (bool, error) {
	set, err := t.repo.CompletedSessions(ctx, accountID)
	if err != nil {
		return false, err
	}
	return set[sessionID], nil
}

// Entries returns the account's full habit history.
func (t *Tracker) Entries(ctx context.Context, accountID string) ([]Entry, error) {
	return t.repo.Entries(ctx, accountID)
}

// EntriesByDate returns the entries recorded on one calendar day.
func (t *Tracker) EntriesByDate(ctx context.Context, accountID, date string) ([]Entry, error) {
	entries, err := t.repo.Entries(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, e := range entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

// MonthlyStats summarizes one month: distinct practice days and total minutes.
func (t *Tracker) MonthlyStats(ctx context.Context, accountID string, year int, month time.Month) (MonthlyStats, error) {
	entries, err := t.repo.Entries(ctx, accountID)
	if err != nil {
		return MonthlyStats{}, err
	}

	prefix := fmt.Sprintf("%04d-%02d", year, month)
	days := make(map[string]bool)
	minutes := 0
	for _, e := range entries {
		if len(e.Date) >= len(prefix) && e.Date[:len(prefix)] == prefix {
			days[e.Date] = true
			minutes += e.listenedOrNominal()
		}
	}

	return MonthlyStats{Sessions: len(days), Minutes: minutes}, nil
}

// TotalListenedMinutes sums listened minutes over the whole history.
func (t *Tracker) TotalListenedMinutes(ctx context.Context, accountID string) (int, error) {
	entries, err := t.repo.Entries(ctx, accountID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, e := range entries {
		total += e.listenedOrNominal()
	}
	return total, nil
}

// Streaks returns the persisted streak pair.
func (t *Tracker) Streaks(ctx context.Context, accountID string) (Streaks, error) {
	return t.repo.Streaks(ctx, accountID)
}

// ClearAll wipes the account's habit history and current streak. The longest
// streak survives: it is a lifetime achievement, not a rolling window.
func (t *Tracker) ClearAll(ctx context.Context, accountID string) error {
	if err := t.repo.SaveEntries(ctx, accountID, []Entry{}); err != nil {
		return err
	}
	if err := t.repo.SaveCompletedSessions(ctx, accountID, []string{}); err != nil {
		return err
	}

	streaks, err := t.repo.Streaks(ctx, accountID)
	if err != nil {
		return err
	}
	streaks.Current = 0
	return t.repo.SaveStreaks(ctx, accountID, streaks)
}

// Entries written before listened-minutes tracking existed carry zero; fall
// back to the nominal duration the way the habit screen always has.
func (e Entry) listenedOrNominal() int {
	if e.ListenedMinutes > 0 {
		return e.ListenedMinutes
	}
	return e.DurationMinutes
}
