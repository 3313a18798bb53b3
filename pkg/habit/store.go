package habit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stillmind/meditation-service/pkg/store"
)

// Repository persists habit records through the key-value facade. Each record
// type lives under its own fixed key; values are JSON blobs.
type Repository struct {
	kv store.Store
}

// NewRepository creates a habit repository over the persistence facade.
func NewRepository(kv store.Store) *Repository {
	return &Repository{kv: kv}
}

// Entries loads the append-only entry list. A missing record is an empty list.
func (r *Repository) Entries(ctx context.Context, accountID string) ([]Entry, error) {
	data, err := r.kv.Get(ctx, store.HabitsKey(accountID))
	if errors.Is(err, store.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal habit entries: %w", err)
	}
	return entries, nil
}

// SaveEntries stores the full entry list.
func (r *Repository) SaveEntries(ctx context.Context, accountID string, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal habit entries: %w", err)
	}
	return r.kv.Set(ctx, store.HabitsKey(accountID), string(data))
}

// CompletedSessions loads the completed-session id set.
func (r *Repository) CompletedSessions(ctx context.Context, accountID string) (map[string]bool, error) {
	data, err := r.kv.Get(ctx, store.CompletedKey(accountID))
	if errors.Is(err, store.ErrNotFound) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completed sessions: %w", err)
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// SaveCompletedSessions stores the completed-session id set.
func (r *Repository) SaveCompletedSessions(ctx context.Context, accountID string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal completed sessions: %w", err)
	}
	return r.kv.Set(ctx, store.CompletedKey(accountID), string(data))
}

// Streaks loads the streak pair. A missing record is a zero pair.
func (r *Repository) Streaks(ctx context.Context, accountID string) (Streaks, error) {
	data, err := r.kv.Get(ctx, store.StreaksKey(accountID))
	if errors.Is(err, store.ErrNotFound) {
		return Streaks{}, nil
	}
	if err != nil {
		return Streaks{}, err
	}

	var streaks Streaks
	if err := json.Unmarshal([]byte(data), &streaks); err != nil {
		return Streaks{}, fmt.Errorf("failed to unmarshal streaks: %w", err)
	}
	return streaks, nil
}

// SaveStreaks stores the streak pair.
func (r *Repository) SaveStreaks(ctx context.Context, accountID string, streaks Streaks) error {
	data, err := json.Marshal(streaks)
	if err != nil {
		return fmt.Errorf("failed to marshal streaks: %w", err)
	}
	return r.kv.Set(ctx, store.StreaksKey(accountID), string(data))
}
