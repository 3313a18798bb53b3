package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stillmind/meditation-service/pkg/store"
)

// trialStore persists the per-account trial-start timestamp through the
// key-value facade.
type trialStore struct {
	kv store.Store
}

// TrialStart returns the account's trial-start timestamp, or nil when no
// trial was ever started.
func (s *trialStore) TrialStart(ctx context.Context, accountID string) (*time.Time, error) {
	data, err := s.kv.Get(ctx, store.TrialStartKey(accountID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(time.RFC3339, data)
	if err != nil {
		return nil, fmt.Errorf("malformed trial-start timestamp for account %s: %w", accountID, err)
	}
	return &start, nil
}

// SetTrialStart records the trial-start timestamp.
func (s *trialStore) SetTrialStart(ctx context.Context, accountID string, start time.Time) error {
	return s.kv.Set(ctx, store.TrialStartKey(accountID), start.Format(time.RFC3339))
}
