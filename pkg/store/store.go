package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no value exists under a key.
var ErrNotFound = errors.New("record not found")

// Store is the persistence facade: key to JSON-blob get/set/remove. Values are
// opaque strings; callers own serialization. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Fixed keys, one per record type. Account-scoped records append the account id.
const (
	keyPrefix = "stillmind:"

	KeyCredentials = keyPrefix + "credentials"
)

// AccountKey returns the key holding an account record.
func AccountKey(accountID string) string {
	return fmt.Sprintf("%saccount:%s", keyPrefix, accountID)
}

// HabitsKey returns the key holding an account's habit entry list.
func HabitsKey(accountID string) string {
	return fmt.Sprintf("%shabits:%s", keyPrefix, accountID)
}

// CompletedKey returns the key holding an account's completed-session id set.
func CompletedKey(accountID string) string {
	return fmt.Sprintf("%scompleted:%s", keyPrefix, accountID)
}

// StreaksKey returns the key holding an account's streak pair.
func StreaksKey(accountID string) string {
	return fmt.Sprintf("%sstreaks:%s", keyPrefix, accountID)
}

// TrialStartKey returns the key holding an account's trial-start timestamp.
func TrialStartKey(accountID string) string {
	return fmt.Sprintf("%strial_start:%s", keyPrefix, accountID)
}

// DemoPremiumKey returns the key holding an account's demo-mode premium flag.
func DemoPremiumKey(accountID string) string {
	return fmt.Sprintf("%sdemo_premium:%s", keyPrefix, accountID)
}

// ProfileKey returns the key holding an account's meditation profile.
func ProfileKey(accountID string) string {
	return fmt.Sprintf("%sprofile:%s", keyPrefix, accountID)
}
