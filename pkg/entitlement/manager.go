package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stillmind/meditation-service/pkg/metrics"
	"github.com/stillmind/meditation-service/pkg/purchase"
	"github.com/stillmind/meditation-service/pkg/store"
)

var (
	// ErrGuestNotAllowed guards trial and purchase operations: both require a
	// signed-in, non-anonymous account.
	ErrGuestNotAllowed = errors.New("operation requires a signed-in account")

	// ErrUnknownOffering means the requested offering is not in the current
	// offerings list.
	ErrUnknownOffering = errors.New("unknown offering")
)

// PurchaseOutcome distinguishes a completed purchase from a user-cancelled
// one. Cancellation is a normal outcome, not an error.
type PurchaseOutcome string

const (
	OutcomePurchased PurchaseOutcome = "purchased"
	OutcomeCancelled PurchaseOutcome = "cancelled"
)

// Listener observes entitlement changes for an account.
type Listener func(accountID string, status Status)

// Manager owns the entitlement/trial state machine. Status is always derived,
// never stored; the only mutable facts are the set-once trial-start timestamp
// and the sticky premium flag.
type Manager struct {
	trials trialStore
	client purchase.Client
	now    func() time.Time

	mu        sync.Mutex
	premium   map[string]bool
	listeners map[int]Listener
	nextID    int
}

// NewManager creates the entitlement manager.
func NewManager(kv store.Store, client purchase.Client) *Manager {
	return &Manager{
		trials:    trialStore{kv: kv},
		client:    client,
		now:       time.Now,
		premium:   make(map[string]bool),
		listeners: make(map[int]Listener),
	}
}

// Status resolves the account's current subscription status.
func (m *Manager) Status(ctx context.Context, accountID string) (Status, error) {
	premium, err := m.isPremium(ctx, accountID)
	if err != nil {
		return StatusNone, err
	}

	trialStart, err := m.trials.TrialStart(ctx, accountID)
	if err != nil {
		return StatusNone, err
	}

	return ResolveStatus(premium, trialStart, m.now()), nil
}

// TrialRemaining reports the time left in the account's trial window.
func (m *Manager) TrialRemaining(ctx context.Context, accountID string) (time.Duration, error) {
	trialStart, err := m.trials.TrialStart(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return TrialRemaining(trialStart, m.now()), nil
}

// StartTrial records the trial-start timestamp for the account if absent.
// Calling it again is a no-op: the trial is one-time by design and a start
// timestamp is never overwritten.
func (m *Manager) StartTrial(ctx context.Context, accountID string, anonymous bool) error {
	if accountID == "" || anonymous {
		return ErrGuestNotAllowed
	}

	existing, err := m.trials.TrialStart(ctx, accountID)
	if err != nil {
		return err
	}
	if existing != nil {
		logrus.Debugf("trial already started for account %s at %v", accountID, existing)
		return nil
	}

	start := m.now()
	if err := m.trials.SetTrialStart(ctx, accountID, start); err != nil {
		return fmt.Errorf("failed to record trial start: %w", err)
	}

	metrics.TrialsStarted.Inc()
	logrus.Infof("trial started for account %s", accountID)
	m.notify(ctx, accountID)
	return nil
}

// Offerings lists the purchasable subscription options.
func (m *Manager) Offerings(ctx context.Context) ([]purchase.Offering, error) {
	return m.client.GetOfferings(ctx)
}

// Purchase executes a purchase through the facade. The premium flag becomes
// sticky on success. A user cancellation is reported as OutcomeCancelled with
// a nil error; any other failure propagates for the caller to display.
func (m *Manager) Purchase(ctx context.Context, accountID string, anonymous bool, offeringID string) (PurchaseOutcome, error) {
	if accountID == "" || anonymous {
		return "", ErrGuestNotAllowed
	}

	offerings, err := m.client.GetOfferings(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list offerings: %w", err)
	}
	if !containsOffering(offerings, offeringID) {
		return "", ErrUnknownOffering
	}

	info, err := m.client.Purchase(ctx, accountID, offeringID)
	if errors.Is(err, purchase.ErrCancelled) {
		metrics.PurchasesTotal.WithLabelValues("cancelled").Inc()
		logrus.Infof("purchase cancelled by account %s", accountID)
		return OutcomeCancelled, nil
	}
	if err != nil {
		metrics.PurchasesTotal.WithLabelValues("failed").Inc()
		return "", err
	}

	m.setPremium(accountID, info.IsPremium)
	metrics.PurchasesTotal.WithLabelValues("purchased").Inc()
	logrus.Infof("purchase completed for account %s: premium=%v", accountID, info.IsPremium)
	m.notify(ctx, accountID)
	return OutcomePurchased, nil
}

// Restore re-queries the purchase facade for existing entitlements. A failure
// leaves the locally-known premium flag untouched; only a successful response
// updates it.
func (m *Manager) Restore(ctx context.Context, accountID string) (Status, error) {
	info, err := m.client.RestorePurchases(ctx, accountID)
	if err != nil {
		logrus.Warnf("restore failed for account %s, keeping prior entitlement: %v", accountID, err)
		return StatusNone, err
	}

	m.setPremium(accountID, info.IsPremium)
	logrus.Infof("restore completed for account %s: premium=%v", accountID, info.IsPremium)
	m.notify(ctx, accountID)
	return m.Status(ctx, accountID)
}

// Subscribe registers an entitlement-change listener. The returned func
// unsubscribes; calling it during a notification is safe.
func (m *Manager) Subscribe(listener Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) notify(ctx context.Context, accountID string) {
	status, err := m.Status(ctx, accountID)
	if err != nil {
		logrus.Errorf("failed to resolve status for notification: %v", err)
		return
	}

	m.mu.Lock()
	snapshot := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		snapshot = append(snapshot, l)
	}
	m.mu.Unlock()

	for _, l := range snapshot {
		l(accountID, status)
	}
}

// isPremium returns the cached premium flag, querying the purchase facade on
// first use per account. The flag is sticky: once true it can only be changed
// by a successful Restore.
func (m *Manager) isPremium(ctx context.Context, accountID string) (bool, error) {
	m.mu.Lock()
	premium, known := m.premium[accountID]
	m.mu.Unlock()
	if known {
		return premium, nil
	}

	info, err := m.client.GetCustomerInfo(ctx, accountID)
	if err != nil {
		// Transient facade failure must not lock a paying user out; report
		// not-premium without caching so the next call retries.
		logrus.Warnf("failed to query customer info for account %s: %v", accountID, err)
		return false, nil
	}

	m.setPremium(accountID, info.IsPremium)
	return info.IsPremium, nil
}

func (m *Manager) setPremium(accountID string, premium bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.premium[accountID] = premium
}

func containsOffering(offerings []purchase.Offering, id string) bool {
	for _, o := range offerings {
		if o.Identifier == id {
			return true
		}
	}
	return false
}
