package purchase

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled marks a purchase the user backed out of. Callers must not
// treat it as a failure.
var ErrCancelled = errors.New("purchase cancelled by user")

// ErrProviderNotConfigured means no purchase backend is reachable; the app
// should fall back to demo mode.
var ErrProviderNotConfigured = errors.New("purchase provider not configured")

// Offering is one purchasable subscription option.
type Offering struct {
	Identifier         string  `json:"identifier"`
	ProductID          string  `json:"productId"`
	PriceString        string  `json:"priceString"`
	Price              float64 `json:"price"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	SubscriptionPeriod string  `json:"subscriptionPeriod"`
}

// CustomerInfo is the entitlement snapshot reported by the purchase backend.
type CustomerInfo struct {
	IsPremium           bool     `json:"isPremium"`
	ActiveSubscriptions []string `json:"activeSubscriptions"`
	ExpirationDate      string   `json:"expirationDate,omitempty"`
}

// Listener receives entitlement-change pushes.
type Listener func(info CustomerInfo)

// Client is the purchase facade. Implementations: RemoteClient against the
// real backend, DemoClient simulating it locally.
type Client interface {
	GetOfferings(ctx context.Context) ([]Offering, error)
	// Purchase executes a purchase for the account. Returns ErrCancelled when
	// the user backs out; any other error is a real failure.
	Purchase(ctx context.Context, accountID, offeringID string) (CustomerInfo, error)
	RestorePurchases(ctx context.Context, accountID string) (CustomerInfo, error)
	GetCustomerInfo(ctx context.Context, accountID string) (CustomerInfo, error)
	// AddListener subscribes to entitlement pushes. The returned func
	// unsubscribes and is safe to call during a notification.
	AddListener(listener Listener) func()
}

// listenerRegistry fans entitlement pushes out to subscribers.
type listenerRegistry struct {
	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{listeners: make(map[int]Listener)}
}

func (r *listenerRegistry) add(listener Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = listener

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// notify calls every current listener synchronously. The snapshot means a
// listener unsubscribing mid-notification cannot corrupt the iteration.
func (r *listenerRegistry) notify(info CustomerInfo) {
	r.mu.Lock()
	snapshot := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		snapshot = append(snapshot, l)
	}
	r.mu.Unlock()

	for _, l := range snapshot {
		l(info)
	}
}
