package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/stillmind/meditation-service/pkg/purchase"
	"github.com/stillmind/meditation-service/pkg/store"
)

func setupTestStore(t *testing.T) (store.Store, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.NewRedisStore(client, store.RedisStoreConfig{}), mr
}

// fakePurchaseClient scripts the purchase facade for manager tests.
type fakePurchaseClient struct {
	offerings    []purchase.Offering
	purchaseErr  error
	purchaseInfo purchase.CustomerInfo
	restoreErr   error
	restoreInfo  purchase.CustomerInfo
	customerInfo purchase.CustomerInfo
	customerErr  error
}

func (f *fakePurchaseClient) GetOfferings(ctx context.Context) ([]purchase.Offering, error) {
	return f.offerings, nil
}

func (f *fakePurchaseClient) Purchase(ctx context.Context, accountID, offeringID string) (purchase.CustomerInfo, error) {
	return f.purchaseInfo, f.purchaseErr
}

func (f *fakePurchaseClient) RestorePurchases(ctx context.Context, accountID string) (purchase.CustomerInfo, error) {
	return f.restoreInfo, f.restoreErr
}

func (f *fakePurchaseClient) GetCustomerInfo(ctx context.Context, accountID string) (purchase.CustomerInfo, error) {
	return f.customerInfo, f.customerErr
}

func (f *fakePurchaseClient) AddListener(listener purchase.Listener) func() {
	return func() {}
}

func monthlyOffering() []purchase.Offering {
	return []purchase.Offering{{Identifier: "$rc_monthly", ProductID: "premium_monthly", PriceString: "$9.99"}}
}

func TestStartTrial_SetOnce(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	m := NewManager(kv, &fakePurchaseClient{})

	start := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	if err := m.StartTrial(ctx, "acct-1", false); err != nil {
		t.Fatalf("StartTrial() error = %v", err)
	}

	// A second call a day later must not move the window.
	m.now = func() time.Time { return start.Add(48 * time.Hour) }
	if err := m.StartTrial(ctx, "acct-1", false); err != nil {
		t.Fatalf("second StartTrial() error = %v", err)
	}

	status, err := m.Status(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != StatusTrialExpired {
		t.Errorf("Status() = %s, expected trial_expired (start timestamp must not be overwritten)", status)
	}
}

func TestStartTrial_GuestRejected(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	m := NewManager(kv, &fakePurchaseClient{})

	if err := m.StartTrial(context.Background(), "guest-1", true); !errors.Is(err, ErrGuestNotAllowed) {
		t.Errorf("StartTrial(guest) error = %v, expected ErrGuestNotAllowed", err)
	}
	if err := m.StartTrial(context.Background(), "", false); !errors.Is(err, ErrGuestNotAllowed) {
		t.Errorf("StartTrial(empty id) error = %v, expected ErrGuestNotAllowed", err)
	}
}

func TestPurchase_Success(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	client := &fakePurchaseClient{
		offerings:    monthlyOffering(),
		purchaseInfo: purchase.CustomerInfo{IsPremium: true},
	}
	m := NewManager(kv, client)

	outcome, err := m.Purchase(ctx, "acct-1", false, "$rc_monthly")
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if outcome != OutcomePurchased {
		t.Errorf("Purchase() outcome = %s, expected purchased", outcome)
	}

	status, err := m.Status(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != StatusPremium {
		t.Errorf("Status() after purchase = %s, expected premium", status)
	}
}

func TestPurchase_CancelledIsNotAnError(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	client := &fakePurchaseClient{
		offerings:   monthlyOffering(),
		purchaseErr: purchase.ErrCancelled,
	}
	m := NewManager(kv, client)

	outcome, err := m.Purchase(context.Background(), "acct-1", false, "$rc_monthly")
	if err != nil {
		t.Fatalf("Purchase() cancelled must not be an error, got %v", err)
	}
	if outcome != OutcomeCancelled {
		t.Errorf("Purchase() outcome = %s, expected cancelled", outcome)
	}
}

func TestPurchase_UnknownOffering(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	m := NewManager(kv, &fakePurchaseClient{offerings: monthlyOffering()})

	_, err := m.Purchase(context.Background(), "acct-1", false, "$rc_lifetime")
	if !errors.Is(err, ErrUnknownOffering) {
		t.Errorf("Purchase() error = %v, expected ErrUnknownOffering", err)
	}
}

func TestPurchase_GuestRejected(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	m := NewManager(kv, &fakePurchaseClient{offerings: monthlyOffering()})

	_, err := m.Purchase(context.Background(), "guest-1", true, "$rc_monthly")
	if !errors.Is(err, ErrGuestNotAllowed) {
		t.Errorf("Purchase(guest) error = %v, expected ErrGuestNotAllowed", err)
	}
}

func TestRestore_FailureKeepsPremium(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	client := &fakePurchaseClient{
		offerings:    monthlyOffering(),
		purchaseInfo: purchase.CustomerInfo{IsPremium: true},
	}
	m := NewManager(kv, client)

	if _, err := m.Purchase(ctx, "acct-1", false, "$rc_monthly"); err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}

	// A transient restore failure must never regress a known premium flag.
	client.restoreErr = errors.New("backend down")
	if _, err := m.Restore(ctx, "acct-1"); err == nil {
		t.Fatal("Restore() expected error")
	}

	status, err := m.Status(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != StatusPremium {
		t.Errorf("Status() after failed restore = %s, expected premium", status)
	}
}

func TestRestore_UpdatesPremium(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	client := &fakePurchaseClient{restoreInfo: purchase.CustomerInfo{IsPremium: true}}
	m := NewManager(kv, client)

	status, err := m.Restore(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if status != StatusPremium {
		t.Errorf("Restore() status = %s, expected premium", status)
	}
}

func TestSubscribe_NotifiedOnPurchase(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	client := &fakePurchaseClient{
		offerings:    monthlyOffering(),
		purchaseInfo: purchase.CustomerInfo{IsPremium: true},
	}
	m := NewManager(kv, client)

	var gotAccount string
	var gotStatus Status
	m.Subscribe(func(accountID string, status Status) {
		gotAccount = accountID
		gotStatus = status
	})

	if _, err := m.Purchase(context.Background(), "acct-1", false, "$rc_monthly"); err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}

	if gotAccount != "acct-1" {
		t.Errorf("listener account = %q, expected acct-1", gotAccount)
	}
	if gotStatus != StatusPremium {
		t.Errorf("listener status = %s, expected premium", gotStatus)
	}
}

func TestSubscribe_UnsubscribeDuringNotification(t *testing.T) {
	kv, mr := setupTestStore(t)
	defer mr.Close()

	client := &fakePurchaseClient{
		offerings:    monthlyOffering(),
		purchaseInfo: purchase.CustomerInfo{IsPremium: true},
	}
	m := NewManager(kv, client)

	calls := 0
	var unsubscribe func()
	unsubscribe = m.Subscribe(func(accountID string, status Status) {
		calls++
		unsubscribe()
	})

	// Unsubscribing from inside the callback must not deadlock or panic.
	if _, err := m.Purchase(context.Background(), "acct-1", false, "$rc_monthly"); err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("listener calls = %d, expected 1", calls)
	}
}
