package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stillmind/meditation-service/pkg/store"
)

// DemoClient simulates the purchase backend when the real one is unreachable.
// A purchase "succeeds" after a fixed delay and the premium flag is persisted
// locally, so the demo entitlement survives restarts.
type DemoClient struct {
	kv        store.Store
	cfg       DemoClientConfig
	listeners *listenerRegistry
	now       func() time.Time
}

type DemoClientConfig struct {
	// PurchaseDelay simulates the store dialog round-trip. Defaults to 1.5s.
	PurchaseDelay time.Duration
}

// NewDemoClient creates the demo-mode purchase facade.
func NewDemoClient(kv store.Store, cfg DemoClientConfig) *DemoClient {
	if cfg.PurchaseDelay == 0 {
		cfg.PurchaseDelay = 1500 * time.Millisecond
	}
	return &DemoClient{
		kv:        kv,
		cfg:       cfg,
		listeners: newListenerRegistry(),
		now:       time.Now,
	}
}

// GetOfferings returns the fixed demo offerings.
func (c *DemoClient) GetOfferings(ctx context.Context) ([]Offering, error) {
	return []Offering{
		{
			Identifier:         "$rc_monthly",
			ProductID:          "stillmind_premium_monthly",
			PriceString:        "$9.99",
			Price:              9.99,
			Title:              "Stillmind Premium",
			Description:        "Monthly subscription with unlimited access",
			SubscriptionPeriod: "MONTHLY",
		},
		{
			Identifier:         "$rc_annual",
			ProductID:          "stillmind_premium_annual",
			PriceString:        "$59.99",
			Price:              59.99,
			Title:              "Stillmind Premium (Annual)",
			Description:        "Annual subscription - save 50%",
			SubscriptionPeriod: "ANNUAL",
		},
	}, nil
}

// Purchase simulates a successful purchase after the configured delay and
// persists the premium flag for the account.
func (c *DemoClient) Purchase(ctx context.Context, accountID, offeringID string) (CustomerInfo, error) {
	if accountID == "" {
		return CustomerInfo{}, fmt.Errorf("no account for demo purchase")
	}

	select {
	case <-time.After(c.cfg.PurchaseDelay):
	case <-ctx.Done():
		return CustomerInfo{}, ctx.Err()
	}

	expiration := c.now().AddDate(0, 1, 0)
	if offeringID == "$rc_annual" {
		expiration = c.now().AddDate(1, 0, 0)
	}

	if err := c.kv.Set(ctx, store.DemoPremiumKey(accountID), "true"); err != nil {
		return CustomerInfo{}, fmt.Errorf("failed to persist demo purchase: %w", err)
	}

	info := CustomerInfo{
		IsPremium:           true,
		ActiveSubscriptions: []string{offeringID},
		ExpirationDate:      expiration.Format(time.RFC3339),
	}

	logrus.Infof("demo purchase completed for account %s: offering=%s", accountID, offeringID)
	c.listeners.notify(info)
	return info, nil
}

// RestorePurchases re-reads the locally persisted demo entitlement.
func (c *DemoClient) RestorePurchases(ctx context.Context, accountID string) (CustomerInfo, error) {
	info, err := c.GetCustomerInfo(ctx, accountID)
	if err != nil {
		return CustomerInfo{}, err
	}
	c.listeners.notify(info)
	return info, nil
}

// GetCustomerInfo reports the persisted demo entitlement.
func (c *DemoClient) GetCustomerInfo(ctx context.Context, accountID string) (CustomerInfo, error) {
	if accountID == "" {
		return CustomerInfo{}, nil
	}

	flag, err := c.kv.Get(ctx, store.DemoPremiumKey(accountID))
	if errors.Is(err, store.ErrNotFound) {
		return CustomerInfo{}, nil
	}
	if err != nil {
		return CustomerInfo{}, fmt.Errorf("failed to read demo premium flag: %w", err)
	}

	if flag != "true" {
		return CustomerInfo{}, nil
	}
	return CustomerInfo{
		IsPremium:           true,
		ActiveSubscriptions: []string{"demo_subscription"},
	}, nil
}

// ClearPurchase drops the persisted demo entitlement. Used by support tooling
// to reset a test account.
func (c *DemoClient) ClearPurchase(ctx context.Context, accountID string) error {
	if err := c.kv.Delete(ctx, store.DemoPremiumKey(accountID)); err != nil {
		return err
	}
	c.listeners.notify(CustomerInfo{IsPremium: false, ActiveSubscriptions: []string{}})
	return nil
}

// AddListener implements Client.
func (c *DemoClient) AddListener(listener Listener) func() {
	return c.listeners.add(listener)
}
