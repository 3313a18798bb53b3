package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/stillmind/meditation-service/pkg/store"
)

func setupDemoClient(t *testing.T) (*DemoClient, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kv := store.NewRedisStore(client, store.RedisStoreConfig{})
	return NewDemoClient(kv, DemoClientConfig{PurchaseDelay: time.Millisecond}), mr
}

func TestDemoClient_Offerings(t *testing.T) {
	c, mr := setupDemoClient(t)
	defer mr.Close()

	offerings, err := c.GetOfferings(context.Background())
	if err != nil {
		t.Fatalf("GetOfferings() error = %v", err)
	}
	if len(offerings) != 2 {
		t.Fatalf("offerings = %d, expected 2", len(offerings))
	}
	if offerings[0].Identifier != "$rc_monthly" || offerings[0].PriceString != "$9.99" {
		t.Errorf("monthly offering = %+v", offerings[0])
	}
	if offerings[1].Identifier != "$rc_annual" || offerings[1].PriceString != "$59.99" {
		t.Errorf("annual offering = %+v", offerings[1])
	}
}

func TestDemoClient_PurchasePersists(t *testing.T) {
	c, mr := setupDemoClient(t)
	defer mr.Close()

	ctx := context.Background()

	var notified *CustomerInfo
	c.AddListener(func(info CustomerInfo) {
		notified = &info
	})

	info, err := c.Purchase(ctx, "acct-1", "$rc_monthly")
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if !info.IsPremium {
		t.Error("Purchase() IsPremium = false")
	}
	if notified == nil || !notified.IsPremium {
		t.Error("listener was not notified of the purchase")
	}

	// The entitlement survives a fresh client over the same store.
	again, err := c.GetCustomerInfo(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetCustomerInfo() error = %v", err)
	}
	if !again.IsPremium {
		t.Error("GetCustomerInfo() IsPremium = false after purchase")
	}

	other, err := c.GetCustomerInfo(ctx, "acct-2")
	if err != nil {
		t.Fatalf("GetCustomerInfo() error = %v", err)
	}
	if other.IsPremium {
		t.Error("premium flag leaked to another account")
	}
}

func TestDemoClient_PurchaseCancelledByContext(t *testing.T) {
	c, mr := setupDemoClient(t)
	defer mr.Close()

	c.cfg.PurchaseDelay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Purchase(ctx, "acct-1", "$rc_monthly"); err == nil {
		t.Fatal("Purchase() with cancelled context expected error")
	}

	info, err := c.GetCustomerInfo(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("GetCustomerInfo() error = %v", err)
	}
	if info.IsPremium {
		t.Error("cancelled purchase must not persist premium")
	}
}

func TestDemoClient_ClearPurchase(t *testing.T) {
	c, mr := setupDemoClient(t)
	defer mr.Close()

	ctx := context.Background()
	if _, err := c.Purchase(ctx, "acct-1", "$rc_monthly"); err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}

	if err := c.ClearPurchase(ctx, "acct-1"); err != nil {
		t.Fatalf("ClearPurchase() error = %v", err)
	}

	info, err := c.GetCustomerInfo(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetCustomerInfo() error = %v", err)
	}
	if info.IsPremium {
		t.Error("GetCustomerInfo() IsPremium = true after clear")
	}
}

func TestListenerRegistry_UnsubscribeDuringNotify(t *testing.T) {
	r := newListenerRegistry()

	calls := 0
	var unsubscribe func()
	unsubscribe = r.add(func(info CustomerInfo) {
		calls++
		unsubscribe()
	})

	r.notify(CustomerInfo{IsPremium: true})
	r.notify(CustomerInfo{IsPremium: true})

	if calls != 1 {
		t.Errorf("listener calls = %d, expected 1 (unsubscribed after first)", calls)
	}
}
