package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/stillmind/meditation-service/pkg/auth"
	"github.com/stillmind/meditation-service/pkg/content"
	"github.com/stillmind/meditation-service/pkg/entitlement"
	"github.com/stillmind/meditation-service/pkg/habit"
	"github.com/stillmind/meditation-service/pkg/player"
	"github.com/stillmind/meditation-service/pkg/purchase"
	"github.com/stillmind/meditation-service/pkg/store"
)

// setupTestAPI wires the full handler stack over miniredis and the demo
// purchase client.
func setupTestAPI(t *testing.T) (http.Handler, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kv := store.NewRedisStore(client, store.RedisStoreConfig{})

	catalog := content.NewSource(
		content.NewRemoteCatalog(content.RemoteCatalogConfig{}),
		[]content.Session{
			{ID: "premium-sit", Title: "Premium Sit", DurationMinutes: 10, Category: content.CategoryDeep},
			{ID: "free-breath", Title: "Free Breath", DurationMinutes: 5, Category: content.CategoryBreathing},
		},
		content.SourceConfig{},
	)

	purchaseClient := purchase.NewDemoClient(kv, purchase.DemoClientConfig{PurchaseDelay: time.Millisecond})
	tracker := habit.NewTracker(habit.NewRepository(kv), habit.TrackerConfig{})

	h := New(
		auth.NewService(kv),
		catalog,
		player.NewManager(tracker),
		entitlement.NewManager(kv, purchaseClient),
		tracker,
	)
	return h.Router(), mr
}

func doJSON(t *testing.T, router http.Handler, method, path, accountID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if accountID != "" {
		req.Header.Set("X-Account-ID", accountID)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createAccount(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email":    "anna@example.com",
		"name":     "Anna",
		"password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d body = %s", rec.Code, rec.Body.String())
	}

	var account auth.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &account); err != nil {
		t.Fatalf("failed to decode account: %v", err)
	}
	return account.ID
}

func TestAPI_RequiresAccountHeader(t *testing.T) {
	router, mr := setupTestAPI(t)
	defer mr.Close()

	rec := doJSON(t, router, http.MethodGet, "/v1/sessions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401 without account header", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/sessions", "no-such-account", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401 for unknown account", rec.Code)
	}
}

func TestAPI_BreathingIsAlwaysUnlocked(t *testing.T) {
	router, mr := setupTestAPI(t)
	defer mr.Close()

	accountID := createAccount(t, router)

	rec := doJSON(t, router, http.MethodGet, "/v1/sessions", accountID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var views []struct {
		ID     string `json:"id"`
		Locked bool   `json:"locked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to decode session list: %v", err)
	}

	locked := map[string]bool{}
	for _, v := range views {
		locked[v.ID] = v.Locked
	}
	if !locked["premium-sit"] {
		t.Error("premium session must be locked without trial or subscription")
	}
	if locked["free-breath"] {
		t.Error("breathing session must never be locked")
	}
}

func TestAPI_TrialUnlocksContent(t *testing.T) {
	router, mr := setupTestAPI(t)
	defer mr.Close()

	accountID := createAccount(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/entitlement/trial", accountID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trial status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/player/open", accountID, map[string]string{
		"sessionId": "premium-sit",
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("open status = %d, expected 201 during trial, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_LockedSessionRejectedWithoutEntitlement(t *testing.T) {
	router, mr := setupTestAPI(t)
	defer mr.Close()

	accountID := createAccount(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/player/open", accountID, map[string]string{
		"sessionId": "premium-sit",
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("open status = %d, expected 402", rec.Code)
	}

	// The carve-out applies at the gate: breathing opens fine.
	rec = doJSON(t, router, http.MethodPost, "/v1/player/open", accountID, map[string]string{
		"sessionId": "free-breath",
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("open breathing status = %d, expected 201, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_GuestCannotStartTrialOrPurchase(t *testing.T) {
	router, mr := setupTestAPI(t)
	defer mr.Close()

	rec := doJSON(t, router, http.MethodPost, "/v1/auth/guest", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("guest status = %d", rec.Code)
	}
	var guest auth.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &guest); err != nil {
		t.Fatalf("failed to decode guest: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/entitlement/trial", guest.ID, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("trial status = %d, expected 403 for guest", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/entitlement/purchase", guest.ID, map[string]string{
		"offeringId": "$rc_monthly",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("purchase status = %d, expected 403 for guest", rec.Code)
	}
}

func TestAPI_PurchaseFlow(t *testing.T) {
	router, mr := setupTestAPI(t)
	defer mr.Close()

	accountID := createAccount(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/entitlement/purchase", accountID, map[string]string{
		"offeringId": "$rc_monthly",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("purchase status = %d body = %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Outcome string `json:"outcome"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode purchase response: %v", err)
	}
	if result.Outcome != "purchased" || result.Status != "premium" {
		t.Errorf("purchase = %+v, expected purchased/premium", result)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/entitlement", accountID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("entitlement status = %d", rec.Code)
	}
	var status struct {
		Status              string `json:"status"`
		CanAccessAllContent bool   `json:"canAccessAllContent"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Status != "premium" || !status.CanAccessAllContent {
		t.Errorf("status = %+v, expected premium with full access", status)
	}
}

func TestAPI_PlayerLifecycle(t *testing.T) {
	router, mr := setupTestAPI(t)
	defer mr.Close()

	accountID := createAccount(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/player/open", accountID, map[string]string{
		"sessionId": "free-breath",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/player/toggle", accountID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	var snap player.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if !snap.Playing {
		t.Error("toggle must start playback")
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/player/seek", accountID, map[string]int{"delta": -15})
	if rec.Code != http.StatusOK {
		t.Fatalf("seek status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.Elapsed != 0 {
		t.Errorf("elapsed after backward seek from 0 = %d, expected clamp to 0", snap.Elapsed)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/player/close", accountID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/player", accountID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("state after close status = %d, expected 404", rec.Code)
	}
}

func TestPumpEvents_DrainsBufferAfterDone(t *testing.T) {
	events := make(chan player.Event, 4)
	done := make(chan struct{})
	cancelled := make(chan struct{})

	// Completion buffers its final events and then closes done, so both
	// channels are ready when the pump loop selects.
	events <- player.Event{Type: player.EventProgress, State: player.StatePlaying, Elapsed: 599}
	events <- player.Event{Type: player.EventCompleted, State: player.StateCompleted, Progress: 1}
	close(done)

	rec := httptest.NewRecorder()
	pumpEvents(rec, rec, events, done, cancelled)

	body := rec.Body.String()
	if !strings.Contains(body, string(player.EventCompleted)) {
		t.Errorf("stream missing the completed event, body = %q", body)
	}
	if !strings.Contains(body, `"elapsed":599`) {
		t.Errorf("stream missing the buffered progress event, body = %q", body)
	}
}

func TestAPI_UnknownSessionAndCategory(t *testing.T) {
	router, mr := setupTestAPI(t)
	defer mr.Close()

	accountID := createAccount(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/player/open", accountID, map[string]string{
		"sessionId": "no-such-session",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("open unknown session status = %d, expected 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/sessions/category/Underwater", accountID, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown category status = %d, expected 400", rec.Code)
	}
}
