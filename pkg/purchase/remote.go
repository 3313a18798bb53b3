package purchase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RemoteClient talks JSON to the real purchase backend. The backend owns the
// store dialog; a 409 response means the user cancelled it.
type RemoteClient struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	listeners *listenerRegistry
}

type RemoteClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewRemoteClient creates a purchase client against the configured backend.
// Returns ErrProviderNotConfigured when no base URL or key is set.
func NewRemoteClient(cfg RemoteClientConfig) (*RemoteClient, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, ErrProviderNotConfigured
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &RemoteClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		client:    &http.Client{Timeout: timeout},
		listeners: newListenerRegistry(),
	}, nil
}

// Ping verifies the backend is reachable. The app uses this at startup to
// decide between the real client and demo mode.
func (c *RemoteClient) Ping(ctx context.Context) error {
	var out struct{}
	return c.do(ctx, http.MethodGet, "/v1/health", nil, &out)
}

// GetOfferings implements Client.
func (c *RemoteClient) GetOfferings(ctx context.Context) ([]Offering, error) {
	var out struct {
		Offerings []Offering `json:"offerings"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/offerings", nil, &out); err != nil {
		return nil, err
	}
	return out.Offerings, nil
}

// Purchase implements Client.
func (c *RemoteClient) Purchase(ctx context.Context, accountID, offeringID string) (CustomerInfo, error) {
	body := map[string]string{
		"accountId": accountID,
		"offering":  offeringID,
	}

	var info CustomerInfo
	if err := c.do(ctx, http.MethodPost, "/v1/purchases", body, &info); err != nil {
		return CustomerInfo{}, err
	}

	c.listeners.notify(info)
	return info, nil
}

// RestorePurchases implements Client.
func (c *RemoteClient) RestorePurchases(ctx context.Context, accountID string) (CustomerInfo, error) {
	body := map[string]string{"accountId": accountID}

	var info CustomerInfo
	if err := c.do(ctx, http.MethodPost, "/v1/purchases/restore", body, &info); err != nil {
		return CustomerInfo{}, err
	}

	c.listeners.notify(info)
	return info, nil
}

// GetCustomerInfo implements Client.
func (c *RemoteClient) GetCustomerInfo(ctx context.Context, accountID string) (CustomerInfo, error) {
	var info CustomerInfo
	err := c.do(ctx, http.MethodGet, "/v1/customers/"+accountID, nil, &info)
	if err != nil {
		return CustomerInfo{}, err
	}
	return info, nil
}

// AddListener implements Client.
func (c *RemoteClient) AddListener(listener Listener) func() {
	return c.listeners.add(listener)
}

func (c *RemoteClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build purchase request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("purchase backend request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrCancelled
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		logrus.Errorf("purchase backend returned %d: %s", resp.StatusCode, string(data))
		return fmt.Errorf("purchase backend returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("failed to decode purchase response: %w", err)
		}
	}
	return nil
}
