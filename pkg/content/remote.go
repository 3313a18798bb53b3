package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// remoteSession mirrors the catalog wire format. The backing collection has
// been populated by hand over time, so both snake_case and camelCase asset
// fields occur and must be coalesced.
type remoteSession struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	AudioURL    string `json:"audioUrl"`
	AudioURLAlt string `json:"audio_url"`
	VoiceURL    string `json:"voiceUrl"`
	VoiceURLAlt string `json:"voice_url"`
	ImageURL    string `json:"imageUrl"`
	ImageURLAlt string `json:"image_url"`
}

// RemoteCatalog fetches session metadata from the content backend.
type RemoteCatalog struct {
	baseURL string
	client  *http.Client
}

type RemoteCatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewRemoteCatalog creates a catalog client. An empty base URL produces a
// catalog whose Fetch always fails, which pushes the Source onto its fallback.
func NewRemoteCatalog(cfg RemoteCatalogConfig) *RemoteCatalog {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &RemoteCatalog{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the full session list from the backend.
func (c *RemoteCatalog) Fetch(ctx context.Context) ([]Session, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("content base URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	var raw []remoteSession
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	sessions := make([]Session, 0, len(raw))
	for _, rs := range raw {
		s := rs.toSession()
		if s.ID == "" || s.DurationMinutes <= 0 {
			logrus.Warnf("skipping malformed catalog entry: id=%q duration=%d", s.ID, s.DurationMinutes)
			continue
		}
		sessions = append(sessions, s)
	}

	logrus.Infof("fetched %d sessions from remote catalog", len(sessions))
	return sessions, nil
}

func (rs remoteSession) toSession() Session {
	duration := rs.Duration
	// Some catalog rows were entered in seconds. Anything over 100 cannot be a
	// sane minute count for a guided session.
	if duration > 100 {
		duration = duration / 60
	}

	return Session{
		ID:              rs.ID,
		Title:           rs.Title,
		Description:     rs.Description,
		DurationMinutes: duration,
		Category:        Category(rs.Category),
		Difficulty:      coalesce(rs.Difficulty, "All"),
		CoverImageURL:   cleanURL(coalesce(rs.ImageURL, rs.ImageURLAlt)),
		AmbientURL:      cleanURL(coalesce(rs.AudioURL, rs.AudioURLAlt)),
		VoiceURL:        cleanURL(coalesce(rs.VoiceURL, rs.VoiceURLAlt)),
	}
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// cleanURL strips the stray quoting and whitespace that shows up in manually
// entered catalog rows.
func cleanURL(url string) string {
	cleaned := strings.TrimSpace(url)
	cleaned = strings.Trim(cleaned, `'"`)
	cleaned = strings.ReplaceAll(cleaned, "\n", "")
	cleaned = strings.ReplaceAll(cleaned, "\r", "")
	return strings.TrimSpace(cleaned)
}
