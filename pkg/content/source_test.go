package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fallbackSessions() []Session {
	return []Session{
		{ID: "bundled-1", Title: "Bundled", DurationMinutes: 10, Category: CategoryFocus},
		{ID: "bundled-breathing", Title: "Breathe", DurationMinutes: 5, Category: CategoryBreathing},
	}
}

func TestSource_UsesRemoteWhenAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[
			{"id":"remote-1","title":"Remote","duration":12,"category":"Sleep","audioUrl":"gs://b/a.mp3"},
			{"id":"remote-2","title":"Seconds","duration":600,"category":"Focus"}
		]`))
	}))
	defer srv.Close()

	remote := NewRemoteCatalog(RemoteCatalogConfig{BaseURL: srv.URL})
	source := NewSource(remote, fallbackSessions(), SourceConfig{})
	source.Refresh(context.Background())

	sessions := source.List()
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, expected 2 remote entries", len(sessions))
	}
	if sessions[0].ID != "remote-1" {
		t.Errorf("first session = %s, expected remote-1", sessions[0].ID)
	}

	// 600 is a seconds value entered by hand, not a 10-hour session.
	if sessions[1].DurationMinutes != 10 {
		t.Errorf("duration = %d, expected 10 minutes", sessions[1].DurationMinutes)
	}
}

func TestSource_FallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	remote := NewRemoteCatalog(RemoteCatalogConfig{BaseURL: srv.URL})
	source := NewSource(remote, fallbackSessions(), SourceConfig{})
	source.Refresh(context.Background())

	sessions := source.List()
	if len(sessions) != 2 || sessions[0].ID != "bundled-1" {
		t.Errorf("expected bundled sessions after remote failure, got %+v", sessions)
	}
}

func TestSource_FallsBackOnEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	remote := NewRemoteCatalog(RemoteCatalogConfig{BaseURL: srv.URL})
	source := NewSource(remote, fallbackSessions(), SourceConfig{})
	source.Refresh(context.Background())

	if sessions := source.List(); len(sessions) != 2 || sessions[0].ID != "bundled-1" {
		t.Errorf("expected bundled sessions for empty remote list, got %+v", sessions)
	}
}

func TestSource_ByIDAndByCategory(t *testing.T) {
	source := NewSource(NewRemoteCatalog(RemoteCatalogConfig{}), fallbackSessions(), SourceConfig{})

	if _, ok := source.ByID("missing"); ok {
		t.Error("ByID(missing) = true, expected false")
	}
	s, ok := source.ByID("bundled-1")
	if !ok || s.Title != "Bundled" {
		t.Errorf("ByID(bundled-1) = %+v ok=%v", s, ok)
	}

	breathing := source.ByCategory(CategoryBreathing)
	if len(breathing) != 1 || breathing[0].ID != "bundled-breathing" {
		t.Errorf("ByCategory(Breathing) = %+v, expected one entry", breathing)
	}
}

func TestSource_ResolveAssetURL(t *testing.T) {
	source := NewSource(NewRemoteCatalog(RemoteCatalogConfig{}), fallbackSessions(), SourceConfig{
		AssetBaseURL: "https://cdn.example.com/",
	})

	got := source.ResolveAssetURL("gs://bucket/audio/track.mp3")
	if got != "https://cdn.example.com/bucket/audio/track.mp3" {
		t.Errorf("ResolveAssetURL(gs) = %s", got)
	}

	passthrough := "https://cdn.example.com/direct.mp3"
	if got := source.ResolveAssetURL(passthrough); got != passthrough {
		t.Errorf("ResolveAssetURL(https) = %s, expected passthrough", got)
	}

	if got := source.ResolveAssetURL(""); got != "" {
		t.Errorf("ResolveAssetURL(empty) = %q, expected empty", got)
	}

	// Second resolution hits the cache and must agree with the first.
	if got := source.ResolveAssetURL("gs://bucket/audio/track.mp3"); got != "https://cdn.example.com/bucket/audio/track.mp3" {
		t.Errorf("cached ResolveAssetURL(gs) = %s", got)
	}
}

func TestCleanURL(t *testing.T) {
	tests := map[string]string{
		`  https://a.example/x.mp3  `:       "https://a.example/x.mp3",
		`"https://a.example/x.mp3"`:         "https://a.example/x.mp3",
		`'https://a.example/x.mp3'`:         "https://a.example/x.mp3",
		"https://a.example/\nx.mp3":         "https://a.example/x.mp3",
		"\r\nhttps://a.example/x.mp3\r\n\t": "https://a.example/x.mp3",
	}

	for in, expected := range tests {
		if got := cleanURL(in); got != expected {
			t.Errorf("cleanURL(%q) = %q, expected %q", in, got, expected)
		}
	}
}

func TestRemoteSession_CoalescesWireVariants(t *testing.T) {
	rs := remoteSession{
		ID:          "s",
		Duration:    10,
		AudioURLAlt: "gs://b/snake.mp3",
		VoiceURL:    "gs://b/camel.mp3",
	}

	s := rs.toSession()
	if s.AmbientURL != "gs://b/snake.mp3" {
		t.Errorf("ambient = %s, expected snake_case variant", s.AmbientURL)
	}
	if s.VoiceURL != "gs://b/camel.mp3" {
		t.Errorf("voice = %s, expected camelCase variant", s.VoiceURL)
	}
	if s.Difficulty != "All" {
		t.Errorf("difficulty = %s, expected default All", s.Difficulty)
	}
}
