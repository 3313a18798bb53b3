package player

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TrackKind names the two audio layers of a guided session.
type TrackKind string

const (
	TrackAmbient TrackKind = "ambient"
	TrackVoice   TrackKind = "voice"
)

// TrackEventType is the lifecycle signal a track reports back to its runner.
type TrackEventType string

const (
	TrackLoaded  TrackEventType = "loaded"
	TrackFailed  TrackEventType = "failed"
	TrackStopped TrackEventType = "stopped"
)

// TrackEvent is delivered on the runner's track channel when a load finishes
// or fails, or when playback stops.
type TrackEvent struct {
	Kind TrackKind
	Type TrackEventType
	Err  error
}

// Track is one audio layer. Load is asynchronous from the runner's point of
// view and reports its outcome through the event channel handed to it; the
// control methods are synchronous and may fail independently per track.
type Track interface {
	Load(ctx context.Context, events chan<- TrackEvent)
	Play() error
	Pause() error
	Stop() error
	SetPosition(seconds int) error
	Loaded() bool
}

// httpTrack validates its asset URL over HTTP on load and then keeps
// position/playing bookkeeping. There is no real audio device behind it; the
// runner's wall clock is authoritative for progress either way.
type httpTrack struct {
	kind   TrackKind
	url    string
	client *http.Client

	mu       sync.Mutex
	loaded   bool
	playing  bool
	position int
}

// NewHTTPTrack creates a track for the given asset URL. An empty URL yields a
// track whose load fails immediately; the session still plays on its timer.
func NewHTTPTrack(kind TrackKind, url string, client *http.Client) Track {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpTrack{kind: kind, url: url, client: client}
}

func (t *httpTrack) Load(ctx context.Context, events chan<- TrackEvent) {
	go func() {
		if t.url == "" {
			sendTrackEvent(events, TrackEvent{Kind: t.kind, Type: TrackFailed, Err: fmt.Errorf("no %s asset configured", t.kind)})
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.url, nil)
		if err != nil {
			sendTrackEvent(events, TrackEvent{Kind: t.kind, Type: TrackFailed, Err: err})
			return
		}

		resp, err := t.client.Do(req)
		if err != nil {
			sendTrackEvent(events, TrackEvent{Kind: t.kind, Type: TrackFailed, Err: err})
			return
		}
		resp.Body.Close()

		if resp.StatusCode >= 400 {
			sendTrackEvent(events, TrackEvent{Kind: t.kind, Type: TrackFailed, Err: fmt.Errorf("asset returned status %d", resp.StatusCode)})
			return
		}

		t.mu.Lock()
		t.loaded = true
		t.mu.Unlock()
		sendTrackEvent(events, TrackEvent{Kind: t.kind, Type: TrackLoaded})
	}()
}

func (t *httpTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return fmt.Errorf("%s track not loaded", t.kind)
	}
	t.playing = true
	return nil
}

func (t *httpTrack) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return fmt.Errorf("%s track not loaded", t.kind)
	}
	t.playing = false
	return nil
}

func (t *httpTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
	t.position = 0
	return nil
}

func (t *httpTrack) SetPosition(seconds int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return fmt.Errorf("%s track not loaded", t.kind)
	}
	if seconds < 0 {
		seconds = 0
	}
	t.position = seconds
	return nil
}

func (t *httpTrack) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// sendTrackEvent never blocks: a runner that has already closed stops
// draining its channel and late results must be droppable.
func sendTrackEvent(events chan<- TrackEvent, ev TrackEvent) {
	select {
	case events <- ev:
	default:
		logrus.Debugf("dropped %s track event %s", ev.Kind, ev.Type)
	}
}
