package player

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stillmind/meditation-service/pkg/content"
)

var (
	// ErrNoSession means the account has no active playback session.
	ErrNoSession = errors.New("no active playback session")

	// ErrInvalidDuration rejects sessions without a positive duration.
	ErrInvalidDuration = errors.New("session duration must be positive")
)

// Manager holds at most one active playback session per account. The audio
// output is exclusive: opening a session while another is active tears the
// old one down first.
type Manager struct {
	recorder Recorder
	newTrack func(kind TrackKind, url string) Track

	mu      sync.Mutex
	runners map[string]*Runner
}

// NewManager creates a playback session manager.
func NewManager(recorder Recorder) *Manager {
	client := &http.Client{Timeout: 10 * time.Second}
	return &Manager{
		recorder: recorder,
		newTrack: func(kind TrackKind, url string) Track {
			return NewHTTPTrack(kind, url, client)
		},
		runners: make(map[string]*Runner),
	}
}

// Open starts a playback session for the account. ambientURL and voiceURL are
// the already-resolved asset URLs; either may be empty, the session timer
// runs regardless.
func (m *Manager) Open(ctx context.Context, accountID string, session content.Session, ambientURL, voiceURL string) (Snapshot, error) {
	if session.DurationMinutes <= 0 {
		return Snapshot{}, ErrInvalidDuration
	}

	r := NewRunner(accountID, session,
		m.newTrack(TrackAmbient, ambientURL),
		m.newTrack(TrackVoice, voiceURL),
		m.recorder)

	// Swap under a single lock so concurrent opens cannot both displace the
	// same runner and leak the loser's clock goroutine.
	m.mu.Lock()
	previous := m.runners[accountID]
	m.runners[accountID] = r
	m.mu.Unlock()

	if previous != nil {
		logrus.Infof("tearing down previous playback session for account %s", accountID)
		if err := previous.Close(ctx); err != nil {
			logrus.Errorf("failed to close previous session: %v", err)
		}
	}

	r.Start()
	logrus.Infof("opened session %s for account %s", session.ID, accountID)
	return r.Snapshot(), nil
}

// Toggle flips play/pause on the account's active session.
func (m *Manager) Toggle(accountID string) (Snapshot, error) {
	r, err := m.runner(accountID)
	if err != nil {
		return Snapshot{}, err
	}
	return r.Toggle(), nil
}

// Seek shifts the active session's position by delta seconds.
func (m *Manager) Seek(accountID string, delta int) (Snapshot, error) {
	r, err := m.runner(accountID)
	if err != nil {
		return Snapshot{}, err
	}
	return r.Seek(delta), nil
}

// Close ends the account's active session and forgets it.
func (m *Manager) Close(ctx context.Context, accountID string) (Snapshot, error) {
	m.mu.Lock()
	r, ok := m.runners[accountID]
	if ok {
		delete(m.runners, accountID)
	}
	m.mu.Unlock()

	if !ok {
		return Snapshot{}, ErrNoSession
	}

	err := r.Close(ctx)
	return r.Snapshot(), err
}

// Snapshot reports the active session's state.
func (m *Manager) Snapshot(accountID string) (Snapshot, error) {
	r, err := m.runner(accountID)
	if err != nil {
		return Snapshot{}, err
	}
	return r.Snapshot(), nil
}

// Events returns the active session's event stream and completion signal.
func (m *Manager) Events(accountID string) (<-chan Event, <-chan struct{}, error) {
	r, err := m.runner(accountID)
	if err != nil {
		return nil, nil, err
	}
	return r.Events(), r.Done(), nil
}

// Shutdown closes every active session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	runners := make([]*Runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	m.runners = make(map[string]*Runner)
	m.mu.Unlock()

	for _, r := range runners {
		if err := r.Close(ctx); err != nil {
			logrus.Errorf("failed to close session on shutdown: %v", err)
		}
	}
}

func (m *Manager) runner(accountID string) (*Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runners[accountID]
	if !ok {
		return nil, ErrNoSession
	}
	return r, nil
}
