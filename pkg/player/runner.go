package player

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stillmind/meditation-service/pkg/content"
	"github.com/stillmind/meditation-service/pkg/metrics"
)

// State is the playback session's lifecycle position.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateClosed    State = "closed"
)

// EventType labels the events a runner publishes to its stream.
type EventType string

const (
	EventState     EventType = "state"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventTrack     EventType = "track"
)

// Event is one update on a playback session's event stream.
type Event struct {
	Type     EventType `json:"type"`
	State    State     `json:"state"`
	Elapsed  int       `json:"elapsed"`
	Progress float64   `json:"progress"`
	Track    TrackKind `json:"track,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Snapshot is the runner's externally visible state.
type Snapshot struct {
	SessionID     string  `json:"sessionId"`
	State         State   `json:"state"`
	Elapsed       int     `json:"elapsed"`
	Total         int     `json:"total"`
	Progress      float64 `json:"progress"`
	Playing       bool    `json:"playing"`
	Completed     bool    `json:"completed"`
	AmbientLoaded bool    `json:"ambientLoaded"`
	VoiceLoaded   bool    `json:"voiceLoaded"`
}

// Recorder receives the habit side effects of a finished session. Satisfied
// by habit.Tracker.
type Recorder interface {
	AddEntry(ctx context.Context, accountID, sessionID, sessionTitle string, durationMinutes, listenedMinutes int) error
	MarkCompleted(ctx context.Context, accountID, sessionID string) error
}

// Runner drives one playback session. The wall clock owns progress: a 1 Hz
// ticker increments the elapsed counter while playing, and elapsed reaching
// the session's total seconds is what completes the session, regardless of
// what either audio track did. Track failures are logged and never fatal.
type Runner struct {
	accountID string
	session   content.Session
	recorder  Recorder

	ambient Track
	voice   Track

	mu        sync.Mutex
	state     State
	elapsed   int
	total     int
	playing   bool
	completed bool
	saved     bool
	closed    bool
	pending   int

	trackEvents chan TrackEvent
	events      chan Event
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewRunner creates a runner in the loading state and begins both track
// loads. The caller starts the clock with Start.
func NewRunner(accountID string, session content.Session, ambient, voice Track, recorder Recorder) *Runner {
	r := &Runner{
		accountID:   accountID,
		session:     session,
		recorder:    recorder,
		ambient:     ambient,
		voice:       voice,
		state:       StateLoading,
		total:       session.TotalSeconds(),
		pending:     2,
		trackEvents: make(chan TrackEvent, 4),
		events:      make(chan Event, 64),
		stop:        make(chan struct{}),
	}

	ctx := context.Background()
	ambient.Load(ctx, r.trackEvents)
	voice.Load(ctx, r.trackEvents)
	return r
}

// Start launches the 1 Hz clock goroutine.
func (r *Runner) Start() {
	go r.run()
}

func (r *Runner) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick()
		case ev := <-r.trackEvents:
			r.handleTrackEvent(ev)
		case <-r.stop:
			return
		}
	}
}

// tick advances the elapsed counter by one second while playing. It is the
// only writer of elapsed besides Seek, and the only path into completion.
func (r *Runner) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.playing || r.completed || r.closed {
		return
	}

	r.elapsed++
	if r.elapsed > r.total {
		r.elapsed = r.total
	}

	if r.elapsed >= r.total {
		r.completeLocked()
		return
	}

	r.emit(Event{Type: EventProgress, State: r.state, Elapsed: r.elapsed, Progress: r.progressLocked()})
}

// handleTrackEvent processes a load result. Results arriving after close are
// discarded: the session they belong to no longer exists.
func (r *Runner) handleTrackEvent(ev TrackEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		logrus.Debugf("discarding late %s track event for account %s", ev.Kind, r.accountID)
		return
	}

	switch ev.Type {
	case TrackLoaded:
		logrus.Debugf("%s track loaded for session %s", ev.Kind, r.session.ID)
	case TrackFailed:
		logrus.Warnf("%s track failed for session %s: %v", ev.Kind, r.session.ID, ev.Err)
		r.emit(Event{Type: EventTrack, State: r.state, Elapsed: r.elapsed, Progress: r.progressLocked(), Track: ev.Kind, Error: "audio unavailable"})
	case TrackStopped:
		return
	}

	if r.pending > 0 {
		r.pending--
	}
	if r.pending == 0 && r.state == StateLoading {
		r.state = StateReady
		r.emit(Event{Type: EventState, State: r.state, Elapsed: r.elapsed, Progress: r.progressLocked()})
	}
}

// Toggle flips between playing and paused. The flag flips even when both
// tracks failed to load, so the session timer still runs; a no-op once the
// session completed or closed.
func (r *Runner) Toggle() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.completed || r.closed {
		return r.snapshotLocked()
	}

	r.playing = !r.playing
	if r.playing {
		r.state = StatePlaying
		r.controlTracksLocked(Track.Play, "play")
	} else {
		r.state = StatePaused
		r.controlTracksLocked(Track.Pause, "pause")
	}

	r.emit(Event{Type: EventState, State: r.state, Elapsed: r.elapsed, Progress: r.progressLocked()})
	return r.snapshotLocked()
}

// Seek shifts the elapsed counter by delta seconds, clamped to the session
// window, and repositions both loaded tracks. Per-track errors are swallowed.
func (r *Runner) Seek(delta int) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.completed || r.closed {
		return r.snapshotLocked()
	}

	target := r.elapsed + delta
	if target < 0 {
		target = 0
	}
	if target >= r.total {
		target = r.total - 1
	}
	r.elapsed = target

	for _, t := range []Track{r.ambient, r.voice} {
		if t.Loaded() {
			if err := t.SetPosition(target); err != nil {
				logrus.Debugf("seek failed on track: %v", err)
			}
		}
	}

	r.emit(Event{Type: EventProgress, State: r.state, Elapsed: r.elapsed, Progress: r.progressLocked()})
	return r.snapshotLocked()
}

// Close tears the session down before or after natural completion. If more
// than half the session was heard, the habit entry is written exactly as a
// natural completion would write it; a shorter listen leaves no trace.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.playing = false

	r.controlTracksLocked(Track.Stop, "stop")

	var err error
	if !r.completed && 2*r.elapsed > r.total {
		err = r.recordLocked(ctx)
	}

	r.state = StateClosed
	r.emit(Event{Type: EventState, State: r.state, Elapsed: r.elapsed, Progress: r.progressLocked()})
	r.stopOnce.Do(func() { close(r.stop) })
	return err
}

// Snapshot returns the current state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Events is the runner's event stream. The channel is never closed; consumers
// stop reading when Done fires.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Done fires when the runner stops ticking for good.
func (r *Runner) Done() <-chan struct{} {
	return r.stop
}

// completeLocked is the single completion path, guarded by the completed
// flag so it fires at most once per playback session.
func (r *Runner) completeLocked() {
	if r.completed {
		return
	}
	r.completed = true
	r.playing = false
	r.state = StateCompleted

	r.controlTracksLocked(Track.Stop, "stop")

	if err := r.recordLocked(context.Background()); err != nil {
		logrus.Errorf("failed to record completed session %s: %v", r.session.ID, err)
	}

	metrics.SessionsCompleted.Inc()
	logrus.Infof("session %s completed for account %s", r.session.ID, r.accountID)
	r.emit(Event{Type: EventCompleted, State: r.state, Elapsed: r.elapsed, Progress: 1})
	r.stopOnce.Do(func() { close(r.stop) })
}

// recordLocked writes the habit entry and completed flag, at most once.
func (r *Runner) recordLocked(ctx context.Context) error {
	if r.saved {
		return nil
	}
	r.saved = true

	listened := int(math.Round(float64(r.elapsed) / 60))
	if err := r.recorder.AddEntry(ctx, r.accountID, r.session.ID, r.session.Title, r.session.DurationMinutes, listened); err != nil {
		return err
	}
	return r.recorder.MarkCompleted(ctx, r.accountID, r.session.ID)
}

func (r *Runner) controlTracksLocked(op func(Track) error, name string) {
	for _, t := range []Track{r.ambient, r.voice} {
		if !t.Loaded() {
			continue
		}
		if err := op(t); err != nil {
			logrus.Debugf("track %s failed: %v", name, err)
		}
	}
}

func (r *Runner) progressLocked() float64 {
	if r.total == 0 {
		return 0
	}
	p := float64(r.elapsed) / float64(r.total)
	if p > 1 {
		p = 1
	}
	return p
}

func (r *Runner) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:     r.session.ID,
		State:         r.state,
		Elapsed:       r.elapsed,
		Total:         r.total,
		Progress:      r.progressLocked(),
		Playing:       r.playing,
		Completed:     r.completed,
		AmbientLoaded: r.ambient.Loaded(),
		VoiceLoaded:   r.voice.Loaded(),
	}
}

// emit publishes without blocking; a slow or absent consumer drops updates.
func (r *Runner) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}
