package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/stillmind/meditation-service/pkg/common"
	"github.com/stillmind/meditation-service/pkg/player"
)

type openRequest struct {
	SessionID string `json:"sessionId"`
}

type seekRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "Player.Open")
	defer scope.Finish()

	account := accountFromContext(r.Context())

	var req openRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		respondError(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	session, ok := h.catalog.ByID(req.SessionID)
	if !ok {
		respondError(w, "session not found", http.StatusNotFound)
		return
	}

	status, err := h.entitlement.Status(r.Context(), account.ID)
	if err != nil {
		scope.TraceError(err)
		respondError(w, "failed to resolve entitlement", http.StatusServiceUnavailable)
		return
	}
	if !accessible(session, status) {
		respondError(w, "subscription required for this session", http.StatusPaymentRequired)
		return
	}

	ambientURL := h.catalog.ResolveAssetURL(session.AmbientURL)
	voiceURL := h.catalog.ResolveAssetURL(session.VoiceURL)

	snapshot, err := h.player.Open(r.Context(), account.ID, session, ambientURL, voiceURL)
	if errors.Is(err, player.ErrInvalidDuration) {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		scope.TraceError(err)
		respondError(w, "failed to open session", http.StatusInternalServerError)
		return
	}

	scope.TraceEvent("playback session opened")
	respondJSON(w, snapshot, http.StatusCreated)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	snapshot, err := h.player.Toggle(account.ID)
	if err != nil {
		respondPlayerError(w, err)
		return
	}
	respondJSON(w, snapshot, http.StatusOK)
}

func (h *Handler) seek(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var req seekRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snapshot, err := h.player.Seek(account.ID, req.Delta)
	if err != nil {
		respondPlayerError(w, err)
		return
	}
	respondJSON(w, snapshot, http.StatusOK)
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	snapshot, err := h.player.Close(r.Context(), account.ID)
	if errors.Is(err, player.ErrNoSession) {
		respondPlayerError(w, err)
		return
	}
	if err != nil {
		// The session is torn down either way; report the failed habit write.
		respondError(w, "session closed but habit entry failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, snapshot, http.StatusOK)
}

func (h *Handler) playerState(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	snapshot, err := h.player.Snapshot(account.ID)
	if err != nil {
		respondPlayerError(w, err)
		return
	}
	respondJSON(w, snapshot, http.StatusOK)
}

// streamEvents pushes playback events to the client as server-sent events
// until the session ends or the client disconnects.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	events, done, err := h.player.Events(account.ID)
	if err != nil {
		respondPlayerError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	pumpEvents(w, flusher, events, done, r.Context().Done())
}

// pumpEvents forwards playback events until the session ends or the client
// disconnects. The session's final events are buffered before done fires, so
// on done the remaining buffer is drained first; otherwise the completed
// event would reach the client only when the select happened to pick the
// event channel over done.
func pumpEvents(w io.Writer, flusher http.Flusher, events <-chan player.Event, done, cancelled <-chan struct{}) {
	for {
		select {
		case ev := <-events:
			writeEvent(w, flusher, ev)

		case <-done:
			for {
				select {
				case ev := <-events:
					writeEvent(w, flusher, ev)
				default:
					return
				}
			}

		case <-cancelled:
			return
		}
	}
}

func writeEvent(w io.Writer, flusher http.Flusher, ev player.Event) {
	data, _ := json.Marshal(ev)
	w.Write([]byte("data: "))
	w.Write(data)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}

func respondPlayerError(w http.ResponseWriter, err error) {
	if errors.Is(err, player.ErrNoSession) {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	respondError(w, "internal error", http.StatusInternalServerError)
}
