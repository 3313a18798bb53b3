package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stillmind/meditation-service/pkg/content"
	"github.com/stillmind/meditation-service/pkg/entitlement"
)

// sessionView is a catalog entry plus the caller's access flag. The lock is
// computed here, at the gating boundary: breathing sessions are always open
// regardless of subscription status.
type sessionView struct {
	content.Session
	Locked bool `json:"locked"`
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	status, err := h.entitlement.Status(r.Context(), account.ID)
	if err != nil {
		respondError(w, "failed to resolve entitlement", http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, h.views(h.catalog.List(), status), http.StatusOK)
}

func (h *Handler) listByCategory(w http.ResponseWriter, r *http.Request) {
	category := content.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		respondError(w, "unknown category", http.StatusBadRequest)
		return
	}

	account := accountFromContext(r.Context())
	status, err := h.entitlement.Status(r.Context(), account.ID)
	if err != nil {
		respondError(w, "failed to resolve entitlement", http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, h.views(h.catalog.ByCategory(category), status), http.StatusOK)
}

func (h *Handler) views(sessions []content.Session, status entitlement.Status) []sessionView {
	views := make([]sessionView, len(sessions))
	for i, s := range sessions {
		s.CoverImageURL = h.catalog.ResolveAssetURL(s.CoverImageURL)
		views[i] = sessionView{Session: s, Locked: !accessible(s, status)}
	}
	return views
}

// accessible is the content gate. Entitlement resolution knows nothing about
// categories; the breathing carve-out is product policy applied here only.
func accessible(s content.Session, status entitlement.Status) bool {
	if s.Category == content.CategoryBreathing {
		return true
	}
	return entitlement.CanAccessAllContent(status)
}
