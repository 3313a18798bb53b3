package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stillmind/meditation-service/pkg/auth"
	"github.com/stillmind/meditation-service/pkg/player"
)

type signUpRequest struct {
	Email    string        `json:"email"`
	Name     string        `json:"name"`
	Password string        `json:"password"`
	Profile  *auth.Profile `json:"profile,omitempty"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type convertRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		respondError(w, "email, name and password are required", http.StatusBadRequest)
		return
	}

	account, err := h.auth.SignUp(r.Context(), req.Email, req.Name, req.Password, req.Profile)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, account, http.StatusCreated)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	account, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, account, http.StatusOK)
}

func (h *Handler) guest(w http.ResponseWriter, r *http.Request) {
	account, err := h.auth.SignInAsGuest(r.Context())
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, account, http.StatusCreated)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	// The active playback session dies with the sign-out; the close still
	// writes the habit entry if enough was heard.
	if _, err := h.player.Close(r.Context(), account.ID); err != nil && !errors.Is(err, player.ErrNoSession) {
		logrus.Warnf("failed to close playback session on sign-out: %v", err)
	}

	if err := h.auth.SignOut(r.Context(), account.ID); err != nil {
		respondAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) convertGuest(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var req convertRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		respondError(w, "email, name and password are required", http.StatusBadRequest)
		return
	}

	converted, err := h.auth.ConvertGuest(r.Context(), account.ID, req.Email, req.Name, req.Password)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, converted, http.StatusOK)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, accountFromContext(r.Context()), http.StatusOK)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var profile auth.Profile
	if err := decodeJSON(r, &profile); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.auth.UpdateProfile(r.Context(), account.ID, profile)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, updated, http.StatusOK)
}

func respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrBadCredentials):
		respondError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, auth.ErrEmailTaken):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, auth.ErrProviderNotConfigured):
		respondError(w, err.Error(), http.StatusNotImplemented)
	case errors.Is(err, auth.ErrNetwork):
		respondError(w, "service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		respondError(w, "internal error", http.StatusInternalServerError)
	}
}
