package handler

import (
	"net/http"
	"strconv"
	"time"
)

func (h *Handler) listHabits(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	if date := r.URL.Query().Get("date"); date != "" {
		entries, err := h.habits.EntriesByDate(r.Context(), account.ID, date)
		if err != nil {
			respondError(w, "failed to load habit entries", http.StatusServiceUnavailable)
			return
		}
		respondJSON(w, entries, http.StatusOK)
		return
	}

	entries, err := h.habits.Entries(r.Context(), account.ID)
	if err != nil {
		respondError(w, "failed to load habit entries", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, entries, http.StatusOK)
}

func (h *Handler) monthlyStats(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1 {
		respondError(w, "invalid year", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		respondError(w, "invalid month", http.StatusBadRequest)
		return
	}

	stats, err := h.habits.MonthlyStats(r.Context(), account.ID, year, time.Month(month))
	if err != nil {
		respondError(w, "failed to compute stats", http.StatusServiceUnavailable)
		return
	}

	total, err := h.habits.TotalListenedMinutes(r.Context(), account.ID)
	if err != nil {
		respondError(w, "failed to compute stats", http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, struct {
		Sessions     int `json:"sessions"`
		Minutes      int `json:"minutes"`
		TotalMinutes int `json:"totalMinutes"`
	}{stats.Sessions, stats.Minutes, total}, http.StatusOK)
}

func (h *Handler) streaks(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	streaks, err := h.habits.Streaks(r.Context(), account.ID)
	if err != nil {
		respondError(w, "failed to load streaks", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, streaks, http.StatusOK)
}

func (h *Handler) clearHabits(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	if err := h.habits.ClearAll(r.Context(), account.ID); err != nil {
		respondError(w, "failed to clear habit history", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
