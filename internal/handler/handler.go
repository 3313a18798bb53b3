package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stillmind/meditation-service/pkg/auth"
	"github.com/stillmind/meditation-service/pkg/content"
	"github.com/stillmind/meditation-service/pkg/entitlement"
	"github.com/stillmind/meditation-service/pkg/habit"
	"github.com/stillmind/meditation-service/pkg/player"
)

type contextKey string

const accountKey contextKey = "account"

// Handler wires the HTTP API to the domain services.
type Handler struct {
	auth        *auth.Service
	catalog     *content.Source
	player      *player.Manager
	entitlement *entitlement.Manager
	habits      *habit.Tracker
}

// New creates the API handler.
func New(authSvc *auth.Service, catalog *content.Source, playerMgr *player.Manager, entitlementMgr *entitlement.Manager, habits *habit.Tracker) *Handler {
	return &Handler{
		auth:        authSvc,
		catalog:     catalog,
		player:      playerMgr,
		entitlement: entitlementMgr,
		habits:      habits,
	}
}

// Router builds the chi route tree.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", h.signUp)
		r.Post("/auth/login", h.signIn)
		r.Post("/auth/guest", h.guest)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAccount)

			r.Post("/auth/logout", h.signOut)
			r.Post("/auth/convert", h.convertGuest)
			r.Get("/auth/me", h.me)
			r.Put("/auth/profile", h.updateProfile)

			r.Get("/sessions", h.listSessions)
			r.Get("/sessions/category/{category}", h.listByCategory)

			r.Post("/player/open", h.openSession)
			r.Post("/player/toggle", h.toggle)
			r.Post("/player/seek", h.seek)
			r.Post("/player/close", h.closeSession)
			r.Get("/player", h.playerState)
			r.Get("/player/events", h.streamEvents)

			r.Get("/entitlement", h.entitlementStatus)
			r.Post("/entitlement/trial", h.startTrial)
			r.Get("/entitlement/offerings", h.offerings)
			r.Post("/entitlement/purchase", h.purchase)
			r.Post("/entitlement/restore", h.restore)

			r.Get("/habits", h.listHabits)
			r.Get("/habits/stats", h.monthlyStats)
			r.Get("/habits/streaks", h.streaks)
			r.Delete("/habits", h.clearHabits)
		})
	})

	return r
}

// requireAccount resolves the X-Account-ID header to an account record and
// attaches it to the request context.
func (h *Handler) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := r.Header.Get("X-Account-ID")
		if accountID == "" {
			respondError(w, "missing X-Account-ID header", http.StatusUnauthorized)
			return
		}

		account, err := h.auth.Get(r.Context(), accountID)
		if errors.Is(err, auth.ErrAccountNotFound) {
			respondError(w, "unknown account", http.StatusUnauthorized)
			return
		}
		if err != nil {
			respondError(w, "account lookup failed", http.StatusServiceUnavailable)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFromContext(ctx context.Context) auth.Account {
	account, _ := ctx.Value(accountKey).(auth.Account)
	return account
}
