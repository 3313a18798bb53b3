package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/stillmind/meditation-service/pkg/common"
	"github.com/stillmind/meditation-service/pkg/entitlement"
	"github.com/stillmind/meditation-service/pkg/purchase"
)

type statusResponse struct {
	Status              entitlement.Status `json:"status"`
	CanAccessAllContent bool               `json:"canAccessAllContent"`
	TrialRemainingSecs  int                `json:"trialRemainingSeconds"`
}

type purchaseRequest struct {
	OfferingID string `json:"offeringId"`
}

type purchaseResponse struct {
	Outcome entitlement.PurchaseOutcome `json:"outcome"`
	Status  entitlement.Status          `json:"status"`
}

func (h *Handler) entitlementStatus(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	status, err := h.entitlement.Status(r.Context(), account.ID)
	if err != nil {
		respondError(w, "failed to resolve entitlement", http.StatusServiceUnavailable)
		return
	}

	remaining, err := h.entitlement.TrialRemaining(r.Context(), account.ID)
	if err != nil {
		respondError(w, "failed to resolve trial window", http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, statusResponse{
		Status:              status,
		CanAccessAllContent: entitlement.CanAccessAllContent(status),
		TrialRemainingSecs:  int(remaining / time.Second),
	}, http.StatusOK)
}

func (h *Handler) startTrial(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	err := h.entitlement.StartTrial(r.Context(), account.ID, account.Anonymous)
	if errors.Is(err, entitlement.ErrGuestNotAllowed) {
		respondError(w, err.Error(), http.StatusForbidden)
		return
	}
	if err != nil {
		respondError(w, "failed to start trial", http.StatusServiceUnavailable)
		return
	}

	status, err := h.entitlement.Status(r.Context(), account.ID)
	if err != nil {
		respondError(w, "failed to resolve entitlement", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, statusResponse{
		Status:              status,
		CanAccessAllContent: entitlement.CanAccessAllContent(status),
	}, http.StatusOK)
}

func (h *Handler) offerings(w http.ResponseWriter, r *http.Request) {
	offerings, err := h.entitlement.Offerings(r.Context())
	if errors.Is(err, purchase.ErrProviderNotConfigured) {
		respondError(w, err.Error(), http.StatusNotImplemented)
		return
	}
	if err != nil {
		respondError(w, "failed to load offerings", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, offerings, http.StatusOK)
}

func (h *Handler) purchase(w http.ResponseWriter, r *http.Request) {
	scope := common.GetScopeFromContext(r.Context(), "Entitlement.Purchase")
	defer scope.Finish()

	account := accountFromContext(r.Context())

	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OfferingID == "" {
		respondError(w, "offeringId is required", http.StatusBadRequest)
		return
	}

	outcome, err := h.entitlement.Purchase(r.Context(), account.ID, account.Anonymous, req.OfferingID)
	switch {
	case errors.Is(err, entitlement.ErrGuestNotAllowed):
		respondError(w, err.Error(), http.StatusForbidden)
		return
	case errors.Is(err, entitlement.ErrUnknownOffering):
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		scope.TraceError(err)
		respondError(w, "purchase failed", http.StatusBadGateway)
		return
	}

	status, err := h.entitlement.Status(r.Context(), account.ID)
	if err != nil {
		respondError(w, "failed to resolve entitlement", http.StatusServiceUnavailable)
		return
	}

	scope.TraceEvent("purchase resolved: " + string(outcome))
	respondJSON(w, purchaseResponse{Outcome: outcome, Status: status}, http.StatusOK)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	status, err := h.entitlement.Restore(r.Context(), account.ID)
	if err != nil {
		respondError(w, "restore failed", http.StatusBadGateway)
		return
	}
	respondJSON(w, statusResponse{
		Status:              status,
		CanAccessAllContent: entitlement.CanAccessAllContent(status),
	}, http.StatusOK)
}
