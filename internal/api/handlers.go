/**
 * @description
 * This file contains the HTTP handler functions for the uplink-service.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate business logic in the service layer, and writing the HTTP
 * response.
 */
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/myscrollr/uplink-service/internal/app"
	"github.com/myscrollr/uplink-service/internal/catalog"
	"github.com/myscrollr/uplink-service/internal/domain"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service *app.Service
	prices  *catalog.PriceTable
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service *app.Service, prices *catalog.PriceTable) *Handler {
	return &Handler{service: service, prices: prices}
}

// errorResponse is the standard error body.
type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// pricedPlan is a catalog entry with its provider price ID attached.
type pricedPlan struct {
	domain.BillingPlan
	PriceID string `json:"price_id,omitempty"`
}

// handleGetPlans returns the full pricing catalog for the pricing page.
func (h *Handler) handleGetPlans(w http.ResponseWriter, r *http.Request) {
	plans := catalog.All()
	out := make([]pricedPlan, 0, len(plans))
	for _, plan := range plans {
		out = append(out, pricedPlan{
			BillingPlan: plan,
			PriceID:     h.prices.PriceID(plan.Tier, plan.Period),
		})
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"plans": out})
}

// handleCheckoutReturn reconciles a checkout session after the payment
// redirect. The UI sends its current page URL; the response includes the URL
// with the session identifier stripped, which the UI must apply with a
// history replacement.
func (h *Handler) handleCheckoutReturn(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		respondWithError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	sess := SessionFromContext(r.Context())
	outcome := h.service.Reconcile(r.Context(), sess, pageURL)
	respondWithJSON(w, http.StatusOK, outcome)
}

// handleSelectPlan opens a checkout session for a plan choice, or returns a
// sign-in redirect for anonymous callers.
func (h *Handler) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier     domain.Tier   `json:"tier"`
		Period   domain.Period `json:"period"`
		ReturnTo string        `json:"return_to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Tier.Valid() || !req.Period.Valid() {
		respondWithError(w, http.StatusBadRequest, "Unknown tier or period")
		return
	}

	sess := SessionFromContext(r.Context())
	outcome, err := h.service.SelectPlan(r.Context(), sess, req.Tier, req.Period, req.ReturnTo)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownPlan):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrAlreadySubscribed):
			respondWithError(w, http.StatusConflict, "You already have an active subscription")
		case errors.Is(err, app.ErrPriceNotConfigured):
			respondWithError(w, http.StatusServiceUnavailable, "This plan is not available right now")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to open checkout")
		}
		return
	}

	if outcome.SignInURL != "" {
		respondWithJSON(w, http.StatusUnauthorized, outcome)
		return
	}
	respondWithJSON(w, http.StatusOK, outcome)
}

// handleCloseCheckout resets the caller's open plan selection.
func (h *Handler) handleCloseCheckout(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if !sess.IsAuthenticated() {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	h.service.CloseCheckout(sess.Subject())
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetSubscription returns the caller's subscription projection. Users
// without a billing record are reported on the free plan.
func (h *Handler) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	acct, err := h.service.GetSubscription(r.Context(), sess.Subject())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch subscription")
		return
	}
	respondWithJSON(w, http.StatusOK, acct)
}

// handleGetSummary returns the caller's entitlement summary. Counters are null
// when the usage fetch failed; the UI renders a placeholder for null, never "0".
func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	summary := h.service.EntitlementSummary(r.Context(), sess)
	respondWithJSON(w, http.StatusOK, summary)
}

// handleCancelSubscription cancels the caller's subscription at period end.
func (h *Handler) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	result, err := h.service.CancelSubscription(r.Context(), sess)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrLifetimeNotCancelable):
			respondWithError(w, http.StatusBadRequest, "Lifetime memberships cannot be cancelled")
		case errors.Is(err, app.ErrNoActiveSubscription):
			respondWithError(w, http.StatusBadRequest, "No active subscription found")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to cancel subscription")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes a standard error body.
func respondWithError(w http.ResponseWriter, code int, message string) {
	status := "error"
	if code == http.StatusUnauthorized {
		status = "unauthorized"
	}
	respondWithJSON(w, code, errorResponse{Status: status, Error: message})
}
