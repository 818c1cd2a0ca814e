package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/store"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/utils"
)

// DividendHandler exposes the per-symbol dividend policy administration
// endpoints, including manual overrides.
type DividendHandler struct {
	policies *store.DividendPolicyStore
}

func NewDividendHandler(policies *store.DividendPolicyStore) *DividendHandler {
	return &DividendHandler{policies: policies}
}

// HandleListPolicies returns every symbol's dividend policy.
func (h *DividendHandler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.policies.List()
	if err != nil {
		logger.FromContext(r.Context()).Error("Listing dividend policies failed", "error", err)
		utils.SendJSONError(w, "error retrieving dividend policies", http.StatusInternalServerError)
		return
	}
	if policies == nil {
		policies = []models.DividendPolicy{}
	}
	utils.WriteJSON(w, http.StatusOK, policies)
}

// HandleGetPolicy returns one symbol's dividend policy.
func (h *DividendHandler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	policy, err := h.policies.Get(symbol)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.SendJSONError(w, "no dividend policy for symbol", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Loading dividend policy failed", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "error retrieving dividend policy", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, policy)
}

type overrideRequest struct {
	Frequency       string `json:"frequency"`
	MonthlyPerShare string `json:"monthly_per_share"`
}

// HandleSetOverride sets a manual override on a symbol's policy. Overridden
// values win over the automated reconciler until the override is cleared.
func (h *DividendHandler) HandleSetOverride(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !models.ValidFrequency(req.Frequency) {
		utils.SendJSONError(w, "invalid frequency", http.StatusBadRequest)
		return
	}
	monthly, err := decimal.NewFromString(req.MonthlyPerShare)
	if err != nil || monthly.IsNegative() {
		utils.SendJSONError(w, "invalid monthly_per_share", http.StatusBadRequest)
		return
	}

	policy := &models.DividendPolicy{
		Symbol:           symbol,
		Frequency:        models.DividendFrequency(req.Frequency),
		MonthlyPerShare:  monthly,
		AnnualPerShare:   monthly.Mul(decimal.NewFromInt(12)),
		IsManualOverride: true,
		Source:           models.PolicySourceManual,
	}
	if err := h.policies.Upsert(policy); err != nil {
		logger.FromContext(r.Context()).Error("Setting dividend override failed", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "error saving dividend override", http.StatusInternalServerError)
		return
	}

	logger.FromContext(r.Context()).Info("Dividend override set",
		"symbol", symbol, "frequency", req.Frequency, "monthlyPerShare", monthly.String())
	utils.WriteJSON(w, http.StatusOK, policy)
}

// HandleClearOverride clears a symbol's manual override, returning control of
// the policy to the automated reconciler.
func (h *DividendHandler) HandleClearOverride(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if err := h.policies.ClearOverride(symbol); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.SendJSONError(w, "no dividend policy for symbol", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Clearing dividend override failed", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "error clearing dividend override", http.StatusInternalServerError)
		return
	}
	logger.FromContext(r.Context()).Info("Dividend override cleared", "symbol", symbol)
	utils.WriteJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "status": "override cleared"})
}
