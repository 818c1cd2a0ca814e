package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/services"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/store"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/utils"
)

// SyncHandler exposes the sync trigger, status and history endpoints.
type SyncHandler struct {
	syncService *services.SyncService
	runs        services.SyncRunStore
	persons     *store.PersonStore
	accounts    services.AccountStore
}

func NewSyncHandler(syncService *services.SyncService, runs services.SyncRunStore, persons *store.PersonStore, accounts services.AccountStore) *SyncHandler {
	return &SyncHandler{syncService: syncService, runs: runs, persons: persons, accounts: accounts}
}

// HandleTriggerSync starts one person's sync synchronously and returns the
// resulting run, or 409 when a sync for that person is already in flight.
func (h *SyncHandler) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	person := r.URL.Query().Get("person")
	if person == "" {
		utils.SendJSONError(w, "person query parameter required", http.StatusBadRequest)
		return
	}
	scope, err := models.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctxLogger := logger.FromContext(r.Context())
	ctxLogger.Info("Handling sync trigger", "person", person, "scope", string(scope))

	run, err := h.syncService.SyncPerson(r.Context(), person, scope, "api")
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSyncInProgress):
			utils.SendJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, services.ErrPersonNotFound):
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
		default:
			ctxLogger.Error("Sync trigger failed", "person", person, "error", err)
			utils.SendJSONError(w, "sync failed to start", http.StatusInternalServerError)
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, run)
}

// HandleTriggerSyncAll starts a full sync for every active person and returns
// the resulting runs. Persons already syncing are skipped.
func (h *SyncHandler) HandleTriggerSyncAll(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Info("Handling sync-all trigger")
	runs := h.syncService.SyncAll(r.Context(), "api")
	if runs == nil {
		runs = []*models.SyncRun{}
	}
	utils.WriteJSON(w, http.StatusOK, runs)
}

// HandleGetSyncRuns returns recent sync runs, newest first.
func (h *SyncHandler) HandleGetSyncRuns(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r, 7*24*time.Hour)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.runs.List(r.URL.Query().Get("person"), from, to, limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("Listing sync runs failed", "error", err)
		utils.SendJSONError(w, "error retrieving sync runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.SyncRun{}
	}
	utils.WriteJSON(w, http.StatusOK, runs)
}

// HandleGetSyncRun returns one sync run by ID.
func (h *SyncHandler) HandleGetSyncRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.runs.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.SendJSONError(w, "sync run not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Loading sync run failed", "id", id, "error", err)
		utils.SendJSONError(w, "error retrieving sync run", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, run)
}

// HandleGetSyncStats returns aggregate sync statistics over a date range.
func (h *SyncHandler) HandleGetSyncStats(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r, 7*24*time.Hour)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	stats, err := h.runs.Stats(from, to)
	if err != nil {
		logger.FromContext(r.Context()).Error("Aggregating sync stats failed", "error", err)
		utils.SendJSONError(w, "error retrieving sync stats", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

// personSummary is one tracked person plus their synced account count.
type personSummary struct {
	models.Person
	AccountCount int `json:"account_count"`
}

// HandleListPersons returns every tracked person with account counts.
func (h *SyncHandler) HandleListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.persons.List()
	if err != nil {
		logger.FromContext(r.Context()).Error("Listing persons failed", "error", err)
		utils.SendJSONError(w, "error retrieving persons", http.StatusInternalServerError)
		return
	}

	summaries := make([]personSummary, 0, len(persons))
	for _, p := range persons {
		accounts, err := h.accounts.ListByPerson(p.Name)
		if err != nil {
			logger.FromContext(r.Context()).Error("Listing accounts failed", "person", p.Name, "error", err)
			utils.SendJSONError(w, "error retrieving accounts", http.StatusInternalServerError)
			return
		}
		summaries = append(summaries, personSummary{Person: p, AccountCount: len(accounts)})
	}
	utils.WriteJSON(w, http.StatusOK, summaries)
}

// parseDateRange reads from/to query parameters (RFC3339 or YYYY-MM-DD),
// defaulting to the trailing window ending now.
func parseDateRange(r *http.Request, defaultWindow time.Duration) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.Add(-defaultWindow)
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := parseDateParam(s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from date")
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := parseDateParam(s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to date")
		}
		to = t
	}
	return from, to, nil
}

func parseDateParam(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
