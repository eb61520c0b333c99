/**
 * @description
 * This file contains the HTTP handler functions for the goal-service. Handlers
 * are responsible for parsing incoming requests, validating user input, calling
 * the appropriate business logic in the service layer, and writing the HTTP
 * response.
 *
 * @notes
 * - Validation failures return 400 with an inline message and the operation is
 *   never attempted.
 * - A failed off-chain write after on-chain acceptance returns 409 with the
 *   distinct "inconsistent_state" code so the client can tell it apart from a
 *   generic failure.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/megabyte0x/accountable/internal/app"
	"github.com/megabyte0x/accountable/internal/config"
	"github.com/megabyte0x/accountable/internal/domain"
	"github.com/megabyte0x/accountable/internal/store"
)

// Handler holds the application collaborators that handlers interact with.
type Handler struct {
	service app.Service
	lookup  app.Lookup
	limiter *app.RedisRateLimiter
	cfg     config.Config
	logger  *slog.Logger
}

// NewHandler creates a new Handler. The rate limiter may be nil when Redis is
// not configured; lookups are then unthrottled.
func NewHandler(service app.Service, lookup app.Lookup, limiter *app.RedisRateLimiter, cfg config.Config, logger *slog.Logger) *Handler {
	return &Handler{service: service, lookup: lookup, limiter: limiter, cfg: cfg, logger: logger}
}

// handleCreateSession mints a session token for a wallet address.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_input", "address is required")
		return
	}

	ttl := time.Duration(h.cfg.SessionTTLMinutes) * time.Minute
	token, err := MintSessionToken(h.cfg.SessionJWTSecret, address, ttl)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"token":   token,
		"address": address,
	})
}

// handleListGoals lists all goals owned by a wallet address.
func (h *Handler) handleListGoals(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_input", "address query parameter is required")
		return
	}

	goals := h.service.ListGoalsByOwner(r.Context(), address)
	respondWithJSON(w, http.StatusOK, goals)
}

// handleGetGoal retrieves a single goal with its supporters.
func (h *Handler) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")

	goal, err := h.service.GetGoalByID(r.Context(), goalID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "not_found", "goal not found")
		return
	}

	respondWithJSON(w, http.StatusOK, goal)
}

// handleCreateGoal persists a new goal once the stake transaction is accepted.
func (h *Handler) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	address, ok := AddressFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req domain.CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if msg := validateCreateGoal(req); msg != "" {
		respondWithError(w, http.StatusBadRequest, "invalid_input", msg)
		return
	}

	goal, err := h.service.CreateGoal(r.Context(), req, address)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, goal)
}

func validateCreateGoal(req domain.CreateGoalRequest) string {
	switch {
	case strings.TrimSpace(req.Title) == "":
		return "title is required"
	case strings.TrimSpace(req.Description) == "":
		return "description is required"
	case req.Deadline.IsZero():
		return "deadline is required"
	case strings.TrimSpace(req.StakeAmount) == "":
		return "stake_amount is required"
	case strings.TrimSpace(req.TxHash) == "":
		return "tx_hash is required"
	}
	return ""
}

// handleCompleteGoal marks a goal completed after the wallet layer accepted
// the settlement transaction.
func (h *Handler) handleCompleteGoal(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.MarkCompleted)
}

// handleFailGoal marks a goal failed.
func (h *Handler) handleFailGoal(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.MarkFailed)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, goalID, callerAddress, txHash string) (*domain.Goal, error)) {
	address, ok := AddressFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	goalID := chi.URLParam(r, "goalID")

	var req domain.TransitionGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.TxHash) == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_input", "tx_hash is required")
		return
	}

	goal, err := transition(r.Context(), goalID, address, req.TxHash)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, goal)
}

// handleAddSupporter attaches a supporter to a goal.
func (h *Handler) handleAddSupporter(w http.ResponseWriter, r *http.Request) {
	address, ok := AddressFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	goalID := chi.URLParam(r, "goalID")

	var req domain.AddSupporterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Supporter.FID <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid_input", "supporter user_id is required")
		return
	}

	goal, err := h.service.AddSupporter(r.Context(), goalID, address, req.Supporter)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, goal)
}

// handleListSupporters lists the supporters attached to a goal.
func (h *Handler) handleListSupporters(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	respondWithJSON(w, http.StatusOK, h.service.ListSupporters(r.Context(), goalID))
}

// handleSearchFarcasterUser resolves a username against the Farcaster social
// graph, throttled per caller because it fans out to a paid API.
func (h *Handler) handleSearchFarcasterUser(w http.ResponseWriter, r *http.Request) {
	subject := h.rateLimitSubject(r)
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "farcaster_lookup", subject, h.cfg.LookupRateLimitPerMinute, time.Minute)
	if err != nil {
		// Redis being unreachable degrades to an unthrottled lookup.
		h.logger.Warn("lookup rate limit check failed, proceeding unthrottled", "subject", subject, "error", err)
	}
	if err == nil && h.cfg.LookupRateLimitPerMinute > 0 && count > h.cfg.LookupRateLimitPerMinute {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		respondWithError(w, http.StatusTooManyRequests, "rate_limited", "too many lookup requests")
		return
	}

	result := h.lookup.SearchUser(r.Context(), r.URL.Query().Get("username"))
	respondWithJSON(w, http.StatusOK, result)
}

// rateLimitSubject prefers the session wallet address and falls back to the
// client IP for anonymous callers.
func (h *Handler) rateLimitSubject(r *http.Request) string {
	if address, ok := AddressFromContext(r.Context()); ok {
		return address
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// respondServiceError maps service-layer errors onto the HTTP error taxonomy.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrGoalNotFound):
		respondWithError(w, http.StatusNotFound, "not_found", "goal not found")
	case errors.Is(err, app.ErrNotOwner):
		respondWithError(w, http.StatusForbidden, "not_owner", "caller does not own this goal")
	case errors.Is(err, app.ErrInconsistentState):
		respondWithError(w, http.StatusConflict, "inconsistent_state", "transaction accepted but the goal update failed; manual reconciliation required")
	default:
		respondWithError(w, http.StatusInternalServerError, "internal", "something went wrong")
	}
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

// respondWithError writes a structured error body with a machine-readable code.
func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, map[string]string{
		"code":  code,
		"error": message,
	})
}
