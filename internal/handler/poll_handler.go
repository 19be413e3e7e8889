package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pollgate/internal/domain"
	"pollgate/internal/identity"
	"pollgate/internal/ratelimit"
	"pollgate/internal/service"
	"pollgate/pkg/errors"
	"pollgate/pkg/logger"
)

type PollHandler struct {
	pollService *service.PollService
	limiters    *ratelimit.Set
	logger      *logger.Logger
}

func NewPollHandler(pollService *service.PollService, limiters *ratelimit.Set, log *logger.Logger) *PollHandler {
	return &PollHandler{
		pollService: pollService,
		limiters:    limiters,
		logger:      log,
	}
}

// Create handles POST /api/polls
func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := identity.FromRequest(r)

	if !h.limiters.CreatePoll.Allow(ratelimit.CreatePollKey(id.IP)) {
		respondError(w, r, h.logger, errors.NewRateLimitError("too many poll creation attempts, please try again later"))
		return
	}

	var req domain.CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.logger, errors.NewValidationError("invalid request body", nil))
		return
	}

	response, err := h.pollService.CreatePoll(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, response)
}

// Get handles GET /api/polls/{slug}
func (h *PollHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	id := identity.FromRequest(r)

	response, err := h.pollService.GetPoll(r.Context(), slug, id.Hash)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// Delete handles DELETE /api/polls/{slug}
func (h *PollHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	adminToken := r.URL.Query().Get("admin_token")

	if err := h.pollService.DeletePoll(r.Context(), slug, adminToken); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Poll deleted successfully",
	})
}
