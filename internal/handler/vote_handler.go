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

type VoteHandler struct {
	voteService *service.VoteService
	limiters    *ratelimit.Set
	logger      *logger.Logger
}

func NewVoteHandler(voteService *service.VoteService, limiters *ratelimit.Set, log *logger.Logger) *VoteHandler {
	return &VoteHandler{
		voteService: voteService,
		limiters:    limiters,
		logger:      log,
	}
}

// Submit handles POST /api/polls/{slug}/vote
func (h *VoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	id := identity.FromRequest(r)

	if !h.limiters.Vote.Allow(ratelimit.VoteKey(id.IP, id.Hash)) {
		respondError(w, r, h.logger, errors.NewRateLimitError("too many vote attempts, please try again later"))
		return
	}

	var req domain.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.logger, errors.NewValidationError("invalid request body", nil))
		return
	}

	response, err := h.voteService.SubmitVote(r.Context(), slug, &req, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}
