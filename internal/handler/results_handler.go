package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pollgate/internal/identity"
	"pollgate/internal/service"
	"pollgate/pkg/logger"
)

type ResultsHandler struct {
	resultsService *service.ResultsService
	logger         *logger.Logger
}

func NewResultsHandler(resultsService *service.ResultsService, log *logger.Logger) *ResultsHandler {
	return &ResultsHandler{
		resultsService: resultsService,
		logger:         log,
	}
}

// Get handles GET /api/polls/{slug}/results
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	id := identity.FromRequest(r)

	query := service.ResultsQuery{
		AdminToken:  r.URL.Query().Get("admin_token"),
		RevealToken: r.URL.Query().Get("reveal_token"),
		ClientHash:  id.Hash,
	}

	response, err := h.resultsService.GetResults(r.Context(), slug, query)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// Admin handles GET /api/polls/{slug}/admin
func (h *ResultsHandler) Admin(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	adminToken := r.URL.Query().Get("admin_token")

	response, err := h.resultsService.GetAdminView(r.Context(), slug, adminToken)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}
