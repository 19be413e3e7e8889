package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"pollgate/internal/middleware"
	"pollgate/pkg/errors"
	"pollgate/pkg/logger"
)

// respondJSON writes data as a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError renders err in the AppError envelope, tagged with the
// request ID so a client report can be matched to the server logs.
// Non-AppError values are logged with full context and surfaced as a
// generic internal error.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.NewInternalError("internal server error", err)
	}

	requestID := middleware.RequestIDFromContext(r.Context())

	if appErr.Internal != nil {
		log.WithError(appErr.Internal).
			WithField("type", string(appErr.Type)).
			WithField("request_id", requestID).
			Error(appErr.Message)
	} else {
		log.WithField("type", string(appErr.Type)).Debug(appErr.Message)
	}

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = requestID
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	respondJSON(w, appErr.StatusCode, response)
}
