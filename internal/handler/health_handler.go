package handler

import (
	"context"
	"net/http"
	"time"

	"pollgate/pkg/database"
	"pollgate/pkg/logger"
	"pollgate/pkg/redis"
)

type HealthHandler struct {
	db     *database.PostgresDB
	redis  *redis.Client
	logger *logger.Logger
}

func NewHealthHandler(db *database.PostgresDB, redisClient *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		logger: log,
	}
}

// Check handles GET /health. Redis is a fast path, not a dependency, so
// a Redis outage degrades the report without failing it.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{
		"database": "ok",
	}

	if err := h.db.Health(ctx); err != nil {
		h.logger.WithError(err).Error("database health check failed")
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Health(ctx); err != nil {
			h.logger.WithError(err).Warn("redis health check failed")
			checks["redis"] = "unavailable"
		}
	} else {
		checks["redis"] = "disabled"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	respondJSON(w, status, map[string]interface{}{
		"status":    overall,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
