package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/seonbi/hancard/internal/api/shared"
	"github.com/seonbi/hancard/internal/breaker"
	"github.com/seonbi/hancard/internal/cache"
)

// HealthResponse reports the liveness of the service and the state of the
// generation backend's protective layers.
type HealthResponse struct {
	Status   string        `json:"status"`
	Database string        `json:"database"`
	Breaker  BreakerStatus `json:"breaker"`
	Cache    cache.Stats   `json:"cache"`
}

// BreakerStatus is the circuit breaker portion of the health report.
type BreakerStatus struct {
	State               string `json:"state"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// HealthHandler handles GET /healthz requests
type HealthHandler struct {
	db      *sql.DB
	breaker *breaker.Breaker
	cache   *cache.Cache
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *sql.DB, brk *breaker.Breaker, c *cache.Cache) *HealthHandler {
	return &HealthHandler{db: db, breaker: brk, cache: c}
}

// Check reports overall health. An unreachable database makes the service
// unhealthy (503); an open breaker is reported but keeps the service healthy,
// since queries still work while generation recovers.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Breaker: BreakerStatus{
			State:               string(h.breaker.State()),
			ConsecutiveFailures: h.breaker.ConsecutiveFailures(),
		},
		Cache: h.cache.Stats(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		response.Status = "unhealthy"
		response.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	shared.RespondWithJSON(w, r, status, response)
}
