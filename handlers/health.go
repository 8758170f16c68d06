package handlers

import (
	"context"
	"net/http"
	"time"

	"movierockstar/services/catalog"
)

const healthPingTimeout = 3 * time.Second

// catalogPinger checks upstream reachability for the health endpoint.
type catalogPinger interface {
	Ping(ctx context.Context) error
}

var _ catalogPinger = (*catalog.Client)(nil)

type HealthHandler struct {
	Catalog catalogPinger
}

func NewHealthHandler(c catalogPinger) *HealthHandler {
	return &HealthHandler{Catalog: c}
}

// Health answers GET /health. The process is healthy as long as it is
// serving; catalog reachability is reported alongside and degrades the
// status to 503 when the upstream cannot be reached.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	if err := h.Catalog.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"catalog": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"catalog": "ok",
	})
}
