package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mcoot/bughunt/internal/api/response"
	"github.com/mcoot/bughunt/internal/dependencies/clock"
)

const healthPingTimeout = 2 * time.Second

// Pinger checks backend connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageInfo describes which backend is serving requests
type StorageInfo struct {
	Backend  string
	Volatile bool
}

// HealthHandler reports process and storage health
type HealthHandler struct {
	storage Pinger
	info    StorageInfo
	clock   clock.Clock
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(storage Pinger, info StorageInfo, clock clock.Clock) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		info:    info,
		clock:   clock,
		started: clock.Now(),
	}
}

// Health handles GET /api/health. It always answers 200; storage problems
// are reported in the body.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	db := response.DBStatus{
		Backend:  h.info.Backend,
		Volatile: h.info.Volatile,
		OK:       true,
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if err := h.storage.Ping(ctx); err != nil {
		db.OK = false
		db.Error = err.Error()
	}

	response.JSON(w, http.StatusOK, response.HealthResponse{
		OK:     true,
		Uptime: h.clock.Now().Sub(h.started).Seconds(),
		DB:     db,
	})
}
