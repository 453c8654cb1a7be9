package handler

import (
	"net/http"
	"time"

	"EcoFlowOps/internal/database"
	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/poller"
	"EcoFlowOps/internal/upstream"

	"github.com/gorilla/mux"
)

type HealthHandler struct {
	db     *database.Database
	client *upstream.Client
	poller *poller.Poller
	log    *logger.Logger
}

// NewHealthHandler builds the health probe. db may be nil when the gateway
// runs without the state database.
func NewHealthHandler(db *database.Database, client *upstream.Client, p *poller.Poller, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		client: client,
		poller: p,
		log:    log,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	resp.Services.Database = h.db == nil || h.db.Health(r.Context()) == nil
	resp.Services.Upstream = h.client.Health(r.Context()) == nil
	resp.Services.Poller = h.poller.Running()

	statusCode := http.StatusOK
	if !resp.Services.Database || !resp.Services.Upstream || !resp.Services.Poller {
		resp.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	respondJSON(w, statusCode, resp)
}
