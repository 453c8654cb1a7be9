package handler

import (
	"context"
	"net/http"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/poller"

	"github.com/gorilla/mux"
)

// OrganizationFetcher is the slice of the upstream client used to validate a
// venue switch before the poller adopts it.
type OrganizationFetcher interface {
	Organization(ctx context.Context, id int) (*models.Organization, error)
}

type DashboardHandler struct {
	poller *poller.Poller
	orgs   OrganizationFetcher
	log    *logger.Logger
}

func NewDashboardHandler(p *poller.Poller, orgs OrganizationFetcher, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		poller: p,
		orgs:   orgs,
		log:    log,
	}
}

func (h *DashboardHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/dashboard/snapshot", h.Snapshot).Methods("GET")
	r.HandleFunc("/dashboard/zones", h.Zones).Methods("GET")
	r.HandleFunc("/dashboard/metrics", h.Metrics).Methods("GET")
	r.HandleFunc("/dashboard/organization", h.SelectOrganization).Methods("POST")
}

// Snapshot returns the last committed poll tick in full. 503 until the
// first tick succeeds, so clients can distinguish "not loaded" from empty.
func (h *DashboardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.poller.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "No data loaded yet")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *DashboardHandler) Zones(w http.ResponseWriter, r *http.Request) {
	snap := h.poller.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "No data loaded yet")
		return
	}
	respondJSON(w, http.StatusOK, snap.Zones)
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	snap := h.poller.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "No data loaded yet")
		return
	}
	respondJSON(w, http.StatusOK, snap.Metrics)
}

// SelectOrganization verifies the venue exists on the backend, then switches
// the poller to it; the poller re-runs immediately rather than waiting out
// the interval.
func (h *DashboardHandler) SelectOrganization(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrganizationID int `json:"organization_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.OrganizationID <= 0 {
		respondError(w, http.StatusBadRequest, "organization_id must be positive")
		return
	}

	org, err := h.orgs.Organization(r.Context(), body.OrganizationID)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}

	h.poller.SetOrganization(org.ID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"organization_id": org.ID,
		"name":            org.Name,
	})
}
