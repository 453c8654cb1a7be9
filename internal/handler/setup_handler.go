package handler

import (
	"net/http"
	"strconv"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/service"

	"github.com/gorilla/mux"
)

type SetupHandler struct {
	service *service.SetupService
	log     *logger.Logger
}

func NewSetupHandler(svc *service.SetupService, log *logger.Logger) *SetupHandler {
	return &SetupHandler{
		service: svc,
		log:     log,
	}
}

func (h *SetupHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/setup", h.Submit).Methods("POST")
	r.HandleFunc("/settings", h.GetSettings).Methods("GET")
	r.HandleFunc("/settings", h.SaveSettings).Methods("PUT")
	r.HandleFunc("/organizations/{id}", h.UpdateOrganization).Methods("PUT")
}

// Submit runs the full venue-setup flow: organization, zones, cameras.
// Partial failures come back in the "warning" field with a 200, since the
// venue itself exists at that point.
func (h *SetupHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form models.SetupForm
	if err := decodeBody(r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Submit(r.Context(), &form)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *SetupHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.Settings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Could not load settings")
		return
	}
	if form == nil {
		respondError(w, http.StatusNotFound, "No settings saved")
		return
	}
	respondJSON(w, http.StatusOK, form)
}

func (h *SetupHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var form models.SetupForm
	if err := decodeBody(r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.SaveSettings(r.Context(), &form); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Settings saved"})
}

func (h *SetupHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var fields map[string]interface{}
	if err := decodeBody(r, &fields); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(fields) == 0 {
		respondError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	org, err := h.service.UpdateOrganization(r.Context(), id, fields)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, org)
}
