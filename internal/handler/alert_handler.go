package handler

import (
	"net/http"
	"strings"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/service"

	"github.com/gorilla/mux"
)

type AlertHandler struct {
	service service.IAlertService
	log     *logger.Logger
}

func NewAlertHandler(svc service.IAlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		service: svc,
		log:     log,
	}
}

func (h *AlertHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/alerts", h.List).Methods("GET")
	r.HandleFunc("/alerts/{id}/resolve", h.Resolve).Methods("PUT")
	r.HandleFunc("/alerts/{id}/acknowledge", h.Acknowledge).Methods("PUT")
}

// List serves the normalized alert feed. Optional ?level= and ?status=
// filters match the derived fields, not the backend's raw ones.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	status := r.URL.Query().Get("status")

	alerts := h.service.List(level, status)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		respondError(w, http.StatusBadRequest, "Alert ID is required")
		return
	}

	if err := h.service.Resolve(r.Context(), id); err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "resolved",
	})
}

func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		respondError(w, http.StatusBadRequest, "Alert ID is required")
		return
	}

	if err := h.service.Acknowledge(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "acknowledged",
	})
}
