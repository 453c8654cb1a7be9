package handler

import (
	"net/http"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/service"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	service *service.NotificationService
	log     *logger.Logger
}

func NewNotificationHandler(svc *service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: svc,
		log:     log,
	}
}

func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/notifications", h.List).Methods("GET")
	r.HandleFunc("/notifications", h.Broadcast).Methods("POST")
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.service.List(r.Context())
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrganizationID int    `json:"organization_id"`
		Title          string `json:"title"`
		Message        string `json:"message"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.service.Broadcast(r.Context(), body.OrganizationID, models.Notification{
		Title:   body.Title,
		Message: body.Message,
	})
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}
