package handler

import (
	"fmt"
	"net/http"
	"time"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/service"

	"github.com/gorilla/mux"
)

type ReportHandler struct {
	service *service.ReportService
	log     *logger.Logger
}

func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		log:     log,
	}
}

func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/reports/operations.pdf", h.OperationsPDF).Methods("GET")
}

func (h *ReportHandler) OperationsPDF(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.service.BuildOperationsPDF()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	filename := fmt.Sprintf("ecoflow-operations-%s.pdf", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
