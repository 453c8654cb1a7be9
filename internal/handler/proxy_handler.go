package handler

import (
	"fmt"
	"io"
	"net/http"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/metrics"
	"EcoFlowOps/internal/upstream"

	"github.com/gorilla/mux"
)

const maxProxyBody = 1 << 20 // 1 MiB

// ProxyHandler passes a small set of backend routes through verbatim so
// browser clients never talk to the backend origin directly. The caller's
// Authorization header is forwarded as-is; the gateway's own session is not
// used here.
type ProxyHandler struct {
	client *upstream.Client
	log    *logger.Logger
}

func NewProxyHandler(client *upstream.Client, log *logger.Logger) *ProxyHandler {
	return &ProxyHandler{
		client: client,
		log:    log,
	}
}

func (h *ProxyHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/proxy/alerts", h.passthrough("/alerts")).Methods("GET")
	r.HandleFunc("/proxy/alerts/{id}", h.passthroughVar("/alerts/%s", "id")).Methods("PUT")
	r.HandleFunc("/proxy/carbon/stats", h.passthrough("/carbon/stats")).Methods("GET")
	r.HandleFunc("/proxy/organizations/{id}", h.passthroughVar("/organizations/%s", "id")).Methods("GET", "PUT")
}

func (h *ProxyHandler) passthrough(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.forward(w, r, path)
	}
}

func (h *ProxyHandler) passthroughVar(format, varName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.forward(w, r, fmt.Sprintf(format, mux.Vars(r)[varName]))
	}
}

func (h *ProxyHandler) forward(w http.ResponseWriter, r *http.Request, path string) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxProxyBody))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Could not read request body")
			return
		}
		r.Body.Close()
	}

	status, respBody, err := h.client.Forward(
		r.Context(),
		r.Method,
		path,
		r.URL.Query(),
		body,
		r.Header.Get("Authorization"),
	)
	if err != nil {
		metrics.ProxyRequests.WithLabelValues(path, "error").Inc()
		h.log.Warn("Proxy %s %s failed: %v", r.Method, path, err)
		respondError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	metrics.ProxyRequests.WithLabelValues(path, fmt.Sprintf("%d", status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(respBody)
}
