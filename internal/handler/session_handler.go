package handler

import (
	"context"
	"net/http"
	"strings"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/session"

	"github.com/gorilla/mux"
)

// SessionUser is the slice of the upstream client the session routes need.
type SessionUser interface {
	Me(ctx context.Context) (*models.User, error)
}

// SessionHandler receives the token pair from the dashboard after login and
// exposes the backend's view of the session. The gateway never performs the
// login itself; the browser hands over the pair it obtained.
type SessionHandler struct {
	sessions *session.Manager
	client   SessionUser
	log      *logger.Logger
}

func NewSessionHandler(sessions *session.Manager, client SessionUser, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		client:   client,
		log:      log,
	}
}

func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/session", h.Store).Methods("POST")
	r.HandleFunc("/session", h.Delete).Methods("DELETE")
	r.HandleFunc("/session/me", h.Me).Methods("GET")
}

// Store caches the pair for the poller and typed endpoints. From here on
// the upstream client attaches and refreshes it on its own.
func (h *SessionHandler) Store(w http.ResponseWriter, r *http.Request) {
	var pair models.TokenPair
	if err := decodeBody(r, &pair); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(pair.Access) == "" || strings.TrimSpace(pair.Refresh) == "" {
		respondError(w, http.StatusBadRequest, "access and refresh tokens are required")
		return
	}

	h.sessions.SetTokens(pair)
	h.log.Info("Session tokens stored")

	respondJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear()
	respondJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

// Me proxies the backend's /auth/me using the cached session, letting the
// dashboard verify the handed-over pair actually works.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Authenticated() {
		respondError(w, http.StatusUnauthorized, "No session tokens cached")
		return
	}

	user, err := h.client.Me(r.Context())
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
