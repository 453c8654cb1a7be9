// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"

	"EcoFlowOps/internal/config"
	"EcoFlowOps/internal/handler"
	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/metrics"
	"EcoFlowOps/internal/middleware"
	"EcoFlowOps/internal/websocket"

	"github.com/gorilla/mux"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	log        *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Server {
	router := mux.NewRouter()

	server := &Server{
		router: router,
		cfg:    cfg,
		log:    log,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}

	return server
}

func (s *Server) RegisterHandlers(
	sessionHandler *handler.SessionHandler,
	dashboardHandler *handler.DashboardHandler,
	alertHandler *handler.AlertHandler,
	proxyHandler *handler.ProxyHandler,
	setupHandler *handler.SetupHandler,
	notificationHandler *handler.NotificationHandler,
	reportHandler *handler.ReportHandler,
	healthHandler *handler.HealthHandler,
	hub *websocket.Hub,
) {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.Use(middleware.RequestID())
	api.Use(middleware.RequestLogger(s.log))
	api.Use(middleware.CORS(s.cfg.Security.CORSAllowedOrigins, s.cfg.Security.CORSAllowedMethods))
	api.Use(middleware.Recovery(s.log))

	if s.cfg.Security.EnableRateLimit {
		api.Use(middleware.RateLimit(s.cfg.Security.RateLimitPerMinute))
	}

	sessionHandler.RegisterRoutes(api)
	dashboardHandler.RegisterRoutes(api)
	alertHandler.RegisterRoutes(api)
	proxyHandler.RegisterRoutes(api)
	setupHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)
	reportHandler.RegisterRoutes(api)
	healthHandler.RegisterRoutes(s.router)

	s.router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWs(hub, w, r, s.log)
	})
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	s.log.Info("All handlers registered")
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
