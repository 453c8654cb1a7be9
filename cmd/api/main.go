package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EcoFlowOps/internal/config"
	"EcoFlowOps/internal/database"
	"EcoFlowOps/internal/handler"
	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/metrics"
	"EcoFlowOps/internal/mqtt"
	"EcoFlowOps/internal/poller"
	"EcoFlowOps/internal/repository"
	"EcoFlowOps/internal/server"
	"EcoFlowOps/internal/service"
	"EcoFlowOps/internal/session"
	"EcoFlowOps/internal/upstream"
	"EcoFlowOps/internal/websocket"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		// Fallback logger since main logger isn't ready
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting EcoFlow Ops Gateway")

	metrics.Register()

	// 3. State repository: Postgres when configured, in-memory otherwise.
	// The gateway owns no authoritative data, so running without the
	// database only costs session persistence across restarts.
	var stateRepo repository.IStateRepository
	var db *database.Database

	if cfg.UseDatabase() {
		db, err = database.New(&cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer db.Close()

		pgRepo := repository.NewStateRepository(db.DB)
		if err := pgRepo.EnsureSchema(context.Background()); err != nil {
			log.Fatal("Failed to ensure state schema: %v", err)
		}
		stateRepo = pgRepo
		log.Info("State database connected")
	} else {
		stateRepo = repository.NewMemoryStateRepository()
		log.Warn("No DB_HOST set, session state will not survive restarts")
	}

	// 4. Session + upstream client
	sess := session.NewManager(stateRepo, log)
	client := upstream.New(&cfg.Upstream, sess, log)

	// 5. WebSocket hub
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()

	hub := websocket.NewHub(log)
	go hub.Run(hubCtx)

	// 6. Poller
	p := poller.New(client, hub, poller.Config{
		Interval:       cfg.Poller.Interval,
		FetchTimeout:   cfg.Poller.FetchTimeout,
		OrganizationID: cfg.Poller.OrganizationID,
	}, log)
	p.Start()
	defer p.Stop()

	// 7. Optional MQTT signage notifier
	var notifier *mqtt.Notifier
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
			MQTT:   &cfg.MQTT,
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to create MQTT client: %v", err)
		}
		defer func() {
			if err := mqttClient.Disconnect(); err != nil {
				log.Error("Failed to disconnect MQTT: %v", err)
			}
		}()

		if err := mqttClient.Connect(); err != nil {
			log.Fatal("Failed to connect to MQTT broker: %v", err)
		}

		notifier = mqtt.NewNotifier(mqttClient, &cfg.MQTT, log)
		log.Info("Signage notifier active")
	}

	// 8. Initialize Services
	alertService := service.NewAlertService(client, p, hub, notifier, log)
	setupService := service.NewSetupService(client, stateRepo, log)
	notificationService := service.NewNotificationService(client, notifier, log)
	reportService := service.NewReportService(p, log)

	// Mirror critical alerts to signage on each poll interval.
	if notifier != nil {
		go func() {
			ticker := time.NewTicker(cfg.Poller.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-hubCtx.Done():
					return
				case <-ticker.C:
					if orgID := p.Organization(); orgID != 0 {
						alertService.PublishCritical(orgID)
					}
				}
			}
		}()
	}

	// 9. Initialize Handlers
	sessionHandler := handler.NewSessionHandler(sess, client, log)
	dashboardHandler := handler.NewDashboardHandler(p, client, log)
	alertHandler := handler.NewAlertHandler(alertService, log)
	proxyHandler := handler.NewProxyHandler(client, log)
	setupHandler := handler.NewSetupHandler(setupService, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)
	reportHandler := handler.NewReportHandler(reportService, log)
	healthHandler := handler.NewHealthHandler(db, client, p, log)

	// 10. Start HTTP Server
	srv := server.New(cfg, log)
	srv.RegisterHandlers(
		sessionHandler,
		dashboardHandler,
		alertHandler,
		proxyHandler,
		setupHandler,
		notificationHandler,
		reportHandler,
		healthHandler,
		hub,
	)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("Gateway ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 11. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Shutdown signal received")

	p.Stop()
	hubCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}
