package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pesio-ai/be-fin-capex/internal/approval"
	"github.com/pesio-ai/be-fin-capex/internal/client"
	"github.com/pesio-ai/be-fin-capex/internal/finance"
	"github.com/pesio-ai/be-fin-capex/internal/handler"
	"github.com/pesio-ai/be-fin-capex/internal/platform/config"
	"github.com/pesio-ai/be-fin-capex/internal/platform/database"
	"github.com/pesio-ai/be-fin-capex/internal/platform/logger"
	"github.com/pesio-ai/be-fin-capex/internal/platform/middleware"
	"github.com/pesio-ai/be-fin-capex/internal/repository"
	"github.com/pesio-ai/be-fin-capex/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Capital Investment Approval Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		HealthCheck: cfg.Database.HealthCheck,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Optional NATS connection for approval event notifications
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = nats.Connect(cfg.NATS.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable; notifications disabled")
		} else {
			defer natsConn.Close()
			log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
		}
	}
	notifier := client.NewNotificationPublisher(natsConn, log.Logger)

	// Exchange rates arrive as a static snapshot; a live source can replace
	// this without touching the services.
	rateSource, err := client.NewStaticRateSource(cfg.Currency.BaseCurrency, cfg.Currency.RatesJSON, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse exchange rate table")
	}

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(db)
	rulesRepo := repository.NewRulesRepository(db)
	logRepo := repository.NewApprovalLogRepository(db)
	kpiRepo := repository.NewKPIRepository(db)

	// Pure engines
	matrix := approval.NewMatrixResolver()
	machine := approval.NewStateMachine(matrix, approval.Config{
		AllowHoldResume: cfg.Approval.AllowHoldResume,
	})
	metricsEngine := finance.NewMetricsEngine()
	impactCalc := finance.NewROIImpactCalculator()

	// Initialize services
	requestService := service.NewRequestService(
		requestRepo, rulesRepo, logRepo,
		matrix, machine,
		rateSource, cfg.Currency.RateCacheTTL,
		notifier, log,
	)
	analyticsService := service.NewAnalyticsService(
		requestRepo, kpiRepo, logRepo,
		metricsEngine, impactCalc, log,
	)
	rulesService := service.NewRulesService(rulesRepo, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(requestService, analyticsService, rulesService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Request routes
	mux.HandleFunc("/api/v1/requests", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListRequests(w, r)
		case http.MethodPost:
			httpHandler.CreateRequest(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/requests/get", httpHandler.GetRequest)
	mux.HandleFunc("/api/v1/requests/update", httpHandler.UpdateRequest)
	mux.HandleFunc("/api/v1/requests/submit", httpHandler.SubmitRequest)
	mux.HandleFunc("/api/v1/requests/decide", httpHandler.DecideRequest)
	mux.HandleFunc("/api/v1/requests/resume", httpHandler.ResumeRequest)
	mux.HandleFunc("/api/v1/requests/review", httpHandler.StartReview)
	mux.HandleFunc("/api/v1/requests/history", httpHandler.ApprovalHistory)
	mux.HandleFunc("/api/v1/requests/pending", httpHandler.PendingApprovals)

	// Analytics routes
	mux.HandleFunc("/api/v1/requests/kpi", httpHandler.GetKPIs)
	mux.HandleFunc("/api/v1/requests/kpi/compute", httpHandler.ComputeKPIs)
	mux.HandleFunc("/api/v1/requests/roi-impact", httpHandler.ROIImpact)
	mux.HandleFunc("/api/v1/requests/roi-timeline", httpHandler.ROITimeline)
	mux.HandleFunc("/api/v1/reports/roi-summary", httpHandler.PortfolioSummary)

	// Matrix rule routes
	mux.HandleFunc("/api/v1/rules", httpHandler.Rules)
	mux.HandleFunc("/api/v1/rules/update", httpHandler.UpdateRule)
	mux.HandleFunc("/api/v1/rules/deactivate", httpHandler.DeactivateRule)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
