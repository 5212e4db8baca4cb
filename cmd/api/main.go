package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Jean-Luc-of-God/bloodbank/internal/app"
	"github.com/Jean-Luc-of-God/bloodbank/internal/clock"
	"github.com/Jean-Luc-of-God/bloodbank/internal/config"
	"github.com/Jean-Luc-of-God/bloodbank/internal/storage/postgres"
	transporthttp "github.com/Jean-Luc-of-God/bloodbank/internal/transport/http"
	"github.com/Jean-Luc-of-God/bloodbank/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil {
		logger.Warnf("no .env file loaded: %v", err)
	}
	cfg := config.Load(logger)

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	unitRepo := postgres.NewUnitRepository(pool)
	stockSvc := app.NewStockService(unitRepo, clock.NewSystem())
	requestRepo := postgres.NewRequestRepository(pool)
	requestSvc := app.NewRequestService(requestRepo, clock.NewSystem())
	alertRepo := postgres.NewAlertRepository(pool)
	alertSvc := app.NewAlertService(alertRepo, clock.NewSystem())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/stock", transporthttp.HandleStock(requestSvc))
	mux.Handle("/units", transporthttp.HandleUnits(stockSvc))
	mux.Handle("/units/", transporthttp.HandleUnitByID(stockSvc))
	mux.Handle("/requests", transporthttp.HandleRequests(requestSvc))
	mux.Handle("/requests/", transporthttp.HandleRequestByID(requestSvc))
	mux.Handle("/alerts", transporthttp.HandleAlerts(alertSvc))
	mux.Handle("/alerts/", transporthttp.HandleAlertActions(alertSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler,
	}

	logger.Infof("api listening on :%s", cfg.HTTPPort)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server error: %v", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("server shutdown error: %v", err)
	}
	logger.Info("server stopped")
}
