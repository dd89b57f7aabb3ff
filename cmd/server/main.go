package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"metargb/transfusion-service/internal/config"
	"metargb/transfusion-service/internal/eligibility"
	"metargb/transfusion-service/internal/handler"
	"metargb/transfusion-service/internal/holiday"
	"metargb/transfusion-service/internal/repository"
	"metargb/transfusion-service/internal/service"
	"metargb/transfusion-service/pkg/logger"
	"metargb/transfusion-service/pkg/metrics"
)

const serviceName = "transfusion"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env file not found: %v\n", err)
	}

	log := logger.NewLogger(serviceName)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	serviceMetrics := metrics.NewMetrics("schedule")

	calendar := eligibility.New(cfg.RestDay)
	scheduleService, err := service.NewScheduleService(cfg.Policy, calendar, log, serviceMetrics)
	if err != nil {
		log.WithError(err).Fatal("Failed to create schedule service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources := holiday.NewHTTPSources(cfg.HolidayURLs, cfg.HolidayFetchTimeout)

	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, holiday feeds will not be cached")
		} else {
			defer redisClient.Close()
			for i, src := range sources {
				sources[i] = holiday.NewCachedSource(src, redisClient, cfg.HolidayCacheTTL, log)
			}
			log.Info("Holiday feed cache enabled")
		}
	}

	if cfg.DatabaseEnabled() {
		db, err := repository.Open(ctx, cfg.DSN(), repository.PoolConfig{})
		if err != nil {
			log.WithError(err).Warn("Database unavailable, stored holidays will not be loaded")
		} else {
			defer db.Close()
			if err := repository.ValidateSchema(ctx, db, repository.HolidaysSchema); err != nil {
				log.WithError(err).Warn("Schema validation warning")
			}
			sources = append(sources, repository.NewHolidayRepository(db))
			go recordPoolStats(ctx, db, serviceMetrics)
			log.Info("Database connected")
		}
	}

	// Scheduling is available immediately; holidays are merged as they arrive.
	loader := holiday.NewLoader(calendar, log, serviceMetrics)
	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.HolidayFetchTimeout+5*time.Second)
	defer cancelLoad()
	loadDone := loader.Start(loadCtx, sources...)
	go func() {
		if err := <-loadDone; err != nil {
			log.WithError(err).Warn("Some holiday sources failed to load")
		}
	}()

	httpServer := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: handler.NewRouter(
			handler.NewScheduleHandler(scheduleService, calendar),
			log,
			serviceMetrics,
			prometheus.DefaultGatherer,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.UnaryServerInterceptor(log),
			metrics.UnaryServerInterceptor(serviceMetrics),
		),
		grpc.ChainStreamInterceptor(
			logger.StreamServerInterceptor(log),
		),
	)
	healthServer := health.NewServer()
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.WithError(err).WithField("port", cfg.GRPCPort).Fatal("Failed to listen")
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("HTTP API started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	go func() {
		log.WithField("port", cfg.GRPCPort).Info("gRPC health service started")
		if err := grpcServer.Serve(lis); err != nil {
			log.WithError(err).Fatal("Failed to serve")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	grpcServer.GracefulStop()

	log.Info("Shutdown complete")
}

func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func recordPoolStats(ctx context.Context, db *sql.DB, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := db.Stats()
			m.RecordDBPoolStats(s.OpenConnections, s.InUse, s.Idle, s.WaitCount, s.WaitDuration)
		}
	}
}
