package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Skufu/NutriPredict/internal/audit"
	"github.com/Skufu/NutriPredict/internal/contract"
	"github.com/Skufu/NutriPredict/internal/logging"
	"github.com/Skufu/NutriPredict/internal/prediction"
	"github.com/Skufu/NutriPredict/internal/presenter"
	"github.com/Skufu/NutriPredict/internal/server"
	"github.com/Skufu/NutriPredict/internal/session"
)

const (
	serviceName        = "nutripredict"
	defaultIdleTimeout = 30 * time.Minute
	defaultMaxSessions = 10000
)

type Config struct {
	Port            string
	GinMode         string
	DatabaseURL     string
	EnableDB        bool
	PredictURL      string
	PredictTimeout  time.Duration
	ContractVersion contract.Version
	RevealInterval  time.Duration
	IdleTimeout     time.Duration
	MaxSessions     int
	LogLevel        string
	LogFormat       string
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	deps := server.Deps{Logger: logger}
	opts := session.Options{
		DefaultVersion: cfg.ContractVersion,
		RevealInterval: cfg.RevealInterval,
		Logger:         logger,
		IdleTimeout:    cfg.IdleTimeout,
		MaxSessions:    cfg.MaxSessions,
	}

	if cfg.EnableDB {
		pool, err := connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()

		auditLog := audit.NewLog(pool)
		if err := auditLog.EnsureSchema(ctx); err != nil {
			logger.Fatal("audit schema setup failed", zap.Error(err))
		}
		deps.DB = pool
		deps.Audit = auditLog
		opts.Recorder = auditLog
	}

	client := prediction.NewClient(cfg.PredictURL, cfg.PredictTimeout, logger)
	manager := session.NewManager(client, opts)
	deps.Sessions = manager

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.PredictTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("server listening",
		zap.String("port", cfg.Port),
		zap.String("predict_url", cfg.PredictURL),
		zap.Stringer("contract_version", cfg.ContractVersion),
		zap.Bool("db", cfg.EnableDB),
	)
	waitForShutdown(srv, manager, logger)
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("PORT", "8080")
	cfg := &Config{
		Port:        port,
		GinMode:     getEnv("GIN_MODE", gin.ReleaseMode),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		EnableDB:    strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		PredictURL:  getEnv("PREDICT_URL", "http://localhost:"+port+"/api/predict/mock"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	var err error
	if cfg.PredictTimeout, err = getDuration("PREDICT_TIMEOUT", prediction.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.RevealInterval, err = getDuration("REVEAL_INTERVAL", presenter.DefaultRevealInterval); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout, err = getDuration("SESSION_IDLE_TIMEOUT", defaultIdleTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxSessions, err = strconv.Atoi(getEnv("MAX_SESSIONS", strconv.Itoa(defaultMaxSessions))); err != nil || cfg.MaxSessions < 0 {
		return nil, fmt.Errorf("MAX_SESSIONS must be a non-negative integer")
	}
	if cfg.ContractVersion, err = contract.ParseVersion(os.Getenv("CONTRACT_VERSION")); err != nil {
		return nil, fmt.Errorf("CONTRACT_VERSION: %w", err)
	}

	return cfg, nil
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func waitForShutdown(srv *http.Server, manager *session.Manager, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	manager.Shutdown()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, val)
	}
	return d, nil
}
