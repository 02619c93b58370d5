// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/gurkanbulca/barakaflow/internal/agenda"
	"github.com/gurkanbulca/barakaflow/internal/config"
	"github.com/gurkanbulca/barakaflow/internal/database"
	"github.com/gurkanbulca/barakaflow/internal/handler"
	"github.com/gurkanbulca/barakaflow/internal/logging"
	"github.com/gurkanbulca/barakaflow/internal/middleware"
	"github.com/gurkanbulca/barakaflow/internal/repository"
	"github.com/gurkanbulca/barakaflow/internal/service"
	"github.com/gurkanbulca/barakaflow/pkg/auth"
	"github.com/gurkanbulca/barakaflow/pkg/cache"
	"github.com/gurkanbulca/barakaflow/pkg/email"
	"github.com/gurkanbulca/barakaflow/pkg/llm"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Connect to database
	db, err := database.Open(ctx, database.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.DSN(),
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database connection", zap.Error(err))
		}
	}()

	// Run auto migration
	if cfg.Server.AutoMigrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			return fmt.Errorf("run auto migration: %w", err)
		}
	}

	store, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	tokenManager, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TokenDuration)
	if err != nil {
		return err
	}

	// Initialize services
	securityLogger := service.NewSecurityLogger(logger)
	authService := service.NewAuthService(
		repository.NewSQLUserRepository(db),
		tokenManager,
		auth.NewPasswordManager(),
		newEmailService(ctx, cfg, logger),
		securityLogger,
		logger,
	)
	taskService := service.NewTaskService(
		repository.NewSQLTaskRepository(db),
		agenda.Options{Location: loc, EnforceBounds: cfg.Agenda.EnforceRecurrenceBounds},
		logger,
	)
	assistService := service.NewAssistService(taskService, newLLMClient(ctx, cfg, logger), store, service.AssistConfig{
		SuggestionTTL: cfg.Cache.SuggestionTTL,
		DayPlanTTL:    cfg.Cache.DayPlanTTL,
		ChatTTL:       cfg.Cache.ChatTTL,
		CallTimeout:   cfg.LLM.Timeout,
	}, logger)
	taskService.SetInvalidator(assistService)

	// Initialize middleware
	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, time.Minute, securityLogger)
		defer rateLimiter.Stop()
	}

	httpServer := &http.Server{
		Addr: ":" + cfg.Server.HTTPPort,
		Handler: handler.NewRouter(handler.Deps{
			Auth:          authService,
			Tasks:         taskService,
			Assist:        assistService,
			Authenticator: middleware.NewAuthenticator(tokenManager, securityLogger),
			Validator:     middleware.NewRequestValidator(cfg.ToValidationConfig()),
			RateLimiter:   rateLimiter,
			Logger:        logger,
			Prefix:        cfg.Server.APIPrefix,
			CORSOrigins:   cfg.Server.CORSOrigins,
			TrustProxy:    cfg.Server.TrustProxy,
			Ping:          db.PingContext,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC port serves health checks and reflection for operators
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger.Named("grpc"))))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	if cfg.Server.EnableReflection {
		reflection.Register(grpcServer)
		logger.Info("gRPC reflection enabled (disable in production)")
	}

	listener, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen on grpc port: %w", err)
	}

	errCh := make(chan error, 2)
	go watchHealth(ctx, healthServer, db.PingContext, 15*time.Second, logger)
	go func() {
		logger.Info("gRPC health server listening", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(listener); err != nil {
			errCh <- fmt.Errorf("serve grpc: %w", err)
		}
	}()
	go func() {
		logger.Info("BarakaFlow API listening",
			zap.String("port", cfg.Server.HTTPPort),
			zap.String("prefix", cfg.Server.APIPrefix),
			zap.String("environment", cfg.Server.Environment))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve http: %w", err)
		}
	}()

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server stopped unexpectedly", zap.Error(err))
	}

	logger.Info("shutting down server")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	stopGRPC(shutdownCtx, grpcServer)
	logger.Info("server shutdown complete")
	return nil
}

// newCacheStore uses Redis when enabled and falls back to process memory.
func newCacheStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Store, error) {
	if !cfg.Redis.Enabled {
		logger.Info("using in-memory cache")
		return cache.NewMemoryStore(cfg.Cache.SuggestionTTL, time.Minute), nil
	}
	store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cfg.Cache.SuggestionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("using redis cache", zap.String("addr", cfg.Redis.Addr))
	return store, nil
}

// newLLMClient returns nil when no provider is configured; the assistant
// endpoints then answer 503.
func newLLMClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) llm.Client {
	client, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			logger.Warn("LLM API key not set, AI assistant disabled")
		} else {
			logger.Error("failed to initialize LLM client, AI assistant disabled", zap.Error(err))
		}
		return nil
	}
	logger.Info("AI assistant enabled", zap.String("provider", client.Name()))
	return client
}

func newEmailService(ctx context.Context, cfg *config.Config, logger *zap.Logger) email.EmailService {
	if cfg.Email.TestingMode || cfg.IsDevelopment() {
		logger.Info("using mock email service for development/testing")
		return email.NewMockEmailService()
	}

	logger.Info("using SMTP email service")
	smtpService := email.NewSMTPEmailService(cfg.ToEmailConfig())
	if err := smtpService.TestConnection(ctx); err != nil {
		logger.Warn("SMTP connection test failed", zap.Error(err))
	} else {
		logger.Info("SMTP connection test successful")
	}
	return smtpService
}
