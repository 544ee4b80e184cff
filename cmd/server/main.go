// Copyright 2026 The ChronicleHub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/activity"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/apikey"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/auth"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/config"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/credential"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/logger"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/metrics"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/tracing"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/session"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/store/postgres"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
	transportHTTP "github.com/JoshLikesToCode/ChronicleHub-sub001/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTELEnabled: cfg.Observability.OTELEnabled,
	})
	slog.Info("starting chroniclehub activity logging service")

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	m, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
		os.Exit(1)
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	tenantRepo := postgres.NewTenantRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	keyRepo := postgres.NewKeyRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)
	activityRepo := postgres.NewActivityRepository(db)

	// Initialize helpers
	auditLogger := audit.NewSlogLogger()
	hasher := credential.NewArgon2Hasher(
		cfg.Auth.Argon2Memory,
		cfg.Auth.Argon2Iterations,
		cfg.Auth.Argon2Parallelism,
		cfg.Auth.Argon2SaltLength,
		cfg.Auth.Argon2KeyLength,
	)

	// Initialize services
	tenantService := tenant.NewService(tenantRepo, membershipRepo, auditLogger)
	keyService := apikey.NewService(keyRepo, tenantRepo, hasher, auditLogger)
	sessionService := session.NewService(
		tokenRepo,
		auditLogger,
		[]byte(cfg.Auth.SigningSecret),
		cfg.Auth.Issuer,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	activityService := activity.NewService(activityRepo)

	// The gate fronts every authenticated route.
	gate := auth.NewGate(keyService, sessionService, tenantService, auditLogger)

	// Rate limiter
	rateLimiter, err := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	if err != nil {
		slog.Error("failed to initialize rate limiter", logger.Error(err))
		os.Exit(1)
	}
	defer rateLimiter.Close()

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		tenantService,
		keyService,
		sessionService,
		activityService,
		gate,
		auditLogger,
		m,
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start retention sweeper
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go runRetentionSweeper(sweepCtx, cfg.Retention, sessionService, keyService, activityService)

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopSweeper()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

// runRetentionSweeper periodically deletes expired refresh tokens, expired
// API keys past their retention grace, and activity events older than the
// configured maximum age. An ActivityMaxAge of zero keeps events forever.
func runRetentionSweeper(
	ctx context.Context,
	cfg config.RetentionConfig,
	sessions *session.Service,
	keys *apikey.Service,
	activities *activity.Service,
) {
	if cfg.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := sessions.PurgeExpired(ctx, cfg.TokenRetention); err != nil {
				slog.ErrorContext(ctx, "failed to purge expired refresh tokens", logger.Error(err))
			} else if n > 0 {
				slog.InfoContext(ctx, "purged expired refresh tokens", logger.RowsAffected(n))
			}

			if n, err := keys.PurgeExpired(ctx, cfg.TokenRetention); err != nil {
				slog.ErrorContext(ctx, "failed to purge expired api keys", logger.Error(err))
			} else if n > 0 {
				slog.InfoContext(ctx, "purged expired api keys", logger.RowsAffected(n))
			}

			if cfg.ActivityMaxAge > 0 {
				if n, err := activities.Purge(ctx, cfg.ActivityMaxAge); err != nil {
					slog.ErrorContext(ctx, "failed to purge old activity events", logger.Error(err))
				} else if n > 0 {
					slog.InfoContext(ctx, "purged old activity events", logger.RowsAffected(n))
				}
			}
		}
	}
}
