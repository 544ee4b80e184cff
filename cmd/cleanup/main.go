package main

import (
	"context"
	"fmt"
	"os"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/activity"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/apikey"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/config"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/credential"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/session"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/store/postgres"
)

// One-shot retention sweep, intended for cron. The server runs the same
// sweep on a timer; this binary exists for deployments that prefer an
// external scheduler.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
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
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	auditLogger := audit.NewSlogLogger()
	tenantRepo := postgres.NewTenantRepository(db)
	hasher := credential.NewArgon2Hasher(
		cfg.Auth.Argon2Memory,
		cfg.Auth.Argon2Iterations,
		cfg.Auth.Argon2Parallelism,
		cfg.Auth.Argon2SaltLength,
		cfg.Auth.Argon2KeyLength,
	)

	sessions := session.NewService(
		postgres.NewTokenRepository(db),
		auditLogger,
		[]byte(cfg.Auth.SigningSecret),
		cfg.Auth.Issuer,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	keys := apikey.NewService(postgres.NewKeyRepository(db), tenantRepo, hasher, auditLogger)
	activities := activity.NewService(postgres.NewActivityRepository(db))

	tokens, err := sessions.PurgeExpired(ctx, cfg.Retention.TokenRetention)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Refresh token sweep failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Purged %d expired refresh tokens.\n", tokens)

	apiKeys, err := keys.PurgeExpired(ctx, cfg.Retention.TokenRetention)
	if err != nil {
		fmt.Fprintf(os.Stderr, "API key sweep failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Purged %d expired API keys.\n", apiKeys)

	if cfg.Retention.ActivityMaxAge > 0 {
		events, err := activities.Purge(ctx, cfg.Retention.ActivityMaxAge)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Activity sweep failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Purged %d activity events older than %s.\n", events, cfg.Retention.ActivityMaxAge)
	}
}
