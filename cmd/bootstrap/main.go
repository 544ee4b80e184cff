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
	"errors"
	"fmt"
	"os"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/apikey"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/config"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/credential"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/logger"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/session"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/store/postgres"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// Bootstrap creates the first tenant with its owner and mints the initial
// credentials. There is no password login; identities are asserted by the
// surrounding platform, so the first session pair has to come from here.
//
// Driven by environment:
//
//	CHRONICLE_BOOTSTRAP_TENANT_NAME  display name (required)
//	CHRONICLE_BOOTSTRAP_TENANT_SLUG  slug (required)
//	CHRONICLE_BOOTSTRAP_OWNER        user id of the first owner (required)
//	CHRONICLE_BOOTSTRAP_KEY_NAME     name for the first API key (default "bootstrap")
//
// Re-running against an existing slug is a no-op; no new credentials are
// minted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	name := os.Getenv("CHRONICLE_BOOTSTRAP_TENANT_NAME")
	slug := os.Getenv("CHRONICLE_BOOTSTRAP_TENANT_SLUG")
	ownerID := os.Getenv("CHRONICLE_BOOTSTRAP_OWNER")
	keyName := os.Getenv("CHRONICLE_BOOTSTRAP_KEY_NAME")
	if keyName == "" {
		keyName = "bootstrap"
	}
	if name == "" || slug == "" || ownerID == "" {
		fmt.Fprintln(os.Stderr, "CHRONICLE_BOOTSTRAP_TENANT_NAME, CHRONICLE_BOOTSTRAP_TENANT_SLUG and CHRONICLE_BOOTSTRAP_OWNER are required")
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

	tenants := tenant.NewService(tenantRepo, postgres.NewMembershipRepository(db), auditLogger)
	keys := apikey.NewService(postgres.NewKeyRepository(db), tenantRepo, hasher, auditLogger)
	sessions := session.NewService(
		postgres.NewTokenRepository(db),
		auditLogger,
		[]byte(cfg.Auth.SigningSecret),
		cfg.Auth.Issuer,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	created, err := tenants.CreateTenant(ctx, name, slug, ownerID)
	if err != nil {
		if errors.Is(err, tenant.ErrSlugTaken) {
			fmt.Printf("Tenant %q already exists; nothing to do.\n", slug)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Failed to create tenant: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Created tenant %s (%s) with owner %s\n", created.Slug, created.ID, ownerID)

	key, plaintext, err := keys.Issue(ctx, created.ID, keyName, cfg.Auth.APIKeyDefaultTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue API key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Issued API key %q (%s)\n", keyName, key.ID)

	pair, err := sessions.Issue(ctx, ownerID, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue session: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Issued initial session for the owner")

	fmt.Println()
	fmt.Println("Store these now. The API key plaintext is not retrievable later.")
	fmt.Printf("  API key:       %s\n", plaintext)
	fmt.Printf("  Access token:  %s\n", pair.AccessToken)
	fmt.Printf("  Refresh token: %s\n", pair.RefreshToken)
}
