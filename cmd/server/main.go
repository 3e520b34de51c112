// Copyright 2026 The Nodewarden Authors
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
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nodewarden/nodewarden/internal/audit"
	"github.com/nodewarden/nodewarden/internal/config"
	"github.com/nodewarden/nodewarden/internal/identity"
	"github.com/nodewarden/nodewarden/internal/observability/logger"
	"github.com/nodewarden/nodewarden/internal/observability/metrics"
	"github.com/nodewarden/nodewarden/internal/observability/tracing"
	"github.com/nodewarden/nodewarden/internal/org"
	"github.com/nodewarden/nodewarden/internal/rbac"
	"github.com/nodewarden/nodewarden/internal/store/postgres"
	storeredis "github.com/nodewarden/nodewarden/internal/store/redis"
	"github.com/nodewarden/nodewarden/internal/token"
	transportHTTP "github.com/nodewarden/nodewarden/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting nodewarden authorization service")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

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

	authMetrics, err := metrics.New(cfg.Observability.ServiceName, cfg.Observability.OTELEnabled)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

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

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	orgRepo := postgres.NewOrgRepository(db)
	var roleStore rbac.Store = postgres.NewRoleRepository(db)
	if cfg.Cache.RoleCacheSize > 0 {
		cached, err := rbac.NewCachedStore(roleStore, cfg.Cache.RoleCacheSize)
		if err != nil {
			slog.Error("failed to initialize role cache", logger.Error(err))
			os.Exit(1)
		}
		roleStore = cached
	}

	// Optional token denylist. Without Redis tokens stay purely stateless
	// and revocation is a no-op.
	var denylist token.Denylist = token.NoopDenylist{}
	if cfg.Redis.Addr != "" {
		redisDenylist, err := storeredis.NewDenylist(ctx, storeredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			slog.Error("failed to connect to redis", logger.Error(err))
			os.Exit(1)
		}
		defer redisDenylist.Close()
		denylist = redisDenylist
		slog.Info("token denylist enabled")
	}

	// Services
	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	identityService := identity.NewService(userRepo, passwordHasher, auditLogger)
	rbacService := rbac.NewService(roleStore)
	orgService := org.NewService(orgRepo, auditLogger)

	tokenService, err := token.NewService(token.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTTL(),
		RefreshTTL: cfg.Auth.RefreshTTL(),
	}, denylist)
	if err != nil {
		slog.Error("failed to initialize token service", logger.Error(err))
		os.Exit(1)
	}

	if err := bootstrapAdmin(ctx, identityService, rbacService); err != nil {
		slog.Error("bootstrap failed", logger.Error(err))
		os.Exit(1)
	}

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	handler := transportHTTP.NewHandler(
		tokenService,
		rbacService,
		orgService,
		identityService,
		auditLogger,
		authMetrics,
	)
	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", logger.Error(err))
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// runMigrate applies the embedded schema and seeds the default
// organization and the system role catalog.
func runMigrate(cfg *config.Config) error {
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
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("migrations applied")
	return nil
}

// bootstrapAdmin creates the initial super-admin account when
// BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD are set. A second
// run against an existing account is a no-op.
func bootstrapAdmin(ctx context.Context, identityService *identity.Service, rbacService *rbac.Service) error {
	username := os.Getenv("BOOTSTRAP_ADMIN_USERNAME")
	password := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}
	email := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	if email == "" {
		email = username + "@localhost"
	}

	user, err := identityService.CreateUser(ctx, org.DefaultOrgID, username, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrUserAlreadyExists) {
			slog.Info("bootstrap admin already exists", logger.Username(username))
			return nil
		}
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	if err := rbacService.AssignRole(ctx, user.ID, rbac.RoleIDSuperAdmin); err != nil {
		return fmt.Errorf("failed to assign super admin role: %w", err)
	}

	slog.Info("bootstrap admin created", logger.Username(username))
	return nil
}
