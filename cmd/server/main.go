package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"twinpass/internal/aas"
	"twinpass/internal/callback"
	callbackhandler "twinpass/internal/callback/handler"
	"twinpass/internal/dataplane"
	"twinpass/internal/discovery"
	"twinpass/internal/dtr"
	httpapi "twinpass/internal/http"
	"twinpass/internal/platform/config"
	"twinpass/internal/platform/httpserver"
	"twinpass/internal/platform/logger"
	"twinpass/internal/platform/metrics"
	"twinpass/internal/platform/middleware"
	redisplatform "twinpass/internal/platform/redis"
	"twinpass/internal/platform/secrets"
	"twinpass/internal/process"
	"twinpass/internal/search"
	searchhandler "twinpass/internal/search/handler"
	"twinpass/internal/vault"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()
	ctx := context.Background()

	secretStore, closeSecrets := buildSecretStore(cfg, log)
	defer closeSecrets()

	store, closeStore := buildProcessStore(ctx, cfg, log)
	defer closeStore()

	passports, err := buildPassportStore(cfg)
	if err != nil {
		log.Error("passport storage unavailable", "error", err.Error())
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	tokens := discovery.StaticTokenProvider(cfg.APIToken)
	finder := discovery.NewHTTPClient(httpClient, cfg.Discovery.Endpoint, tokens)

	directory := discovery.NewDirectory(finder, secretStore, log, cfg.Discovery.BPNKey, cfg.Discovery.EDCKey)
	if !directory.Bootstrap(ctx) {
		log.Warn("discovery endpoints not cached yet, resolving lazily on first search")
	}
	resolver := discovery.NewResolver(directory, finder, log, cfg.Discovery.SearchPath, cfg.Discovery.EDCKey)

	registries := aas.NewHTTPClient(httpClient)
	engine := dtr.NewSearchEngine(registries, store, log, m, cfg.DTR.ProbeTimeout)
	searchService := search.NewService(store, resolver, engine, passports, log, m)
	callbackService := callback.NewService(
		store, registries,
		dataplane.NewHTTPClient(httpClient), passports,
		log, m,
		cfg.DTR.EndpointInterface, cfg.DTR.DSPEndpointKey,
	)

	// Only the bcrypt hash of the inbound API token survives startup.
	authHash := ""
	if cfg.AuthToken != "" {
		authHash, err = secrets.Hash(cfg.AuthToken)
		if err != nil {
			log.Error("invalid auth token", "error", err.Error())
			os.Exit(1)
		}
	}

	router := httpapi.NewRouter(
		searchhandler.New(searchService, log, middleware.RequireToken(authHash, log)),
		callbackhandler.New(callbackService, log, m),
	)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting twinpass", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}

// buildSecretStore picks redis when configured and falls back to the
// in-process store otherwise.
func buildSecretStore(cfg config.Config, log *slog.Logger) (vault.SecretStore, func()) {
	if cfg.RedisURL == "" {
		return vault.NewInMemoryStore(), func() {}
	}
	client, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err.Error())
		os.Exit(1)
	}
	log.Info("endpoint cache backed by redis")
	return vault.NewRedisStore(client.Client), func() { _ = client.Close() }
}

// buildProcessStore picks postgres when a DSN is configured.
func buildProcessStore(ctx context.Context, cfg config.Config, log *slog.Logger) (process.Store, func()) {
	if cfg.PostgresDSN == "" {
		return process.NewInMemoryStore(), func() {}
	}
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres unavailable", "error", err.Error())
		os.Exit(1)
	}
	store := process.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Error("postgres migration failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("process store backed by postgres")
	return store, func() { _ = db.Close() }
}

func buildPassportStore(cfg config.Config) (dataplane.PassportStore, error) {
	if cfg.StorageDir == "" {
		return dataplane.NewInMemoryStore(), nil
	}
	return dataplane.NewFileStore(cfg.StorageDir)
}
