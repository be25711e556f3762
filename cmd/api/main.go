package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"securestack.dev/internal/auth"
	"securestack.dev/internal/config"
	"securestack.dev/internal/httpapi"
	"securestack.dev/internal/migrate"
	"securestack.dev/internal/obs"
	"securestack.dev/internal/session"
	"securestack.dev/internal/stats"
	"securestack.dev/internal/store/kv"
	"securestack.dev/internal/store/pg"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	log := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	// Observability first: log level, metric collectors, build gauge.
	obs.SetLevel(cfg.LogLevel)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres backs users; /health pings it.
	store, err := pg.Open(cfg.Postgres.DSN)
	if err != nil {
		log.WithError(err).Fatal("open postgres")
	}
	defer store.Close()

	if cfg.Migrate.OnStart {
		mgr := migrate.NewManager(store.DB(), os.DirFS(cfg.Migrate.Dir), nil, migrate.WithLogger(log))
		if _, err := mgr.Up(ctx); err != nil {
			log.WithError(err).Fatal("apply migrations")
		}
	}

	// Redis holds sessions and the stats cache.
	rdb, err := kv.Open(ctx, cfg.Redis.URL, kv.Options{})
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}
	defer rdb.Close()

	issuer, err := auth.NewTokenIssuer(cfg.Auth.Secret)
	if err != nil {
		log.WithError(err).Fatal("token issuer")
	}
	authSvc, err := auth.NewService(
		auth.NewPGUserStore(store.DB()),
		session.NewRedisRegistry(rdb, ""),
		issuer,
		auth.NewHasher(cfg.Auth.BcryptCost),
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithSessionEnforcement(cfg.Auth.RequireSession),
		auth.WithLogger(log),
	)
	if err != nil {
		log.WithError(err).Fatal("auth service")
	}

	// HTTP API; metrics are recorded by the router middleware.
	api := httpapi.New(httpapi.Deps{
		Auth:  authSvc,
		Users: store,
		Stats: stats.NewService(store, rdb, cfg.StatsTTL, log),
		Health: httpapi.HealthProbe{
			Database: store.Ping,
			Cache:    kv.Ping(rdb),
		},
		Version:        version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).WithField("version", version).Info("securestack-api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.WithError(err).Error("listen")
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown")
	}
	log.Info("stopped")
}
