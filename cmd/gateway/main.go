package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "github.com/mind-engage/prestasi/internal/api/http"
	auth "github.com/mind-engage/prestasi/internal/auth/middleware"
	"github.com/mind-engage/prestasi/internal/config"
	"github.com/mind-engage/prestasi/internal/db"
	"github.com/mind-engage/prestasi/internal/logging"
	"github.com/mind-engage/prestasi/internal/metrics"
	"github.com/mind-engage/prestasi/internal/ranking"
	"github.com/mind-engage/prestasi/internal/school"
	"github.com/mind-engage/prestasi/internal/storage"
	syncx "github.com/mind-engage/prestasi/internal/sync"
	"github.com/mind-engage/prestasi/internal/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gateway:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.TracingExporter, "prestasi", os.Stdout)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	events := syncx.NewEventRepo(dbh)
	store := school.NewSQLStore(dbh, events)

	seeded, err := auth.SeedAdmin(syncx.WithActor(ctx, "system"), store, cfg.AdminUser, cfg.AdminPassword, cfg.AdminName)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if seeded {
		log.Warn("seeded initial admin account; change its password", zap.String("username", cfg.AdminUser))
	}

	m := metrics.New(nil)
	rk, err := ranking.NewService(store, cfg.RankingCacheSize,
		ranking.WithMetrics(m), ranking.WithLogger(log.Named("ranking")))
	if err != nil {
		return err
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	router := api.NewRouter(api.Deps{
		Store:              store,
		Events:             events,
		Ranker:             rk,
		Blobs:              bs,
		DB:                 dbh,
		Auth:               auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		Limiter:            auth.NewLoginLimiter(cfg.LoginRatePerMinute, 0),
		Cookie:             auth.CookieOptions{Secure: cfg.CookieSecure},
		Log:                log,
		Metrics:            m,
		CORSOrigins:        cfg.CORSOrigins(),
		EnableRegistration: cfg.EnableRegistration,
		RequestTimeout:     cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("db", cfg.DBDriver),
			zap.String("public_url", cfg.PublicURL))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
