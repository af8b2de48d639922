package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fanhub/internal/backend"
	"fanhub/internal/cache"
	"fanhub/internal/database"
	"fanhub/internal/handlers"
	"fanhub/internal/hub"
	"fanhub/internal/middleware"
	"fanhub/internal/render"
	"fanhub/internal/router"
	"fanhub/internal/session"
	"fanhub/internal/store"
	"fanhub/web"
)

// shutdownTimeout bounds how long in-flight requests may take to drain.
const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"db_driver", cfg.DBDriver,
		"valkey", cfg.UseValkey(),
	)

	db, driver, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	// Seed development data (no-op if an account already exists).
	if cfg.IsDev() {
		if err := database.Seed(db, driver, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	renderer, err := render.New(render.Options{
		SiteName: cfg.SiteName,
		Location: cfg.Location,
	})
	if err != nil {
		return fmt.Errorf("initialize renderer: %w", err)
	}

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	checks := []handlers.Check{{Name: "database", Ping: db.PingContext}}

	var (
		sessions  session.Store
		bus       backend.Bus
		pageCache handlers.PageCache
	)
	if cfg.UseValkey() {
		valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			return fmt.Errorf("connect to valkey: %w", err)
		}
		defer valkeyClient.Close()

		sessions = session.NewValkeyStore(valkeyClient, secureCookies, cfg.SessionTTL)
		bus = cache.NewChangeBus(valkeyClient, cache.DefaultChangeChannel)
		pages := cache.NewPageCache(valkeyClient, cfg.FeedCacheTTL)
		if n, err := pages.Purge(ctx); err != nil {
			slog.Warn("page cache purge failed", "error", err)
		} else if n > 0 {
			slog.Info("stale pages purged", "count", n)
		}
		pageCache = pages
		checks = append(checks, handlers.Check{Name: "valkey", Ping: pingValkey(valkeyClient)})
	} else {
		slog.Warn("valkey not configured, using in-process sessions and change bus")
		sessions = session.NewMemoryStore(secureCookies, cfg.SessionTTL)
		bus = backend.NewLocalBus()
	}

	// Every long-running part shares gctx, so a failed listener also stops
	// the backend and the visitors.
	g, gctx := errgroup.WithContext(ctx)

	svc := backend.NewService(store.NewUserStore(db, driver), store.NewDocumentStore(db, driver), bus)
	if err := svc.Start(gctx); err != nil {
		return fmt.Errorf("start backend: %w", err)
	}

	visitors := hub.New(svc, sessions, hub.Options{
		AppID:   cfg.AppID,
		IdleTTL: cfg.VisitorIdleTTL,
	})
	visitors.Start(gctx)

	public := handlers.NewPublic(svc, renderer, pageCache, cfg.AppID)
	site := handlers.NewSite(renderer, visitors, public.InvalidateFeed)

	// LOGIN_RATE_LIMIT=0 disables login throttling.
	var loginLimiter *middleware.RateLimiter
	if cfg.LoginRateLimit > 0 {
		loginLimiter = middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute, cfg.TrustProxy)
		defer loginLimiter.Stop()
	}

	r := router.New(router.Deps{
		Site:          site,
		Public:        public,
		Health:        handlers.NewHealth(checks...),
		Visitors:      visitors,
		LoginLimiter:  loginLimiter,
		Static:        web.Static(),
		SecureCookies: secureCookies,
	})

	// No WriteTimeout: /stream responses stay open for the visitor's
	// lifetime.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		// Open streams end when their App stops, so wait for the hub
		// before draining the remaining requests.
		<-visitors.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	<-svc.Done()
	if err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

func pingValkey(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// Interface checks for the components wired above.
var (
	_ backend.Directory     = (*store.UserStore)(nil)
	_ backend.DocumentStore = (*store.DocumentStore)(nil)
	_ backend.Bus           = (*cache.ChangeBus)(nil)
	_ handlers.PageCache    = (*cache.PageCache)(nil)
	_ handlers.NewsSource   = (*backend.Service)(nil)
)
