// Storefront agent - owns the guest cart and wishlist for one device profile
// and reconciles them with the storefront backend once the shopper signs in.
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

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/account"
	"storefront/internal/cartsync"
	"storefront/internal/config"
	"storefront/internal/gateway"
	"storefront/internal/guest"
	"storefront/internal/handler"
	"storefront/internal/localstore"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/negotiation"
	"storefront/internal/remote"
	"storefront/internal/session"
	"storefront/internal/storefront"
	"storefront/internal/viewcache"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := initLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("currency", cfg.Currency),
	)

	backend, closeBackend, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeBackend()

	store := localstore.New(backend, logger.With("component", "localstore"))
	guestMgr := guest.NewManager(store)

	sess := session.New(store, logger.With("component", "session"))
	sess.Restore(ctx)

	client, err := remote.New(remote.Config{
		BaseURL:    cfg.Backend.BaseURL,
		APIKey:     cfg.Backend.APIKey,
		Timeout:    cfg.Backend.Timeout,
		BrowserTLS: cfg.Backend.BrowserTLS,
		Tokens:     sess,
	})
	if err != nil {
		return fmt.Errorf("creating backend client: %w", err)
	}

	cache := viewcache.New(viewcache.Config{
		TTL:    cfg.CatalogTTL,
		Logger: logger.With("component", "viewcache"),
	})
	// Server-backed views belong to the expired user.
	sess.OnExpire(func(context.Context) {
		cache.InvalidateTags(viewcache.TagCart, viewcache.TagWishlist)
	})

	gw := gateway.NewSelector(
		sess,
		gateway.NewLocal(guestMgr),
		gateway.NewRemote(client, cache, sess, logger.With("component", "gateway")),
	)

	syncer := cartsync.New(guestMgr, client, cache, logger.With("component", "cartsync"))
	accounts := account.NewService(client, sess, syncer, cache, logger.With("component", "account"))

	cur, err := model.ParseCurrency(cfg.Currency)
	if err != nil {
		return err
	}
	shop := storefront.New(storefront.Config{
		Gateway:  gw,
		Guest:    guestMgr,
		Backend:  client,
		Cache:    cache,
		Currency: cur,
		Logger:   logger.With("component", "storefront"),
	})

	h := handler.New(handler.Deps{
		Gateway:  gw,
		Shop:     shop,
		Accounts: accounts,
		Session:  sess,
		Logger:   logger,
		Version:  version,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Recovery is outermost so it also catches panics in the logging middleware.
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		negotiation.Middleware(cfg.MinClientVersion, logger),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
			slog.Bool("authenticated", sess.IsAuthenticated(ctx)),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// An order in flight gets the full window to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
		if shop.Processing() {
			logger.Warn("shutdown while an order was still being placed")
		}
	}

	logger.Info("server stopped")
	return nil
}

// openStore builds the persistence backend for the configured driver.
// The returned close func is never nil.
func openStore(ctx context.Context, cfg *config.Config) (localstore.Backend, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return localstore.NewMemoryBackend(), func() {}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pinging postgres: %w", err)
		}
		pg, err := localstore.NewPostgresBackend(pool, cfg.Store.ProfileID)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil

	default:
		return localstore.NewFileBackend(cfg.Store.Dir, cfg.Store.MaxBytes), func() {}, nil
	}
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
func initLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
