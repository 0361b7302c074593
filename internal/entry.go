// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/edital/internal/api"
	"github.com/starford/edital/internal/inbox"
	"github.com/starford/edital/internal/mcpserver"
	"github.com/starford/edital/internal/metrics"
	"github.com/starford/edital/internal/sse"
	"github.com/starford/edital/internal/store"
	"github.com/starford/edital/internal/tracker"
)

var errConfigRequired = errors.New("config is required")

func (app *application) logger() *slog.Logger {
	out := app.logOut
	if out == nil {
		out = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
}

// openGateway returns the injected gateway or opens the configured one,
// wrapped with metrics.
func (app *application) openGateway(ctx context.Context, m *metrics.Metrics) (store.Gateway, error) {
	g := app.gateway
	if g == nil {
		var err error
		g, err = store.Open(ctx, app.config.Store.Driver, app.config.Store.DSN())
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
	}
	if m == nil {
		return g, nil
	}
	return store.Instrument(g, m), nil
}

// Run starts the HTTP server, SSE feed and inbox watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.Bool("inbox_enabled", cfg.Inbox.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	m := metrics.New()
	gateway, err := app.openGateway(ctx, m)
	if err != nil {
		return err
	}
	defer gateway.Close()

	broker := sse.NewBroker(cfg.Events.ProgressThrottle)
	defer broker.Close()

	svc := tracker.NewService(gateway, broker, m)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(cfg, svc, broker, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Inbox.Enabled {
		if err := os.MkdirAll(cfg.Inbox.Path, 0o755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
		dir, err := inbox.NewDir(cfg.Inbox.Path)
		if err != nil {
			return fmt.Errorf("init inbox: %w", err)
		}
		in := inbox.New(dir, svc, cfg.Inbox.Owner, logger, m)
		g.Go(func() error {
			if err := in.Watch(gCtx); err != nil {
				logger.Error("inbox watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the inbox watcher stops with the server.
var errShutdown = errors.New("shutdown")

func newRouter(cfg *Config, svc *tracker.Service, broker *sse.Broker, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.App.HTTP.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.App.HTTP.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-Match", api.OwnerHeader},
			ExposedHeaders: []string{"ETag"},
			MaxAge:         300,
		}))
	}

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())

	var events http.Handler
	if broker != nil {
		events = broker
	}
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))
	return r
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()
	slog.SetDefault(logger)

	gateway, err := app.openGateway(ctx, nil)
	if err != nil {
		return err
	}
	defer gateway.Close()

	srv := mcpserver.New(tracker.NewService(gateway, nil, nil), app.config.App.Owner)
	logger.Info("MCP server starting", slog.String("owner", app.config.App.Owner))
	return srv.ServeStdio()
}

// OpenBoard loads owner's board from the configured store. The returned
// close function releases the store.
func OpenBoard(ctx context.Context, owner string, opts ...Option) (*tracker.Board, func() error, error) {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return nil, nil, err
	}
	if owner == "" {
		owner = app.config.App.Owner
	}
	logger := app.logger()

	gateway, err := app.openGateway(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	board := tracker.NewBoard(tracker.NewService(gateway, nil, nil), owner, logger)
	board.Load(ctx)
	return board, gateway.Close, nil
}

// ExportInbox writes the inbox owner's subjects into the inbox directory.
func ExportInbox(ctx context.Context, opts ...Option) (int, error) {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return 0, err
	}
	cfg := app.config
	if err := os.MkdirAll(cfg.Inbox.Path, 0o755); err != nil {
		return 0, fmt.Errorf("create inbox dir: %w", err)
	}
	dir, err := inbox.NewDir(cfg.Inbox.Path)
	if err != nil {
		return 0, err
	}
	gateway, err := app.openGateway(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer gateway.Close()

	in := inbox.New(dir, tracker.NewService(gateway, nil, nil), cfg.Inbox.Owner, app.logger(), nil)
	return in.Export(ctx)
}
