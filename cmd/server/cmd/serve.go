package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/campus-events/server/internal/api"
	"github.com/campus-events/server/internal/api/handlers"
	"github.com/campus-events/server/internal/config"
	"github.com/campus-events/server/internal/metrics"
	"github.com/campus-events/server/internal/seed"
	"github.com/campus-events/server/internal/storage/memory"
	"github.com/campus-events/server/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const storeCollectInterval = 15 * time.Second

type serveOptions struct {
	host     string
	port     int
	noSeed   bool
	seedFile string
}

func newServeCommand(globals *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the campus events HTTP server",
		Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables
- Seed the in-memory store from the embedded catalog (or --seed-file)
- Serve the events and registrations API, probes and /metrics
- Drain and stop gracefully on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start empty, without the demo catalog
  server serve --no-seed

  # Seed from a custom catalog
  server serve --seed-file ./catalog.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(globals, opts)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}

			logger := config.NewLogger(cfg.Logging)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			return runServer(ctx, cfg, logger, ln)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	cmd.Flags().BoolVar(&opts.noSeed, "no-seed", false, "start with an empty store")
	cmd.Flags().StringVar(&opts.seedFile, "seed-file", "", "YAML catalog to seed instead of the embedded one")
	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(globals *globalOptions, opts *serveOptions) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if globals != nil {
		if globals.logLevel != "" {
			cfg.Logging.Level = globals.logLevel
		}
		if globals.logFormat != "" {
			cfg.Logging.Format = globals.logFormat
		}
	}
	if opts != nil {
		if opts.host != "" {
			cfg.Server.Host = opts.host
		}
		if opts.port != 0 {
			cfg.Server.Port = opts.port
		}
		if opts.noSeed {
			cfg.Seed.Enabled = false
		}
		if opts.seedFile != "" {
			cfg.Seed.File = opts.seedFile
		}
	}
	return cfg, nil
}

// runServer serves on ln until ctx is cancelled, then drains in-flight
// requests within cfg.Server.ShutdownTimeout.
func runServer(ctx context.Context, cfg config.Config, logger zerolog.Logger, ln net.Listener) error {
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting campus events server")
	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, cfg.Environment, Version)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	store := memory.NewStore()
	if cfg.Seed.Enabled {
		catalog, err := seed.Load(cfg.Seed.File)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("load seed catalog: %w", err)
		}
		n, err := catalog.Apply(ctx, store.Events())
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("apply seed catalog: %w", err)
		}
		logger.Info().Int("events", n).Str("file", cfg.Seed.File).Msg("store seeded")
	}

	lifecycle := &handlers.Lifecycle{}
	g, gctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Handler: api.NewRouter(gctx, api.RouterDeps{
			Config:    cfg,
			Logger:    logger,
			Store:     store,
			Lifecycle: lifecycle,
			Build:     api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
		}),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g.Go(func() error {
		logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return metrics.NewStoreCollector(store, logger).Run(gctx, storeCollectInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		lifecycle.MarkShuttingDown()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	})

	return g.Wait()
}
