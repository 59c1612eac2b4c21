package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"miragend/internal/config"
	"miragend/internal/health"
	miralog "miragend/internal/log"
	"miragend/internal/proxy"
)

const shutdownTimeout = 30 * time.Second

// NewRootCmd creates the miragend command, which runs the proxy.
func NewRootCmd() *cobra.Command {
	var configFile, envFile string

	cmd := &cobra.Command{
		Use:   "miragend",
		Short: "Reverse proxy that patches or obfuscates upstream pages",
		Long: `miragend fetches pages from one upstream site and rewrites them before
answering: the patch strategy replaces marked regions of HTML pages, the
obfuscation strategy scrambles the visible text of HTML and JSON bodies.

Settings are read from a YAML file, a .env file, MIRAGEND_* environment
variables and the flags below, later sources overriding earlier ones.`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := config.Loader{
				ConfigFile: configFile,
				EnvFile:    envFile,
				Flags:      cmd.Flags(),
			}
			return run(cmd.Context(), loader)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&envFile, "env-file", config.DefaultEnvFile, "path to a .env file")
	flags.String("upstream-base-url", "", "base URL of the upstream site")
	flags.String("bind", "", "address the proxy listens on")
	flags.String("health-bind", "", "address of the /health endpoint (disabled when empty)")
	flags.String("strategy", "", "patch or obfuscation")
	flags.String("special-page-style", "", "fallback page style: nginx or none")
	flags.Int("connect-timeout-secs", 0, "upstream request timeout in seconds")
	flags.String("inject-online-script", "", "script URL appended to every HTML <head>")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, text)")

	cmd.AddCommand(NewVersionCmd())
	return cmd
}

func run(ctx context.Context, loader config.Loader) error {
	level := new(slog.LevelVar)
	slog.SetDefault(miralog.New(os.Stdout, level, miralog.FormatJSON))

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.SetDefault(miralog.New(os.Stdout, level, cfg.LogFormat))
	setLevel(level, cfg.LogLevel)

	p, err := proxy.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create proxy: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var hs *health.Server
	if cfg.HealthBind != "" {
		hs = health.New(cfg.HealthBind)
		g.Go(func() error {
			return hs.Run(ctx)
		})
	}

	ln, err := net.Listen("tcp", cfg.Bind)
	if err != nil {
		stop()
		_ = g.Wait()
		return fmt.Errorf("failed to listen on %s: %w", cfg.Bind, err)
	}
	server := &http.Server{
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		return serve(ctx, server, ln, hs)
	})
	g.Go(func() error {
		reloadOnHangup(ctx, loader, p, level, cfg.Bind)
		return nil
	})

	slog.Info("Proxying", "addr", ln.Addr().String(), "upstream", cfg.UpstreamBase(), "strategy", cfg.Strategy)
	return g.Wait()
}

// serve runs server on ln until ctx is done and then drains it. hs, when
// set, reports ready while the server accepts requests.
func serve(ctx context.Context, server *http.Server, ln net.Listener, hs *health.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	if hs != nil {
		hs.MarkReady()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	if hs != nil {
		hs.MarkNotReady()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// reloadOnHangup reloads the configuration on every SIGHUP until ctx is
// done. The listen address cannot change without a restart.
func reloadOnHangup(ctx context.Context, loader config.Loader, p *proxy.Proxy, level *slog.LevelVar, bind string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}

		slog.Info("Reloading configuration")
		cfg, err := loader.Load()
		if err != nil {
			slog.Error("Failed to reload configuration", "error", err)
			continue
		}
		if err := p.UpdateConfig(cfg); err != nil {
			slog.Error("Failed to update proxy configuration", "error", err)
			continue
		}
		setLevel(level, cfg.LogLevel)
		if cfg.Bind != bind {
			slog.Warn("Listen address changes need a restart", "current", bind, "configured", cfg.Bind)
		}
		slog.Info("Configuration reloaded successfully")
	}
}

func setLevel(level *slog.LevelVar, name string) {
	parsed, err := miralog.ParseLevel(name)
	if err != nil {
		slog.Warn("Invalid log level, defaulting to info", "level", name)
	}
	level.Set(parsed)
}
