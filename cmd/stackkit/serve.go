package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/stackkit/internal/config"
	"github.com/vango-dev/stackkit/pkg/inspect"
	"github.com/vango-dev/stackkit/pkg/middleware"
	"github.com/vango-dev/stackkit/pkg/overlay"
	"github.com/vango-dev/stackkit/pkg/persist"
	"github.com/vango-dev/stackkit/pkg/reactive"
)

type serveOptions struct {
	configPath string
	addr       string
	logLevel   string
	session    string
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo stack behind the inspector",
		Long: `Serve the demo overlay stack behind the HTTP inspector.

Settings come from stackkit.json in the working directory when present,
then from flags.

Examples:
  stackkit serve
  stackkit serve --addr=:8080 --log-level=debug
  stackkit serve --config=deploy/stackkit.json --session=support-42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to stackkit.json")
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Listen address (default from stackkit.json)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.Flags().StringVar(&opts.session, "session", "", "Persisted session to restore")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case config.Exists("."):
		return config.Load(".")
	}
	return config.Default(), nil
}

// app is everything "serve" wires together.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	prom    *prometheus.Registry
	owner   *reactive.Owner
	stack   *overlay.Stack
	server  *inspect.Server
	binding *persist.Binding
	handler http.Handler
	closers []func() error
}

func runServe(ctx context.Context, opts serveOptions, logOut io.Writer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.session != "" {
		cfg.Persist.Session = opts.session
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(logOut, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.server.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Info("inspector listening", "addr", cfg.Addr, "metrics", cfg.MetricsPath)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newApp builds the registry, stack, persistence and inspector for cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, prom: prometheus.NewRegistry()}
	a.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if d, _ := cfg.ModalExitDelay(); d > 0 {
		overlay.ModalExitDelay = d
	}

	reg := demoRegistry(overlay.WithRegistryLogger(logger))
	if cfg.Overlay.Preload {
		if err := reg.Preload(ctx, reg.Keys()...); err != nil {
			return nil, err
		}
	}
	api := reg.Create(
		overlay.WithLogger(logger),
		overlay.WithMetrics(overlay.NewMetrics(overlay.WithRegisterer(a.prom))),
		overlay.WithDefaultConfig(cfg.OverlayDefaults()),
		overlay.WithLoadContext(ctx),
		overlay.WithHooks(overlay.Hooks{
			Open: func(key string, props overlay.Props, _ any) {
				logger.Debug("overlay open requested", "key", key, "props", props)
			},
			Close: func(key string, result any) {
				logger.Debug("overlay closed", "key", key, "result", result)
			},
		}),
	)

	props := overlay.ProviderProps{Children: page}
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)
	if store != nil {
		session := cfg.Persist.Session
		if session == "" {
			session = persist.NewSessionID()
		}
		b, err := persist.Bind(ctx, store, session, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.binding = b
		props.Data = b.Data
		props.OnChange = b.OnChange
		logger.Info("persisting overlay stack", "kind", cfg.Persist.Kind, "session", session)
	}

	a.owner = reactive.NewOwner(nil)
	a.stack = api.StackProvider(a.owner, props)
	a.server = inspect.New(a.stack, reg,
		inspect.WithLogger(logger),
		inspect.WithMiddleware(
			middleware.Logger(logger),
			middleware.Prometheus(middleware.WithRegistry(a.prom)),
			middleware.OpenTelemetry(middleware.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/ws"
			})),
		),
	)

	r := chi.NewRouter()
	if cfg.MetricsPath != "-" {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(a.prom, promhttp.HandlerOpts{}))
	}
	r.Mount("/", a.server.Handler())
	a.handler = r
	return a, nil
}

// close disposes the stack, saves the final entries and releases clients.
func (a *app) close() {
	if a.owner != nil {
		a.owner.Dispose()
	}
	if a.binding != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.binding.Close(ctx); err != nil {
			a.logger.Warn("final save failed", "error", err)
		}
		cancel()
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("closing store client failed", "error", err)
		}
	}
}
