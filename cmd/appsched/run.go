package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	appscheduler "github.com/Swind/go-app-scheduler"
	"github.com/Swind/go-app-scheduler/core"
	"github.com/Swind/go-app-scheduler/internal/config"
	"github.com/Swind/go-app-scheduler/internal/demoapp"
	"github.com/Swind/go-app-scheduler/internal/logging"
	promexport "github.com/Swind/go-app-scheduler/observability/prometheus"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Install the configured apps and tick them",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.IntFlag{
				Name:  "ticks",
				Usage: "Stop after this many ticks (0 runs until interrupted)",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Time between ticks",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Value: 5 * time.Second,
				Usage: "How long to wait for apps to be destroyed on exit",
			},
		},

		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		cfg = loaded
	}
	if c.IsSet("ticks") {
		cfg.Ticks = c.Int("ticks")
	}
	if c.IsSet("interval") {
		cfg.TickInterval = c.Duration("interval")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := runScheduler(ctx, cfg, prom.NewRegistry(), logger, c.Duration("shutdown-timeout"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	printSummary(c.App.Writer, stats)
	return nil
}

// runScheduler installs cfg.Apps, ticks them until ctx is done or cfg.Ticks
// ticks have run, then shuts the loop down gracefully.
func runScheduler(ctx context.Context, cfg config.Config, reg *prom.Registry, logger *slog.Logger, shutdownTimeout time.Duration) (core.SchedulerStats, error) {
	exporter, err := promexport.NewMetricsExporter(cfg.MetricsNamespace, reg, promexport.ExporterOptions{})
	if err != nil {
		return core.SchedulerStats{}, fmt.Errorf("register metrics: %w", err)
	}
	poller, err := promexport.NewSnapshotPoller(cfg.MetricsNamespace, reg, time.Second)
	if err != nil {
		return core.SchedulerStats{}, fmt.Errorf("register poller: %w", err)
	}

	schedLogger := logging.ForComponent(logger, "scheduler")
	schedCfg := &core.SchedulerConfig{
		Name:            cfg.SchedulerName,
		Logger:          schedLogger,
		Metrics:         exporter,
		HistoryCapacity: cfg.HistoryCapacity,
	}
	if cfg.RecoverPanics {
		schedCfg.PanicHandler = &core.DefaultPanicHandler{Logger: schedLogger}
	}
	scheduler := core.NewSchedulerWithConfig(schedCfg)

	if _, err := demoapp.InstallAll(cfg.Apps, scheduler, logging.ForComponent(logger, "app")); err != nil {
		return core.SchedulerStats{}, err
	}

	loop := appscheduler.NewTickLoop("main", cfg.TickInterval, scheduler)
	loop.SetLogger(logging.ForComponent(logger, "loop"))
	poller.AddLoop(loop.ID(), loop)

	if cfg.MetricsAddr != "" {
		srv, err := serveMetrics(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return core.SchedulerStats{}, err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// The loop outlives ctx so StopGraceful can still tick the apps down.
	loop.Start(context.Background())
	poller.Start(ctx)
	defer poller.Stop()

	waitForTicks(ctx, loop, cfg.Ticks)

	if err := loop.StopGraceful(shutdownTimeout); err != nil {
		logger.Warn("apps still alive at shutdown", "error", err, "live", loop.Stats().Live)
	}
	return loop.Stats(), nil
}

func waitForTicks(ctx context.Context, loop *appscheduler.TickLoop, ticks int) {
	if ticks <= 0 {
		<-ctx.Done()
		return
	}
	for loop.Stats().Tick < uint64(ticks) {
		if err := loop.WaitTick(ctx); err != nil {
			return
		}
	}
}

func serveMetrics(addr string, reg *prom.Registry, logger *slog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return srv, nil
}

func printSummary(w io.Writer, stats core.SchedulerStats) {
	fmt.Fprintf(w, "✓ %s: %d ticks, %d installed, %d reaped, %d rejected, %d panics\n",
		stats.Name, stats.Tick, stats.Installed, stats.Reaped, stats.Rejected, stats.Panics)
}
