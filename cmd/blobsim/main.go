// cmd/blobsim/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-blob/pkg/config"
	"github.com/opd-ai/go-blob/pkg/engine"
	"github.com/opd-ai/go-blob/pkg/health"
	"github.com/opd-ai/go-blob/pkg/input"
	"github.com/opd-ai/go-blob/pkg/logging"
	"github.com/opd-ai/go-blob/pkg/render"
	"github.com/opd-ai/go-blob/pkg/resource"
	"github.com/opd-ai/go-blob/pkg/stream"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file (.json or .yaml)")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	ticks := flag.Uint64("ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	scriptPath := flag.String("script", "", "YAML input script replacing the configured one")
	streamAddr := flag.String("stream", "", "Serve snapshots over websocket on this address")
	healthAddr := flag.String("health", "", "Serve /healthz and /readyz on this address")
	traceEvery := flag.Uint64("trace", 0, "Log a debug frame trace every N ticks (0 disables)")
	flag.Parse()

	// Create default configuration file if requested
	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		os.Exit(1)
	}
	if *streamAddr != "" {
		cfg.Stream.Enabled = true
		cfg.Stream.Addr = *streamAddr
	}

	script := cfg.InputScript()
	if *scriptPath != "" {
		data, err := os.ReadFile(*scriptPath)
		if err != nil {
			logger.Error(ctx, "Failed to read input script", err, "path", *scriptPath)
			os.Exit(1)
		}
		steps, err := input.ParseScript(data)
		if err != nil {
			logger.Error(ctx, "Failed to parse input script", err, "path", *scriptPath)
			os.Exit(1)
		}
		script = input.NewScript(steps, cfg.Script.Loop)
	}

	sim, err := engine.NewSimulation(cfg,
		engine.WithLogger(logger),
		engine.WithMaxTicks(*ticks),
	)
	if err != nil {
		logger.Error(ctx, "Failed to create simulation", err)
		os.Exit(1)
	}
	ctx = sim.Context(ctx)

	var server *stream.Server
	if cfg.Stream.Enabled {
		server = stream.NewServer(cfg.Stream, logger)
		if err := server.Start(cfg.Stream.Addr); err != nil {
			logger.Error(ctx, "Failed to start stream server", err,
				"address", cfg.Stream.Addr,
			)
			os.Exit(1)
		}
		sim.AddObserver(server)
	}

	if *traceEvery > 0 {
		sim.AddObserver(frameTracer(sim, *traceEvery, logger))
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tasks := resource.NewManager(runCtx, cfg.Runtime, logger)
	if err := tasks.Start(); err != nil {
		logger.Error(ctx, "Failed to start task manager", err)
		os.Exit(1)
	}

	if *healthAddr != "" {
		checker := newHealthChecker(sim, server, tasks, cfg.Runtime.MaxMemoryMB)
		if err := tasks.Go("health", func(ctx context.Context) error {
			return serveHealth(ctx, *healthAddr, checker, logger)
		}); err != nil {
			logger.Error(ctx, "Failed to start health check server", err)
			os.Exit(1)
		}
	}

	logger.Info(ctx, "Running simulation",
		"tick_rate", cfg.Physics.TickRate,
		"max_ticks", *ticks,
		"script_ticks", script.TotalTicks(),
	)
	simDone := make(chan struct{})
	if err := tasks.Go("simulation", func(ctx context.Context) error {
		defer close(simDone)
		return sim.Run(ctx, script)
	}); err != nil {
		logger.Error(ctx, "Failed to start simulation", err)
		os.Exit(1)
	}
	<-simDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.ShutdownTimeout)
	defer cancel()

	if err := tasks.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Task manager shutdown failed", err)
	}
	if err := tasks.Err(); err != nil {
		logger.Error(ctx, "Background task failed", err)
	}
	if server != nil {
		logger.Info(ctx, "Closing stream",
			"frames", server.Frames(),
			"dropped", server.Dropped(),
		)
		if err := server.Close(shutdownCtx); err != nil {
			logger.Error(ctx, "Stream server shutdown failed", err)
		}
	}

	state := sim.GetState()
	logger.Info(ctx, "Final state",
		"tick", state.Tick,
		"x", state.Blob.Position.X,
		"y", state.Blob.Position.Y,
		"anchored", state.Blob.Anchored,
		"anchors", sim.Marks.Total(),
	)
}

// loadConfig reads path when it exists and falls back to the defaults
// otherwise. Environment overrides apply either way.
func loadConfig(path string, logger *logging.Logger) (*config.Config, error) {
	var cfg *config.Config

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info(context.Background(), "Configuration file not found, using default configuration",
			"config_path", path,
		)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		return nil, logging.WrapError(err, "failed to apply environment configuration")
	}
	return cfg, nil
}

// frameTracer draws every nth tick through a NullRenderer, which only
// logs at debug level. It runs on the tick goroutine.
func frameTracer(sim *engine.Simulation, every uint64, logger *logging.Logger) engine.Observer {
	tracer := render.NewNullRenderer(logger)
	return engine.ObserverFunc(func(snap *engine.Snapshot) {
		if snap.Tick%every != 0 {
			return
		}
		tracer.Clear()
		tracer.RenderSurface(sim.Surface)
		sim.Blob.Render(tracer)
		tracer.Present()
	})
}

func newHealthChecker(sim *engine.Simulation, server *stream.Server, tasks *resource.Manager, maxMemoryMB int64) *health.HealthChecker {
	checker := health.NewHealthChecker()
	checker.AddCheck(health.NewSimulationHealthCheck(sim, 10*sim.Config.TickInterval()+time.Second))
	checker.AddCheck(health.NewMemoryHealthCheck(maxMemoryMB, health.HeapUsageMB))
	checker.AddCheck(resource.NewHealthCheck(tasks))
	if server != nil {
		checker.AddCheck(health.NewStreamHealthCheck(server.Addr))
	}
	return checker
}

// serveHealth serves the checker until ctx is cancelled
func serveHealth(ctx context.Context, addr string, checker *health.HealthChecker, logger *logging.Logger) error {
	healthServer := &http.Server{
		Addr:         addr,
		Handler:      checker.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting health check server", "address", addr)
		errCh <- healthServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
