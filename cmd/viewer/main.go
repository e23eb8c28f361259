// cmd/viewer/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EngoEngine/engo"
	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/opd-ai/go-blob/pkg/config"
	"github.com/opd-ai/go-blob/pkg/effects"
	"github.com/opd-ai/go-blob/pkg/engine"
	"github.com/opd-ai/go-blob/pkg/logging"
	"github.com/opd-ai/go-blob/pkg/render"
	blobengo "github.com/opd-ai/go-blob/pkg/render/engo"
	"github.com/opd-ai/go-blob/pkg/stream"
	"github.com/opd-ai/go-blob/pkg/world"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file (.json or .yaml)")
	rendererName := flag.String("renderer", "terminal", "Renderer to use: terminal or engo")
	connect := flag.String("connect", "", "Watch a remote blobsim stream (ws://host:port/ws) instead of simulating locally")
	withAudio := flag.Bool("audio", false, "Play a splat whenever an arm anchors")
	scale := flag.Float64("scale", 8, "World units per terminal row")
	logPath := flag.String("log", "", "Write logs to this file (terminal mode discards them otherwise)")
	width := flag.Int("width", 1024, "Window width for the engo renderer")
	height := flag.Int("height", 768, "Window height for the engo renderer")
	flag.Parse()

	logger, closeLog, err := openLogger(*logPath, *rendererName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{
		configPath: *configPath,
		renderer:   *rendererName,
		connect:    *connect,
		audio:      *withAudio,
		scale:      *scale,
		width:      *width,
		height:     *height,
	}, logger); err != nil {
		logger.Error(ctx, "Viewer failed", err)
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	renderer   string
	connect    string
	audio      bool
	scale      float64
	width      int
	height     int
}

func run(ctx context.Context, opts options, logger *logging.Logger) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	var sink *effects.Guarded
	if opts.audio || cfg.Audio.Enabled {
		guarded, closeAudio, err := startAudio(ctx, cfg, logger)
		if err != nil {
			logger.Warn(ctx, "Audio disabled", "error", err.Error())
		} else {
			sink = guarded
			defer closeAudio()
		}
	}

	if opts.connect != "" {
		if opts.renderer != "terminal" {
			return fmt.Errorf("remote viewing only supports the terminal renderer, got %q", opts.renderer)
		}
		var remoteSink effects.Sink
		if sink != nil {
			remoteSink = sink
		}
		return runRemote(ctx, opts, cfg, remoteSink, logger)
	}

	simOpts := []engine.Option{engine.WithLogger(logger)}
	if sink != nil {
		simOpts = append(simOpts, engine.WithSink(sink))
	}
	sim, err := engine.NewSimulation(cfg, simOpts...)
	if err != nil {
		return logging.WrapError(err, "failed to create simulation")
	}

	switch opts.renderer {
	case "terminal":
		return runTerminal(ctx, sim, opts.scale)
	case "engo":
		blobengo.SetupInputBindings()
		engo.Run(blobengo.RunOptions("go-blob", opts.width, opts.height), blobengo.NewGameScene(sim, logger))
		return nil
	default:
		return fmt.Errorf("unknown renderer %q", opts.renderer)
	}
}

// openLogger keeps log lines off the terminal while tcell owns it
func openLogger(path, renderer string) (*logging.Logger, func(), error) {
	if path == "" {
		if renderer == "terminal" {
			return logging.Discard(), func() {}, nil
		}
		return logging.NewLogger(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	level := logging.ParseLevel(os.Getenv(logging.LevelEnvVar))
	return logging.NewLoggerWithWriter(f, level), func() { f.Close() }, nil
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
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

// startAudio opens the speaker and returns the anchor sink feeding it
func startAudio(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*effects.Guarded, func(), error) {
	rate := beep.SampleRate(cfg.Audio.SampleRate)
	if rate <= 0 {
		rate = effects.DefaultSampleRate
	}
	if err := speaker.Init(rate, rate.N(50*time.Millisecond)); err != nil {
		return nil, nil, fmt.Errorf("failed to open speaker: %w", err)
	}

	audio := effects.NewAudio(rate, cfg.Audio.Volume)
	speaker.Play(audio)

	settings := cfg.Audio.Breaker
	if settings.Name == "" {
		settings.Name = "audio"
	}
	guarded := effects.NewGuarded(ctx, audio, settings, logger)

	return guarded, func() {
		audio.Close()
		speaker.Close()
		logger.Info(ctx, "Audio closed",
			"delivered", guarded.Delivered(),
			"dropped", guarded.Dropped(),
		)
	}, nil
}

// terminal owns a tcell screen and forwards its events
type terminal struct {
	screen   tcell.Screen
	renderer *render.TerminalRenderer
	keys     *render.KeyboardInput
	events   chan tcell.Event
}

func openTerminal(scale float64) (*terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}
	screen.HideCursor()

	t := &terminal{
		screen:   screen,
		renderer: render.NewScreenRenderer(screen, scale),
		keys:     render.NewKeyboardInput(0),
		events:   make(chan tcell.Event, 16),
	}
	go func() {
		defer close(t.events)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			t.events <- ev
		}
	}()
	return t, nil
}

// handle applies one event and reports whether to keep running
func (t *terminal) handle(ev tcell.Event) bool {
	if _, ok := ev.(*tcell.EventResize); ok {
		t.renderer.Resize()
		t.screen.Sync()
	}
	return t.keys.HandleEvent(ev)
}

func (t *terminal) close() {
	t.screen.Fini()
}

func runTerminal(ctx context.Context, sim *engine.Simulation, scale float64) error {
	term, err := openTerminal(scale)
	if err != nil {
		return err
	}
	defer term.close()

	sim.Start()
	defer sim.Stop()

	ticker := time.NewTicker(sim.Config.TickInterval())
	defer ticker.Stop()

	r := term.renderer
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-term.events:
			if !ok || !term.handle(ev) {
				return nil
			}
		case <-ticker.C:
			sim.Tick(term.keys.Poll())

			r.Clear()
			r.SetCenter(sim.Blob.Position)
			r.RenderSurface(sim.Surface)
			sim.Blob.Render(r)
			r.SetStatus(sim.GetState().Summary())
			r.Present()
		}
	}
}

// runRemote draws snapshots from a blobsim stream over the locally
// configured map
func runRemote(ctx context.Context, opts options, cfg *config.Config, sink effects.Sink, logger *logging.Logger) error {
	m, err := cfg.LoadMap()
	if err != nil {
		return err
	}
	surface, err := world.NewSurface(m, cfg.Grid.CellSize)
	if err != nil {
		return fmt.Errorf("failed to build collision surface: %w", err)
	}

	client, err := stream.Dial(ctx, opts.connect, 4, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	term, err := openTerminal(opts.scale)
	if err != nil {
		return err
	}
	defer term.close()

	r := term.renderer
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-term.events:
			if !ok || !term.handle(ev) {
				return nil
			}
		case snap, ok := <-client.Snapshots():
			if !ok {
				return client.Err()
			}
			if sink != nil {
				for _, mark := range snap.Marks {
					sink.OnAnchor(mark.Point, mark.Direction)
				}
			}

			r.Clear()
			r.SetCenter(snap.Blob.Position)
			r.RenderSurface(surface)
			r.RenderSnapshot(snap)
			r.SetStatus(snap.RunID + "  " + snap.Summary())
			r.Present()
		}
	}
}
