// pkg/engine/simulation.go
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/go-blob/pkg/config"
	"github.com/opd-ai/go-blob/pkg/effects"
	"github.com/opd-ai/go-blob/pkg/entity"
	"github.com/opd-ai/go-blob/pkg/event"
	"github.com/opd-ai/go-blob/pkg/input"
	"github.com/opd-ai/go-blob/pkg/logging"
	"github.com/opd-ai/go-blob/pkg/world"
)

// Status is the lifecycle phase of a simulation
type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Observer receives a snapshot after every tick. It must not block; the
// snapshot is never mutated afterwards.
type Observer interface {
	Publish(s *Snapshot)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(s *Snapshot)

// Publish calls f
func (f ObserverFunc) Publish(s *Snapshot) { f(s) }

// Option customizes a Simulation
type Option func(*Simulation)

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithSink adds an anchor effect sink next to the mark recorder
func WithSink(sink effects.Sink) Option {
	return func(s *Simulation) { s.sinks = append(s.sinks, sink) }
}

// WithRunID fixes the run ID instead of generating one
func WithRunID(id string) Option {
	return func(s *Simulation) { s.runID = id }
}

// WithMapProvider loads the map from p instead of the config's map section
func WithMapProvider(p world.MapProvider) Option {
	return func(s *Simulation) { s.maps = p }
}

// WithMaxTicks makes Run stop on its own after n ticks. 0 means no limit.
func WithMaxTicks(n uint64) Option {
	return func(s *Simulation) { s.maxTicks = n }
}

// Simulation owns the surface and the blob and advances them one tick at
// a time. Ticks are serialized by a mutex, so Tick may be called from any
// goroutine; events and snapshots are delivered after the lock is released.
type Simulation struct {
	Config   *config.Config
	Surface  *world.Surface
	Blob     *entity.Blob
	EventBus *event.Bus
	Marks    *effects.Recorder

	mu          sync.Mutex
	status      Status
	currentTick uint64
	startTime   time.Time
	lastTick    time.Time
	lastStep    entity.Step
	lastMarkSeq uint64
	state       *Snapshot

	maps      world.MapProvider
	sinks     []effects.Sink
	sink      effects.Multi
	observers []Observer
	obsMu     sync.RWMutex
	logger    *logging.Logger
	runID     string
	maxTicks  uint64
}

// NewSimulation builds the surface and the blob described by cfg
func NewSimulation(cfg *config.Config, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	sim := &Simulation{
		Config:   cfg,
		EventBus: event.NewEventBus(),
		Marks:    effects.NewRecorder(effects.DefaultRecorderCapacity),
		maps:     cfg,
	}
	for _, opt := range opts {
		opt(sim)
	}
	if sim.logger == nil {
		sim.logger = logging.NewLogger()
	}
	if sim.runID == "" {
		sim.runID = logging.GenerateRunID()
	}

	m, err := sim.maps.LoadMap()
	if err != nil {
		return nil, logging.WrapError(err, "failed to load map")
	}
	surface, err := world.NewSurface(m, cfg.Grid.CellSize)
	if err != nil {
		return nil, fmt.Errorf("failed to build collision surface: %w", err)
	}

	sim.Surface = surface
	sim.Blob = entity.NewBlob(cfg.EntityConfig(), surface.Start())
	sim.sink = append(effects.Multi{sim.Marks}, sim.sinks...)
	sim.state = sim.snapshotLocked()

	return sim, nil
}

// RunID identifies this simulation in logs and lifecycle events
func (s *Simulation) RunID() string { return s.runID }

// Context returns ctx tagged with the run ID
func (s *Simulation) Context(ctx context.Context) context.Context {
	return logging.WithRunID(ctx, s.runID)
}

// AddObserver registers an observer for every future snapshot
func (s *Simulation) AddObserver(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// Start marks the simulation as running. Calling it twice is a no-op.
func (s *Simulation) Start() {
	s.mu.Lock()
	if s.status == StatusRunning {
		s.mu.Unlock()
		return
	}
	s.status = StatusRunning
	s.startTime = time.Now()
	tick := s.currentTick
	s.mu.Unlock()

	s.logger.Info(s.Context(context.Background()), "simulation started",
		"arms", len(s.Blob.Arms),
		"obstacles", len(s.Surface.Obstacles()),
	)
	s.EventBus.Publish(event.NewLifecycleEvent(event.SimulationStarted, s, s.runID, tick))
}

// Stop marks the simulation as stopped. Only the first call publishes.
func (s *Simulation) Stop() {
	s.mu.Lock()
	if s.status == StatusStopped {
		s.mu.Unlock()
		return
	}
	s.status = StatusStopped
	tick := s.currentTick
	pos := s.Blob.Position
	s.mu.Unlock()

	s.logger.Info(s.Context(context.Background()), "simulation stopped",
		"ticks", tick,
		"x", pos.X,
		"y", pos.Y,
		"anchors", s.Marks.Total(),
	)
	s.EventBus.Publish(event.NewLifecycleEvent(event.SimulationStopped, s, s.runID, tick))
}

// Status returns the lifecycle phase
func (s *Simulation) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentTick is the number of ticks run so far
func (s *Simulation) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTick
}

// LastTick is the wall-clock time of the most recent tick
func (s *Simulation) LastTick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

// RequestRelease asks every anchored arm to let go on the next tick
func (s *Simulation) RequestRelease() {
	s.Blob.RequestRelease()
}

// Tick advances the simulation by exactly one step
func (s *Simulation) Tick(in input.Snapshot) entity.Step {
	s.mu.Lock()
	step := s.Blob.Update(in.Clamped(), entity.Environment{Surface: s.Surface, Sink: s.sink})
	s.currentTick++
	s.lastTick = time.Now()
	s.lastStep = step
	tick := s.currentTick
	events := s.eventsFor(step, tick)
	snap := s.snapshotLocked()
	s.state = snap
	s.mu.Unlock()

	for _, err := range step.SinkErrors {
		s.logger.Warn(s.Context(context.Background()), "anchor effect dropped",
			"tick", tick,
			"error", err.Error(),
		)
	}

	for _, e := range events {
		s.EventBus.Publish(e)
	}

	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, o := range observers {
		o.Publish(snap)
	}

	return step
}

// eventsFor translates a blob step into bus events. Called with s.mu held.
func (s *Simulation) eventsFor(step entity.Step, tick uint64) []event.Event {
	var events []event.Event
	for _, tr := range step.Transitions {
		var kind event.Type
		switch tr.To {
		case entity.ArmDeploying:
			kind = event.ArmDeployed
		case entity.ArmAnchored:
			kind = event.ArmAnchored
		case entity.ArmRetracting:
			kind = event.ArmReleased
		case entity.ArmIdle:
			kind = event.ArmRetracted
		default:
			continue
		}
		events = append(events, event.NewArmEvent(kind, s, tr.Arm, tr.Point, tick))
	}
	if step.Blocked {
		events = append(events, event.NewBlockedEvent(s, s.Blob.Position, step.Attempted, tick))
	}
	return events
}

// Run ticks at the configured rate, polling provider each tick, until ctx
// is cancelled or the tick limit is reached
func (s *Simulation) Run(ctx context.Context, provider input.Provider) error {
	if provider == nil {
		provider = input.Idle
	}
	ctx = s.Context(ctx)

	s.Start()
	defer s.Stop()

	ticker := time.NewTicker(s.Config.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug(ctx, "run cancelled", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			s.Tick(provider.Poll())
			if s.maxTicks > 0 && s.CurrentTick() >= s.maxTicks {
				return nil
			}
		}
	}
}

// Step runs n ticks back to back without waiting for the clock
func (s *Simulation) Step(n int, provider input.Provider) {
	if provider == nil {
		provider = input.Idle
	}
	for i := 0; i < n; i++ {
		s.Tick(provider.Poll())
	}
}

// GetState returns the snapshot taken after the most recent tick
func (s *Simulation) GetState() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
