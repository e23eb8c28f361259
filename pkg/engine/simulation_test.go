// pkg/engine/simulation_test.go
package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-blob/pkg/config"
	"github.com/opd-ai/go-blob/pkg/effects"
	"github.com/opd-ai/go-blob/pkg/event"
	"github.com/opd-ai/go-blob/pkg/input"
	"github.com/opd-ai/go-blob/pkg/logging"
	"github.com/opd-ai/go-blob/pkg/physics"
	"github.com/opd-ai/go-blob/pkg/world"
)

// weightless returns the default level without gravity
func weightless() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Physics.Gravity = 0
	return cfg
}

func newTestSimulation(t *testing.T, cfg *config.Config, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard()), WithRunID("test-run")}, opts...)
	sim, err := NewSimulation(cfg, opts...)
	require.NoError(t, err)
	return sim
}

type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) handle(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) count(kind event.Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.GetType() == kind {
			n++
		}
	}
	return n
}

func (c *collector) subscribe(bus *event.Bus, kinds ...event.Type) {
	for _, k := range kinds {
		bus.Subscribe(k, c.handle)
	}
}

func TestNewSimulation_Defaults(t *testing.T) {
	sim := newTestSimulation(t, nil)

	assert.Equal(t, StatusWaiting, sim.Status())
	assert.Equal(t, "test-run", sim.RunID())
	assert.Equal(t, physics.Vector2D{X: 0, Y: 10}, sim.Blob.Position)
	assert.Len(t, sim.Blob.Arms, 16)
	assert.Len(t, sim.Surface.Walls(), 5)

	state := sim.GetState()
	require.NotNil(t, state)
	assert.Zero(t, state.Tick)
	assert.Len(t, state.Arms, 16)
	assert.Equal(t, "test-run", state.RunID)
}

func TestNewSimulation_MapProviderError(t *testing.T) {
	failing := providerFunc(func() (*world.MapData, error) { return nil, errors.New("disk on fire") })

	_, err := NewSimulation(config.DefaultConfig(), WithLogger(logging.Discard()), WithMapProvider(failing))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load map")
}

func TestNewSimulation_CustomMapProvider(t *testing.T) {
	m := &world.MapData{
		Start: physics.Vector2D{X: 5, Y: 5},
		Walls: []world.WallData{{Start: physics.Vector2D{X: -50}, End: physics.Vector2D{X: 50}}},
	}
	sim := newTestSimulation(t, config.DefaultConfig(), WithMapProvider(m))

	assert.Equal(t, physics.Vector2D{X: 5, Y: 5}, sim.Blob.Position)
	assert.Len(t, sim.Surface.Walls(), 1)
}

type providerFunc func() (*world.MapData, error)

func (f providerFunc) LoadMap() (*world.MapData, error) { return f() }

func TestSimulation_StartStopPublishOnce(t *testing.T) {
	sim := newTestSimulation(t, nil)
	c := &collector{}
	c.subscribe(sim.EventBus, event.SimulationStarted, event.SimulationStopped)

	sim.Start()
	sim.Start()
	assert.Equal(t, StatusRunning, sim.Status())

	sim.Stop()
	sim.Stop()
	assert.Equal(t, StatusStopped, sim.Status())

	assert.Equal(t, 1, c.count(event.SimulationStarted))
	assert.Equal(t, 1, c.count(event.SimulationStopped))

	lifecycle, ok := c.events[0].(*event.LifecycleEvent)
	require.True(t, ok)
	assert.Equal(t, "test-run", lifecycle.RunID)
}

func TestSimulation_ScanningAnchorsAndRecordsMarks(t *testing.T) {
	sim := newTestSimulation(t, weightless())
	c := &collector{}
	c.subscribe(sim.EventBus, event.ArmDeployed, event.ArmAnchored, event.ArmReleased, event.ArmRetracted)

	var marks []effects.Mark
	sim.AddObserver(ObserverFunc(func(s *Snapshot) { marks = append(marks, s.Marks...) }))

	sim.Step(60, input.ProviderFunc(func() input.Snapshot { return input.Snapshot{Scan: true} }))

	require.Positive(t, c.count(event.ArmAnchored), "an arm reaches the sloped ceiling above the start")
	assert.GreaterOrEqual(t, c.count(event.ArmDeployed), c.count(event.ArmAnchored))
	assert.Equal(t, int(sim.Marks.Total()), c.count(event.ArmAnchored))
	assert.Len(t, marks, c.count(event.ArmAnchored), "each mark is delivered in exactly one snapshot")

	anchored := sim.Blob.Anchored()
	assert.Positive(t, anchored)
	assert.Equal(t, anchored, sim.GetState().Blob.Anchored)

	step := sim.Tick(input.Snapshot{Release: true})
	assert.Equal(t, anchored, step.Released)
	assert.GreaterOrEqual(t, c.count(event.ArmReleased), anchored)

	sim.Step(30, nil)
	assert.Positive(t, c.count(event.ArmRetracted))
}

func TestSimulation_PanickingSinkStillRecordsMarks(t *testing.T) {
	broken := effects.SinkFunc(func(point, direction physics.Vector2D) { panic("no audio device") })
	sim := newTestSimulation(t, weightless(), WithSink(broken))

	var lost []error
	for i := 0; i < 60; i++ {
		step := sim.Tick(input.Snapshot{Scan: true})
		lost = append(lost, step.SinkErrors...)
	}

	require.Positive(t, sim.Marks.Total())
	assert.Len(t, lost, int(sim.Marks.Total()), "every anchor is recorded and every drop reported")
	for _, err := range lost {
		assert.Contains(t, err.Error(), "no audio device")
	}
}

func TestSimulation_BlockedMovePublishesEvent(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Arms.Count = 0
	cfg.Physics.Gravity = 10
	cfg.Map = world.MapData{
		Start: physics.Vector2D{X: 0, Y: 25},
		Walls: []world.WallData{{Start: physics.Vector2D{X: -100}, End: physics.Vector2D{X: 100}}},
	}
	sim := newTestSimulation(t, cfg)

	var blocked *event.BlockedEvent
	sim.EventBus.Subscribe(event.BlobBlocked, func(e event.Event) { blocked = e.(*event.BlockedEvent) })

	step := sim.Tick(input.Snapshot{})
	require.True(t, step.Blocked)
	require.NotNil(t, blocked)
	assert.Equal(t, physics.Vector2D{X: 0, Y: 25}, blocked.Position)
	assert.Equal(t, physics.Vector2D{X: 0, Y: 15}, blocked.Attempted)
	assert.Equal(t, uint64(1), blocked.Tick)
	assert.True(t, sim.GetState().Blob.Blocked)
}

func TestSimulation_ConcurrentTicksNeverOverlap(t *testing.T) {
	sim := newTestSimulation(t, nil)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sim.Tick(input.Snapshot{Scan: true, Move: physics.Vector2D{X: 1}})
				_ = sim.GetState()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(200), sim.CurrentTick())
	assert.Equal(t, uint64(200), sim.GetState().Tick)
}

func TestSimulation_RequestReleaseFromAnotherGoroutine(t *testing.T) {
	sim := newTestSimulation(t, weightless())
	scan := input.ProviderFunc(func() input.Snapshot { return input.Snapshot{Scan: true} })
	sim.Step(60, scan)
	anchored := sim.Blob.Anchored()
	require.Positive(t, anchored)

	done := make(chan struct{})
	go func() {
		sim.RequestRelease()
		close(done)
	}()
	<-done

	step := sim.Tick(input.Snapshot{})
	assert.Equal(t, anchored, step.Released)
}

func TestSimulation_Run(t *testing.T) {
	t.Run("stops_at_tick_limit", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Physics.TickRate = 1000
		sim := newTestSimulation(t, cfg, WithMaxTicks(5))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, sim.Run(ctx, cfg.InputScript()))
		assert.Equal(t, uint64(5), sim.CurrentTick())
		assert.Equal(t, StatusStopped, sim.Status())
		assert.False(t, sim.LastTick().IsZero())
	})

	t.Run("stops_on_cancel", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Physics.TickRate = 1000
		sim := newTestSimulation(t, cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		require.NoError(t, sim.Run(ctx, nil))
		assert.Equal(t, StatusStopped, sim.Status())
	})
}

func TestSimulation_Deterministic(t *testing.T) {
	run := func() physics.Vector2D {
		cfg := config.DefaultConfig()
		sim := newTestSimulation(t, cfg)
		sim.Step(400, cfg.InputScript())
		return sim.Blob.Position
	}

	assert.Equal(t, run(), run())
}

func TestSimulation_ReachInvariantHoldsInSnapshots(t *testing.T) {
	cfg := config.DefaultConfig()
	sim := newTestSimulation(t, cfg)

	sim.AddObserver(ObserverFunc(func(s *Snapshot) {
		for _, a := range s.Arms {
			require.InDelta(t, a.Origin.Distance(a.Target), a.Length, 1e-9, "tick %d arm %d", s.Tick, a.Index)
		}
	}))
	sim.Step(300, cfg.InputScript())
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusWaiting, "waiting"},
		{StatusRunning, "running"},
		{StatusStopped, "stopped"},
		{Status(9), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func BenchmarkSimulation_Tick(b *testing.B) {
	sim, err := NewSimulation(config.DefaultConfig(), WithLogger(logging.Discard()))
	if err != nil {
		b.Fatal(err)
	}
	in := input.Snapshot{Scan: true, Move: physics.Vector2D{X: 1}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sim.Tick(in)
	}
}
