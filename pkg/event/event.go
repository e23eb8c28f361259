// pkg/event/event.go
package event

import (
	"sync"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	ArmDeployed       Type = "arm_deployed"
	ArmAnchored       Type = "arm_anchored"
	ArmReleased       Type = "arm_released"
	ArmRetracted      Type = "arm_retracted"
	BlobBlocked       Type = "blob_blocked"
	SimulationStarted Type = "simulation_started"
	SimulationStopped Type = "simulation_stopped"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription is returned by Subscribe. Cancel removes the handler.
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]registration
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registration),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Type:   eventType,
		Cancel: func() { b.Unsubscribe(eventType, id) },
	}
}

// Unsubscribe removes the handler registered under id. Unknown IDs are ignored.
func (b *Bus) Unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[eventType]
	for i, r := range regs {
		if r.id == id {
			// copy so a Publish iterating the old slice is unaffected
			next := make([]registration, 0, len(regs)-1)
			next = append(next, regs[:i]...)
			next = append(next, regs[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = next
			}
			return
		}
	}
}

// Publish sends an event to all subscribed handlers, in subscription order
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	regs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, r := range regs {
		r.handler(event)
	}
}

// ArmEvent reports an arm state change
type ArmEvent struct {
	BaseEvent
	Arm   int
	Point physics.Vector2D
	Tick  uint64
}

// NewArmEvent creates a new arm event
func NewArmEvent(eventType Type, source interface{}, arm int, point physics.Vector2D, tick uint64) *ArmEvent {
	return &ArmEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Arm:   arm,
		Point: point,
		Tick:  tick,
	}
}

// BlockedEvent is published when the surface rejects a blob move
type BlockedEvent struct {
	BaseEvent
	Position  physics.Vector2D
	Attempted physics.Vector2D
	Tick      uint64
}

// NewBlockedEvent creates a new blocked event
func NewBlockedEvent(source interface{}, position, attempted physics.Vector2D, tick uint64) *BlockedEvent {
	return &BlockedEvent{
		BaseEvent: BaseEvent{
			EventType: BlobBlocked,
			Source:    source,
		},
		Position:  position,
		Attempted: attempted,
		Tick:      tick,
	}
}

// LifecycleEvent marks the start or end of a simulation run
type LifecycleEvent struct {
	BaseEvent
	RunID string
	Tick  uint64
}

// NewLifecycleEvent creates a new lifecycle event
func NewLifecycleEvent(eventType Type, source interface{}, runID string, tick uint64) *LifecycleEvent {
	return &LifecycleEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		RunID: runID,
		Tick:  tick,
	}
}
