package service

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their observers
// ─────────────────────────────────────────────────────────────

const (
	EventPostSaved     = "post:saved"
	EventPostDeleted   = "post:deleted"
	EventPostPublished = "post:published"
	EventPostImported  = "post:imported"
	EventSessionOpened = "session:opened"
	EventSessionClosed = "session:closed"
)

// EventEmitter is how services announce state changes. The HTTP and MCP
// shells subscribe through it; tests use MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to a logger at debug level.
type LogEmitter struct {
	Logger *log.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	if e.Logger == nil {
		return
	}
	e.Logger.Debug("event", "name", event, "data", data)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}
