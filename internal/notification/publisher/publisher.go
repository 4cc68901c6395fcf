package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fleetcomply/internal/notification"
)

const flushTimeout = 5 * time.Second

// Logging writes events to the structured log. It stands in for Kafka in
// deployments without brokers configured.
type Logging struct {
	logger *slog.Logger
}

func NewLogging(logger *slog.Logger) *Logging {
	return &Logging{logger: logger}
}

func (l *Logging) Publish(ctx context.Context, event notification.Event) error {
	l.logger.InfoContext(ctx, "notification event",
		"event", event.Kind,
		"tenant_id", event.TenantID,
		"entity_kind", event.EntityKind,
		"entity_ref", event.EntityRef,
		"reason", event.Reason,
	)
	return nil
}

func (l *Logging) Close() error { return nil }

// Memory records events for assertions in tests. It can be told to fail so
// tests can prove notification failures never surface as lifecycle failures.
type Memory struct {
	mu     sync.Mutex
	events []notification.Event

	// FailWith, when set, is returned from every Publish call.
	FailWith error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, event notification.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) Close() error { return nil }

// Events returns a snapshot of everything published so far.
func (m *Memory) Events() []notification.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notification.Event, len(m.events))
	copy(out, m.events)
	return out
}

var (
	_ notification.Publisher = (*Logging)(nil)
	_ notification.Publisher = (*Memory)(nil)
	_ notification.Publisher = (*Kafka)(nil)
)
