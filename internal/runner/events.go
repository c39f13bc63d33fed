package runner

// Event represents a runner lifecycle event.
// Minimal and stable: name + run/task identifiers and optional fields via key/values.
type Event struct {
	Name   string
	RunID  string
	Task   string
	Fields map[string]any
}

// EventPublisher receives events from the runner. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
