// Package annotations provides a low-overhead event system for tracing
// template expansion: compilation, solving and resolution of each
// (template, schema) pair.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Run lifecycle
	ExpandBegin    = "expand/begin"
	ExpandComplete = "expand/completed"

	// Per template
	TemplateCompiled = "template/compiled"

	// Per (template, schema) pair
	SolverComplete = "solver/completed"
	PairResolved   = "pair/resolved"

	// Errors
	ErrorTemplate = "error/template"
	ErrorPair     = "error/pair"
)

// Event represents a single annotation event during expansion.
type Event struct {
	Name    string                 // Event name using hierarchical constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // Duration (End - Start)
	Data    map[string]interface{} // Event-specific data
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events during an expansion run. It is safe for use
// by concurrent workers.
type Collector struct {
	enabled bool
	handler Handler
	events  []Event
	mu      sync.Mutex
}

// NewCollector creates a new annotation collector. A nil handler disables
// collection entirely.
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 64),
	}
}

// Enabled reports whether events are recorded.
func (c *Collector) Enabled() bool {
	return c != nil && c.enabled
}

// Add records a new event.
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Call handler outside the lock to avoid deadlocks
	c.handler(event)
}

// AddTiming records an event that started at start and ends now.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}

	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// Events returns a copy of all collected events.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	eventsCopy := make([]Event, len(c.events))
	copy(eventsCopy, c.events)
	return eventsCopy
}

// Count returns how many events named name were collected.
func (c *Collector) Count(name string) int {
	n := 0
	for _, e := range c.Events() {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Reset clears the collected events. The handler is kept.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
