package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"verbatim/internal/model"
)

// EventType classifies messages emitted during job execution.
type EventType string

const (
	EventTypeStatus EventType = "status"
	EventTypeError  EventType = "error"
	EventTypeResult EventType = "result"
)

// Event is one job progress message pushed to subscribers.
type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	JobID     string          `json:"job_id"`
	Type      EventType       `json:"type"`
	Status    model.JobStatus `json:"status,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// EventBus fans job events out to per-job subscribers. Slow subscribers
// lose events rather than blocking the pipeline.
type EventBus struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

// Publish delivers an event to every subscriber of the job.
func (b *EventBus) Publish(jobID uuid.UUID, event Event) {
	event.JobID = jobID.String()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[jobID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers for a job's events. The returned cancel function
// removes the subscription and closes the channel.
func (b *EventBus) Subscribe(jobID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[chan Event]struct{})
	}
	b.subs[jobID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[jobID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, jobID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}
