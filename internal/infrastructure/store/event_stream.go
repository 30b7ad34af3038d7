package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// MarshalJSON returns the JSON encoding of the event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct{ Alias }{Alias: Alias(e)})
}

// EventStream numbers events per aggregate and fans them out to forwarders.
// Events are not retained; the durable record is the state blob. Versions
// order events within one process and restart at 1, so consumers identify
// events by ID.
type EventStream struct {
	mu         sync.Mutex
	versions   map[string]int // aggregateID -> last version
	forwarders []Forwarder
}

func NewEventStream(forwarders ...Forwarder) *EventStream {
	return &EventStream{
		versions:   make(map[string]int),
		forwarders: forwarders,
	}
}

// Append builds the event and publishes it to every forwarder. All
// forwarders are attempted; their errors are joined.
func (es *EventStream) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	es.mu.Lock()
	es.versions[aggregateID]++
	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now().UTC(),
		Version:       es.versions[aggregateID],
	}
	es.mu.Unlock()

	var errs []error
	for _, f := range es.forwarders {
		if err := f.Publish(ctx, aggregateID, event); err != nil {
			errs = append(errs, err)
		}
	}

	return &event, errors.Join(errs...)
}
