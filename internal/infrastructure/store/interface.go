package store

import (
	"context"
	"errors"
)

// DefaultStateKey is the key the storefront has always used for its blob.
const DefaultStateKey = "mavi_boutique_data"

var ErrEmptyKey = errors.New("state key is required")

// StateStore persists one serialized application state per key.
type StateStore interface {
	// Load returns the stored blob. found is false when nothing was saved
	// under key yet.
	Load(ctx context.Context, key string) (data []byte, found bool, err error)

	// Save overwrites the blob stored under key.
	Save(ctx context.Context, key string, data []byte) error
}

// EventSink records a domain event and hands it to downstream consumers.
type EventSink interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
}

// Forwarder receives every appended event. The Kafka producer, the DynamoDB
// journal and the live admin hub implement it.
type Forwarder interface {
	Publish(ctx context.Context, key string, event any) error
}
