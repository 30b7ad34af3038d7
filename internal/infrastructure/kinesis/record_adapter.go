// Package kinesis decodes event journal rows delivered by the DynamoDB to
// Kinesis integration.
package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"go.uber.org/zap"
)

// DecodeRecord unwraps the DynamoDB stream change carried in a Kinesis
// record. Only journal inserts carry events; other changes return nil.
func DecodeRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return DecodeStreamRecord(change)
}

// DecodeStreamRecord handles a change read straight from DynamoDB Streams.
func DecodeStreamRecord(record events.DynamoDBEventRecord) (*store.Event, error) {
	if record.EventName != "INSERT" {
		return nil, nil
	}
	return decodeJournalImage(record.Change.NewImage)
}

// decodeJournalImage maps a journal row back to the event it was written from.
func decodeJournalImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	if image == nil {
		return nil, errors.New("DynamoDB image is nil")
	}

	event := &store.Event{}
	if v, ok := image["event_id"]; ok {
		event.ID = v.String()
	}
	if v, ok := image["aggregate_id"]; ok {
		event.AggregateID = v.String()
	}
	if v, ok := image["aggregate_type"]; ok {
		event.AggregateType = v.String()
	}
	if v, ok := image["event_type"]; ok {
		event.EventType = v.String()
	}
	if v, ok := image["data"]; ok {
		event.Data = json.RawMessage(v.String())
	}
	if v, ok := image["created_at"]; ok {
		t, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		event.Timestamp = t
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse version: %w", err)
		}
		event.Version = int(version)
	}

	if event.ID == "" || event.AggregateID == "" || event.EventType == "" {
		return nil, fmt.Errorf("missing required fields: event_id=%q aggregate_id=%q event_type=%q",
			event.ID, event.AggregateID, event.EventType)
	}
	return event, nil
}

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event store.Event) error

// ProcessBatch decodes every record of a Lambda invocation and hands the
// events to handle. Records that fail to decode or handle are reported by
// sequence number so Lambda retries only those.
func ProcessBatch(ctx context.Context, batch events.KinesisEvent, handle EventHandler, log *zap.Logger) events.KinesisEventResponse {
	if log == nil {
		log = zap.NewNop()
	}

	var failures []events.KinesisBatchItemFailure
	for _, record := range batch.Records {
		seq := record.Kinesis.SequenceNumber
		event, err := DecodeRecord(record)
		if err != nil {
			log.Warn("failed to decode record", zap.String("sequence_number", seq), zap.Error(err))
			failures = append(failures, events.KinesisBatchItemFailure{ItemIdentifier: seq})
			continue
		}
		if event == nil {
			continue
		}

		if err := handle(ctx, *event); err != nil {
			log.Error("failed to handle event",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			failures = append(failures, events.KinesisBatchItemFailure{ItemIdentifier: seq})
		}
	}

	log.Info("batch processed",
		zap.Int("records", len(batch.Records)),
		zap.Int("failed", len(failures)),
	)
	return events.KinesisEventResponse{BatchItemFailures: failures}
}
