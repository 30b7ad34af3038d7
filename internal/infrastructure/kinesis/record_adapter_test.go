package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func journalImage(eventID string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"event_id":       events.NewStringAttribute(eventID),
		"aggregate_id":   events.NewStringAttribute("order-456"),
		"aggregate_type": events.NewStringAttribute("Order"),
		"event_type":     events.NewStringAttribute("OrderPlaced"),
		"data":           events.NewStringAttribute(`{"order":{"id":"order-456"}}`),
		"created_at":     events.NewStringAttribute("2026-03-08T10:30:00.123456789Z"),
		"version":        events.NewNumberAttribute("1"),
		"gsi1pk":         events.NewStringAttribute("EVENTS"),
	}
}

func kinesisRecord(t *testing.T, seq string, change events.DynamoDBEventRecord) events.KinesisEventRecord {
	t.Helper()
	data, err := json.Marshal(change)
	require.NoError(t, err)
	return events.KinesisEventRecord{
		EventID: "shardId-000:" + seq,
		Kinesis: events.KinesisRecord{Data: data, SequenceNumber: seq},
	}
}

func TestDecodeJournalImage(t *testing.T) {
	tests := []struct {
		name    string
		image   map[string]events.DynamoDBAttributeValue
		wantErr bool
	}{
		{name: "valid event", image: journalImage("event-123")},
		{name: "nil image", image: nil, wantErr: true},
		{
			name: "missing required fields",
			image: map[string]events.DynamoDBAttributeValue{
				"event_id": events.NewStringAttribute("event-123"),
			},
			wantErr: true,
		},
		{
			name: "bad timestamp",
			image: func() map[string]events.DynamoDBAttributeValue {
				img := journalImage("event-123")
				img["created_at"] = events.NewStringAttribute("yesterday")
				return img
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := decodeJournalImage(tt.image)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, event)
			assert.Equal(t, "event-123", event.ID)
			assert.Equal(t, "order-456", event.AggregateID)
			assert.Equal(t, "Order", event.AggregateType)
			assert.Equal(t, "OrderPlaced", event.EventType)
			assert.Equal(t, 1, event.Version)
			assert.JSONEq(t, `{"order":{"id":"order-456"}}`, string(event.Data))
			assert.Equal(t, time.Date(2026, 3, 8, 10, 30, 0, 123456789, time.UTC), event.Timestamp)
		})
	}
}

func TestDecodeStreamRecord(t *testing.T) {
	t.Run("INSERT decodes", func(t *testing.T) {
		event, err := DecodeStreamRecord(events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change:    events.DynamoDBStreamRecord{NewImage: journalImage("event-123")},
		})
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "event-123", event.ID)
	})

	for _, name := range []string{"MODIFY", "REMOVE"} {
		t.Run(name+" is skipped", func(t *testing.T) {
			event, err := DecodeStreamRecord(events.DynamoDBEventRecord{EventName: name})
			require.NoError(t, err)
			assert.Nil(t, event)
		})
	}
}

func TestProcessBatch(t *testing.T) {
	batch := events.KinesisEvent{
		Records: []events.KinesisEventRecord{
			kinesisRecord(t, "100", events.DynamoDBEventRecord{
				EventName: "INSERT",
				Change:    events.DynamoDBStreamRecord{NewImage: journalImage("event-1")},
			}),
			kinesisRecord(t, "101", events.DynamoDBEventRecord{EventName: "MODIFY"}),
			{Kinesis: events.KinesisRecord{Data: []byte("invalid json"), SequenceNumber: "102"}},
			kinesisRecord(t, "103", events.DynamoDBEventRecord{
				EventName: "INSERT",
				Change:    events.DynamoDBStreamRecord{NewImage: journalImage("event-fail")},
			}),
		},
	}

	var handled []string
	resp := ProcessBatch(context.Background(), batch, func(_ context.Context, e store.Event) error {
		if e.ID == "event-fail" {
			return errors.New("smtp down")
		}
		handled = append(handled, e.ID)
		return nil
	}, nil)

	assert.Equal(t, []string{"event-1"}, handled)
	require.Len(t, resp.BatchItemFailures, 2)
	assert.Equal(t, "102", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, "103", resp.BatchItemFailures[1].ItemIdentifier)
}
