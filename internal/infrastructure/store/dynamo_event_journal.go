package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoEventJournal writes every store event to a DynamoDB table keyed by
// event_id (see JournalTableInput). The table's Kinesis integration feeds
// the Lambda notifier.
type DynamoEventJournal struct {
	client    DynamoAPI
	tableName string
}

// dynamoEvent represents the DynamoDB item structure
type dynamoEvent struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	EventID       string `dynamodbav:"event_id"`
	Version       int    `dynamodbav:"version"`
	AggregateType string `dynamodbav:"aggregate_type"`
	EventType     string `dynamodbav:"event_type"`
	Data          string `dynamodbav:"data"`
	CreatedAt     string `dynamodbav:"created_at"`
	GSI1PK        string `dynamodbav:"gsi1pk"`
}

func NewDynamoEventJournal(client DynamoAPI, tableName string) *DynamoEventJournal {
	return &DynamoEventJournal{client: client, tableName: tableName}
}

// Publish implements Forwarder. event must be an Event.
func (j *DynamoEventJournal) Publish(ctx context.Context, _ string, event any) error {
	e, ok := event.(Event)
	if !ok {
		return fmt.Errorf("dynamo journal: unexpected event type %T", event)
	}

	av, err := attributevalue.MarshalMap(dynamoEvent{
		AggregateID:   e.AggregateID,
		EventID:       e.ID,
		Version:       e.Version,
		AggregateType: e.AggregateType,
		EventType:     e.EventType,
		Data:          string(e.Data),
		CreatedAt:     e.Timestamp.Format(time.RFC3339Nano),
		GSI1PK:        "EVENTS", // Fixed value for GSI1 to list the whole journal
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = j.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(j.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(event_id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put event: %w", err)
	}
	return nil
}
