package idempotency

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// DynamoDBAPI is the narrow slice of the DynamoDB client this store
// needs; tests substitute an in-memory mock.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
	GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error)
}

// DynamoStore persists key records in a DynamoDB table with a TTL
// attribute (expires_at). A conditional write enforces the
// never-reassign invariant at the storage layer as well, so even a
// racing writer cannot move a key to a different order.
type DynamoStore struct {
	client    DynamoDBAPI
	tableName string
}

// NewDynamoStore returns a DynamoStore bound to tableName.
func NewDynamoStore(client DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// NewDynamoClient loads the default AWS config and returns a concrete
// DynamoDB client. Region falls back to AWS_REGION or us-east-1.
func NewDynamoClient(ctx context.Context) (*dyn.Client, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dyn.NewFromConfig(cfg), nil
}

func (s *DynamoStore) Get(ctx context.Context, key string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"idempotency_key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

func (s *DynamoStore) Put(ctx context.Context, rec *Record) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}
	// An unassociated record may be created or refreshed freely; once
	// order_id is set the write must either introduce the association
	// or repeat the same one.
	cond := "attribute_not_exists(idempotency_key) OR attribute_not_exists(order_id)"
	if rec.OrderID != "" {
		cond += " OR order_id = :oid"
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberS{Value: rec.OrderID},
		}
	}
	input.ConditionExpression = &cond

	_, err = s.client.PutItem(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrKeyReassigned
		}
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrKeyReassigned
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (s *DynamoStore) Sweep(ctx context.Context, cutoff time.Time) error {
	// The table's TTL on expires_at removes stale records server-side.
	return nil
}
