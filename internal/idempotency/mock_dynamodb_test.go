package idempotency

import (
	"context"
	"errors"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoMock is a very small in-memory stand-in for PutItem/GetItem used
// in unit tests. It evaluates just the condition expressions this
// package actually writes.
type dynamoMock struct {
	mu       sync.Mutex
	table    map[string]map[string]types.AttributeValue
	putCalls int
	getCalls int
}

func newDynamoMock() *dynamoMock {
	return &dynamoMock{table: map[string]map[string]types.AttributeValue{}}
}

func itemOrderID(item map[string]types.AttributeValue) string {
	if v, ok := item["order_id"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *dynamoMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++

	keyAttr, ok := params.Item["idempotency_key"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing idempotency_key")
	}
	k := keyAttr.Value

	if params.ConditionExpression != nil {
		cond := *params.ConditionExpression
		existing, exists := m.table[k]
		// attribute_not_exists(idempotency_key) passes when absent
		if exists && itemOrderID(existing) != "" {
			// record already associated: only "order_id = :oid" with the
			// same id may pass
			if !strings.Contains(cond, ":oid") {
				return nil, &types.ConditionalCheckFailedException{}
			}
			oid, ok := params.ExpressionAttributeValues[":oid"].(*types.AttributeValueMemberS)
			if !ok || oid.Value != itemOrderID(existing) {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *dynamoMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++

	keyAttr, ok := params.Key["idempotency_key"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing idempotency_key")
	}
	item, ok := m.table[keyAttr.Value]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}
