package ddbsdk

import (
	"context"
	"fmt"

	expression2 "github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/acksell/colldb/dynamodb/model"
)

// Query issues one DynamoDB Query for q and returns its page. The cursor is
// DynamoDB's LastEvaluatedKey.
func (c *Client) Query(ctx context.Context, q *model.StoreQuery) (*model.StorePage, error) {
	input, err := c.queryInput(q)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("table", q.Table).
		Str("index", q.Index).
		Str("keyCondition", *input.KeyConditionExpression).
		Msg("dynamodb query")

	res, err := c.awsddb.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &model.StorePage{
		Items:  res.Items,
		Cursor: res.LastEvaluatedKey,
	}, nil
}

func (c *Client) queryInput(q *model.StoreQuery) (*dynamodbv2.QueryInput, error) {
	if q == nil {
		return nil, fmt.Errorf("query is required")
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative, got %d", q.Limit)
	}
	key := expression2.KeyEqual(expression2.Key(q.PartitionKeyField), expression2.Value(q.PartitionKey))
	if q.SortKey != nil {
		strategy, err := strategyFor(q.SortKey)
		if err != nil {
			return nil, err
		}
		key = key.And(strategy(q.SortKeyField))
	}
	expr, err := expression2.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	input := &dynamodbv2.QueryInput{
		TableName:                 ptr(q.Table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeValues: expr.Values(),
		ExpressionAttributeNames:  expr.Names(),
		ScanIndexForward:          ptr(!q.Descending),
		ExclusiveStartKey:         q.Cursor,
	}
	if q.Index != "" {
		input.IndexName = ptr(q.Index)
	} else {
		input.ConsistentRead = ptr(!c.eventuallyConsistent)
	}
	if q.Limit > 0 {
		input.Limit = ptr(q.Limit)
	}
	return input, nil
}
