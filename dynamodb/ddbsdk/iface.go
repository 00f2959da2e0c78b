package ddbsdk

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// AWSDynamoClientV2 is the part of the DynamoDB client the store needs.
// *dynamodb.Client satisfies it.
type AWSDynamoClientV2 interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ AWSDynamoClientV2 = (*dynamodb.Client)(nil)
