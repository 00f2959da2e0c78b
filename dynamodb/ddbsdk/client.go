// Package ddbsdk serves model.Store with an AWS SDK v2 DynamoDB client.
package ddbsdk

import (
	"github.com/rs/zerolog"

	"github.com/acksell/colldb/dynamodb/model"
)

// New wraps a DynamoDB client.
//
// Options: [WithEventuallyConsistentReads], [WithLogger]
func New(awsddb AWSDynamoClientV2, opts ...Option) *Client {
	c := &Client{
		awsddb: awsddb,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Client struct {
	awsddb AWSDynamoClientV2
	// default to consistent reads on the table; GSIs only support
	// eventually consistent reads.
	eventuallyConsistent bool
	log                  zerolog.Logger
}

var _ model.Store = &Client{}

type Option func(*Client)

// WithEventuallyConsistentReads disables consistent reads on table queries.
func WithEventuallyConsistentReads() Option {
	return func(c *Client) {
		c.eventuallyConsistent = true
	}
}

// WithLogger logs every request at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}
