package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/acksell/colldb/dynamodb/ddbsdk"
	"github.com/acksell/colldb/dynamodb/ddbstore"
	"github.com/acksell/colldb/dynamodb/logging"
	"github.com/acksell/colldb/dynamodb/model"
	"github.com/acksell/colldb/dynamodb/table"
)

// backend is the store commands read from. local is nil unless the backend
// is BadgerDB, which is the only one commands write to.
type backend struct {
	store model.Store
	local *ddbstore.Store
	close func() error
}

func openBackend(ctx context.Context, cfg Config, def table.TableDefinition, log zerolog.Logger) (*backend, error) {
	switch cfg.Backend {
	case backendAWS:
		var opts []func(*config.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, config.WithRegion(cfg.Region))
		}
		if cfg.Profile != "" {
			opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		return &backend{
			store: ddbsdk.New(client, ddbsdk.WithLogger(log)),
			close: func() error { return nil },
		}, nil
	default:
		store, err := ddbstore.New(ddbstore.StoreOptions{
			Path:   cfg.DataDir,
			Logger: logging.Badger(log),
		}, def)
		if err != nil {
			return nil, err
		}
		return &backend{store: store, local: store, close: store.Close}, nil
	}
}
