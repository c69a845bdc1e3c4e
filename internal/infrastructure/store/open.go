package store

import (
	"context"
	"fmt"
	"io"
)

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendDynamo   = "dynamodb"
)

// Options selects and configures a KV backend
type Options struct {
	Backend  string
	DeviceID string

	FilePath string

	PostgresURL   string
	PostgresTable string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured backend. The returned closer releases its connections.
func Open(ctx context.Context, opts Options) (KV, io.Closer, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryKV(), nopCloser{}, nil

	case BackendFile:
		kv, err := NewFileKV(opts.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, nopCloser{}, nil

	case BackendPostgres:
		db, err := ConnectPostgres(opts.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		kv, err := NewPostgresKV(db, opts.PostgresTable, opts.DeviceID)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := kv.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create storage table: %w", err)
		}
		return kv, db, nil

	case BackendRedis:
		client, err := ConnectRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisKV(client, opts.RedisPrefix+opts.DeviceID+":"), client, nil

	case BackendDynamo:
		client, err := NewDynamoClient(ctx, opts.DynamoRegion, opts.DynamoEndpoint)
		if err != nil {
			return nil, nil, err
		}
		return NewDynamoKV(client, opts.DynamoTable, opts.DeviceID), nopCloser{}, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
}
