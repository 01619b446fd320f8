package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisBackend keeps the document as a single string value. The safety copy
// and the modification time live under sibling keys.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend creates a backend storing the document under key
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	return &RedisBackend{client: client, key: key}
}

// NewRedisClient builds a client from connection settings and checks it
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Name identifies the backend in logs and metrics
func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) emergencyKey() string { return b.key + ":emergency" }
func (b *RedisBackend) modifiedKey() string  { return b.key + ":modified" }

// Read returns the document bytes
func (b *RedisBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDocumentNotFound
	}
	return data, err
}

// Write replaces the document and its modification time in one transaction
func (b *RedisBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.key, data, 0)
		pipe.Set(ctx, b.modifiedKey(), time.Now().UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	return err
}

// WriteEmergency replaces the safety copy
func (b *RedisBackend) WriteEmergency(ctx context.Context, data []byte) error {
	return b.client.Set(ctx, b.emergencyKey(), data, 0).Err()
}

// ReadEmergency returns the last safety copy
func (b *RedisBackend) ReadEmergency(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.emergencyKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDocumentNotFound
	}
	return data, err
}

// Stat describes the stored document
func (b *RedisBackend) Stat(ctx context.Context) (DocumentInfo, error) {
	info := DocumentInfo{Location: "redis://" + b.client.Options().Addr + "/" + b.key}

	size, err := b.client.StrLen(ctx, b.key).Result()
	if err != nil {
		return DocumentInfo{}, err
	}
	exists, err := b.client.Exists(ctx, b.key).Result()
	if err != nil {
		return DocumentInfo{}, err
	}
	if exists == 0 {
		return info, nil
	}
	info.Exists = true
	info.Size = size

	modified, err := b.client.Get(ctx, b.modifiedKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return DocumentInfo{}, err
	}
	if t, perr := time.Parse(time.RFC3339Nano, modified); perr == nil {
		info.ModifiedAt = &t
	}
	return info, nil
}
