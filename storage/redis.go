package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store on Redis, one hash per row
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every row key
	Prefix string
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "rowmap:",
	}
}

// NewRedisStore creates a Redis store and verifies the connection
func NewRedisStore(config RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedisStoreWithClient(client, config.Prefix, logger), nil
}

// NewRedisStoreWithClient creates a Redis store around an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) rowKey(table, key string) string {
	return s.prefix + table + ":" + key
}

// Get fetches one row
func (s *RedisStore) Get(ctx context.Context, table, key string) (*Row, error) {
	values, err := s.client.HGetAll(ctx, s.rowKey(table, key)).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrRowNotFound
	}

	cells := make(map[string][]byte, len(values))
	for cell, value := range values {
		cells[cell] = []byte(value)
	}
	return &Row{Key: key, Cells: cells}, nil
}

// GetMany fetches rows for the given keys in a single pipeline
func (s *RedisStore) GetMany(ctx context.Context, table string, keys []string) ([]*Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, s.rowKey(table, key))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	rows := make([]*Row, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for i, cmd := range cmds {
		if seen[keys[i]] {
			continue
		}
		values, err := cmd.Result()
		if err != nil || len(values) == 0 {
			continue
		}
		cells := make(map[string][]byte, len(values))
		for cell, value := range values {
			cells[cell] = []byte(value)
		}
		rows = append(rows, &Row{Key: keys[i], Cells: cells})
		seen[keys[i]] = true
	}

	s.logger.Debug("batch fetch",
		zap.String("table", table),
		zap.Int("requested", len(keys)),
		zap.Int("found", len(rows)))

	return rows, nil
}

// Put writes cells into a row and removes tombstoned cells
func (s *RedisStore) Put(ctx context.Context, table, key string, cells map[string][]byte, tombstones []string) error {
	rowKey := s.rowKey(table, key)
	pipe := s.client.Pipeline()

	if len(cells) > 0 {
		values := make(map[string]interface{}, len(cells))
		for cell, value := range cells {
			values[cell] = value
		}
		pipe.HSet(ctx, rowKey, values)
	}
	if len(tombstones) > 0 {
		pipe.HDel(ctx, rowKey, tombstones...)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes a whole row
func (s *RedisStore) Delete(ctx context.Context, table, key string) error {
	return s.client.Del(ctx, s.rowKey(table, key)).Err()
}

// Keys lists row keys with the given prefix, up to limit (0 = all)
func (s *RedisStore) Keys(ctx context.Context, table, prefix string, limit int) ([]string, error) {
	pattern := s.prefix + table + ":" + prefix + "*"
	strip := len(s.prefix + table + ":")

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[strip:])
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
