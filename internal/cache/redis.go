package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"brasul/fretes/internal/db"
)

func redisConnection(rdb *redis.Client) db.Connection {
	return db.Connection{
		Backend: db.BackendRedis,
		Timeout: 5 * time.Second,
		Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
		Close: rdb.Close,
	}
}

// ConnectRedis returns a client after a successful ping. The same client
// backs the cache and the asynq queues.
func ConnectRedis(addr, password string, dbIndex int, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})
	if err := redisConnection(rdb).Verify(logger, zap.String("addr", addr), zap.Int("db", dbIndex)); err != nil {
		return nil, err
	}
	return rdb, nil
}

func DisconnectRedis(client *redis.Client, logger *zap.Logger) error {
	if client == nil {
		return nil
	}
	return redisConnection(client).Shutdown(logger)
}
