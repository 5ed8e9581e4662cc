package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backend names used in connection logs and errors.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongodb"
	BackendRedis    = "redis"
)

// Connection is a freshly opened client for one backend.
type Connection struct {
	Backend string
	Timeout time.Duration
	Ping    func(ctx context.Context) error
	Close   func() error
}

// Verify pings the backend within c.Timeout, closing it when the ping
// fails. A successful connection is logged once with fields attached.
func (c Connection) Verify(logger *zap.Logger, fields ...zap.Field) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		if c.Close != nil {
			_ = c.Close()
		}
		return fmt.Errorf("failed to ping %s: %w", c.Backend, err)
	}
	logger.Info("connected", append([]zap.Field{zap.String("backend", c.Backend)}, fields...)...)
	return nil
}

// Shutdown closes the backend and logs it.
func (c Connection) Shutdown(logger *zap.Logger) error {
	if err := c.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", c.Backend, err)
	}
	logger.Info("connection closed", zap.String("backend", c.Backend))
	return nil
}
