package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func mongoConnection(client *mongo.Client) Connection {
	return Connection{
		Backend: BackendMongo,
		Timeout: 5 * time.Second,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}
}

// ConnectDB connects to MongoDB and returns the client with the named
// database handle.
func ConnectDB(uri, dbName string, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := mongoConnection(client).Verify(logger, zap.String("database", dbName)); err != nil {
		return nil, nil, err
	}
	return client, client.Database(dbName), nil
}

func DisconnectDB(client *mongo.Client, logger *zap.Logger) error {
	if client == nil {
		return nil
	}
	return mongoConnection(client).Shutdown(logger)
}
