// Package database owns the MongoDB connection.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client and DB are set by Connect.
var (
	Client *mongo.Client
	DB     *mongo.Database
)

// Connect dials uri, verifies the primary answers a ping and selects dbName.
func Connect(ctx context.Context, uri, dbName string) error {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(2 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("database: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("database: ping: %w", err)
	}

	Client = client
	DB = client.Database(dbName)
	return nil
}

// Disconnect closes the pool. Safe to call when never connected.
func Disconnect(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	err := Client.Disconnect(ctx)
	Client, DB = nil, nil
	return err
}
