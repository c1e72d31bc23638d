package mongodb

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	ClientsCollection  = "gatekeeper_clients"  // Registered applications
	AccountsCollection = "gatekeeper_accounts" // End-user accounts
	TokensCollection   = "gatekeeper_tokens"   // Issued token records
)

// Connect establishes the MongoDB connection and returns the database
// handle. It should be called once at application startup; the returned
// client is passed around explicitly rather than held in a package
// global.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	log.Info().Str("db", dbName).Msg("Connecting to MongoDB")

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetConnectTimeout(10 * time.Second)
	clientOptions.SetMonitor(commandLogger())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, nil, err
	}

	// Ping the primary to verify the connection before handing it out.
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	return client, client.Database(dbName), nil
}

// commandLogger reports driver commands through the application logger.
// Completed commands surface at debug level; failures are warnings.
func commandLogger() *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			log.Debug().
				Str("command", e.CommandName).
				Dur("duration", e.Duration).
				Msg("mongodb command succeeded")
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			log.Warn().
				Str("command", e.CommandName).
				Dur("duration", e.Duration).
				Err(e.Failure).
				Msg("mongodb command failed")
		},
	}
}

// Ping sends a ping to the MongoDB server. Useful for health checks.
func Ping(ctx context.Context, client *mongo.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx, readpref.Primary())
}
