package mongo

import (
	"context"
	"time"

	"oftalmonet/valeda-app/internal/config"
	"oftalmonet/valeda-app/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB and verifies it with a ping.
// Pool size and socket timeouts come from cfg.
func ConnectDB(cfg config.DatabaseConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetRetryWrites(true)
	if cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.ServerSelectionTimeout > 0 {
		clientOptions.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}
	if cfg.SocketTimeout > 0 {
		clientOptions.SetSocketTimeout(cfg.SocketTimeout)
	}
	if cfg.MaxConnIdleTime > 0 {
		clientOptions.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// The connect call succeeds lazily, so ping before handing the client out.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, mapError(err)
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

type clientPinger struct {
	client *mongo.Client
}

// NewPinger returns a health probe for the connected client.
func NewPinger(client *mongo.Client) repository.Pinger {
	return &clientPinger{client: client}
}

func (p *clientPinger) Ping(ctx context.Context) error {
	return mapError(p.client.Ping(ctx, readpref.Primary()))
}

// EnsureIndexes creates the indexes for every collection the service uses.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := EnsureTreatmentIndexes(ctx, db.Collection(treatmentCollectionName)); err != nil {
		return err
	}
	return EnsureDoctorIndexes(ctx, db.Collection(doctorCollectionName))
}

// now is truncated to the millisecond precision BSON dates keep, so values
// returned from Create match what a later read yields.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
