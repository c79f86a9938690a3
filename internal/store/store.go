// Package store encapsulates MongoDB client management and collection helpers.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"bot_license_panel/internal/config"
)

// Collection names used across the panel.
const (
	CollectionBots     = "bots"
	CollectionSessions = "sessions"
)

// sessionTTL bounds how long an operator login stays valid; enforcement is the
// TTL index, not application code.
const sessionTTL = 7 * 24 * time.Hour

// mongoClient captures the subset of mongo.Client behavior we rely on to allow
// lightweight stubbing in tests without a live Mongo deployment.
type mongoClient interface {
	Ping(context.Context, *readpref.ReadPref) error
	Database(string, ...*options.DatabaseOptions) *mongo.Database
	Disconnect(context.Context) error
}

// connectMongo is overridable for tests.
var connectMongo = func(ctx context.Context, opts *options.ClientOptions) (mongoClient, error) {
	return mongo.Connect(ctx, opts)
}

// createIndexes is overridable for tests.
var createIndexes = func(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) ([]string, error) {
	return coll.Indexes().CreateMany(ctx, models)
}

// Manager owns a MongoDB client and the configured database handle.
type Manager struct {
	client mongoClient
	db     *mongo.Database
}

// NewManager initializes the Mongo client using the supplied configuration and
// verifies connectivity with a ping.
func NewManager(ctx context.Context, cfg config.Config) (*Manager, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	client, err := connectMongo(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Manager{
		client: client,
		db:     client.Database(cfg.MongoDB),
	}, nil
}

// Database returns the configured database handle.
func (m *Manager) Database() *mongo.Database {
	return m.db
}

// Collection returns a collection handle for the given name.
func (m *Manager) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// Bots returns the bot records collection handle.
func (m *Manager) Bots() *mongo.Collection {
	return m.Collection(CollectionBots)
}

// Sessions returns the operator sessions collection handle.
func (m *Manager) Sessions() *mongo.Collection {
	return m.Collection(CollectionSessions)
}

// Ping verifies connectivity against the primary.
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil || m.client == nil {
		return errors.New("store manager is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	return nil
}

// EnsureBaseIndexes creates the foundational indexes: the unique token index
// that rejects duplicate registrations, and the session TTL index. Collections
// are created implicitly if they do not already exist.
func (m *Manager) EnsureBaseIndexes(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if m == nil || m.db == nil {
		return errors.New("store manager is not initialized")
	}

	botIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "token", Value: 1}},
			Options: options.Index().
				SetName("token_unique").
				SetUnique(true),
		},
	}

	if _, err := createIndexes(ctx, m.Bots(), botIndexes); err != nil {
		return fmt.Errorf("create bots indexes: %w", err)
	}

	sessionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().
				SetName("session_id_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetName("session_ttl").
				SetExpireAfterSeconds(int32(sessionTTL / time.Second)),
		},
	}

	if _, err := createIndexes(ctx, m.Sessions(), sessionIndexes); err != nil {
		return fmt.Errorf("create sessions indexes: %w", err)
	}

	return nil
}

// Close disconnects the Mongo client.
func (m *Manager) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return m.client.Disconnect(ctx)
}
