package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type botCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// BotRepository persists and retrieves bot records in MongoDB. All writes touch
// a single document and rely on Mongo's per-document atomicity; concurrent
// updates are last-write-wins.
type BotRepository struct {
	collection botCollection
}

// NewBotRepository constructs a BotRepository.
func NewBotRepository(collection botCollection) *BotRepository {
	return &BotRepository{collection: collection}
}

// Create inserts a new bot record with approval and password policy off.
// Returns ErrDuplicateToken when the token is already taken; the unique index
// on token is what enforces this.
func (r *BotRepository) Create(ctx context.Context, record BotRecord) (BotRecord, error) {
	if r == nil || r.collection == nil {
		return BotRecord{}, errors.New("bot repository is not initialized")
	}
	if ctx == nil {
		return BotRecord{}, errors.New("context is required")
	}
	if record.Token == "" {
		return BotRecord{}, errors.New("token is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	record.Approved = false
	record.PasswordEnabled = false
	record.Password = ""
	record.ForceRestart = false
	if record.Servers == nil {
		record.Servers = []HostedServer{}
	}
	record.RegisteredAt = now
	record.LastSeenAt = now

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return BotRecord{}, ErrDuplicateToken
		}
		return BotRecord{}, fmt.Errorf("insert bot: %w", err)
	}

	return record, nil
}

// GetByToken fetches one bot record by its token.
func (r *BotRepository) GetByToken(ctx context.Context, token string) (BotRecord, error) {
	if r == nil || r.collection == nil {
		return BotRecord{}, errors.New("bot repository is not initialized")
	}
	if ctx == nil {
		return BotRecord{}, errors.New("context is required")
	}
	if token == "" {
		return BotRecord{}, errors.New("token is required")
	}

	result := r.collection.FindOne(ctx, bson.M{"token": token})
	if result == nil {
		return BotRecord{}, errors.New("find bot returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return BotRecord{}, ErrNotFound
		}
		return BotRecord{}, fmt.Errorf("find bot: %w", err)
	}

	var record BotRecord
	if err := result.Decode(&record); err != nil {
		return BotRecord{}, fmt.Errorf("decode bot: %w", err)
	}

	return record, nil
}

// List returns every bot record, oldest registration first.
func (r *BotRepository) List(ctx context.Context) ([]BotRecord, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("bot repository is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := r.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "registered_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]BotRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode bots: %w", err)
	}

	return records, nil
}

// ReplaceServers overwrites the full hosted-server list and bumps last_seen_at.
// The list is a wholesale replacement, never a merge.
func (r *BotRepository) ReplaceServers(ctx context.Context, token string, servers []HostedServer) error {
	if servers == nil {
		servers = []HostedServer{}
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	return r.updateOne(ctx, token, bson.M{"$set": bson.M{
		"servers":      servers,
		"last_seen_at": now,
	}})
}

// SetApproved flips the operator approval flag.
func (r *BotRepository) SetApproved(ctx context.Context, token string, approved bool) error {
	return r.updateOne(ctx, token, bson.M{"$set": bson.M{"approved": approved}})
}

// SetPassword updates the password policy and raises the force-restart flag so
// the running bot picks the new policy up on its next poll. The stored password
// is overwritten only when enabling with a non-empty value; disabling leaves it
// in place.
func (r *BotRepository) SetPassword(ctx context.Context, token string, enabled bool, password string) error {
	set := bson.M{
		"password_enabled": enabled,
		"force_restart":    true,
	}
	if enabled && password != "" {
		set["password"] = password
	}

	return r.updateOne(ctx, token, bson.M{"$set": set})
}

// ClearForceRestart acknowledges the restart signal. Idempotent: clearing an
// already-clear flag succeeds.
func (r *BotRepository) ClearForceRestart(ctx context.Context, token string) error {
	return r.updateOne(ctx, token, bson.M{"$set": bson.M{"force_restart": false}})
}

func (r *BotRepository) updateOne(ctx context.Context, token string, update bson.M) error {
	if r == nil || r.collection == nil {
		return errors.New("bot repository is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if token == "" {
		return errors.New("token is required")
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"token": token}, update)
	if err != nil {
		return fmt.Errorf("update bot: %w", err)
	}
	if result == nil || result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

type sessionCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// SessionRepository persists operator login sessions in MongoDB. Expiry is
// delegated to the store's TTL index.
type SessionRepository struct {
	collection sessionCollection
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(collection sessionCollection) *SessionRepository {
	return &SessionRepository{collection: collection}
}

// Create inserts a session, stamping created_at when unset.
func (r *SessionRepository) Create(ctx context.Context, session Session) (Session, error) {
	if r == nil || r.collection == nil {
		return Session{}, errors.New("session repository is not initialized")
	}
	if ctx == nil {
		return Session{}, errors.New("context is required")
	}
	if session.SessionID == "" {
		return Session{}, errors.New("session id is required")
	}
	if session.IdentityID == "" {
		return Session{}, errors.New("identity id is required")
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	return session, nil
}

// GetByID fetches a session by its id.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (Session, error) {
	if r == nil || r.collection == nil {
		return Session{}, errors.New("session repository is not initialized")
	}
	if ctx == nil {
		return Session{}, errors.New("context is required")
	}
	if sessionID == "" {
		return Session{}, errors.New("session id is required")
	}

	result := r.collection.FindOne(ctx, bson.M{"session_id": sessionID})
	if result == nil {
		return Session{}, errors.New("find session returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("find session: %w", err)
	}

	var session Session
	if err := result.Decode(&session); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}

	return session, nil
}

// Delete removes a session; deleting an unknown id is not an error.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if r == nil || r.collection == nil {
		return errors.New("session repository is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if sessionID == "" {
		return errors.New("session id is required")
	}

	if _, err := r.collection.DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}
