package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoSessionRepository is a MongoDB-backed implementation of SessionRepository.
type MongoSessionRepository struct {
	client   *mongo.Client
	sessions *mongo.Collection
}

type sessionDoc struct {
	UserID              string    `bson:"user_id"`
	Email               string    `bson:"email"`
	AccessToken         string    `bson:"access_token"`
	RefreshToken        string    `bson:"refresh_token"`
	SessionRefreshToken string    `bson:"session_refresh_token"`
	ExpiresAt           time.Time `bson:"expires_at"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

// OpenMongo connects to MongoDB, verifies the connection and ensures the
// unique user_id index on the sessions collection.
func OpenMongo(ctx context.Context, uri, database string) (*MongoSessionRepository, error) {
	const op = "db.OpenMongo"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	repo := &MongoSessionRepository{
		client:   client,
		sessions: client.Database(database).Collection("sessions"),
	}

	_, err = repo.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: sessions.user_id index: %w", op, err)
	}

	return repo, nil
}

// Close disconnects from MongoDB.
func (r *MongoSessionRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// Upsert replaces the token fields of the user's document, creating it if needed.
func (r *MongoSessionRepository) Upsert(ctx context.Context, rec *TokenRecord) error {
	const op = "db.mongo.Upsert"
	if r.sessions == nil {
		return ErrNotInitialized
	}
	if rec == nil || rec.UserID == "" {
		return fmt.Errorf("%s: session record requires a user id", op)
	}

	now := time.Now().UTC()
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "email", Value: rec.Email},
			{Key: "access_token", Value: rec.AccessToken},
			{Key: "refresh_token", Value: rec.RefreshToken},
			{Key: "session_refresh_token", Value: rec.SessionRefreshToken},
			{Key: "expires_at", Value: rec.ExpiresAt.UTC()},
		}},
		{Key: "$max", Value: bson.D{{Key: "updated_at", Value: now}}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: now}}},
	}

	_, err := r.sessions.UpdateOne(ctx,
		bson.D{{Key: "user_id", Value: rec.UserID}},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rec.UpdatedAt = now
	return nil
}

// ListByUser returns the user's documents, newest first.
func (r *MongoSessionRepository) ListByUser(ctx context.Context, userID string) ([]TokenRecord, error) {
	const op = "db.mongo.ListByUser"
	return r.find(ctx, op,
		bson.D{{Key: "user_id", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
}

// ListExpiring returns documents with a provider refresh token expiring at or before before.
func (r *MongoSessionRepository) ListExpiring(ctx context.Context, before time.Time) ([]TokenRecord, error) {
	const op = "db.mongo.ListExpiring"
	return r.find(ctx, op,
		bson.D{
			{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: before.UTC()}}},
			{Key: "session_refresh_token", Value: bson.D{{Key: "$nin", Value: bson.A{"", nil}}}},
		},
		options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}),
	)
}

// DeleteByUser removes every document of userID.
func (r *MongoSessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	const op = "db.mongo.DeleteByUser"
	if r.sessions == nil {
		return ErrNotInitialized
	}
	if _, err := r.sessions.DeleteMany(ctx, bson.D{{Key: "user_id", Value: userID}}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *MongoSessionRepository) find(ctx context.Context, op string, filter bson.D, opts *options.FindOptionsBuilder) ([]TokenRecord, error) {
	if r.sessions == nil {
		return nil, ErrNotInitialized
	}

	cur, err := r.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []sessionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	records := make([]TokenRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, TokenRecord{
			UserID:              d.UserID,
			Email:               d.Email,
			AccessToken:         d.AccessToken,
			RefreshToken:        d.RefreshToken,
			SessionRefreshToken: d.SessionRefreshToken,
			ExpiresAt:           d.ExpiresAt,
			CreatedAt:           d.CreatedAt,
			UpdatedAt:           d.UpdatedAt,
		})
	}
	return records, nil
}

var _ SessionRepository = (*MongoSessionRepository)(nil)
