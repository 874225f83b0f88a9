package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo holds the client and the collections the service works with.
// It is constructed once in main and passed by reference; nothing here
// is initialized at import time.
type Mongo struct {
	Client      *mongo.Client
	Users       *mongo.Collection
	Events      *mongo.Collection
	Organizers  *mongo.Collection
	Payments    *mongo.Collection
	Idempotency *mongo.Collection
}

func New(ctx context.Context, uri string) (*Mongo, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	database := client.Database("eventura")
	m := &Mongo{
		Client:      client,
		Users:       database.Collection("users"),
		Events:      database.Collection("events"),
		Organizers:  database.Collection("organizers"),
		Payments:    database.Collection("payments"),
		Idempotency: database.Collection("idempotency"),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.Users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userid", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_userid_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = m.Payments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("payments_intent_unique"),
		},
		{
			Keys:    bson.D{{Key: "participation_recorded", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("payments_reconcile"),
		},
	})
	if err != nil {
		return fmt.Errorf("payments indexes: %w", err)
	}

	_, err = m.Idempotency.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"key": 1},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.M{"expires_at": 1},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("idempotency indexes: %w", err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
