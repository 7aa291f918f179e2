package db

import (
	"context"
	"errors"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if uri == "" {
		uri = os.Getenv("MONGODB_URI")
		if uri == "" {
			uri = "mongodb://localhost:27017"
		}
	}
	if dbName == "" {
		dbName = os.Getenv("MONGODB_DATABASE")
	}

	if dbName == "" {
		return nil, errors.New("database name required (set dbName or MONGODB_DATABASE)")
	}

	clientOpts := options.Client().ApplyURI(uri).
		SetMaxPoolSize(100)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, err
	}

	store := &MongoStore{
		Client: client,
		DB:     client.Database(dbName),
	}
	return store, nil
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// compound index on (menteeId, mentorId) is what makes get-or-create safe
// under concurrent first contact.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	idxCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	chatIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "menteeId", Value: 1}, {Key: "mentorId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "lastActivityAt", Value: -1}}},
	}
	if _, err := m.DB.Collection("chats").Indexes().CreateMany(idxCtx, chatIdx); err != nil {
		return err
	}

	msgIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := m.DB.Collection("messages").Indexes().CreateMany(idxCtx, msgIdx); err != nil {
		return err
	}

	userIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := m.DB.Collection("users").Indexes().CreateMany(idxCtx, userIdx); err != nil {
		return err
	}

	tokenIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	}
	_, err := m.DB.Collection("refresh_tokens").Indexes().CreateMany(idxCtx, tokenIdx)
	return err
}

func (m *MongoStore) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}
	disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.Client.Disconnect(disconnectCtx)
}

func (m *MongoStore) Ping(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return errors.New("mongo client is nil")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.Client.Ping(pingCtx, nil)
}
