package repository

import (
	"context"
	"errors"
	"time"

	"careercompass/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrChatNotFound = errors.New("chat not found")

type ChatRepository interface {
	Get(ctx context.Context, chatId string) (entity.Chat, error)
	GetOrCreate(ctx context.Context, menteeId, mentorId string) (entity.Chat, bool, error)
	ListByParticipant(ctx context.Context, userId string) ([]entity.Chat, error)

	// RecordMessage updates the chat aggregate after a message insert: last
	// message pointer, activity time, and an atomic bump of the recipient's
	// unread slot.
	RecordMessage(ctx context.Context, chatId, messageId, recipientSlot string, at time.Time) error

	// ResetUnread zeroes the reader's unread slot.
	ResetUnread(ctx context.Context, chatId, readerSlot string) error
}

type chatRepository struct {
	db mongo.Database
}

func NewChatRepository(db mongo.Database) ChatRepository {
	return &chatRepository{
		db: db,
	}
}

// Get returns a chat by ID
func (r *chatRepository) Get(ctx context.Context, chatId string) (entity.Chat, error) {
	collection := r.db.Collection("chats")
	filter := bson.M{"_id": chatId}

	var chat entity.Chat
	err := collection.FindOne(ctx, filter).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Chat{}, ErrChatNotFound
		}
		return entity.Chat{}, err
	}

	return chat, nil
}

// GetOrCreate returns the unique chat for the (mentee, mentor) pair,
// creating it on first contact. The boolean reports whether a new chat was
// created. Safe under concurrent first contact: a duplicate-key collision
// on the unique pair index resolves to fetching the winner's row.
func (r *chatRepository) GetOrCreate(ctx context.Context, menteeId, mentorId string) (entity.Chat, bool, error) {
	collection := r.db.Collection("chats")
	pair := bson.M{"menteeId": menteeId, "mentorId": mentorId}

	var chat entity.Chat
	err := collection.FindOne(ctx, pair).Decode(&chat)
	if err == nil {
		return chat, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return entity.Chat{}, false, err
	}

	now := time.Now()
	chat = entity.Chat{
		Id:             uuid.New().String(),
		MenteeId:       menteeId,
		MentorId:       mentorId,
		LastActivityAt: now,
		UnreadCount:    entity.UnreadCount{},
		IsActive:       true,
		CreatedAt:      now,
	}

	_, err = collection.InsertOne(ctx, chat)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the race; the other caller's chat is the one.
			var existing entity.Chat
			if ferr := collection.FindOne(ctx, pair).Decode(&existing); ferr != nil {
				return entity.Chat{}, false, ferr
			}
			return existing, false, nil
		}
		return entity.Chat{}, false, err
	}

	return chat, true, nil
}

// ListByParticipant returns all chats a user belongs to, newest activity first.
func (r *chatRepository) ListByParticipant(ctx context.Context, userId string) ([]entity.Chat, error) {
	collection := r.db.Collection("chats")
	filter := bson.M{
		"$or": bson.A{
			bson.M{"menteeId": userId},
			bson.M{"mentorId": userId},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "lastActivityAt", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var chats []entity.Chat
	err = cursor.All(ctx, &chats)
	if err != nil {
		return nil, err
	}

	return chats, nil
}

func (r *chatRepository) RecordMessage(ctx context.Context, chatId, messageId, recipientSlot string, at time.Time) error {
	collection := r.db.Collection("chats")
	filter := bson.M{"_id": chatId}

	// $inc keeps racing sends from losing an unread bump.
	update := bson.M{
		"$set": bson.M{
			"lastMessageId":  messageId,
			"lastActivityAt": at,
		},
		"$inc": bson.M{
			"unreadCount." + recipientSlot: 1,
		},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}

func (r *chatRepository) ResetUnread(ctx context.Context, chatId, readerSlot string) error {
	collection := r.db.Collection("chats")
	filter := bson.M{"_id": chatId}
	update := bson.M{
		"$set": bson.M{
			"unreadCount." + readerSlot: 0,
		},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}
