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

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository interface {
	Create(ctx context.Context, message entity.Message) (entity.Message, error)
	Get(ctx context.Context, messageId string) (entity.Message, error)

	// ListByChat pages messages newest-first and returns the page plus the
	// total message count for the chat.
	ListByChat(ctx context.Context, chatId string, limit, offset int) ([]entity.Message, int64, error)

	SetContent(ctx context.Context, messageId, content string, editedAt time.Time) error
	Tombstone(ctx context.Context, messageId, placeholder string, deletedAt time.Time) error

	// AddReadReceipt appends (userId, readAt) unless userId is already in
	// the readBy set.
	AddReadReceipt(ctx context.Context, messageId, userId string, readAt time.Time) error

	// MarkChatRead bulk-appends read receipts for every message in the chat
	// that the reader did not send and has not read yet. Returns how many
	// messages were touched.
	MarkChatRead(ctx context.Context, chatId, readerId string, readAt time.Time) (int64, error)

	AddReaction(ctx context.Context, messageId string, reaction entity.Reaction) error
	RemoveReaction(ctx context.Context, messageId, userId, emoji string) error
}

type messageRepository struct {
	db mongo.Database
}

func NewMessageRepository(db mongo.Database) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) Create(ctx context.Context, message entity.Message) (entity.Message, error) {
	collection := r.db.Collection("messages")
	message.Id = uuid.New().String()
	message.CreatedAt = time.Now()
	if message.ReadBy == nil {
		message.ReadBy = []entity.ReadReceipt{}
	}
	if message.Reactions == nil {
		message.Reactions = []entity.Reaction{}
	}

	_, err := collection.InsertOne(ctx, message)
	if err != nil {
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) Get(ctx context.Context, messageId string) (entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}

	var message entity.Message
	err := collection.FindOne(ctx, filter).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Message{}, ErrMessageNotFound
		}
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatId string, limit, offset int) ([]entity.Message, int64, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"chatId": chatId}

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	var messages []entity.Message
	err = cursor.All(ctx, &messages)
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (r *messageRepository) SetContent(ctx context.Context, messageId, content string, editedAt time.Time) error {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}
	update := bson.M{
		"$set": bson.M{
			"content":  content,
			"isEdited": true,
			"editedAt": editedAt,
		},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) Tombstone(ctx context.Context, messageId, placeholder string, deletedAt time.Time) error {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}
	update := bson.M{
		"$set": bson.M{
			"content":   placeholder,
			"isDeleted": true,
			"deletedAt": deletedAt,
		},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) AddReadReceipt(ctx context.Context, messageId, userId string, readAt time.Time) error {
	collection := r.db.Collection("messages")
	// The $ne guard makes the append a no-op when the user already read the
	// message, so a userId can never appear twice in readBy.
	filter := bson.M{
		"_id":           messageId,
		"readBy.userId": bson.M{"$ne": userId},
	}
	update := bson.M{
		"$push": bson.M{
			"readBy": entity.ReadReceipt{UserId: userId, ReadAt: readAt},
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update)
	return err
}

func (r *messageRepository) MarkChatRead(ctx context.Context, chatId, readerId string, readAt time.Time) (int64, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"chatId":        chatId,
		"senderId":      bson.M{"$ne": readerId},
		"readBy.userId": bson.M{"$ne": readerId},
	}
	update := bson.M{
		"$push": bson.M{
			"readBy": entity.ReadReceipt{UserId: readerId, ReadAt: readAt},
		},
	}

	res, err := collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *messageRepository) AddReaction(ctx context.Context, messageId string, reaction entity.Reaction) error {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}
	update := bson.M{
		"$push": bson.M{"reactions": reaction},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) RemoveReaction(ctx context.Context, messageId, userId, emoji string) error {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}
	update := bson.M{
		"$pull": bson.M{
			"reactions": bson.M{"userId": userId, "emoji": emoji},
		},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}
