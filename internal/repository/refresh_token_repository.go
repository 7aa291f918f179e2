package repository

import (
	"context"
	"errors"
	"time"

	"careercompass/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

type RefreshTokenRepository interface {
	Create(ctx context.Context, token entity.RefreshToken) error
	GetByToken(ctx context.Context, token string) (entity.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllByUserId(ctx context.Context, userId string) error
}

type refreshTokenRepository struct {
	db mongo.Database
}

func NewRefreshTokenRepository(db mongo.Database) RefreshTokenRepository {
	return &refreshTokenRepository{
		db: db,
	}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token entity.RefreshToken) error {
	collection := r.db.Collection("refresh_tokens")
	token.Id = uuid.New().String()
	token.CreatedAt = time.Now()

	_, err := collection.InsertOne(ctx, token)
	return err
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, token string) (entity.RefreshToken, error) {
	collection := r.db.Collection("refresh_tokens")
	filter := bson.M{"token": token}

	var refreshToken entity.RefreshToken
	err := collection.FindOne(ctx, filter).Decode(&refreshToken)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.RefreshToken{}, ErrRefreshTokenNotFound
		}
		return entity.RefreshToken{}, err
	}

	return refreshToken, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	collection := r.db.Collection("refresh_tokens")
	filter := bson.M{"token": token}
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"isRevoked": true,
			"revokedAt": now,
		},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllByUserId(ctx context.Context, userId string) error {
	collection := r.db.Collection("refresh_tokens")
	filter := bson.M{"userId": userId, "isRevoked": false}
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"isRevoked": true,
			"revokedAt": now,
		},
	}

	_, err := collection.UpdateMany(ctx, filter, update)
	return err
}
