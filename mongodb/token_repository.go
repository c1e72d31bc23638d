package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"go.pilab.hu/gatekeeper/domain"
	gkerrors "go.pilab.hu/gatekeeper/errors"
)

// TokenRepository persists token records in MongoDB.
type TokenRepository struct {
	coll *mongo.Collection
}

// NewTokenRepository creates a token repository over db.
func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{
		coll: db.Collection(TokensCollection),
	}
}

func (r *TokenRepository) StoreToken(ctx context.Context, token *domain.Token) error {
	_, err := r.coll.InsertOne(ctx, token)
	return err
}

func (r *TokenRepository) GetTokenByID(ctx context.Context, id string) (*domain.Token, error) {
	var token domain.Token
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, gkerrors.NotFound(gkerrors.CodeUnknownToken, "token not found")
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DisableToken soft-invalidates a token. Already-disabled tokens are a
// no-op, missing ones an error.
func (r *TokenRepository) DisableToken(ctx context.Context, id string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"enabled": false}})
	if err != nil {
		log.Error().Err(err).Str("token_id", id).Msg("Error disabling token")
		return fmt.Errorf("failed to disable token: %w", err)
	}
	if result.MatchedCount == 0 {
		return gkerrors.NotFound(gkerrors.CodeUnknownToken, "token not found")
	}
	return nil
}

func (r *TokenRepository) DisableAccountTokens(ctx context.Context, accountID string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"account_id": accountID, "enabled": true},
		bson.M{"$set": bson.M{"enabled": false}})
	if err != nil {
		return fmt.Errorf("failed to disable account tokens: %w", err)
	}
	return nil
}

func (r *TokenRepository) TouchToken(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"usage_count": 1},
			"$set": bson.M{"last_used_at": time.Now().UTC()},
		})
	return err
}

var _ domain.TokenRepository = (*TokenRepository)(nil)
