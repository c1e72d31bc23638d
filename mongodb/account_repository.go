package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"go.pilab.hu/gatekeeper/domain"
	gkerrors "go.pilab.hu/gatekeeper/errors"
)

// AccountRepository persists end-user accounts in MongoDB.
type AccountRepository struct {
	coll *mongo.Collection
}

// NewAccountRepository creates an account repository over db.
func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		coll: db.Collection(AccountsCollection),
	}
}

func (r *AccountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, account)
	return err
}

func (r *AccountRepository) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var account domain.Account
	err := r.coll.FindOne(ctx, filter).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, gkerrors.NotFound(gkerrors.CodeUnknownAccount, "account not found")
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	account.UpdatedAt = time.Now().UTC()
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": account.ID}, account)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.MatchedCount == 0 {
		return gkerrors.NotFound(gkerrors.CodeUnknownAccount, "account not found")
	}
	return nil
}

func (r *AccountRepository) SetAccountEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"enabled": enabled, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to set account enabled: %w", err)
	}
	if result.MatchedCount == 0 {
		return gkerrors.NotFound(gkerrors.CodeUnknownAccount, "account not found")
	}
	return nil
}

var _ domain.AccountRepository = (*AccountRepository)(nil)
