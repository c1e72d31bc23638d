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

// ClientRepository persists client registrations in MongoDB.
type ClientRepository struct {
	coll *mongo.Collection
}

// NewClientRepository creates a client repository over db.
func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{
		coll: db.Collection(ClientsCollection),
	}
}

func (r *ClientRepository) CreateClient(ctx context.Context, client *domain.Client) error {
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, client)
	return err
}

func (r *ClientRepository) GetClientByID(ctx context.Context, id string) (*domain.Client, error) {
	var client domain.Client
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&client)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, gkerrors.NotFound(gkerrors.CodeUnknownClient, "client not found")
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) UpdateClient(ctx context.Context, client *domain.Client) error {
	client.UpdatedAt = time.Now().UTC()
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": client.ID}, client)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if result.MatchedCount == 0 {
		return gkerrors.NotFound(gkerrors.CodeUnknownClient, "client not found")
	}
	return nil
}

func (r *ClientRepository) SetClientEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"enabled": enabled, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to set client enabled: %w", err)
	}
	if result.MatchedCount == 0 {
		return gkerrors.NotFound(gkerrors.CodeUnknownClient, "client not found")
	}
	return nil
}

func (r *ClientRepository) UpdateClientScope(ctx context.Context, id string, scope []string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"scope": scope, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to update client scope: %w", err)
	}
	if result.MatchedCount == 0 {
		return gkerrors.NotFound(gkerrors.CodeUnknownClient, "client not found")
	}
	return nil
}

var _ domain.ClientRepository = (*ClientRepository)(nil)
