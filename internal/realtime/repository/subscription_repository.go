package repository

import (
	"context"
	"time"

	"uthread_service/internal/realtime/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SubscriptionRepository push-subscription rows, unique on (user, endpoint)
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *domain.PushSubscription) error
	// Delete removes the (user, endpoint) row and reports whether one existed
	Delete(ctx context.Context, userID, endpoint string) (bool, error)
	FindByUser(ctx context.Context, userID string) ([]domain.PushSubscription, error)
}

type subscriptionRepository struct {
	coll *mongo.Collection
}

// NewMongoSubscriptionRepository create a SubscriptionRepository
func NewMongoSubscriptionRepository(db *mongo.Database) SubscriptionRepository {
	return &subscriptionRepository{
		coll: db.Collection("push_subscriptions"),
	}
}

// EnsureSubscriptionIndexes create the unique (user, endpoint) index
func EnsureSubscriptionIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("push_subscriptions").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "endpoint", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *domain.PushSubscription) error {
	filter := bson.M{"user_id": sub.UserID, "endpoint": sub.Endpoint}
	update := bson.M{
		"$set":         bson.M{"keys": sub.Keys},
		"$setOnInsert": bson.M{"created_at": time.Now().Unix()},
	}
	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *subscriptionRepository) Delete(ctx context.Context, userID, endpoint string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID, "endpoint": endpoint})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *subscriptionRepository) FindByUser(ctx context.Context, userID string) ([]domain.PushSubscription, error) {
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}

	var subs []domain.PushSubscription
	if err := cur.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}
