package repository

import (
	"context"

	"uthread_service/internal/realtime/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository append-only direct-message log; only the read flag
// is ever updated after insert
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, msgID string) (*domain.Message, error)
	// FindByPair returns the message history between two users, newest
	// first, paginated.
	FindByPair(ctx context.Context, userA, userB string, page, limit int) ([]domain.Message, int64, error)
	MarkRead(ctx context.Context, msgID string) error
	// MarkPairRead flips every unread message sent to readerID by otherID;
	// idempotent, a redundant call matches zero documents.
	MarkPairRead(ctx context.Context, otherID, readerID string) error
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) FindByID(ctx context.Context, msgID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": msgID}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func pairFilter(userA, userB string) bson.M {
	return bson.M{"$or": []bson.M{
		{"sender_id": userA, "receiver_id": userB},
		{"sender_id": userB, "receiver_id": userA},
	}}
}

func (r *messageRepository) FindByPair(ctx context.Context, userA, userB string, page, limit int) ([]domain.Message, int64, error) {
	filter := pairFilter(userA, userB)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, msgID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": msgID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	return err
}

func (r *messageRepository) MarkPairRead(ctx context.Context, otherID, readerID string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"sender_id": otherID, "receiver_id": readerID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	return err
}
