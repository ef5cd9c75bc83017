package repository

import (
	"context"
	"sort"
	"time"

	"uthread_service/internal/realtime/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository persisted per-pair aggregate access. Returned
// aggregates are decoded snapshots; mutating one never touches the store.
type ConversationRepository interface {
	// FindOrCreateByPair returns the single conversation for the unordered
	// pair, creating it atomically when absent.
	FindOrCreateByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	FindByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	FindByID(ctx context.Context, convID string) (*domain.Conversation, error)
	// ApplyMessage updates the last-message snapshot and atomically
	// increments the receiver's unread counter in one write.
	ApplyMessage(ctx context.Context, convID string, msg *domain.Message) error
	ResetUnread(ctx context.Context, convID, userID string) error
	SetPinned(ctx context.Context, convID, userID string, pinned bool) error
	SetMuted(ctx context.Context, convID, userID string, muted bool) error
	ListByParticipant(ctx context.Context, userID string, page, limit int) ([]domain.Conversation, int64, error)
	Delete(ctx context.Context, convID string) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

// EnsureConversationIndexes create the unique pair-key index; call once at
// start. Uniqueness lives on the scalar pair_key field: a unique index on
// the participants array would be multikey, so two different pairs sharing
// one user would collide on that user's key.
func EnsureConversationIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("conversations").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pair_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// pairOf canonical (sorted) participant pair
func pairOf(userA, userB string) []string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return pair
}

// pairKeyOf canonical "lo|hi" scalar key, so the unordered pair maps to
// exactly one indexable value
func pairKeyOf(userA, userB string) string {
	pair := pairOf(userA, userB)
	return pair[0] + "|" + pair[1]
}

func (r *conversationRepository) FindOrCreateByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	pair := pairOf(userA, userB)
	// pair_key lands on the inserted document from the equality filter
	filter := bson.M{"pair_key": pairKeyOf(userA, userB)}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":          uuid.New().String(),
			"participants": pair,
			"states": []domain.ParticipantState{
				{UserID: pair[0]},
				{UserID: pair[1]},
			},
			"created_at": time.Now().Unix(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var conv domain.Conversation
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if mongo.IsDuplicateKeyError(err) {
		// two first-sends raced the upsert; the winner's document now
		// matches the filter, so one retry resolves it
		err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	filter := bson.M{"pair_key": pairKeyOf(userA, userB)}
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, convID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": convID}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ApplyMessage(ctx context.Context, convID string, msg *domain.Message) error {
	text := msg.Content
	if text == "" && len(msg.Media) > 0 {
		text = "[" + string(msg.Media[0].Kind) + "]"
	}

	filter := bson.M{"_id": convID}
	update := bson.M{
		"$set": bson.M{
			"last_message_id":   msg.ID,
			"last_message_text": text,
			"last_message_at":   msg.CreatedAt,
		},
		// server-side $inc instead of read-then-write so near-simultaneous
		// sends to the same receiver cannot lose an increment
		"$inc": bson.M{"states.$[elem].unread": 1},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.user_id": msg.ReceiverID}},
	})
	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *conversationRepository) ResetUnread(ctx context.Context, convID, userID string) error {
	filter := bson.M{"_id": convID}
	update := bson.M{"$set": bson.M{"states.$[elem].unread": 0}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.user_id": userID}},
	})
	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *conversationRepository) SetPinned(ctx context.Context, convID, userID string, pinned bool) error {
	filter := bson.M{"_id": convID}
	update := bson.M{"$set": bson.M{"states.$[elem].pinned": pinned}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.user_id": userID}},
	})
	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *conversationRepository) SetMuted(ctx context.Context, convID, userID string, muted bool) error {
	filter := bson.M{"_id": convID}
	update := bson.M{"$set": bson.M{"states.$[elem].muted": muted}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.user_id": userID}},
	})
	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, userID string, page, limit int) ([]domain.Conversation, int64, error) {
	filter := bson.M{"participants": userID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "last_message_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

func (r *conversationRepository) Delete(ctx context.Context, convID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": convID})
	return err
}
