package repository

import (
	"context"
	"errors"
	"time"

	"uthread_service/internal/realtime/domain"
	"uthread_service/pkg/database"
	"uthread_service/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ProfileRepository read-only display-data lookup; user documents are
// owned by the account service, this side only joins them into payloads
type ProfileRepository interface {
	Resolve(ctx context.Context, userID string) (*domain.Profile, error)
}

// ErrProfileNotFound returned when no user document exists for the id
var ErrProfileNotFound = errors.New("profile not found")

type profileRepository struct {
	coll *mongo.Collection
}

// NewMongoProfileRepository create a ProfileRepository over the users collection
func NewMongoProfileRepository(db *mongo.Database) ProfileRepository {
	return &profileRepository{
		coll: db.Collection("users"),
	}
}

func (r *profileRepository) Resolve(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type cachedProfileRepository struct {
	inner ProfileRepository
	cache database.RedisRepository[domain.Profile]
	ttl   time.Duration
}

// NewCachedProfileRepository wraps a ProfileRepository with a Redis cache.
// The sender-profile join runs on every live delivery, so this is the hot
// read path.
func NewCachedProfileRepository(inner ProfileRepository, cache database.RedisRepository[domain.Profile], ttl time.Duration) ProfileRepository {
	return &cachedProfileRepository{inner: inner, cache: cache, ttl: ttl}
}

func (r *cachedProfileRepository) Resolve(ctx context.Context, userID string) (*domain.Profile, error) {
	key := "profile:" + userID

	if p, err := r.cache.Get(ctx, key); err == nil {
		return &p, nil
	}

	p, err := r.inner.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, *p, r.ttl); err != nil {
		// cache write failure only costs the next lookup
		logger.Log.Warn("profile cache set failed", zap.String("user_id", userID), zap.Error(err))
	}
	return p, nil
}
