package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbilling/internal/lock"
)

const leaseRetryInterval = 100 * time.Millisecond

// LeaseLocker implements lock.Locker with expiring documents in billing_locks.
// A lease is taken by upserting the key while it is free or expired; the
// unique _id makes concurrent takers collide.
type LeaseLocker struct {
	coll   *mongo.Collection
	ttl    time.Duration
	logger *zap.Logger
}

var _ lock.Locker = (*LeaseLocker)(nil)

// NewLeaseLocker builds a lease locker whose leases expire after ttl.
func NewLeaseLocker(s *Store, ttl time.Duration, logger *zap.Logger) *LeaseLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaseLocker{coll: s.db.Collection(locksCollection), ttl: ttl, logger: logger}
}

// Acquire blocks until the lease on key is held or ctx ends.
func (l *LeaseLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ticker := time.NewTicker(leaseRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.tryAcquire(ctx, key, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", lock.ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *LeaseLocker) tryAcquire(ctx context.Context, key, token string) (bool, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": key, "expires_at": bson.M{"$lte": now}}
	update := bson.M{"$set": bson.M{"token": token, "expires_at": now.Add(l.ttl)}}

	_, err := l.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err == nil {
		return true, nil
	}
	// A live lease exists: the filter missed it and the upsert hit its _id.
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	return false, fmt.Errorf("acquire lease %s: %w", key, err)
}

func (l *LeaseLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := l.coll.DeleteOne(ctx, bson.M{"_id": key, "token": token}); err != nil {
		l.logger.Warn("release lease failed", zap.String("key", key), zap.Error(err))
	}
}
