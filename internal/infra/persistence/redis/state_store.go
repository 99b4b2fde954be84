// Package redis implements the persistence interfaces on Redis hashes. The
// two maps are flat and bounded by the monitoring ceiling, so one hash per
// map is all the schema there is.
package redis

import (
	"context"
	"time"

	"spotfence/config"
	"spotfence/internal/domain/repository"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// New opens a Redis client from the state store configuration.
func New(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.StateStore.RedisAddr,
		Password: cfg.StateStore.RedisPassword,
		DB:       cfg.StateStore.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}

	return client, nil
}

// RegionBookkeepingStore is the Redis-backed id -> display-name map.
type RegionBookkeepingStore struct {
	client *redis.Client
	key    string
}

// NewRegionBookkeepingStore creates a bookkeeping store on the
// "<prefix>:regions" hash.
func NewRegionBookkeepingStore(client *redis.Client, keyPrefix string) repository.RegionBookkeepingStore {
	return &RegionBookkeepingStore{
		client: client,
		key:    keyPrefix + ":regions",
	}
}

// All returns the full bookkeeping map.
func (s *RegionBookkeepingStore) All(ctx context.Context) (map[string]string, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return entries, nil
}

// DisplayName looks up the recorded name for a spot id.
func (s *RegionBookkeepingStore) DisplayName(ctx context.Context, spotID string) (string, bool, error) {
	name, err := s.client.HGet(ctx, s.key, spotID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WithStack(err)
	}

	return name, true, nil
}

// Upsert records or updates the name for a spot id.
func (s *RegionBookkeepingStore) Upsert(ctx context.Context, spotID, displayName string) error {
	return errors.WithStack(s.client.HSet(ctx, s.key, spotID, displayName).Err())
}

// Remove deletes the entry for a spot id.
func (s *RegionBookkeepingStore) Remove(ctx context.Context, spotID string) error {
	return errors.WithStack(s.client.HDel(ctx, s.key, spotID).Err())
}

// Clear empties the map.
func (s *RegionBookkeepingStore) Clear(ctx context.Context) error {
	return errors.WithStack(s.client.Del(ctx, s.key).Err())
}

// NotificationLedgerStore is the Redis-backed id -> last-fired map. Values
// are RFC3339 timestamps.
type NotificationLedgerStore struct {
	client *redis.Client
	key    string
}

// NewNotificationLedgerStore creates a ledger store on the
// "<prefix>:ledger" hash.
func NewNotificationLedgerStore(client *redis.Client, keyPrefix string) repository.NotificationLedgerStore {
	return &NotificationLedgerStore{
		client: client,
		key:    keyPrefix + ":ledger",
	}
}

// LastFired returns the most recent delivery time for a spot id.
func (s *NotificationLedgerStore) LastFired(ctx context.Context, spotID string) (time.Time, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, spotID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.WithStack(err)
	}

	firedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "malformed ledger entry for %s", spotID)
	}

	return firedAt, true, nil
}

// RecordFired stores the delivery time for a spot id.
func (s *NotificationLedgerStore) RecordFired(ctx context.Context, spotID string, firedAt time.Time) error {
	return errors.WithStack(s.client.HSet(ctx, s.key, spotID, firedAt.Format(time.RFC3339Nano)).Err())
}

// PruneOlderThan removes entries with a timestamp before the cutoff.
func (s *NotificationLedgerStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return 0, errors.WithStack(err)
	}

	var stale []string
	for id, raw := range entries {
		firedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil || firedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	if err := s.client.HDel(ctx, s.key, stale...).Err(); err != nil {
		return 0, errors.WithStack(err)
	}

	return len(stale), nil
}
