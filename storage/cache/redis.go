// Package cache shares short lived state between API instances: the latest rig reading and the
// ids of revoked tokens.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core/sensor"
)

const (
	readingKey     = "galileu:sensor:reading"
	denylistPrefix = "galileu:token:denied:"
	minDenylistTTL = time.Second
)

// NewRedisClient connects to redis and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// RedisSnapshotCache keeps the latest reading as JSON for ttl.
type RedisSnapshotCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ sensor.Cache = (*RedisSnapshotCache)(nil)

func NewRedisSnapshotCache(client redis.Cmdable, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

func (c *RedisSnapshotCache) SetReading(ctx context.Context, r sensor.Reading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshalling reading")
	}
	return errors.Wrap(c.client.Set(ctx, readingKey, data, c.ttl).Err(), "caching reading")
}

func (c *RedisSnapshotCache) GetReading(ctx context.Context) (sensor.Reading, error) {
	data, err := c.client.Get(ctx, readingKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return sensor.Reading{}, sensor.ErrNoReading
		}
		return sensor.Reading{}, errors.Wrap(err, "getting cached reading")
	}
	var r sensor.Reading
	if err := json.Unmarshal(data, &r); err != nil {
		return sensor.Reading{}, errors.Wrap(err, "decoding cached reading")
	}
	return r, nil
}

// RedisDenylist remembers revoked token ids until the tokens expire.
type RedisDenylist struct {
	client redis.Cmdable
}

func NewRedisDenylist(client redis.Cmdable) *RedisDenylist {
	return &RedisDenylist{client: client}
}

func (d *RedisDenylist) Deny(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl < minDenylistTTL {
		ttl = minDenylistTTL
	}
	return errors.Wrap(d.client.Set(ctx, denylistPrefix+tokenID, 1, ttl).Err(), "denying token")
}

func (d *RedisDenylist) IsDenied(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, denylistPrefix+tokenID).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking token denylist")
	}
	return n > 0, nil
}
