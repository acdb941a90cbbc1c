package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/models"
)

const (
	redisBodyField = "body"
	redisRevField  = "rev"

	// DefaultRedisPrefix namespaces document keys.
	DefaultRedisPrefix = "tokenkeeper:doc:"
)

var _ Repository = (*RedisRepository)(nil)

// RedisRepository stores each document in a hash with body and rev fields.
// Conditional writes use WATCH/MULTI.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + id
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	vals, err := r.client.HMGet(ctx, r.key(id), redisBodyField, redisRevField).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	body, ok := vals[0].(string)
	if !ok {
		return nil, common.ErrorNotFound
	}
	rev, _ := vals[1].(string)
	return &models.Document{ID: id, Body: []byte(body), Revision: rev}, nil
}

func (r *RedisRepository) Put(ctx context.Context, doc *models.Document) (string, error) {
	key := r.key(doc.ID)
	rev := newRevision(doc.Revision)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, redisRevField).Result()
		if errors.Is(err, redis.Nil) {
			cur = ""
		} else if err != nil {
			return err
		}
		if cur != doc.Revision {
			return common.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, redisBodyField, doc.Body, redisRevField, rev)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return rev, nil
	case errors.Is(err, common.ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return "", common.ErrVersionConflict
	default:
		return "", fmt.Errorf("redis put: %w", err)
	}
}

func (r *RedisRepository) Remove(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *RedisRepository) Destroy(ctx context.Context) error {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return err
	}
	for len(keys) > 0 {
		n := min(len(keys), 500)
		if err := r.client.Del(ctx, keys[:n]...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		keys = keys[n:]
	}
	return nil
}

func (r *RedisRepository) Info(ctx context.Context) (*models.Info, error) {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Info{Backend: "redis", DocCount: len(keys)}, nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) scanKeys(ctx context.Context) ([]string, error) {
	// SCAN may return a key more than once.
	seen := make(map[string]struct{})
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
