// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/constants"
)

// RedisRepository implements [Repository] on Redis.
//
// Layout:
//
//	session:<hash>               JSON session, expires with the session
//	session:account:<accountID>  SET of hashes, used by DeleteByAccount
//
// Redis expires session keys on its own; DeleteExpired only prunes index
// entries that point at keys which no longer exist.
type RedisRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRepository creates a new Redis-backed [Repository].
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client, now: time.Now}
}

var _ Repository = (*RedisRepository)(nil)

func sessionKey(hash string) string {
	return constants.RedisPrefixSession + hash
}

func accountIndexKey(accountID string) string {
	return constants.RedisPrefixAccountSessions + accountID
}

/*
Create stores a session with a TTL equal to its remaining lifetime.

Parameters:
  - context: context.Context
  - sess: *Session

Returns:
  - error: Validation error for an already-expired session, or connectivity errors
*/
func (repository *RedisRepository) Create(context context.Context, sess *Session) error {
	now := repository.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now.UTC()
	}
	if sess.LastUsedAt.IsZero() {
		sess.LastUsedAt = sess.CreatedAt
	}

	ttl := sess.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return apperr.ValidationError("Session is already expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis_session_marshal_failed: %w", err)
	}

	indexKey := accountIndexKey(sess.AccountID)

	// Session and index written together so the index never lags the key.
	pipe := repository.client.TxPipeline()
	pipe.Set(context, sessionKey(sess.Hash), data, ttl)
	pipe.SAdd(context, indexKey, sess.Hash)
	pipe.Expire(context, indexKey, ttl)
	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_session_create_failed: %w", err)
	}

	return nil
}

// FindByHash retrieves a session by exact token hash.
func (repository *RedisRepository) FindByHash(context context.Context, hash string) (*Session, error) {
	data, err := repository.client.Get(context, sessionKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound(resourceName)
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("redis_session_unmarshal_failed: %w", err)
	}
	return &sess, nil
}

// Touch rewrites lastUsedAt while keeping the key's TTL.
func (repository *RedisRepository) Touch(context context.Context, hash string, at time.Time) error {
	sess, err := repository.FindByHash(context, hash)
	if err != nil {
		return err
	}
	sess.LastUsedAt = at

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis_session_marshal_failed: %w", err)
	}

	// XX: never resurrect a session deleted between the read and the write.
	err = repository.client.SetArgs(context, sessionKey(hash), data, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis_session_touch_failed: %w", err)
	}
	return nil
}

// DeleteByHash removes one session and its index entry.
func (repository *RedisRepository) DeleteByHash(context context.Context, hash string) error {
	sess, err := repository.FindByHash(context, hash)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil
		}
		return err
	}

	pipe := repository.client.TxPipeline()
	pipe.Del(context, sessionKey(hash))
	pipe.SRem(context, accountIndexKey(sess.AccountID), hash)
	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}

// DeleteByAccount removes every session listed in the account index.
func (repository *RedisRepository) DeleteByAccount(context context.Context, accountID string) error {
	indexKey := accountIndexKey(accountID)

	hashes, err := repository.client.SMembers(context, indexKey).Result()
	if err != nil {
		return fmt.Errorf("redis_session_list_by_account_failed: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, hash := range hashes {
		keys = append(keys, sessionKey(hash))
	}
	keys = append(keys, indexKey)

	if err := repository.client.Del(context, keys...).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_by_account_failed: %w", err)
	}
	return nil
}

// DeleteExpired prunes index entries whose session key has expired and returns
// the number of pruned entries.
func (repository *RedisRepository) DeleteExpired(context context.Context) (int64, error) {
	var pruned int64

	iterator := repository.client.Scan(context, 0, constants.RedisPrefixAccountSessions+"*", 100).Iterator()
	for iterator.Next(context) {
		indexKey := iterator.Val()

		hashes, err := repository.client.SMembers(context, indexKey).Result()
		if err != nil {
			return pruned, fmt.Errorf("redis_session_sweep_members_failed: %w", err)
		}

		for _, hash := range hashes {
			exists, err := repository.client.Exists(context, sessionKey(hash)).Result()
			if err != nil {
				return pruned, fmt.Errorf("redis_session_sweep_exists_failed: %w", err)
			}
			if exists > 0 {
				continue
			}

			removed, err := repository.client.SRem(context, indexKey, hash).Result()
			if err != nil {
				return pruned, fmt.Errorf("redis_session_sweep_prune_failed: %w", err)
			}
			pruned += removed
		}
	}

	if err := iterator.Err(); err != nil {
		return pruned, fmt.Errorf("redis_session_sweep_scan_failed: %w", err)
	}
	return pruned, nil
}
