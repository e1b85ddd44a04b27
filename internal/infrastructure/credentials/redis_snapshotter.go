package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hokz.academy/cli/internal/core/domain"
	"hokz.academy/cli/internal/core/ports"
)

// RedisSnapshotter keeps credential records in Redis so several client processes
// on one machine or container group can share the same sessions.
type RedisSnapshotter struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisSnapshotter creates a snapshotter storing one key per role under prefix.
// A zero ttl keeps records until they are deleted.
func NewRedisSnapshotter(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisSnapshotter {
	if prefix == "" {
		prefix = "hokz"
	}
	return &RedisSnapshotter{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Load returns the persisted record of every role that has one
func (r *RedisSnapshotter) Load(ctx context.Context) (map[domain.Role]domain.CredentialRecord, error) {
	roles := domain.Roles()

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(roles))
	for i, role := range roles {
		cmds[i] = pipe.Get(ctx, r.key(role))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, &StoreError{Operation: "load", Cause: err}
	}

	records := make(map[domain.Role]domain.CredentialRecord, len(roles))
	for i, cmd := range cmds {
		raw, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, &StoreError{Operation: "load", Role: roles[i], Cause: err}
		}

		var record domain.CredentialRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, &StoreError{Operation: "load", Role: roles[i], Cause: fmt.Errorf("failed to decode record: %w", err)}
		}
		records[roles[i]] = record
	}
	return records, nil
}

// Save stores record under its role's key
func (r *RedisSnapshotter) Save(ctx context.Context, record domain.CredentialRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return &StoreError{Operation: "save", Role: record.Role, Cause: err}
	}
	if err := r.rdb.Set(ctx, r.key(record.Role), raw, r.ttl).Err(); err != nil {
		return &StoreError{Operation: "save", Role: record.Role, Cause: err}
	}
	return nil
}

// Delete removes the record of role
func (r *RedisSnapshotter) Delete(ctx context.Context, role domain.Role) error {
	if err := r.rdb.Del(ctx, r.key(role)).Err(); err != nil {
		return &StoreError{Operation: "delete", Role: role, Cause: err}
	}
	return nil
}

func (r *RedisSnapshotter) key(role domain.Role) string {
	return r.prefix + ":session:" + role.String()
}

var _ ports.CredentialSnapshotter = (*RedisSnapshotter)(nil)
