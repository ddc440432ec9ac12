package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

// RedisStore keeps the mapping in one hash: field = session id, value = JSON session.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts *redis.Options, key string) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: connect redis %s: %v", story.ErrStorage, opts.Addr, err)
	}
	return &RedisStore{client: client, key: key}, nil
}

func (s *RedisStore) LoadAll(ctx context.Context) (map[string]story.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall %s: %v", story.ErrStorage, s.key, err)
	}

	sessions := make(map[string]story.Session, len(fields))
	for id, raw := range fields {
		var sess story.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("%w: decode session %s: %v", story.ErrStorage, id, err)
		}
		sessions[id] = sess
	}
	return sessions, nil
}

// SaveAll replaces the hash inside MULTI/EXEC.
func (s *RedisStore) SaveAll(ctx context.Context, sessions map[string]story.Session) error {
	values := make(map[string]interface{}, len(sessions))
	for id, sess := range sessions {
		doc, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("%w: encode session %s: %v", story.ErrStorage, id, err)
		}
		values[id] = string(doc)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save sessions: %v", story.ErrStorage, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
