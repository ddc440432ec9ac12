// Package session persists story sessions as one document keyed by session id.
//
// Every backend loads and saves the whole mapping. A single SaveAll is applied
// atomically; concurrent read-modify-write cycles are not serialized here.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/config"
	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

// Store loads and replaces the full session mapping.
type Store interface {
	LoadAll(ctx context.Context) (map[string]story.Session, error)
	SaveAll(ctx context.Context, sessions map[string]story.Session) error
	Close() error
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory session store, sessions are lost on restart")
		return NewMemoryStore(), nil
	case config.BackendFile, "":
		store, err := NewFileStore(cfg.SessionsPath())
		if err != nil {
			return nil, err
		}
		logger.Info("using file session store", zap.String("path", store.Path()))
		return store, nil
	case config.BackendSQLite:
		path := cfg.DatabasePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create data dir: %v", story.ErrStorage, err)
		}
		logger.Info("using sqlite session store", zap.String("path", path))
		return OpenSQLiteStore(ctx, path)
	case config.BackendRedis:
		logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr), zap.String("key", cfg.RedisKey))
		return NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("unknown session store backend %q", cfg.Backend)
	}
}

func cloneAll(sessions map[string]story.Session) map[string]story.Session {
	out := make(map[string]story.Session, len(sessions))
	for id, s := range sessions {
		out[id] = s.Clone()
	}
	return out
}
