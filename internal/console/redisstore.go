package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of go-redis used by the session store.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisSessionStore keeps sessions in Redis so they survive console
// restarts. Keys expire with the session.
type RedisSessionStore struct {
	client      redisClient
	serviceName string
	logger      aqm.Logger
}

func NewRedisSessionStore(addr, serviceName string, logger aqm.Logger) *RedisSessionStore {
	return newRedisSessionStore(redis.NewClient(&redis.Options{Addr: addr}), serviceName, logger)
}

func newRedisSessionStore(client redisClient, serviceName string, logger aqm.Logger) *RedisSessionStore {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &RedisSessionStore{
		client:      client,
		serviceName: serviceName,
		logger:      logger,
	}
}

func (s *RedisSessionStore) key(id string) string {
	return fmt.Sprintf("%s:session:%s", s.serviceName, id)
}

func (s *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("cannot encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(session.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cannot save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("cannot decode session: %w", err)
	}

	if session.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}

	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("cannot delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Start(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cannot reach Redis: %w", err)
	}
	s.logger.Info("Connected to Redis session store")
	return nil
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessionStore) Stop(ctx context.Context) error {
	return s.client.Close()
}
