package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lexora:"

// SessionRepository stores sessions as JSON documents in Redis so several
// API replicas can serve the same conversation. Save is a plain SET; callers
// serialize turns with a Locker.
type SessionRepository struct {
	rdb     *redis.Client
	service string
	ttl     time.Duration
}

var _ contract.SessionRepository = &SessionRepository{}

// NewSessionRepository creates a Redis backed store for one service. Every
// Save refreshes the ttl; ttl <= 0 disables expiration.
func NewSessionRepository(rdb *redis.Client, service string, ttl time.Duration) *SessionRepository {
	if ttl < 0 {
		ttl = 0
	}
	return &SessionRepository{rdb: rdb, service: service, ttl: ttl}
}

func (r *SessionRepository) sessionKey(id string) string {
	return keyPrefix + r.service + ":session:" + id
}

func (r *SessionRepository) Save(ctx context.Context, session *store.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	if err := r.rdb.Set(ctx, r.sessionKey(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*store.Session, error) {
	data, err := r.rdb.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, contract.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var session store.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n == 0 {
		return contract.ErrSessionNotFound
	}
	return nil
}
