package memory

import (
	"context"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
}

var _ contract.SessionRepository = &SessionRepository{}

// NewSessionRepository keeps sessions in process memory. A ttl <= 0 keeps
// them until they are deleted.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 10 * time.Minute
	}
	return &SessionRepository{
		cache: cache.New(expiration, cleanup),
	}
}

func (r *SessionRepository) Save(_ context.Context, session *store.Session) error {
	r.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Get(_ context.Context, sessionID string) (*store.Session, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session).Clone(), nil
	}
	return nil, contract.ErrSessionNotFound
}

func (r *SessionRepository) Delete(_ context.Context, sessionID string) error {
	if _, found := r.cache.Get(sessionID); !found {
		return contract.ErrSessionNotFound
	}
	r.cache.Delete(sessionID)
	return nil
}
