package contract

import (
	"context"
	"errors"

	"github.com/Dots-Uzbekistan/Lexora/pkg/store"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists chat sessions together with their workflow state.
// Get and Delete return ErrSessionNotFound for unknown ids. Implementations
// hand out copies, so a caller mutating a loaded session changes nothing
// until Save.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*store.Session, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, id string) error
}
