package repository

import (
	"context"

	"github.com/vibesocial/backend/domain"
)

// SessionRepository tracks live bearer tokens so logout can revoke a token
// before its JWT expiry.
type SessionRepository interface {
	Get(ctx context.Context, token string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, token string) error
	Extend(ctx context.Context, token string, ttlSeconds int) error
}
