package ports

import (
	"context"

	"github.com/vrsleep/vrsleep/internal/domain"
)

// SessionRepository persists the authenticated session encrypted at
// rest. Load fails closed: a missing file, a decryption failure, or
// malformed contents all surface as domain.ErrNoSession, never as a
// fatal error. Save fails loudly when no encryption capability exists.
type SessionRepository interface {
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Clear(ctx context.Context) error
}
