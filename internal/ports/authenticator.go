package ports

import (
	"context"

	"github.com/vrsleep/vrsleep/internal/domain"
)

// Authenticator owns the login/2FA/logout protocol and the in-memory
// session. Every other component treats it as the precondition gate for
// API calls.
type Authenticator interface {
	Login(ctx context.Context, username string, password string) (domain.LoginResult, error)
	VerifyTwoFactor(ctx context.Context, kind domain.TwoFactorKind, code string) (domain.User, error)
	Logout(ctx context.Context) error
	Status(ctx context.Context) domain.AuthStatus
	ReadyForAPI(ctx context.Context) bool
}
