package ports

import "context"

// SecretStore keeps small secrets (the session encryption identity, an
// optional TOTP seed) out of the plain data directory.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
