package ports

import "context"

// TokenStore is the durable credential storage shared across CLI invocations.
// Get returns domain.ErrTokenNotFound (wrapped) when the key is absent;
// Delete is a no-op for absent keys.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
