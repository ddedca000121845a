package storage

import (
	"context"
)

// CredentialStore persists the single serialized credential record across
// process restarts. Implementations must make Delete idempotent.
type CredentialStore interface {
	// Load returns the stored record or model.ErrCredentialNotFound
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}
