package tokenstore

import (
	"context"

	"github.com/florianilch/oauth2grant/internal/grant"
)

// GrantStore loads and saves grant attributes.
type GrantStore interface {
	// Load returns the stored attributes. Returns error if nothing is stored.
	Load(ctx context.Context) (grant.Attributes, error)

	// Save persists attrs, replacing what was stored. Returns error if the
	// backend is read-only (e.g., environment variables) or the write fails.
	Save(ctx context.Context, attrs grant.Attributes) error
}
