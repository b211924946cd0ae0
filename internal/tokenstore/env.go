package tokenstore

import (
	"context"
	"fmt"
	"os"

	"github.com/florianilch/oauth2grant/internal/grant"
)

// EnvStore provides read-only access to a grant stored in an environment variable.
// Suitable for static tokens but not refresh (requires writable storage).
type EnvStore struct {
	envKey string
}

// Compile-time check to ensure EnvStore implements GrantStore
var _ GrantStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given environment variable.
// Returns error if the variable name is empty or not set in the environment.
func NewEnvStore(envKey string) (*EnvStore, error) {
	if envKey == "" {
		return nil, fmt.Errorf("environment key cannot be empty")
	}

	if _, exists := os.LookupEnv(envKey); !exists {
		return nil, fmt.Errorf("environment variable %s not set", envKey)
	}

	return &EnvStore{
		envKey: envKey,
	}, nil
}

// Load parses the variable as a JSON document or a bare access token.
func (e *EnvStore) Load(ctx context.Context) (grant.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attrs, err := decode(os.Getenv(e.envKey))
	if err != nil {
		return nil, fmt.Errorf("environment variable %s: %w", e.envKey, err)
	}
	return attrs, nil
}

// Save is not supported for environment variables (they are read-only).
func (e *EnvStore) Save(ctx context.Context, _ grant.Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("environment variable storage is read-only")
}
