package tokenstore

import (
	"context"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/florianilch/oauth2grant/internal/grant"
)

// KeyringStore keeps the grant in OS-native secure credential storage.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements GrantStore
var _ GrantStore = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Load returns the grant from the system keyring. Returns error if not found or empty.
func (k *KeyringStore) Load(ctx context.Context) (grant.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	secret, err := keyring.Get(k.service, k.user)
	if err != nil {
		return nil, err
	}

	attrs, err := decode(secret)
	if err != nil {
		return nil, fmt.Errorf("keyring service %s, user %s: %w", k.service, k.user, err)
	}
	return attrs, nil
}

// Save writes the grant to the system keyring, overwriting any existing value.
func (k *KeyringStore) Save(ctx context.Context, attrs grant.Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := encode(attrs)
	if err != nil {
		return err
	}
	return keyring.Set(k.service, k.user, doc)
}
