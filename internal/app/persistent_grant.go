package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/florianilch/oauth2grant/internal/grant"
	"github.com/florianilch/oauth2grant/internal/tokenstore"
)

// GrantFactory creates an access grant from stored attributes.
type GrantFactory func(attrs grant.Attributes) (grant.AccessGrant, error)

// grantState pairs a grant with the attributes it was built from, which
// include secrets (MAC key) the grant itself never exposes again.
type grantState struct {
	attrs grant.Attributes
	grant grant.AccessGrant
}

// PersistentGrant wraps a GrantStore with a lazily loaded, replaceable grant.
// Loading is deferred to avoid I/O during application startup.
type PersistentGrant struct {
	factory GrantFactory
	store   tokenstore.GrantStore

	initial func() (*grantState, error)
	current atomic.Pointer[grantState]
	writeMu sync.Mutex
}

// NewPersistentGrant creates a PersistentGrant.
// No I/O is performed until the first Grant call.
func NewPersistentGrant(factory GrantFactory, store tokenstore.GrantStore) (*PersistentGrant, error) {
	if factory == nil {
		return nil, fmt.Errorf("missing grant factory")
	}
	if store == nil {
		return nil, fmt.Errorf("missing grant store")
	}

	p := &PersistentGrant{
		factory: factory,
		store:   store,
	}
	p.initial = sync.OnceValues(p.load)

	return p, nil
}

// load performs one-time initialization from the store.
func (p *PersistentGrant) load() (*grantState, error) {
	// sync.OnceValues offers no context; the first load is short and local.
	attrs, err := p.store.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load grant: %w", err)
	}

	g, err := p.factory(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to construct grant: %w", err)
	}
	return &grantState{attrs: attrs, grant: g}, nil
}

func (p *PersistentGrant) state() (*grantState, error) {
	if s := p.current.Load(); s != nil {
		return s, nil
	}
	s, err := p.initial()
	if err != nil {
		return nil, err
	}
	p.current.CompareAndSwap(nil, s)
	return p.current.Load(), nil
}

// Grant returns the current grant, loading it on first use.
func (p *PersistentGrant) Grant() (grant.AccessGrant, error) {
	s, err := p.state()
	if err != nil {
		return nil, err
	}
	return s.grant, nil
}

// Attributes returns a copy of the attributes behind the current grant.
func (p *PersistentGrant) Attributes() (grant.Attributes, error) {
	s, err := p.state()
	if err != nil {
		return nil, err
	}
	return maps.Clone(s.attrs), nil
}

// Replace builds a grant from attrs, persists attrs and makes the grant
// current. If only refresh metadata changed, the current grant is renewed in
// place instead, since its token and scheme cannot change.
func (p *PersistentGrant) Replace(ctx context.Context, attrs grant.Attributes) (grant.AccessGrant, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	cur := p.current.Load()
	renew := cur != nil && sameIdentity(cur.attrs, attrs)

	var built grant.AccessGrant
	if !renew {
		var err error
		// Validate before anything is written
		if built, err = p.factory(attrs); err != nil {
			return nil, fmt.Errorf("failed to construct grant: %w", err)
		}
	}

	if err := p.store.Save(ctx, attrs); err != nil {
		slog.ErrorContext(ctx, "failed to persist grant", "error", err)
		return nil, fmt.Errorf("failed to persist grant: %w", err)
	}

	g := built
	if renew {
		cur.grant.Renew(attrs.Metadata())
		g = cur.grant
	}
	p.current.Store(&grantState{attrs: maps.Clone(attrs), grant: g})
	return g, nil
}

// sameIdentity reports whether a and b describe the same token, scheme and key.
func sameIdentity(a, b grant.Attributes) bool {
	for _, key := range []string{grant.KeyAccessToken, grant.KeyTokenType, grant.KeyMACKey, grant.KeyMACAlgorithm} {
		if a.String(key) != b.String(key) {
			return false
		}
	}
	return true
}
