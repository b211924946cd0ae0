package tokenstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/florianilch/oauth2grant/internal/grant"
)

var errEmpty = errors.New("no grant stored")

// encode renders attrs as the JSON document every backend stores.
func encode(attrs grant.Attributes) (string, error) {
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encoding grant attributes: %w", err)
	}
	return string(data), nil
}

// decode accepts a JSON document or, for hand-provisioned secrets, a bare
// access token.
func decode(raw string) (grant.Attributes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errEmpty
	}
	if !strings.HasPrefix(raw, "{") {
		return grant.Attributes{grant.KeyAccessToken: raw}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	// keeps expires_in exact
	dec.UseNumber()
	var attrs grant.Attributes
	if err := dec.Decode(&attrs); err != nil {
		return nil, fmt.Errorf("decoding grant attributes: %w", err)
	}
	return attrs, nil
}
