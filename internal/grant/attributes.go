package grant

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/florianilch/oauth2grant/internal/querycodec"
)

// Attribute keys understood by the constructors.
const (
	KeyAccessToken  = "access_token"
	KeyTokenType    = "token_type"
	KeyRefreshToken = "refresh_token"
	KeyExpiresIn    = "expires_in"
	KeyExpires      = "expires" // pre-final servers
	KeyScope        = "scope"
	KeyMACKey       = "mac_key"
	KeyMACAlgorithm = "mac_algorithm"
)

// Attributes is the raw attribute bag returned by a token endpoint, typically
// decoded from JSON or a form body.
type Attributes map[string]any

// String returns the attribute as a string, or "" when it is absent or blank.
func (a Attributes) String(key string) string {
	v, ok := a[key]
	if !ok || querycodec.IsBlank(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// missing returns the keys among required that are absent or blank.
func (a Attributes) missing(required ...string) []string {
	var out []string
	for _, key := range required {
		if a.String(key) == "" {
			out = append(out, key)
		}
	}
	return out
}

// Metadata extracts the part of a grant a refresh may replace.
func (a Attributes) Metadata() Metadata {
	return Metadata{
		RefreshToken: a.String(KeyRefreshToken),
		ExpiresIn:    a.expiresIn(),
		Scope:        a.scope(),
	}
}

// expiresIn prefers expires_in and falls back to expires. Values that cannot
// be read as an integer count as absent.
func (a Attributes) expiresIn() *int {
	for _, key := range []string{KeyExpiresIn, KeyExpires} {
		if v, ok := a[key]; ok {
			if n, ok := toInt(v); ok {
				return &n
			}
		}
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint32:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case float32:
		return toInt(float64(t))
	case json.Number:
		return toInt(t.String())
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return toInt(f)
		}
	}
	return 0, false
}

// scope accepts a space-separated string or a sequence of strings.
func (a Attributes) scope() []string {
	switch t := a[KeyScope].(type) {
	case string:
		return strings.Fields(t)
	case []string:
		return nonEmpty(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			out = append(out, fmt.Sprint(v))
		}
		return nonEmpty(out)
	}
	return nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
