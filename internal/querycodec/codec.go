// Package querycodec converts nested parameter structures to and from
// percent-encoded query strings.
//
// Encoding is deterministic: mapping entries are sorted after encoding so the
// same logical mapping always produces the same bytes, which signing and
// redirect URI construction rely on.
package querycodec

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// Escape percent-encodes s, leaving only RFC 3986 unreserved characters
// (ALPHA, DIGIT, "-", ".", "_", "~") as-is. Spaces become %20, never "+".
func Escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// Encode renders value as a query string.
//
// Mappings (any map with string-convertible keys) are encoded entry by entry
// and the encoded entries are sorted lexicographically before joining with "&".
// A sequence stored under key k is encoded element by element under "k[]" in
// its original order. A mapping nested in a mapping is encoded under
// "parent[child]". Anything else is a scalar and is rendered from its string
// form. A mapping used directly as a sequence element is treated as a scalar.
func Encode(value any) string {
	return encode(value, "")
}

func encode(value any, key string) string {
	rv := reflect.ValueOf(value)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return encodeScalar(key, nil)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return encodeScalar(key, nil)
	}

	switch rv.Kind() {
	case reflect.Map:
		pairs := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			if key != "" {
				k = key + "[" + k + "]"
			}
			if pair := encode(iter.Value().Interface(), k); pair != "" {
				pairs = append(pairs, pair)
			}
		}
		sort.Strings(pairs)
		return strings.Join(pairs, "&")
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return encodeScalar(key, string(bytesOf(rv)))
		}
		prefix := key + "[]"
		if key == "" {
			prefix = ""
		}
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			var part string
			if isMapping(elem) {
				part = encodeScalar(prefix, elem)
			} else {
				part = encode(elem, prefix)
			}
			if part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, "&")
	default:
		return encodeScalar(key, rv.Interface())
	}
}

func encodeScalar(key string, value any) string {
	s := ""
	if value != nil {
		s = fmt.Sprint(value)
	}
	if key == "" {
		return Escape(s)
	}
	return Escape(key) + "=" + Escape(s)
}

func isMapping(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv.IsValid() && rv.Kind() == reflect.Map
}

func bytesOf(rv reflect.Value) []byte {
	if rv.Kind() == reflect.Slice {
		return rv.Bytes()
	}
	b := make([]byte, rv.Len())
	for i := range b {
		b[i] = byte(rv.Index(i).Uint())
	}
	return b
}

// Decode parses a query string produced by Encode back into a mapping.
//
// Values are returned as strings. Keys ending in "[]" collect their values
// into a []string in order of appearance, and "parent[child]" keys build
// nested map[string]any values.
func Decode(query string) (map[string]any, error) {
	out := make(map[string]any)
	if query == "" {
		return out, nil
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("decoding key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decoding value for %q: %w", key, err)
		}
		assign(out, splitKey(key), value)
	}
	return out, nil
}

// splitKey turns "a[b][]" into ["a", "b", ""].
func splitKey(key string) []string {
	name, rest, found := strings.Cut(key, "[")
	if !found || !strings.HasSuffix(rest, "]") {
		return []string{key}
	}
	segs := []string{name}
	for _, seg := range strings.Split(strings.TrimSuffix(rest, "]"), "][") {
		segs = append(segs, seg)
	}
	return segs
}

func assign(m map[string]any, segs []string, value string) {
	head := segs[0]
	switch {
	case len(segs) == 1:
		m[head] = value
	case len(segs) == 2 && segs[1] == "":
		list, _ := m[head].([]string)
		m[head] = append(list, value)
	default:
		child, ok := m[head].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[head] = child
		}
		assign(child, segs[1:], value)
	}
}

// Compact returns a copy of params without blank values, so absent optional
// parameters never render as "key=". Blank means nil, an empty or
// whitespace-only string, false, or an empty collection.
func Compact(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if !IsBlank(v) {
			out[k] = v
		}
	}
	return out
}

// IsBlank reports whether v carries no value.
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return IsBlank(rv.Elem().Interface())
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() == 0
	}
	return false
}
