package grant

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"hash"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var macHeaderPattern = regexp.MustCompile(`^MAC id="([^"]*)", ts="(\d+)", nonce="([^"]+)", mac="([^"]+)"$`)

type macHeader struct {
	id, ts, nonce, mac string
}

func parseMACHeader(t *testing.T, value string) macHeader {
	t.Helper()
	m := macHeaderPattern.FindStringSubmatch(value)
	if m == nil {
		t.Fatalf("malformed MAC header: %q", value)
	}
	return macHeader{id: m[1], ts: m[2], nonce: m[3], mac: m[4]}
}

func fixedClock() time.Time {
	return time.Unix(1700000000, 0)
}

func newTestMAC(t *testing.T, algorithm string) *MAC {
	t.Helper()
	g, err := NewMAC(Attributes{
		KeyAccessToken:  "h480djs93hd8",
		KeyMACKey:       "489dks293j39",
		KeyMACAlgorithm: algorithm,
	}, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewMAC() error = %v", err)
	}
	return g
}

func TestMAC_Authenticate(t *testing.T) {
	tests := []struct {
		algorithm string
		newHash   func() hash.Hash
	}{
		{algorithm: "hmac-sha-1", newHash: sha1.New},
		{algorithm: "hmac-sha-256", newHash: sha256.New},
		{algorithm: "HMAC-SHA-256", newHash: sha256.New},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			g := newTestMAC(t, tt.algorithm)

			req := httptest.NewRequest(http.MethodPost, "http://example.com:8080/resource/1?b=1&a=2", nil)
			if err := g.Authenticate(req); err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}

			h := parseMACHeader(t, req.Header.Get("Authorization"))
			if h.id != "h480djs93hd8" {
				t.Errorf("id = %q", h.id)
			}
			if h.ts != "1700000000" {
				t.Errorf("ts = %q, want 1700000000", h.ts)
			}

			normalized := h.ts + "\n" + h.nonce + "\nPOST\n/resource/1?b=1&a=2\nexample.com\n8080\n\n"
			mac := hmac.New(tt.newHash, []byte("489dks293j39"))
			mac.Write([]byte(normalized))
			want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
			if h.mac != want {
				t.Errorf("mac = %q, want %q", h.mac, want)
			}
		})
	}
}

func TestMAC_DefaultPorts(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://example.com/", want: "443"},
		{url: "http://example.com/", want: "80"},
		{url: "https://example.com:9443/", want: "9443"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.url, nil)
		if got := requestPort(req); got != tt.want {
			t.Errorf("requestPort(%s) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestMAC_FreshNoncePerRequest(t *testing.T) {
	g := newTestMAC(t, "hmac-sha-256")

	sign := func() macHeader {
		req := httptest.NewRequest(http.MethodGet, "https://example.com/resource", nil)
		if err := g.Authenticate(req); err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		return parseMACHeader(t, req.Header.Get("Authorization"))
	}

	first, second := sign(), sign()
	if first.nonce == second.nonce {
		t.Error("nonce reused across requests")
	}
	if first.mac == second.mac {
		t.Error("identical signatures for separate requests")
	}
}

func TestMAC_ConcurrentSigning(t *testing.T) {
	g := newTestMAC(t, "hmac-sha-256")

	var (
		mu     sync.Mutex
		nonces = make(map[string]bool)
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := macHeaderPattern.FindStringSubmatch(r.Header.Get("Authorization"))
		if m == nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mu.Lock()
		nonces[m[3]] = true
		mu.Unlock()
	}))
	defer server.Close()

	const requests = 20
	var wg sync.WaitGroup
	var failures atomic.Int32
	for range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := g.Get(context.Background(), server.URL)
			if err != nil {
				failures.Add(1)
				return
			}
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d requests failed", failures.Load())
	}
	if len(nonces) != requests {
		t.Errorf("got %d distinct nonces, want %d", len(nonces), requests)
	}
}

func TestMAC_SigningErrorWithoutKey(t *testing.T) {
	var dispatched atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dispatched.Store(true)
	}))
	defer server.Close()

	for _, attrs := range []Attributes{
		{KeyAccessToken: "abc", KeyMACAlgorithm: "hmac-sha-1"},
		{KeyAccessToken: "abc", KeyMACKey: "secret"},
	} {
		g, err := NewMAC(attrs)
		if err != nil {
			t.Fatalf("NewMAC() error = %v", err)
		}

		_, err = g.Get(context.Background(), server.URL)
		if !errors.Is(err, ErrSigning) {
			t.Errorf("Get() error = %v, want ErrSigning", err)
		}
	}
	if dispatched.Load() {
		t.Error("unsigned request reached the server")
	}
}

func TestNewMAC_UnsupportedAlgorithm(t *testing.T) {
	_, err := NewMAC(Attributes{KeyAccessToken: "abc", KeyMACKey: "k", KeyMACAlgorithm: "hmac-md5"})
	if err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}
