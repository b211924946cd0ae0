package grant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestNew_SchemeFromTokenType(t *testing.T) {
	tests := []struct {
		name      string
		tokenType any
		want      Scheme
	}{
		{name: "absent defaults to bearer", tokenType: nil, want: SchemeBearer},
		{name: "bearer", tokenType: "Bearer", want: SchemeBearer},
		{name: "mac", tokenType: "mac", want: SchemeMAC},
		{name: "legacy", tokenType: "legacy", want: SchemeLegacy},
		{name: "oauth alias", tokenType: "OAuth", want: SchemeLegacy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := Attributes{KeyAccessToken: "token"}
			if tt.tokenType != nil {
				attrs[KeyTokenType] = tt.tokenType
			}
			g, err := New(attrs)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if g.Scheme() != tt.want {
				t.Errorf("Scheme() = %q, want %q", g.Scheme(), tt.want)
			}
		})
	}
}

func TestNew_UnsupportedTokenType(t *testing.T) {
	_, err := New(Attributes{KeyAccessToken: "token", KeyTokenType: "dpop"})
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("New() error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestConstructors_MissingAccessToken(t *testing.T) {
	constructors := map[string]func(Attributes) error{
		"bearer": func(a Attributes) error { _, err := NewBearer(a); return err },
		"legacy": func(a Attributes) error { _, err := NewLegacy(a); return err },
		"mac":    func(a Attributes) error { _, err := NewMAC(a); return err },
	}

	for name, construct := range constructors {
		for _, attrs := range []Attributes{nil, {}, {KeyAccessToken: ""}, {KeyRefreshToken: "r"}} {
			err := construct(attrs)
			if !errors.Is(err, ErrMissingAttribute) {
				t.Errorf("%s(%v) error = %v, want ErrMissingAttribute", name, attrs, err)
				continue
			}
			var missing *MissingAttributeError
			if !errors.As(err, &missing) || !reflect.DeepEqual(missing.Attributes, []string{KeyAccessToken}) {
				t.Errorf("%s: missing attributes = %v", name, missing)
			}
		}
	}
}

func TestExpiresInCoercion(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name  string
		attrs Attributes
		want  *int
	}{
		{name: "absent", attrs: Attributes{}, want: nil},
		{name: "int", attrs: Attributes{KeyExpiresIn: 3600}, want: intPtr(3600)},
		{name: "float from JSON", attrs: Attributes{KeyExpiresIn: float64(120)}, want: intPtr(120)},
		{name: "numeric string", attrs: Attributes{KeyExpiresIn: " 60 "}, want: intPtr(60)},
		{name: "json number", attrs: Attributes{KeyExpiresIn: json.Number("90")}, want: intPtr(90)},
		{name: "invalid string", attrs: Attributes{KeyExpiresIn: "soon"}, want: nil},
		{name: "legacy expires", attrs: Attributes{KeyExpires: "30"}, want: intPtr(30)},
		{name: "expires_in wins", attrs: Attributes{KeyExpiresIn: 10, KeyExpires: 20}, want: intPtr(10)},
		{name: "invalid expires_in falls back", attrs: Attributes{KeyExpiresIn: "x", KeyExpires: 20}, want: intPtr(20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.attrs[KeyAccessToken] = "token"
			g, err := NewBearer(tt.attrs)
			if err != nil {
				t.Fatalf("NewBearer() error = %v", err)
			}
			if got := g.Metadata().ExpiresIn; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpiresIn = %v, want %v", deref(got), deref(tt.want))
			}
		})
	}
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestScopeParsing(t *testing.T) {
	tests := []struct {
		name  string
		scope any
		want  []string
	}{
		{name: "space separated", scope: "read  write", want: []string{"read", "write"}},
		{name: "string slice", scope: []string{"read", "", "write"}, want: []string{"read", "write"}},
		{name: "JSON array", scope: []any{"read", "write"}, want: []string{"read", "write"}},
		{name: "absent", scope: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewBearer(Attributes{KeyAccessToken: "token", KeyScope: tt.scope})
			if err != nil {
				t.Fatalf("NewBearer() error = %v", err)
			}
			if got := g.Metadata().Scope; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Scope = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestTokenResponse(t *testing.T) {
	g, err := NewBearer(Attributes{
		KeyAccessToken:  "abc",
		KeyRefreshToken: "ref",
		KeyExpiresIn:    "3600",
		KeyScope:        []string{"read", "write"},
	})
	if err != nil {
		t.Fatalf("NewBearer() error = %v", err)
	}

	data, err := json.Marshal(g.TokenResponse())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"access_token":"abc","refresh_token":"ref","token_type":"bearer","expires_in":3600,"scope":"read write"}`
	if string(data) != want {
		t.Errorf("TokenResponse JSON = %s, want %s", data, want)
	}
}

func TestTokenResponse_AbsentFieldsNotOmitted(t *testing.T) {
	g, err := NewLegacy(Attributes{KeyAccessToken: "abc"})
	if err != nil {
		t.Fatalf("NewLegacy() error = %v", err)
	}

	data, err := json.Marshal(g.TokenResponse())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"access_token":"abc","refresh_token":null,"token_type":"legacy","expires_in":null,"scope":""}`
	if string(data) != want {
		t.Errorf("TokenResponse JSON = %s, want %s", data, want)
	}
}

func TestTokenResponse_Params(t *testing.T) {
	g, err := NewBearer(Attributes{KeyAccessToken: "abc", KeyExpiresIn: 60})
	if err != nil {
		t.Fatalf("NewBearer() error = %v", err)
	}

	want := map[string]any{
		KeyAccessToken: "abc",
		KeyTokenType:   "bearer",
		KeyScope:       "",
		KeyExpiresIn:   60,
	}
	if got := g.TokenResponse().Params(); !reflect.DeepEqual(got, want) {
		t.Errorf("Params() = %#v, want %#v", got, want)
	}
}

func TestRenew_ReplacesMetadataWholesale(t *testing.T) {
	g, err := NewBearer(Attributes{
		KeyAccessToken:  "abc",
		KeyRefreshToken: "old",
		KeyExpiresIn:    60,
		KeyScope:        "read",
	})
	if err != nil {
		t.Fatalf("NewBearer() error = %v", err)
	}

	scope := []string{"read", "write"}
	g.Renew(Metadata{RefreshToken: "new", Scope: scope})
	scope[0] = "mutated"

	meta := g.Metadata()
	if meta.RefreshToken != "new" || meta.ExpiresIn != nil {
		t.Errorf("Metadata() = %+v, want refresh token new and no expiry", meta)
	}
	if !reflect.DeepEqual(meta.Scope, []string{"read", "write"}) {
		t.Errorf("Scope = %v, renewed scope aliased caller slice", meta.Scope)
	}
	if g.AccessToken() != "abc" || g.Scheme() != SchemeBearer {
		t.Error("identity fields changed on renew")
	}

	meta.Scope[0] = "changed"
	if g.Metadata().Scope[0] != "read" {
		t.Error("Metadata() returned shared scope slice")
	}
}

func TestLegacy_String(t *testing.T) {
	g, err := NewLegacy(Attributes{KeyAccessToken: "fb-token"})
	if err != nil {
		t.Fatalf("NewLegacy() error = %v", err)
	}
	if g.String() != "fb-token" {
		t.Errorf("String() = %q, want %q", g.String(), "fb-token")
	}
}

func TestVerbMethods_SignRequests(t *testing.T) {
	tests := []struct {
		name     string
		attrs    Attributes
		wantAuth string
	}{
		{name: "bearer", attrs: Attributes{KeyAccessToken: "abc"}, wantAuth: "Bearer abc"},
		{name: "legacy", attrs: Attributes{KeyAccessToken: "abc", KeyTokenType: "legacy"}, wantAuth: "OAuth abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotUA string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotUA = r.Header.Get("User-Agent")
			}))
			defer server.Close()

			g, err := New(tt.attrs)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			resp, err := g.Delete(context.Background(), server.URL+"/resource/1")
			if err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			_ = resp.Body.Close()

			if gotAuth != tt.wantAuth {
				t.Errorf("Authorization = %q, want %q", gotAuth, tt.wantAuth)
			}
			if wantUA := "oauth2grant/" + string(g.Scheme()) + " (dev)"; gotUA != wantUA {
				t.Errorf("User-Agent = %q, want %q", gotUA, wantUA)
			}
		})
	}
}

func TestAuthenticate_DoesNotTouchBodyOrURL(t *testing.T) {
	g, err := NewBearer(Attributes{KeyAccessToken: "abc"})
	if err != nil {
		t.Fatalf("NewBearer() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "https://api.example.com/items?x=1", nil)
	if err := g.Authenticate(req); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if req.URL.String() != "https://api.example.com/items?x=1" || req.ContentLength != 0 {
		t.Error("Authenticate changed URL or body")
	}
	if req.Header.Get("Authorization") != "Bearer abc" {
		t.Errorf("Authorization = %q", req.Header.Get("Authorization"))
	}
}
