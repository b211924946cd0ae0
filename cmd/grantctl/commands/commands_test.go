package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", pairs: nil, want: map[string]any{}},
		{name: "single", pairs: []string{"a=1"}, want: map[string]any{"a": "1"}},
		{name: "value with equals", pairs: []string{"q=a=b"}, want: map[string]any{"q": "a=b"}},
		{name: "empty value", pairs: []string{"a="}, want: map[string]any{"a": ""}},
		{
			name:  "repeated key",
			pairs: []string{"s=read", "s=write", "s=admin"},
			want:  map[string]any{"s": []string{"read", "write", "admin"}},
		},
		{name: "missing equals", pairs: []string{"novalue"}, wantErr: true},
		{name: "empty key", pairs: []string{"=x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.pairs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseParams() = %v, want %v", got, tt.want)
			}
		})
	}
}

// run executes the CLI in a test-safe way and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &errOut
	cmd.Reader = strings.NewReader(stdin)
	cmd.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := cmd.Run(context.Background(), append([]string{"grantctl", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestRedirectBuild(t *testing.T) {
	out, err := run(t, "",
		"redirect", "build",
		"--redirect--base-uri", "https://app.example.com/cb?state=xyz",
		"--param", "code=abc", "--param", "scope=read", "--param", "scope=write",
	)
	if err != nil {
		t.Fatalf("redirect build error = %v", err)
	}
	want := "https://app.example.com/cb?state=xyz&code=abc&scope%5B%5D=read&scope%5B%5D=write\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRedirectBuild_Fragment(t *testing.T) {
	out, err := run(t, "",
		"redirect", "build",
		"--redirect--base-uri", "https://app.example.com/cb",
		"--location", "fragment",
		"--param", "access_token=t 1",
	)
	if err != nil {
		t.Fatalf("redirect build error = %v", err)
	}
	if want := "https://app.example.com/cb#access_token=t%201\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRedirectBuild_RequiresBase(t *testing.T) {
	if _, err := run(t, "", "redirect", "build", "--param", "a=b"); err == nil {
		t.Error("redirect build without base URI should fail")
	}
}

func TestRedirectCheck(t *testing.T) {
	base := "https://app.example.com/cb"

	out, err := run(t, "", "redirect", "check", "--redirect--base-uri", base, "https://app.example.com/cb/deep")
	if err != nil {
		t.Fatalf("trusted candidate error = %v", err)
	}
	if !strings.HasPrefix(out, "trusted:") {
		t.Errorf("output = %q, want trusted", out)
	}

	_, err = run(t, "", "redirect", "check", "--redirect--base-uri", base, "https://evil.example.com/cb")
	var exitErr cli.ExitCoder
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Errorf("untrusted candidate error = %v, want exit code 1", err)
	}
}

func TestTokenSaveShowAndRequest(t *testing.T) {
	grantFile := filepath.Join(t.TempDir(), "grant.json")
	storage := []string{"--storage--file", grantFile}

	out, err := run(t, "tok123\n", append(storage,
		"token", "save", "--refresh-token", "ref456", "--expires-in", "3600", "--scope", "read write")...)
	if err != nil {
		t.Fatalf("token save error = %v", err)
	}

	var saved map[string]any
	if err := json.Unmarshal([]byte(out), &saved); err != nil {
		t.Fatalf("token save output is not JSON: %v\n%s", err, out)
	}
	if saved["access_token"] != "tok123" || saved["token_type"] != "bearer" {
		t.Errorf("saved = %v", saved)
	}

	out, err = run(t, "", append(storage, "token", "show")...)
	if err != nil {
		t.Fatalf("token show error = %v", err)
	}
	var shown map[string]any
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("token show output is not JSON: %v\n%s", err, out)
	}
	want := map[string]any{
		"access_token":  "tok123",
		"refresh_token": "ref456",
		"token_type":    "bearer",
		"expires_in":    float64(3600),
		"scope":         "read write",
	}
	if !reflect.DeepEqual(shown, want) {
		t.Errorf("token show = %v, want %v", shown, want)
	}

	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = r.ParseForm()
		gotBody = r.PostForm.Encode()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	out, err = run(t, "", append(storage, "request", "-X", "POST", "-d", "name=x", server.URL+"/items")...)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok123")
	}
	if gotBody != "name=x" {
		t.Errorf("body = %q, want name=x", gotBody)
	}
	if want := "201 POST " + server.URL + "/items (2 bytes)\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestTokenSave_EmptyInput(t *testing.T) {
	grantFile := filepath.Join(t.TempDir(), "grant.json")
	if _, err := run(t, "", "--storage--file", grantFile, "token", "save"); err == nil {
		t.Error("token save without an access token should fail")
	}
}

func TestTokenRefresh_Disabled(t *testing.T) {
	grantFile := filepath.Join(t.TempDir(), "grant.json")
	if _, err := run(t, "tok\n", "--storage--file", grantFile, "token", "save"); err != nil {
		t.Fatalf("token save error = %v", err)
	}
	if _, err := run(t, "", "--storage--file", grantFile, "token", "refresh"); err == nil {
		t.Error("token refresh without a token endpoint should fail")
	}
}

func TestRequest_NoURL(t *testing.T) {
	if _, err := run(t, "", "request"); err == nil {
		t.Error("request without URL should fail")
	}
}
