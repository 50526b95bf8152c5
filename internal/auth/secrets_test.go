package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSecretsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cred.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveSecretsPathPrecedence(t *testing.T) {
	t.Setenv("WISE_GOOGLE_CLIENT_SECRETS", "/env/cred.json")

	if got := ResolveSecretsPath("/explicit/cred.json"); got != "/explicit/cred.json" {
		t.Errorf("explicit path should win, got %q", got)
	}
	if got := ResolveSecretsPath(""); got != "/env/cred.json" {
		t.Errorf("env should win over cwd fallback, got %q", got)
	}
}

func TestResolveSecretsPathDefaultsToCredJSON(t *testing.T) {
	t.Setenv("WISE_GOOGLE_CLIENT_SECRETS", "")

	// Neither cwd candidate exists in the test working directory, so the
	// default name is returned for error reporting.
	if got := ResolveSecretsPath(""); got != "cred.json" {
		t.Errorf("default = %q, want cred.json", got)
	}
}

func TestLoadSecretsInstalledShape(t *testing.T) {
	t.Parallel()

	path := writeSecretsFile(t, `{
		"installed": {
			"client_id": "id-1",
			"client_secret": "secret-1",
			"auth_uri": "https://example.com/auth",
			"token_uri": "https://example.com/token"
		}
	}`)
	cs, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cs.ClientID != "id-1" || cs.ClientSecret != "secret-1" {
		t.Errorf("unexpected secrets: %+v", cs)
	}
	if cs.AuthURI != "https://example.com/auth" || cs.TokenURI != "https://example.com/token" {
		t.Errorf("endpoints not preserved: %+v", cs)
	}
}

func TestLoadSecretsPrefersInstalledOverWeb(t *testing.T) {
	t.Parallel()

	path := writeSecretsFile(t, `{
		"web": {"client_id": "web-id", "client_secret": "web-secret"},
		"installed": {"client_id": "app-id", "client_secret": "app-secret"}
	}`)
	cs, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cs.ClientID != "app-id" {
		t.Errorf("client id = %q, want app-id", cs.ClientID)
	}
}

func TestLoadSecretsFlatShapeAndEndpointDefaults(t *testing.T) {
	t.Parallel()

	path := writeSecretsFile(t, `{"client_id": "flat-id", "client_secret": "flat-secret"}`)
	cs, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cs.ClientID != "flat-id" {
		t.Errorf("client id = %q", cs.ClientID)
	}
	if cs.AuthURI != defaultAuthURL || cs.TokenURI != defaultTokenURL {
		t.Errorf("google endpoints should be filled in: %+v", cs)
	}
}

func TestLoadSecretsErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"missing client_id", `{"client_secret": "s"}`},
		{"missing client_secret", `{"client_id": "id"}`},
		{"invalid json", `{not json`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeSecretsFile(t, tc.content)
			_, err := LoadSecrets(path)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Path != path {
				t.Errorf("error path = %q, want %q", cfgErr.Path, path)
			}
		})
	}
}

func TestLoadSecretsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadSecrets(filepath.Join(t.TempDir(), "absent.json"))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
