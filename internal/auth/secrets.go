// Package auth runs the Google installed-app OAuth flow, resolves client
// secrets, and turns stored refresh tokens into authorized HTTP clients.
package auth

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

// userinfoURL is a var so tests can point it at a fake endpoint.
var userinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Scopes requested on login: identity for the account email plus read-only
// BigQuery access.
var Scopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/bigquery.readonly",
}

// ClientSecrets is the subset of a Google OAuth client JSON file we need.
type ClientSecrets struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

type secretsFile struct {
	Installed *ClientSecrets `json:"installed"`
	Web       *ClientSecrets `json:"web"`
	ClientSecrets
}

// ResolveSecretsPath picks the client secrets file location. Precedence:
// explicit (config/flag), WISE_GOOGLE_CLIENT_SECRETS, ./cred.json,
// ./client_secrets.json. The last fallback is returned even when absent so
// the error names a concrete path.
func ResolveSecretsPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("WISE_GOOGLE_CLIENT_SECRETS"); env != "" {
		return env
	}
	for _, name := range []string{"cred.json", "client_secrets.json"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return "cred.json"
}

// LoadSecrets reads and validates a client secrets JSON file. Both the
// "installed" and "web" wrapper shapes are accepted, installed preferred;
// a flat object works too.
func LoadSecrets(path string) (*ClientSecrets, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &ConfigError{Path: path, Msg: "file not found; set WISE_GOOGLE_CLIENT_SECRETS or place cred.json in the working directory"}
	}
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}

	var f secretsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &ConfigError{Path: path, Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}
	cs := &f.ClientSecrets
	if f.Installed != nil {
		cs = f.Installed
	} else if f.Web != nil {
		cs = f.Web
	}

	if cs.ClientID == "" {
		return nil, &ConfigError{Path: path, Msg: "missing client_id"}
	}
	if cs.ClientSecret == "" {
		return nil, &ConfigError{Path: path, Msg: "missing client_secret"}
	}
	if cs.AuthURI == "" {
		cs.AuthURI = defaultAuthURL
	}
	if cs.TokenURI == "" {
		cs.TokenURI = defaultTokenURL
	}
	return cs, nil
}

// oauthConfig builds the oauth2 configuration from loaded secrets. The
// redirect URL is filled in per login attempt.
func (cs *ClientSecrets) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cs.ClientID,
		ClientSecret: cs.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cs.AuthURI,
			TokenURL: cs.TokenURI,
		},
		Scopes:      Scopes,
		RedirectURL: redirectURL,
	}
}
