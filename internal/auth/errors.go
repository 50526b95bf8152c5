package auth

import "fmt"

// ConfigError reports unusable or missing OAuth client configuration.
type ConfigError struct {
	Path string
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("oauth client configuration: %s", e.Msg)
	}
	return fmt.Sprintf("oauth client configuration %s: %s", e.Path, e.Msg)
}

// MissingCredentialError reports an account that cannot authorize API calls
// because it holds no refresh token.
type MissingCredentialError struct {
	Email string
}

func (e *MissingCredentialError) Error() string {
	if e.Email == "" {
		return "no refresh token available; run login first"
	}
	return fmt.Sprintf("account %s has no refresh token; run login first", e.Email)
}
