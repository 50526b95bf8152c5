package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/ryokaneoka0406/wise/internal/db"
)

func openTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "wise.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestLoginEndToEnd drives the whole flow against fake endpoints: the
// OpenBrowser hook plays the user's browser by following the redirect back
// to the loopback listener.
func TestLoginEndToEnd(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if got := r.Form.Get("code"); got != "auth-code-1" {
			t.Errorf("code = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer tokenSrv.Close()

	userinfoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"email": "dev@example.com"})
	}))
	defer userinfoSrv.Close()

	orig := userinfoURL
	userinfoURL = userinfoSrv.URL
	defer func() { userinfoURL = orig }()

	secrets := &ClientSecrets{
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		AuthURI:      "https://example.com/auth",
		TokenURI:     tokenSrv.URL,
	}
	store := openTestStore(t)

	account, err := Login(context.Background(), store, secrets, LoginOptions{
		Timeout: 10 * time.Second,
		OpenBrowser: func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			redirect := u.Query().Get("redirect_uri")
			state := u.Query().Get("state")
			if u.Query().Get("access_type") != "offline" {
				t.Error("access_type=offline missing from auth URL")
			}
			if u.Query().Get("prompt") != "consent" {
				t.Error("prompt=consent missing from auth URL")
			}
			go func() {
				resp, err := http.Get(redirect + "?state=" + state + "&code=auth-code-1")
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if account.Email != "dev@example.com" {
		t.Errorf("email = %q", account.Email)
	}
	if account.RefreshToken != "rt-1" {
		t.Errorf("refresh token = %q", account.RefreshToken)
	}

	// A second login for the same email rotates the token in place.
	stored, err := store.GetAccountByEmail(context.Background(), "dev@example.com")
	if err != nil || stored == nil {
		t.Fatalf("lookup: account=%v err=%v", stored, err)
	}
	if stored.ID != account.ID {
		t.Errorf("account id mismatch: %d vs %d", stored.ID, account.ID)
	}
}

func TestLoginRejectsMissingRefreshToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1",
			"token_type":   "Bearer",
		})
	}))
	defer tokenSrv.Close()

	secrets := &ClientSecrets{
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		AuthURI:      "https://example.com/auth",
		TokenURI:     tokenSrv.URL,
	}
	store := openTestStore(t)

	_, err := Login(context.Background(), store, secrets, LoginOptions{
		Timeout: 10 * time.Second,
		OpenBrowser: func(authURL string) error {
			u, _ := url.Parse(authURL)
			redirect := u.Query().Get("redirect_uri")
			state := u.Query().Get("state")
			go func() {
				resp, err := http.Get(redirect + "?state=" + state + "&code=c")
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
	})
	var credErr *MissingCredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected MissingCredentialError, got %v", err)
	}
}

func TestLoginStateMismatchFails(t *testing.T) {
	secrets := &ClientSecrets{
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		AuthURI:      "https://example.com/auth",
		TokenURI:     "https://example.com/token",
	}
	store := openTestStore(t)

	_, err := Login(context.Background(), store, secrets, LoginOptions{
		Timeout: 10 * time.Second,
		OpenBrowser: func(authURL string) error {
			u, _ := url.Parse(authURL)
			redirect := u.Query().Get("redirect_uri")
			go func() {
				resp, err := http.Get(redirect + "?state=wrong&code=c")
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
	})
	if err == nil {
		t.Fatal("expected state mismatch to fail the login")
	}
}

func TestSaveManualToken(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	account, err := SaveManualToken(context.Background(), store, " dev@example.com ", " rt-manual ")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if account.Email != "dev@example.com" || account.RefreshToken != "rt-manual" {
		t.Errorf("unexpected account: %+v", account)
	}

	if _, err := SaveManualToken(context.Background(), store, "dev@example.com", "  "); err == nil {
		t.Error("blank token should fail")
	}
	if _, err := SaveManualToken(context.Background(), store, "", "rt"); err == nil {
		t.Error("blank email should fail")
	}
}

func TestTokenSourceRequiresRefreshToken(t *testing.T) {
	t.Parallel()

	secrets := &ClientSecrets{ClientID: "id", ClientSecret: "s", AuthURI: "a", TokenURI: "t"}

	_, err := TokenSource(context.Background(), secrets, &db.Account{Email: "dev@example.com"})
	var credErr *MissingCredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected MissingCredentialError, got %v", err)
	}
	if credErr.Email != "dev@example.com" {
		t.Errorf("error email = %q", credErr.Email)
	}

	if _, err := TokenSource(context.Background(), secrets, nil); err == nil {
		t.Error("nil account should fail")
	}
}
