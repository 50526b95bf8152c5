package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ryokaneoka0406/wise/internal/db"
)

// LoginOptions tweak the interactive login flow.
type LoginOptions struct {
	// Out receives user-facing prompts and the authorization URL.
	Out io.Writer
	// PromptEmail is consulted when the userinfo endpoint yields no email.
	PromptEmail func() (string, error)
	// OpenBrowser launches the authorization URL. nil means print-only.
	OpenBrowser func(url string) error
	// Timeout bounds the wait for the browser redirect. Defaults to 5m.
	Timeout time.Duration
}

// Login runs the installed-app OAuth flow: loopback listener, browser
// hand-off, code exchange with offline access, then upserts the account
// with the issued refresh token. Consent is forced so the provider always
// issues a refresh token.
func Login(ctx context.Context, store *db.Store, secrets *ClientSecrets, opts LoginOptions) (*db.Account, error) {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start loopback listener: %w", err)
	}
	defer lis.Close()

	redirect := fmt.Sprintf("http://%s/", lis.Addr().String())
	conf := secrets.oauthConfig(redirect)
	state, err := randomState()
	if err != nil {
		return nil, err
	}

	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	fmt.Fprintf(opts.Out, "Open the following URL in your browser to authorize:\n\n  %s\n\n", authURL)
	if opts.OpenBrowser != nil {
		if err := opts.OpenBrowser(authURL); err != nil {
			slog.Warn("could not launch browser", "error", err)
		}
	}

	code, err := waitForCode(ctx, lis, state, opts.Timeout)
	if err != nil {
		return nil, err
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, &MissingCredentialError{}
	}

	email := fetchEmail(ctx, conf, token)
	if email == "" && opts.PromptEmail != nil {
		email, err = opts.PromptEmail()
		if err != nil {
			return nil, fmt.Errorf("read account email: %w", err)
		}
		email = strings.TrimSpace(email)
	}
	if email == "" {
		return nil, fmt.Errorf("could not determine the account email")
	}

	return upsertAccount(ctx, store, email, token.RefreshToken)
}

// SaveManualToken stores a refresh token obtained outside the browser flow,
// for environments where a loopback redirect cannot work.
func SaveManualToken(ctx context.Context, store *db.Store, email, refreshToken string) (*db.Account, error) {
	email = strings.TrimSpace(email)
	refreshToken = strings.TrimSpace(refreshToken)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if refreshToken == "" {
		return nil, &MissingCredentialError{Email: email}
	}
	return upsertAccount(ctx, store, email, refreshToken)
}

// TokenSource returns a self-refreshing token source backed by the
// account's refresh token.
func TokenSource(ctx context.Context, secrets *ClientSecrets, account *db.Account) (oauth2.TokenSource, error) {
	if account == nil || account.RefreshToken == "" {
		email := ""
		if account != nil {
			email = account.Email
		}
		return nil, &MissingCredentialError{Email: email}
	}
	conf := secrets.oauthConfig("")
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken}), nil
}

// HTTPClient wraps TokenSource into an authorized *http.Client for API
// calls.
func HTTPClient(ctx context.Context, secrets *ClientSecrets, account *db.Account) (*http.Client, error) {
	ts, err := TokenSource(ctx, secrets, account)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

func upsertAccount(ctx context.Context, store *db.Store, email, refreshToken string) (*db.Account, error) {
	id, err := store.CreateOrUpdateAccount(ctx, email, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("persist account: %w", err)
	}
	account, err := store.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slog.Info("account authorized", "email", email, "account_id", id)
	return account, nil
}

// waitForCode serves the redirect endpoint until one authorization code
// arrives, the timeout fires, or ctx is done.
func waitForCode(ctx context.Context, lis net.Listener, state string, timeout time.Duration) (string, error) {
	type outcome struct {
		code string
		err  error
	}
	results := make(chan outcome, 1)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errCode := q.Get("error"); errCode != "" {
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
			results <- outcome{err: fmt.Errorf("authorization denied: %s", errCode)}
			return
		}
		if q.Get("state") != state {
			http.Error(w, "State mismatch. You can close this window.", http.StatusBadRequest)
			results <- outcome{err: fmt.Errorf("oauth state mismatch")}
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			results <- outcome{err: fmt.Errorf("redirect carried no authorization code")}
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window and return to the terminal.")
		results <- outcome{code: code}
	})}
	go srv.Serve(lis)
	defer srv.Close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		return res.code, res.err
	case <-timer.C:
		return "", fmt.Errorf("timed out waiting for the browser redirect")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// fetchEmail asks the OIDC userinfo endpoint for the account email. Any
// failure degrades to an empty string; the caller prompts instead.
func fetchEmail(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) string {
	client := conf.Client(ctx, token)
	client.Timeout = 10 * time.Second

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return ""
	}
	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("userinfo fetch failed", "error", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("userinfo fetch failed", "status", resp.StatusCode)
		return ""
	}
	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ""
	}
	return info.Email
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
