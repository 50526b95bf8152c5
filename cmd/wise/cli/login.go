package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ryokaneoka0406/wise/internal/auth"
	"github.com/ryokaneoka0406/wise/internal/config"
	"github.com/ryokaneoka0406/wise/internal/db"
)

var loginManual bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize a Google account and store its refresh token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var account *db.Account
		if loginManual {
			account, err = runManualLogin(cmd.Context(), store)
		} else {
			account, err = runLogin(cmd.Context(), cfg, store)
		}
		if err != nil {
			return err
		}

		if jsonOut {
			printJSON(map[string]any{"account_id": account.ID, "email": account.Email})
			return nil
		}
		fmt.Printf("Authorized as %s (account %d).\n", account.Email, account.ID)
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginManual, "manual", false, "paste a refresh token instead of using the browser flow")
	rootCmd.AddCommand(loginCmd)
}

// runLogin executes the browser OAuth flow and persists the account.
func runLogin(ctx context.Context, cfg *config.Config, store *db.Store) (*db.Account, error) {
	secrets, err := loadSecrets(cfg)
	if err != nil {
		return nil, err
	}
	return auth.Login(ctx, store, secrets, auth.LoginOptions{
		Out:         os.Stdout,
		OpenBrowser: openBrowser,
		PromptEmail: func() (string, error) {
			return promptLine("Google account email: ")
		},
	})
}

// runManualLogin stores a refresh token pasted by the user, with the token
// read without echo.
func runManualLogin(ctx context.Context, store *db.Store) (*db.Account, error) {
	email, err := promptLine("Google account email: ")
	if err != nil {
		return nil, err
	}
	fmt.Print("Refresh token (input hidden): ")
	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("read refresh token: %w", err)
	}
	return auth.SaveManualToken(ctx, store, email, string(tokenBytes))
}

func promptLine(label string) (string, error) {
	fmt.Print(label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
