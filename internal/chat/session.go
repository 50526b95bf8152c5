package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"

	"github.com/ryokaneoka0406/wise/internal/db"
)

var (
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Run starts an interactive chat session. The first account holding a
// refresh token is used; when none exists the login flow runs first. Every
// exchange is persisted to the session transcript.
func Run(ctx context.Context, deps *Deps, historyFile string) error {
	account, err := deps.Store.ActiveAccount(ctx)
	if err != nil {
		return fmt.Errorf("look up accounts: %w", err)
	}
	if account == nil {
		fmt.Fprintln(deps.Out, noticeStyle.Render("No authorized account found; starting Google login."))
		account, err = deps.Login(ctx)
		if err != nil {
			return fmt.Errorf("initial login: %w", err)
		}
	}

	sessionID, err := deps.Store.CreateSession(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	slog.Info("chat session started", "session_id", sessionID, "email", account.Email)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	say := func(reply string) {
		fmt.Fprintf(deps.Out, "%s %s\n", assistantStyle.Render("assistant>"), reply)
	}
	say("Session started. Type 'exit' to leave, /help for commands.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		switch strings.ToLower(text) {
		case "exit", "quit":
			say("Goodbye!")
			return nil
		}

		if strings.HasPrefix(text, "/") || strings.HasPrefix(text, `\`) {
			if handled, reply := deps.Handle(ctx, text); handled {
				if reply != "" {
					say(reply)
				}
				continue
			}
			// Unknown commands fall through and are kept as plain messages.
		}

		if _, err := deps.Store.AppendMessage(ctx, sessionID, db.RoleUser, text); err != nil {
			return fmt.Errorf("persist user message: %w", err)
		}
		reply := "Echo: " + text
		say(reply)
		if _, err := deps.Store.AppendMessage(ctx, sessionID, db.RoleAssistant, reply); err != nil {
			return fmt.Errorf("persist assistant message: %w", err)
		}
	}
	say("Goodbye!")
	return nil
}
