package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ryokaneoka0406/wise/internal/db"
)

func keyRunes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel(t *testing.T) (Model, *db.Store) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "wise.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	accountID, err := store.CreateOrUpdateAccount(ctx, "dev@example.com", "tok")
	if err != nil {
		t.Fatal(err)
	}
	sessionID, err := store.CreateSession(ctx, accountID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AppendMessage(ctx, sessionID, db.RoleUser, "show me sales"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AppendMessage(ctx, sessionID, db.RoleAssistant, "Echo: show me sales"); err != nil {
		t.Fatal(err)
	}

	m := NewModel(store)
	msg := m.fetchSessions()
	modelAny, _ := m.Update(msg)
	return modelAny.(Model), store
}

func TestListViewShowsSessions(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	view := m.listView()
	if !strings.Contains(view, "dev@example.com") {
		t.Errorf("account email missing:\n%s", view)
	}
	if !strings.Contains(view, "enter open") {
		t.Errorf("footer hint missing:\n%s", view)
	}
}

func TestListViewEmptyStore(t *testing.T) {
	t.Parallel()

	store, err := db.Open(filepath.Join(t.TempDir(), "wise.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	m := NewModel(store)
	modelAny, _ := m.Update(m.fetchSessions())
	m = modelAny.(Model)
	if !strings.Contains(m.listView(), "No sessions recorded yet.") {
		t.Errorf("empty placeholder missing:\n%s", m.listView())
	}
}

func TestEnterOpensTranscript(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	modelAny, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = modelAny.(Model)
	if m.selected == nil {
		t.Fatal("enter should select the session under the cursor")
	}
	if cmd == nil {
		t.Fatal("enter should schedule the transcript fetch")
	}

	modelAny, _ = m.Update(cmd())
	m = modelAny.(Model)
	view := m.View()
	if !strings.Contains(view, "user>") {
		t.Errorf("user message missing:\n%s", view)
	}
	if !strings.Contains(view, "show me sales") {
		t.Errorf("message content missing:\n%s", view)
	}
}

func TestQuitAndBackNavigation(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)

	// q on the list quits.
	_, cmd := m.handleKey(keyRunes('q'))
	if cmd == nil {
		t.Fatal("q on the list should quit")
	}

	// q on a transcript goes back to the list instead.
	modelAny, fetch := m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = modelAny.(Model)
	modelAny, _ = m.Update(fetch())
	m = modelAny.(Model)

	modelAny, cmd = m.handleKey(keyRunes('q'))
	m = modelAny.(Model)
	if cmd != nil {
		t.Error("q on a transcript must not quit")
	}
	if m.selected != nil {
		t.Error("q should return to the session list")
	}
}

func TestCursorBounds(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	modelAny, _ := m.handleKey(keyRunes('k'))
	m = modelAny.(Model)
	if m.cursor != 0 {
		t.Errorf("cursor moved above the first row: %d", m.cursor)
	}
	modelAny, _ = m.handleKey(keyRunes('j'))
	m = modelAny.(Model)
	if m.cursor != 0 {
		t.Errorf("single session, cursor must stay put: %d", m.cursor)
	}
}

func TestRenderTranscriptStylesRoles(t *testing.T) {
	t.Parallel()

	messages := []db.Message{
		{Role: db.RoleUser, Content: "hello", CreatedAt: "2025-03-14T09:26:53Z"},
		{Role: db.RoleAssistant, Content: "**bold** reply", CreatedAt: "2025-03-14T09:26:54Z"},
	}
	lines := renderTranscript(messages, 60)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "hello") {
		t.Errorf("user content missing:\n%s", joined)
	}
	if !strings.Contains(joined, "bold") {
		t.Errorf("assistant content missing:\n%s", joined)
	}
}
