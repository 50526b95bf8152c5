// Package tui is the interactive browser for stored chat sessions.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ryokaneoka0406/wise/internal/db"
)

// ── Styles ──────────────────────────────────────────────────────────────────

const pad = 2 // horizontal padding on each side

var (
	frameStyle    = lipgloss.NewStyle().Padding(1, pad)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("37"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	errStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	roleStyle     = map[string]lipgloss.Style{
		db.RoleUser:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		db.RoleAssistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		db.RoleSystem:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

// ── Model ───────────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the session browser.
//
// Navigation depth:
//
//	selected == nil → Level 1 (session list)
//	selected != nil → Level 2 (transcript)
type Model struct {
	store *db.Store

	// Level 1: session list
	sessions []db.Session
	cursor   int

	// Level 2: transcript
	selected *db.Session
	lines    []string
	scroll   int

	width  int
	height int
	err    error
}

type sessionsMsg struct {
	sessions []db.Session
	err      error
}

type transcriptMsg struct {
	messages []db.Message
	err      error
}

// NewModel builds the browser over an open store.
func NewModel(store *db.Store) Model {
	return Model{store: store, width: 80, height: 24}
}

func (m Model) Init() tea.Cmd { return m.fetchSessions }

func (m Model) fetchSessions() tea.Msg {
	sessions, err := m.store.ListSessions(context.Background())
	return sessionsMsg{sessions: sessions, err: err}
}

func (m Model) fetchTranscript() tea.Msg {
	messages, err := m.store.ListMessages(context.Background(), m.selected.ID)
	return transcriptMsg{messages: messages, err: err}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case sessionsMsg:
		m.err = msg.err
		m.sessions = msg.sessions
		if m.cursor >= len(m.sessions) {
			m.cursor = 0
		}
		return m, nil
	case transcriptMsg:
		m.err = msg.err
		m.lines = renderTranscript(msg.messages, m.cw())
		m.scroll = 0
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// cw is the content width inside the frame padding.
func (m Model) cw() int {
	w := m.width - 2*pad
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.selected != nil {
		return m.handleKeyTranscript(key)
	}
	return m.handleKeyList(key)
}

func (m Model) handleKeyList(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sessions)-1 {
			m.cursor++
		}
	case "r":
		return m, m.fetchSessions
	case "enter":
		if len(m.sessions) == 0 {
			return m, nil
		}
		m.selected = &m.sessions[m.cursor]
		return m, m.fetchTranscript
	}
	return m, nil
}

func (m Model) handleKeyTranscript(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc":
		m.selected = nil
		m.lines = nil
		m.scroll = 0
	case "up", "k":
		if m.scroll > 0 {
			m.scroll--
		}
	case "down", "j":
		if m.scroll < m.maxScroll() {
			m.scroll++
		}
	case "g":
		m.scroll = 0
	case "G":
		m.scroll = m.maxScroll()
	}
	return m, nil
}

func (m Model) maxScroll() int {
	max := len(m.lines) - m.viewportHeight()
	if max < 0 {
		max = 0
	}
	return max
}

// viewportHeight leaves room for the title and footer rows.
func (m Model) viewportHeight() int {
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

// renderTranscript turns stored messages into terminal-styled lines.
// Assistant messages go through glamour since replies may carry Markdown.
func renderTranscript(messages []db.Message, width int) []string {
	lines := []string{}
	for _, msg := range messages {
		style, ok := roleStyle[msg.Role]
		if !ok {
			style = dimStyle
		}
		lines = append(lines, style.Render(msg.Role+">")+" "+dimStyle.Render(msg.CreatedAt))
		if msg.Role == db.RoleAssistant {
			lines = append(lines, renderMarkdown(msg.Content, width)...)
		} else {
			lines = append(lines, strings.Split(msg.Content, "\n")...)
		}
		lines = append(lines, "")
	}
	return lines
}

// renderMarkdown renders text as terminal-styled markdown via glamour.
// Falls back to the raw text when rendering fails.
func renderMarkdown(text string, width int) []string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return strings.Split(text, "\n")
	}
	out, err := r.Render(text)
	if err != nil {
		return strings.Split(text, "\n")
	}
	// Trim trailing newlines that glamour adds.
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

// ── Views ───────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.selected != nil {
		return frameStyle.Render(m.transcriptView())
	}
	return frameStyle.Render(m.listView())
}

func (m Model) listView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("wise sessions"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n\n")
	}
	if len(m.sessions) == 0 {
		b.WriteString(dimStyle.Render("No sessions recorded yet.") + "\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-6s %-28s %-24s %s", "ID", "ACCOUNT", "STARTED", "MSGS")))
		b.WriteString("\n")
		for i, s := range m.sessions {
			row := fmt.Sprintf("%-6d %-28s %-24s %d", s.ID, s.Email, s.StartedAt, s.MessageCount)
			if i == m.cursor {
				row = selectedStyle.Render("> " + row)
			} else {
				row = "  " + row
			}
			b.WriteString(row + "\n")
		}
	}
	b.WriteString("\n" + dimStyle.Render("↑/↓ move · enter open · r refresh · q quit"))
	return b.String()
}

func (m Model) transcriptView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("session %d", m.selected.ID)))
	b.WriteString(dimStyle.Render("  " + m.selected.Email + "  " + m.selected.StartedAt))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n\n")
	}

	h := m.viewportHeight()
	end := m.scroll + h
	if end > len(m.lines) {
		end = len(m.lines)
	}
	if len(m.lines) == 0 {
		b.WriteString(dimStyle.Render("No messages in this session.") + "\n")
	}
	for _, line := range m.lines[min(m.scroll, len(m.lines)):end] {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("↑/↓ scroll · g/G top/bottom · q back"))
	return b.String()
}
