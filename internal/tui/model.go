// Package tui is an interactive terminal console for ad-hoc queries
// against the search index, bypassing the HTTP layer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"text2img/internal/domain"
)

// SearchPort is the TUI-facing subset of the Searcher.
type SearchPort interface {
	Query(ctx context.Context, text, vectorName string, topK int) ([]domain.SearchHit, error)
}

// Model is the Bubble Tea model for the search console.
type Model struct {
	searcher    SearchPort
	input       textinput.Model
	viewport    viewport.Model
	results     []domain.SearchHit
	vectorNames []string // toggled with tab
	vectorIdx   int
	status      string
	cursor      int
	ready       bool
}

// New creates a new console model. vectorNames are the two named
// vector spaces the user can toggle between.
func New(searcher SearchPort, vectorNames []string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter (tab toggles vector space)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		searcher:    searcher,
		input:       ti,
		viewport:    vp,
		vectorNames: vectorNames,
		status:      "Ready. Type to search.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			if len(m.vectorNames) > 0 {
				m.vectorIdx = (m.vectorIdx + 1) % len(m.vectorNames)
				m.status = fmt.Sprintf("Searching the %q vector space", m.currentVector())
			}
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				res, err := m.searcher.Query(ctx, q, m.currentVector(), 10)
				cancel()
				if err != nil {
					m.status = "Error: " + err.Error()
					m.results = nil
				} else {
					m.status = fmt.Sprintf("Results for %q in %q", q, m.currentVector())
					m.results = res
					m.cursor = 0
				}
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Text-to-Image Search")
	space := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).
		Render("vector space: " + m.currentVector())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + space + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) currentVector() string {
	if len(m.vectorNames) == 0 {
		return ""
	}
	return m.vectorNames[m.vectorIdx]
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%.3f", m.cursor+1, len(m.results), r.Score)
	var body strings.Builder
	body.WriteString(urlStyle.Render(r.ImageURL))
	body.WriteString("\n")
	for _, caption := range r.Captions {
		body.WriteString("\n  - " + caption)
	}
	return title + "\n\n" + body.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	urlStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
