package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// runPager opens a scrollable TUI view of a module's disassembly,
// replacing a flat stdout dump with the kind of interactive REPL-style
// interface dr8co-kong's bubbletea REPL uses — here read-only, a pager
// rather than an evaluator, since this core never executes anything.
func runPager(title, body string) {
	p := tea.NewProgram(newPagerModel(title, body), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println("error running pager:", err)
	}
}

var (
	pagerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	pagerFooterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#767676"))
)

type pagerModel struct {
	title    string
	viewport viewport.Model
	ready    bool
	content  string
}

func newPagerModel(title, content string) pagerModel {
	return pagerModel{title: title, content: content}
}

func (m pagerModel) Init() tea.Cmd { return nil }

func (m pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		verticalMargin := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMargin)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMargin
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m pagerModel) View() string {
	if !m.ready {
		return "\n  loading disassembly...\n"
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}

func (m pagerModel) headerView() string {
	return pagerTitleStyle.Render(fmt.Sprintf(" %s ", m.title))
}

func (m pagerModel) footerView() string {
	percent := 0
	if m.viewport.TotalLineCount() > 0 {
		percent = int(m.viewport.ScrollPercent() * 100)
	}
	return pagerFooterStyle.Render(fmt.Sprintf("  %d%%  (q to quit, arrows/pgup/pgdn to scroll)", percent))
}
