package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel is the bubbletea model for a yes/no prompt.
type confirmModel struct {
	question string
	answer   bool
	decided  bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			m.answer = true
			m.decided = true
			return m, tea.Quit
		case "n", "N", "q", "esc", "ctrl+c", "enter":
			m.answer = false
			m.decided = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.decided {
		return ""
	}
	return StyleWarning.Render(m.question) + StyleDim.Render(" [y/N] ")
}

// confirmAdvisory asks the user a yes/no question on the terminal.
// Defaults to no on anything but an explicit "y".
func confirmAdvisory(question string) (bool, error) {
	p := tea.NewProgram(confirmModel{question: question})
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	m, ok := final.(confirmModel)
	if !ok {
		return false, nil
	}
	return m.answer, nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
