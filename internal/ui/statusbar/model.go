package statusbar

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/freshcart/basket/internal/auth"
)

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FFFFFF"))

	brandStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2E9E44")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	viewStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#555555")).
			Foreground(lipgloss.Color("#CCCCCC")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	pendingStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FFD700")).
			Padding(0, 1)

	notifyStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#FF0000")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	statusTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B0000")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)
)

// Model is the status bar at the bottom of the screen.
type Model struct {
	width       int
	view        string
	session     auth.Session
	unreadCount int
	statusText  string
	statusErr   bool
}

// New creates a new status bar.
func New() Model {
	return Model{view: "Watchlist", session: auth.Session{Status: auth.StatusIdle}}
}

// SetSize sets the width.
func (m *Model) SetSize(w int) {
	m.width = w
}

// SetView sets the label of the active view.
func (m *Model) SetView(label string) {
	m.view = label
}

// SetSession shows the current authentication state.
func (m *Model) SetSession(s auth.Session) {
	m.session = s
}

// SetUnread sets the unread alert count.
func (m *Model) SetUnread(count int) {
	m.unreadCount = count
}

// SetStatus sets a temporary status message.
func (m *Model) SetStatus(text string, isErr bool) {
	m.statusText = text
	m.statusErr = isErr
}

// Update is a no-op for the status bar.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SessionLabel is the text describing s on the bar.
func SessionLabel(s auth.Session) string {
	switch s.Status {
	case auth.StatusPending:
		if s.InFlight() == auth.OpRegister {
			return "creating account..."
		}
		return "signing in..."
	case auth.StatusSucceeded:
		if s.User == nil {
			return ""
		}
		if s.User.Role != "" {
			return fmt.Sprintf("%s (%s)", s.User.Name, s.User.Role)
		}
		return s.User.Name
	case auth.StatusFailed:
		return s.ErrorMessage()
	default:
		return "L:login R:register"
	}
}

// View renders the status bar.
func (m Model) View() string {
	left := brandStyle.Render("basket") + viewStyle.Render(m.view)

	var right string
	if m.unreadCount > 0 {
		right += notifyStyle.Render(fmt.Sprintf(" %d ", m.unreadCount))
	}
	label := SessionLabel(m.session)
	switch m.session.Status {
	case auth.StatusPending:
		right += pendingStyle.Render(label)
	case auth.StatusSucceeded:
		right += userStyle.Render(label)
	case auth.StatusFailed:
		right += errorStyle.Render(label)
	default:
		right += statusTextStyle.Render(label)
	}
	if m.statusText != "" {
		if m.statusErr {
			right += errorStyle.Render(m.statusText)
		} else {
			right += statusTextStyle.Render(m.statusText)
		}
	}

	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	gap := m.width - leftWidth - rightWidth
	if gap < 0 {
		gap = 0
	}
	mid := barStyle.Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, mid, right)
}
