package register

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/freshcart/basket/internal/auth"
	"github.com/freshcart/basket/internal/ui/messages"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E44")).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Width(10)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	roleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).Padding(0, 1)
	roleOnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#2E9E44")).Padding(0, 1)
	roleFocusMark = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E44")).Render("> ")
)

// Roles offered on the form, in display order.
var Roles = []string{"Customer", "Staff", "Admin"}

type field int

const (
	fieldUsername field = iota
	fieldEmail
	fieldPassword
	fieldRole
	fieldCount
)

// Registrar creates an account.
type Registrar interface {
	Register(ctx context.Context, u auth.NewUser) (auth.Session, error)
}

// Model is the registration form.
type Model struct {
	usernameInput textinput.Model
	emailInput    textinput.Model
	passwordInput textinput.Model
	role          int
	focused       field
	reg           Registrar
	err           string
	submitting    bool
	width         int
	height        int
}

// New creates a new registration form.
func New(r Registrar) Model {
	un := textinput.New()
	un.Placeholder = "username"
	un.Focus()
	un.CharLimit = 64
	un.Width = 40

	em := textinput.New()
	em.Placeholder = "you@example.com"
	em.CharLimit = 254
	em.Width = 40

	pw := textinput.New()
	pw.Placeholder = "at least 8 characters"
	pw.EchoMode = textinput.EchoPassword
	pw.Width = 40

	return Model{
		usernameInput: un,
		emailInput:    em,
		passwordInput: pw,
		focused:       fieldUsername,
		reg:           r,
	}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	fw := w - 16
	if fw > 60 {
		fw = 60
	}
	m.usernameInput.Width = fw
	m.emailInput.Width = fw
	m.passwordInput.Width = fw
}

// Submitting reports whether a register request is in flight.
func (m Model) Submitting() bool {
	return m.submitting
}

// Err returns the error shown under the form.
func (m Model) Err() string {
	return m.err
}

// Role returns the selected role.
func (m Model) Role() string {
	return Roles[m.role]
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focused = (m.focused + 1) % fieldCount
			return m, m.updateFocus()
		case "shift+tab", "up":
			m.focused = (m.focused + fieldCount - 1) % fieldCount
			return m, m.updateFocus()
		case "left", "right":
			if m.focused == fieldRole {
				if msg.String() == "right" {
					m.role = (m.role + 1) % len(Roles)
				} else {
					m.role = (m.role + len(Roles) - 1) % len(Roles)
				}
				return m, nil
			}
		case "enter", "ctrl+s":
			if m.submitting {
				return m, nil
			}
			u := auth.NewUser{
				Username: strings.TrimSpace(m.usernameInput.Value()),
				Email:    strings.TrimSpace(m.emailInput.Value()),
				Password: m.passwordInput.Value(),
				Role:     Roles[m.role],
			}
			if err := u.Validate(); err != nil {
				m.err = err.Error()
				return m, nil
			}
			m.submitting = true
			m.err = ""
			r := m.reg
			return m, func() tea.Msg {
				s, err := r.Register(context.Background(), u)
				return messages.AuthResultMsg{Op: auth.OpRegister, Session: s, Err: err}
			}
		}

	case messages.AuthResultMsg:
		if msg.Op != auth.OpRegister {
			return m, nil
		}
		m.submitting = false
		if msg.Err != nil {
			m.err = auth.DisplayMessage(msg.Err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focused {
	case fieldUsername:
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	case fieldEmail:
		m.emailInput, cmd = m.emailInput.Update(msg)
	case fieldPassword:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) updateFocus() tea.Cmd {
	m.usernameInput.Blur()
	m.emailInput.Blur()
	m.passwordInput.Blur()
	switch m.focused {
	case fieldUsername:
		return m.usernameInput.Focus()
	case fieldEmail:
		return m.emailInput.Focus()
	case fieldPassword:
		return m.passwordInput.Focus()
	}
	return nil
}

// View renders the registration form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Create an account"))
	sb.WriteString("\n\n")

	sb.WriteString(labelStyle.Render("username") + " " + m.usernameInput.View())
	sb.WriteString("\n\n")
	sb.WriteString(labelStyle.Render("email") + " " + m.emailInput.View())
	sb.WriteString("\n\n")
	sb.WriteString(labelStyle.Render("password") + " " + m.passwordInput.View())
	sb.WriteString("\n\n")

	sb.WriteString(labelStyle.Render("role") + " ")
	if m.focused == fieldRole {
		sb.WriteString(roleFocusMark)
	}
	for i, r := range Roles {
		if i == m.role {
			sb.WriteString(roleOnStyle.Render(r))
		} else {
			sb.WriteString(roleStyle.Render(r))
		}
	}
	sb.WriteString("\n\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n")
	}

	if m.submitting {
		sb.WriteString("Creating account...")
	} else {
		sb.WriteString(hintStyle.Render("Tab to switch fields | ←/→ to pick a role | Enter to submit | Esc to cancel"))
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
