package alerts

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/freshcart/basket/internal/cache"
	"github.com/freshcart/basket/internal/render"
	"github.com/freshcart/basket/internal/ui/messages"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E44")).Bold(true).Padding(1, 0)
	alertStyle     = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#333333")).Padding(0, 1)
	nameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	unreadDotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	dropStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#32CD32"))
	riseStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6347"))
)

// Model is the price alerts view.
type Model struct {
	alerts      []cache.PriceAlert
	selectedIdx int
	limit       int
	db          *cache.DB
	width       int
	height      int
}

// New creates a new alerts model showing up to limit alerts.
func New(db *cache.DB, limit int) Model {
	return Model{db: db, limit: limit}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Load reads the limit most recent alerts from the cache database.
func Load(db *cache.DB, limit int) tea.Cmd {
	return func() tea.Msg {
		alerts, err := db.GetAlerts(limit)
		return messages.AlertsLoadedMsg{Alerts: alerts, Err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.AlertsLoadedMsg:
		if msg.Err != nil {
			return m, func() tea.Msg {
				return messages.StatusMsg{Text: "Loading alerts failed: " + msg.Err.Error(), IsError: true}
			}
		}
		m.alerts = msg.Alerts
		if m.selectedIdx >= len(m.alerts) {
			m.selectedIdx = max(len(m.alerts)-1, 0)
		}

	case messages.PriceAlertMsg:
		return m, Load(m.db, m.limit)

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.selectedIdx < len(m.alerts)-1 {
				m.selectedIdx++
			}
		case "k", "up":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "A":
			db := m.db
			for i := range m.alerts {
				m.alerts[i].Read = true
			}
			return m, func() tea.Msg {
				db.MarkAllAlertsRead()
				return messages.PriceAlertMsg{UnreadCount: 0}
			}
		case "enter":
			if m.selectedIdx >= 0 && m.selectedIdx < len(m.alerts) {
				a := m.alerts[m.selectedIdx]
				m.alerts[m.selectedIdx].Read = true
				db := m.db
				return m, tea.Batch(
					func() tea.Msg {
						db.MarkAlertRead(a.ID)
						return messages.PriceAlertMsg{UnreadCount: db.UnreadAlertCount()}
					},
					func() tea.Msg { return messages.OpenProductMsg{ProductID: a.ProductID} },
				)
			}
		}
	}
	return m, nil
}

// View renders the alerts list.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Price alerts"))
	sb.WriteString("\n")

	if len(m.alerts) == 0 {
		sb.WriteString("\n  No price changes yet.\n")
		return sb.String()
	}

	for i, a := range m.alerts {
		var line strings.Builder

		if !a.Read {
			line.WriteString(unreadDotStyle.Render("● "))
		} else {
			line.WriteString("  ")
		}

		line.WriteString(nameStyle.Render(render.Truncate(a.ProductName, 40)))
		change := render.PriceChange(a.OldPriceCents, a.NewPriceCents, a.Currency)
		if a.Dropped() {
			line.WriteString(" " + dropStyle.Render(change))
		} else {
			line.WriteString(" " + riseStyle.Render(change))
		}
		line.WriteString("\n  ")
		line.WriteString(metaStyle.Render(render.Price(a.OldPriceCents, a.Currency) + " → " +
			render.Price(a.NewPriceCents, a.Currency) + " · " + render.TimeAgo(a.CreatedAt)))

		entry := line.String()
		if i == m.selectedIdx {
			entry = selectedStyle.Render(entry)
		} else {
			entry = alertStyle.Render(entry)
		}
		sb.WriteString(entry + "\n")
	}

	return sb.String()
}

// UnreadCount returns the number of unread alerts shown.
func (m Model) UnreadCount() int {
	count := 0
	for _, a := range m.alerts {
		if !a.Read {
			count++
		}
	}
	return count
}
