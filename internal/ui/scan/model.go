package scan

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/freshcart/basket/internal/api"
	"github.com/freshcart/basket/internal/cache"
	"github.com/freshcart/basket/internal/ui/messages"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E44")).Bold(true).Padding(1, 0)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

// Catalog resolves barcodes to products.
type Catalog interface {
	GetProductByBarcode(ctx context.Context, barcode string) (*api.Product, error)
}

type lookupResultMsg struct {
	Product *api.Product
	Err     error
}

// Model is the barcode entry view. Scanners that act as keyboards type the
// code and press enter, so this doubles as the scan screen.
type Model struct {
	input   textinput.Model
	catalog Catalog
	cache   *cache.DB
	ttl     time.Duration
	err     string
	looking bool
	width   int
	height  int
}

// New creates a new scan view. db may be nil to skip the local cache.
func New(catalog Catalog, db *cache.DB, ttl time.Duration) Model {
	in := textinput.New()
	in.Placeholder = "EAN-13, UPC-A, EAN-8 or GTIN-14"
	in.CharLimit = 32
	in.Width = 32
	in.Focus()
	return Model{input: in, catalog: catalog, cache: db, ttl: ttl}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Err returns the error shown under the input.
func (m Model) Err() string {
	return m.err
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			if m.looking {
				return m, nil
			}
			code, err := api.NormalizeBarcode(m.input.Value())
			if err != nil {
				m.err = err.Error()
				return m, nil
			}
			m.err = ""
			m.looking = true
			return m, m.lookup(code)
		}

	case lookupResultMsg:
		m.looking = false
		if msg.Err != nil {
			if api.IsNotFound(msg.Err) {
				m.err = "No product found for that barcode"
			} else {
				m.err = msg.Err.Error()
			}
			return m, nil
		}
		m.input.SetValue("")
		id := msg.Product.ID
		return m, func() tea.Msg { return messages.OpenProductMsg{ProductID: id} }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) lookup(code string) tea.Cmd {
	catalog, db, ttl := m.catalog, m.cache, m.ttl
	return func() tea.Msg {
		if db != nil {
			if p, fresh, _ := db.GetProductByBarcode(code, ttl); fresh && p != nil {
				return lookupResultMsg{Product: p}
			}
		}
		p, err := catalog.GetProductByBarcode(context.Background(), code)
		if err != nil {
			return lookupResultMsg{Err: err}
		}
		if db != nil {
			db.PutProduct(p)
		}
		return lookupResultMsg{Product: p}
	}
}

// View renders the scan view.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Scan a barcode"))
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")
	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n\n")
	}
	if m.looking {
		sb.WriteString("Looking up...")
	} else {
		sb.WriteString(hintStyle.Render("Enter to look up | Esc to cancel"))
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}
