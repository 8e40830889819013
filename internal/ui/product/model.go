package product

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/freshcart/basket/internal/api"
	"github.com/freshcart/basket/internal/cache"
	"github.com/freshcart/basket/internal/render"
	"github.com/freshcart/basket/internal/ui/messages"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E44")).Bold(true).Padding(1, 0, 0, 0)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	priceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	stockStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#32CD32"))
	noStockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6347"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	descStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
)

// Catalog fetches products by ID.
type Catalog interface {
	GetProduct(ctx context.Context, id int) (*api.Product, error)
}

// Model is the product detail view.
type Model struct {
	id       int
	product  *api.Product
	watched  bool
	signedIn bool
	loading  bool
	err      string
	catalog  Catalog
	cache    *cache.DB
	ttl      time.Duration
	vp       viewport.Model
	width    int
	height   int
}

// New creates a product view for id. Watching requires signedIn.
func New(id int, signedIn bool, catalog Catalog, db *cache.DB, ttl time.Duration) Model {
	return Model{
		id:       id,
		signedIn: signedIn,
		loading:  true,
		catalog:  catalog,
		cache:    db,
		ttl:      ttl,
		vp:       viewport.New(0, 0),
	}
}

// Init loads the product, preferring a fresh cached copy.
func (m Model) Init() tea.Cmd {
	return load(m.id, m.catalog, m.cache, m.ttl)
}

func load(id int, catalog Catalog, db *cache.DB, ttl time.Duration) tea.Cmd {
	return func() tea.Msg {
		cached, fresh, _ := db.GetProduct(id, ttl)
		if fresh && cached != nil {
			return messages.ProductLoadedMsg{Product: cached, Watched: db.IsWatched(id)}
		}
		fetched, err := catalog.GetProduct(context.Background(), id)
		if err != nil {
			if cached != nil {
				return messages.ProductLoadedMsg{Product: cached, Watched: db.IsWatched(id)}
			}
			return messages.ProductLoadedMsg{Err: err}
		}
		db.PutProduct(fetched)
		return messages.ProductLoadedMsg{Product: fetched, Watched: db.IsWatched(id)}
	}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.vp.Width = w
	m.vp.Height = max(h-8, 1)
	m.refreshBody()
}

// SetSignedIn updates whether the watch toggle is available.
func (m *Model) SetSignedIn(v bool) {
	m.signedIn = v
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.ProductLoadedMsg:
		if msg.Product != nil && msg.Product.ID != m.id {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.product = msg.Product
		m.watched = msg.Watched
		m.refreshBody()
		return m, nil

	case messages.WatchToggledMsg:
		if msg.ProductID != m.id {
			return m, nil
		}
		if msg.Err != nil {
			return m, statusCmd("Watchlist update failed: "+msg.Err.Error(), true)
		}
		m.watched = msg.Watched
		if msg.Watched {
			return m, statusCmd("Watching for price changes", false)
		}
		return m, statusCmd("Removed from watchlist", false)

	case tea.KeyMsg:
		switch msg.String() {
		case "w":
			if m.product == nil {
				return m, nil
			}
			if !m.signedIn {
				return m, func() tea.Msg { return messages.OpenLoginMsg{} }
			}
			return m, toggleWatch(m.cache, m.product, !m.watched)
		case "r":
			m.loading = true
			m.err = ""
			db := m.cache
			id := m.id
			db.InvalidateProduct(id)
			return m, load(id, m.catalog, db, m.ttl)
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func toggleWatch(db *cache.DB, p *api.Product, watch bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if watch {
			err = db.Watch(p)
		} else {
			err = db.Unwatch(p.ID)
		}
		return messages.WatchToggledMsg{ProductID: p.ID, Watched: watch && err == nil, Err: err}
	}
}

func statusCmd(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return messages.StatusMsg{Text: text, IsError: isErr} }
}

func (m *Model) refreshBody() {
	if m.product == nil {
		return
	}
	width := m.width - 4
	if width > 100 {
		width = 100
	}
	m.vp.SetContent(descStyle.Render(render.DescriptionToText(m.product.Description, width)))
}

// View renders the product.
func (m Model) View() string {
	if m.loading {
		return titleStyle.Render("Loading product...")
	}
	if m.err != "" {
		return titleStyle.Render("Error: " + m.err)
	}
	if m.product == nil {
		return titleStyle.Render("Product not found")
	}

	p := m.product
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(p.Name))
	sb.WriteString("\n")
	if p.Brand != "" {
		sb.WriteString(labelStyle.Render("Brand: ") + valueStyle.Render(p.Brand) + "\n")
	}
	price := priceStyle.Render(render.Price(p.PriceCents, p.Currency))
	if p.Unit != "" {
		price += valueStyle.Render(" / " + p.Unit)
	}
	sb.WriteString(labelStyle.Render("Price: ") + price + "\n")
	if p.InStock {
		sb.WriteString(stockStyle.Render("In stock"))
	} else {
		sb.WriteString(noStockStyle.Render("Out of stock"))
	}
	if !p.UpdatedAt.IsZero() {
		sb.WriteString(hintStyle.Render("  updated " + render.TimeAgo(p.UpdatedAt)))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.vp.View())
	sb.WriteString("\n\n")

	hint := "w: watch price | r: refresh | esc: back"
	if m.watched {
		hint = "w: stop watching | r: refresh | esc: back"
	}
	sb.WriteString(hintStyle.Render(hint))
	return sb.String()
}
