package watchlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/freshcart/basket/internal/cache"
	"github.com/freshcart/basket/internal/ui/messages"
)

const emptyTitle = "Watchlist (empty: press s to scan a product)"

// Model is the watchlist view, the home screen.
type Model struct {
	list    list.Model
	cache   *cache.DB
	loading bool
	width   int
	height  int
}

// New creates a new watchlist model.
func New(db *cache.DB) Model {
	l := list.New(nil, Delegate{}, 0, 0)
	l.Title = "Watchlist"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)

	return Model{list: l, cache: db, loading: true}
}

// Init loads the watchlist.
func (m Model) Init() tea.Cmd {
	return Load(m.cache)
}

// Load reads the watchlist from the cache database.
func Load(db *cache.DB) tea.Cmd {
	return func() tea.Msg {
		items, err := db.GetWatchlist()
		return messages.WatchlistLoadedMsg{Items: items, Err: err}
	}
}

// SetSize updates the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h)
}

// Len returns the number of watched products shown.
func (m Model) Len() int {
	return len(m.list.Items())
}

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.WatchlistLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "Error: " + msg.Err.Error()
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.Items))
		for i, w := range msg.Items {
			items = append(items, WatchItem{WatchedProduct: w, Index: i})
		}
		cmd := m.list.SetItems(items)
		if len(items) == 0 {
			m.list.Title = emptyTitle
		} else {
			m.list.Title = fmt.Sprintf("Watchlist (%d)", len(items))
		}
		return m, cmd

	case messages.WatchToggledMsg:
		return m, Load(m.cache)

	case tea.KeyMsg:
		if m.Filtering() {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(WatchItem); ok {
				id := item.ProductID
				return m, func() tea.Msg { return messages.OpenProductMsg{ProductID: id} }
			}
		case "d", "x":
			if item, ok := m.list.SelectedItem().(WatchItem); ok {
				db := m.cache
				id := item.ProductID
				return m, func() tea.Msg {
					err := db.Unwatch(id)
					return messages.WatchToggledMsg{ProductID: id, Watched: false, Err: err}
				}
			}
		case "r", "ctrl+r":
			m.loading = true
			m.list.Title = "Watchlist (refreshing...)"
			return m, Load(m.cache)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the watchlist.
func (m Model) View() string {
	return m.list.View()
}
