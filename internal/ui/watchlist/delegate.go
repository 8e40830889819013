package watchlist

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/freshcart/basket/internal/render"
)

var (
	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	selectedNameStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#2E9E44"))

	priceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F0C674"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#828282"))

	inStockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2E9E44"))

	outOfStockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CC3333"))

	cursor = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#2E9E44")).
		Render("›")
)

// Delegate draws a watched product as a name and price line above a
// stock and freshness line.
type Delegate struct{}

func (d Delegate) Height() int                             { return 2 }
func (d Delegate) Spacing() int                            { return 1 }
func (d Delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d Delegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(WatchItem)
	if !ok {
		return
	}

	price := priceStyle.Render(render.Price(item.LastPriceCents, item.Currency))
	// Two columns for the cursor, one space before the price.
	room := m.Width() - 2 - lipgloss.Width(price) - 1
	if room < 8 {
		room = 8
	}
	name := render.Truncate(item.Title(), room)

	lead := "  "
	if index == m.Index() {
		lead = cursor + " "
		name = selectedNameStyle.Render(name)
	} else {
		name = nameStyle.Render(name)
	}
	gap := m.Width() - 2 - lipgloss.Width(name) - lipgloss.Width(price)
	if gap < 1 {
		gap = 1
	}

	fmt.Fprintf(w, "%s%s%*s%s\n  %s", lead, name, gap, "", price, stockLine(item))
}

func stockLine(item WatchItem) string {
	badge := outOfStockStyle.Render("out of stock")
	if item.InStock {
		badge = inStockStyle.Render("in stock")
	}
	return badge + metaStyle.Render(" · "+item.Description())
}
