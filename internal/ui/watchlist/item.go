package watchlist

import (
	"strconv"
	"strings"

	"github.com/freshcart/basket/internal/cache"
	"github.com/freshcart/basket/internal/render"
)

// WatchItem wraps a watched product for the bubbles list.
type WatchItem struct {
	cache.WatchedProduct
	Index int
}

func (w WatchItem) Title() string {
	if w.Name != "" {
		return w.Name
	}
	return "Product #" + strconv.Itoa(w.ProductID)
}

// Description is the brand and last check time; the price is drawn
// separately by the delegate.
func (w WatchItem) Description() string {
	var parts []string
	if w.Brand != "" {
		parts = append(parts, w.Brand)
	}
	parts = append(parts, "checked "+render.TimeAgo(w.LastChecked))
	return strings.Join(parts, " | ")
}

func (w WatchItem) FilterValue() string {
	return w.Name + " " + w.Brand
}
