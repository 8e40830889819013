package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// Price formats an amount in minor units, e.g. Price(1999, "USD") is "$19.99".
// Unknown currencies are shown by code after the amount.
func Price(cents int64, currency string) string {
	currency = strings.ToUpper(currency)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if currency == "JPY" {
		amount = strconv.FormatInt(cents, 10)
	}
	if sym, ok := currencySymbols[currency]; ok {
		return sign + sym + amount
	}
	if currency == "" {
		return sign + amount
	}
	return sign + amount + " " + currency
}

// PriceChange describes a move from old to new, e.g. "▼ $0.50 (-25%)".
func PriceChange(oldCents, newCents int64, currency string) string {
	diff := newCents - oldCents
	if diff == 0 {
		return "unchanged"
	}
	arrow := "▲"
	if diff < 0 {
		arrow = "▼"
	}
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	s := arrow + " " + Price(abs, currency)
	if oldCents > 0 {
		pct := float64(diff) * 100 / float64(oldCents)
		s += fmt.Sprintf(" (%+.0f%%)", pct)
	}
	return s
}

// TimeAgo renders a timestamp relative to now, e.g. "5m ago".
func TimeAgo(t time.Time) string {
	return timeAgo(t, time.Now())
}

func timeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// Truncate shortens s to at most n runes, adding an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
