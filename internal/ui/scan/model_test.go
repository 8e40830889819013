package scan

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/freshcart/basket/internal/api"
	"github.com/freshcart/basket/internal/cache"
	"github.com/freshcart/basket/internal/ui/messages"
)

type fakeCatalog struct {
	calls int
	code  string
	err   error
}

func (f *fakeCatalog) GetProductByBarcode(_ context.Context, code string) (*api.Product, error) {
	f.calls++
	f.code = code
	if f.err != nil {
		return nil, f.err
	}
	return &api.Product{ID: 7, Barcode: code, Name: "Whole Milk", PriceCents: 189, Currency: "USD"}, nil
}

func openDB(t *testing.T) *cache.DB {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// scan types code, presses enter and runs the lookup.
func scan(t *testing.T, m Model, code string) (Model, tea.Cmd) {
	t.Helper()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(code)})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("enter with %q produced no lookup (err %q)", code, m.Err())
	}
	return m.Update(cmd())
}

func openedProduct(t *testing.T, cmd tea.Cmd) int {
	t.Helper()
	if cmd == nil {
		t.Fatal("lookup result produced no command")
	}
	msg, ok := cmd().(messages.OpenProductMsg)
	if !ok {
		t.Fatalf("got %T, want OpenProductMsg", msg)
	}
	return msg.ProductID
}

func TestScanFetchesThenUsesCache(t *testing.T) {
	db := openDB(t)
	catalog := &fakeCatalog{}

	_, cmd := scan(t, New(catalog, db, time.Hour), "4006381333931")
	if id := openedProduct(t, cmd); id != 7 {
		t.Errorf("opened product %d, want 7", id)
	}
	if catalog.calls != 1 || catalog.code != "4006381333931" {
		t.Fatalf("catalog calls = %d code = %q", catalog.calls, catalog.code)
	}
	if p, fresh, err := db.GetProductByBarcode("4006381333931", time.Hour); err != nil || !fresh || p.ID != 7 {
		t.Fatalf("cached product = %+v fresh = %v err = %v", p, fresh, err)
	}

	_, cmd = scan(t, New(catalog, db, time.Hour), "4006381333931")
	if id := openedProduct(t, cmd); id != 7 {
		t.Errorf("opened product %d, want 7", id)
	}
	if catalog.calls != 1 {
		t.Errorf("catalog calls = %d, want the cached copy to be used", catalog.calls)
	}
}

func TestScanStaleCacheFallsBackToCatalog(t *testing.T) {
	db := openDB(t)
	if err := db.PutProduct(&api.Product{ID: 7, Barcode: "4006381333931", Name: "Old Milk"}); err != nil {
		t.Fatal(err)
	}
	catalog := &fakeCatalog{}

	// A zero TTL makes every cached row stale.
	_, cmd := scan(t, New(catalog, db, 0), "4006381333931")
	openedProduct(t, cmd)
	if catalog.calls != 1 {
		t.Errorf("catalog calls = %d, want 1", catalog.calls)
	}
}

func TestScanWithoutCache(t *testing.T) {
	catalog := &fakeCatalog{}
	_, cmd := scan(t, New(catalog, nil, time.Hour), "4006381333931")
	openedProduct(t, cmd)
	if catalog.calls != 1 {
		t.Errorf("catalog calls = %d, want 1", catalog.calls)
	}
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unknown barcode", &api.StatusError{Code: 404, Message: "Product not found"}, "No product found for that barcode"},
		{"network", errors.New("connection refused"), "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := scan(t, New(&fakeCatalog{err: tt.err}, openDB(t), time.Hour), "4006381333931")
			if cmd != nil {
				t.Error("failed lookup should not open a product")
			}
			if m.Err() != tt.want {
				t.Errorf("Err() = %q, want %q", m.Err(), tt.want)
			}
		})
	}
}

func TestScanRejectsBadBarcode(t *testing.T) {
	catalog := &fakeCatalog{}
	m := New(catalog, nil, time.Hour)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("4006381333932")})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("bad check digit should not start a lookup")
	}
	if m.Err() == "" {
		t.Error("expected an error under the input")
	}
	if catalog.calls != 0 {
		t.Errorf("catalog calls = %d, want 0", catalog.calls)
	}
}

func TestScanIgnoresEnterWhileLooking(t *testing.T) {
	m := New(&fakeCatalog{}, nil, time.Hour)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("4006381333931")})
	m, first := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if first == nil {
		t.Fatal("first enter should start a lookup")
	}
	if _, second := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); second != nil {
		t.Error("second enter while looking should do nothing")
	}
}
