package cache

import (
	"time"

	"github.com/freshcart/basket/internal/api"
)

// WatchedProduct is a product the user tracks for price changes.
type WatchedProduct struct {
	ProductID      int
	Name           string
	Brand          string
	Currency       string
	LastPriceCents int64
	InStock        bool
	LastChecked    time.Time
	CreatedAt      time.Time
}

// PriceAlert records a price change seen by the watcher.
type PriceAlert struct {
	ID            int64
	ProductID     int
	ProductName   string
	OldPriceCents int64
	NewPriceCents int64
	Currency      string
	CreatedAt     time.Time
	Read          bool
}

// Dropped reports whether the price went down.
func (a PriceAlert) Dropped() bool {
	return a.NewPriceCents < a.OldPriceCents
}

// Watch adds p to the watchlist at its current price. Watching an already
// watched product resets its baseline price.
func (d *DB) Watch(p *api.Product) error {
	if err := d.PutProduct(p); err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err := d.db.Exec(`INSERT INTO watchlist (product_id, last_price_cents, last_checked, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET last_price_cents = excluded.last_price_cents,
			last_checked = excluded.last_checked`,
		p.ID, p.PriceCents, now, now)
	return err
}

// Unwatch removes a product from the watchlist.
func (d *DB) Unwatch(productID int) error {
	_, err := d.db.Exec(`DELETE FROM watchlist WHERE product_id = ?`, productID)
	return err
}

// IsWatched reports whether a product is on the watchlist.
func (d *DB) IsWatched(productID int) bool {
	var n int
	d.db.QueryRow(`SELECT COUNT(*) FROM watchlist WHERE product_id = ?`, productID).Scan(&n)
	return n > 0
}

// GetWatchlist returns all watched products, newest first.
func (d *DB) GetWatchlist() ([]WatchedProduct, error) {
	return d.queryWatches(`SELECT w.product_id, COALESCE(p.name, ''), COALESCE(p.brand, ''),
		COALESCE(p.currency, ''), w.last_price_cents, COALESCE(p.in_stock, 0), w.last_checked, w.created_at
		FROM watchlist w LEFT JOIN products p ON p.id = w.product_id
		ORDER BY w.created_at DESC, w.product_id DESC`)
}

// GetDueWatches returns watched products due for checking, ordered by oldest check first.
func (d *DB) GetDueWatches(limit int) ([]WatchedProduct, error) {
	return d.queryWatches(`SELECT w.product_id, COALESCE(p.name, ''), COALESCE(p.brand, ''),
		COALESCE(p.currency, ''), w.last_price_cents, COALESCE(p.in_stock, 0), w.last_checked, w.created_at
		FROM watchlist w LEFT JOIN products p ON p.id = w.product_id
		ORDER BY w.last_checked ASC LIMIT ?`, limit)
}

func (d *DB) queryWatches(query string, args ...any) ([]WatchedProduct, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WatchedProduct
	for rows.Next() {
		var w WatchedProduct
		var inStock int
		var lastChecked, createdAt int64
		if err := rows.Scan(&w.ProductID, &w.Name, &w.Brand, &w.Currency,
			&w.LastPriceCents, &inStock, &lastChecked, &createdAt); err != nil {
			return nil, err
		}
		w.InStock = inStock != 0
		w.LastChecked = time.Unix(lastChecked, 0)
		w.CreatedAt = time.Unix(createdAt, 0)
		result = append(result, w)
	}
	return result, rows.Err()
}

// UpdateWatch records the latest observed price for a watched product.
func (d *DB) UpdateWatch(productID int, priceCents int64, checked time.Time) error {
	_, err := d.db.Exec(`UPDATE watchlist SET last_price_cents = ?, last_checked = ? WHERE product_id = ?`,
		priceCents, checked.Unix(), productID)
	return err
}

// AddPriceAlert inserts a new price alert.
func (d *DB) AddPriceAlert(a PriceAlert) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := d.db.Exec(`INSERT INTO price_alerts
		(product_id, product_name, old_price_cents, new_price_cents, currency, created_at, read)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		a.ProductID, nullStr(a.ProductName), a.OldPriceCents, a.NewPriceCents,
		nullStr(a.Currency), created.Unix())
	return err
}

// UnreadAlertCount returns the count of unread price alerts.
func (d *DB) UnreadAlertCount() int {
	var count int
	d.db.QueryRow(`SELECT COUNT(*) FROM price_alerts WHERE read = 0`).Scan(&count)
	return count
}

// GetAlerts returns the most recent price alerts.
func (d *DB) GetAlerts(limit int) ([]PriceAlert, error) {
	rows, err := d.db.Query(`SELECT id, product_id, COALESCE(product_name, ''), old_price_cents,
		new_price_cents, COALESCE(currency, ''), created_at, read
		FROM price_alerts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PriceAlert
	for rows.Next() {
		var a PriceAlert
		var createdAt int64
		var read int
		if err := rows.Scan(&a.ID, &a.ProductID, &a.ProductName, &a.OldPriceCents,
			&a.NewPriceCents, &a.Currency, &createdAt, &read); err != nil {
			return nil, err
		}
		a.CreatedAt = time.Unix(createdAt, 0)
		a.Read = read != 0
		result = append(result, a)
	}
	return result, rows.Err()
}

// MarkAlertRead marks a price alert as read.
func (d *DB) MarkAlertRead(id int64) error {
	_, err := d.db.Exec(`UPDATE price_alerts SET read = 1 WHERE id = ?`, id)
	return err
}

// MarkAllAlertsRead marks every price alert as read.
func (d *DB) MarkAllAlertsRead() error {
	_, err := d.db.Exec(`UPDATE price_alerts SET read = 1 WHERE read = 0`)
	return err
}
