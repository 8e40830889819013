package cache

import (
	"database/sql"
	"errors"
	"time"

	"github.com/freshcart/basket/internal/api"
)

const productColumns = `id, barcode, name, brand, description, price_cents, currency, unit, in_stock, updated_at, fetched_at`

// GetProduct retrieves a cached product. Returns (product, isFresh, error).
// isFresh indicates whether the product is within its TTL.
// Returns nil product on cache miss.
func (d *DB) GetProduct(id int, ttl time.Duration) (*api.Product, bool, error) {
	row := d.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row, ttl)
}

// GetProductByBarcode retrieves a cached product by its normalized barcode.
func (d *DB) GetProductByBarcode(barcode string, ttl time.Duration) (*api.Product, bool, error) {
	row := d.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE barcode = ?
		ORDER BY fetched_at DESC LIMIT 1`, barcode)
	return scanProduct(row, ttl)
}

func scanProduct(row *sql.Row, ttl time.Duration) (*api.Product, bool, error) {
	var p api.Product
	var barcode, brand, desc, currency, unit sql.NullString
	var updatedAt sql.NullInt64
	var inStock int
	var fetchedAt int64

	err := row.Scan(&p.ID, &barcode, &p.Name, &brand, &desc, &p.PriceCents,
		&currency, &unit, &inStock, &updatedAt, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	p.Barcode = barcode.String
	p.Brand = brand.String
	p.Description = desc.String
	p.Currency = currency.String
	p.Unit = unit.String
	p.InStock = inStock != 0
	if updatedAt.Valid {
		p.UpdatedAt = time.Unix(updatedAt.Int64, 0).UTC()
	}

	isFresh := time.Since(time.Unix(fetchedAt, 0)) < ttl
	return &p, isFresh, nil
}

// PutProduct stores a product in the cache.
func (d *DB) PutProduct(p *api.Product) error {
	var inStock int
	if p.InStock {
		inStock = 1
	}
	var updatedAt sql.NullInt64
	if !p.UpdatedAt.IsZero() {
		updatedAt = sql.NullInt64{Int64: p.UpdatedAt.Unix(), Valid: true}
	}
	_, err := d.db.Exec(`INSERT OR REPLACE INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, nullStr(p.Barcode), p.Name, nullStr(p.Brand), nullStr(p.Description),
		p.PriceCents, nullStr(p.Currency), nullStr(p.Unit), inStock, updatedAt,
		time.Now().Unix())
	return err
}

// InvalidateProduct marks a cached product stale so the next read refetches.
func (d *DB) InvalidateProduct(id int) error {
	_, err := d.db.Exec(`UPDATE products SET fetched_at = 0 WHERE id = ?`, id)
	return err
}
