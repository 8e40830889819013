package api

import (
	"strings"
	"time"

	"github.com/freshcart/basket/internal/auth"
)

// authResponse is the body of a successful login or register.
type authResponse struct {
	User  *auth.User `json:"user"`
	Token string     `json:"token"`
}

// Product is a catalog entry.
type Product struct {
	ID          int       `json:"id"`
	Barcode     string    `json:"barcode"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	Unit        string    `json:"unit"`
	InStock     bool      `json:"in_stock"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Location is a delivery point chosen with the map picker.
type Location struct {
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Address string  `json:"address" validate:"required"`
}

// Validate checks coordinates are on the globe and an address is set.
// NaN and infinite coordinates are rejected.
func (l Location) Validate() error {
	l.Address = strings.TrimSpace(l.Address)
	return auth.ValidateStruct(l)
}
