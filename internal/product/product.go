package product

import (
	"strings"

	"github.com/bentamate/bentamate-backend/internal/apperr"
)

// Stock status values derived from the stock count.
const (
	StatusInStock    = "in-stock"
	StatusLowStock   = "low-stock"
	StatusOutOfStock = "out-of-stock"

	// LowStockThreshold is the largest stock count still reported as low.
	LowStockThreshold = 10
)

// Product represents a catalog item. The authoritative copy lives in the
// backend `products` table; queued offline mutations carry the same shape.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Barcode     string  `json:"barcode"`
	Capital     float64 `json:"capital"`
	Selling     float64 `json:"selling"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	UserID      string  `json:"userId,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
	// Offline marks a provisional record queued while disconnected.
	Offline bool `json:"offline,omitempty"`
}

// Status derives the stock status from the current stock count.
func (p Product) Status() string {
	switch {
	case p.Stock == 0:
		return StatusOutOfStock
	case p.Stock <= LowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Validate checks the entry rules before a product reaches the backend.
// The selling price must exceed capital; this is enforced here, not by the
// data layer.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.NewValidation(apperr.CodeInvalidInput, "name is required")
	}
	if strings.TrimSpace(p.Barcode) == "" {
		return apperr.NewValidation(apperr.CodeInvalidInput, "barcode is required")
	}
	if p.Capital < 0 {
		return apperr.NewValidation(apperr.CodeInvalidInput, "capital must be >= 0")
	}
	if p.Selling < 0 {
		return apperr.NewValidation(apperr.CodeInvalidInput, "selling must be >= 0")
	}
	if p.Stock < 0 {
		return apperr.NewValidation(apperr.CodeInvalidInput, "stock must be >= 0")
	}
	if p.Selling <= p.Capital {
		return apperr.NewValidation(apperr.CodePriceBelowCost, "selling price must exceed capital price")
	}
	return nil
}
