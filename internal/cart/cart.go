// Package cart implements the in-memory state machine for the sale in
// progress: line items, quantity edits, totals, payment capture and the
// checkout transition that persists a transaction.
package cart

import (
	"context"
	"sync"

	"github.com/bentamate/bentamate-backend/internal/apperr"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

// LineItem is one product line in the active cart. Unique by ProductID.
// UnitPrice is captured when the product is first added; later catalog
// price changes never retroactively affect an open cart.
type LineItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// Totals is the derived money state of a cart, recomputed on every query.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Total    float64 `json:"total"`
	Change   float64 `json:"change"`
}

// Submitter persists a finished sale. Implemented by the offline-capable
// gateway so checkout works with or without connectivity.
type Submitter interface {
	SubmitSale(ctx context.Context, draft transaction.Transaction) (transaction.Transaction, error)
}

// Engine holds the active cart for one cashier session. Lines are kept in
// insertion order. Safe for concurrent use.
type Engine struct {
	mu              sync.Mutex
	userID          string
	items           []LineItem
	paymentReceived float64
	paymentSet      bool
	submitter       Submitter
}

func NewEngine(userID string, submitter Submitter) *Engine {
	return &Engine{userID: userID, submitter: submitter}
}

// AddItem adds one unit of the product to the cart. If a line for the
// product already exists its quantity is incremented; otherwise a new line
// is appended with the product's current selling price locked in.
func (e *Engine) AddItem(productID, name string, sellingPrice float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.items {
		if e.items[i].ProductID == productID {
			e.items[i].Quantity++
			return
		}
	}
	e.items = append(e.items, LineItem{
		ProductID: productID,
		Name:      name,
		UnitPrice: sellingPrice,
		Quantity:  1,
	})
}

// ChangeQuantity adjusts a line's quantity by delta, clamping at zero.
// A quantity of zero removes the line. Unknown product ids are a no-op.
func (e *Engine) ChangeQuantity(productID string, delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.items {
		if e.items[i].ProductID != productID {
			continue
		}
		q := e.items[i].Quantity + delta
		if q <= 0 {
			e.items = append(e.items[:i], e.items[i+1:]...)
		} else {
			e.items[i].Quantity = q
		}
		return
	}
}

// RemoveItem removes the line for the product regardless of quantity.
// Absent ids are a no-op.
func (e *Engine) RemoveItem(productID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.items {
		if e.items[i].ProductID == productID {
			e.items = append(e.items[:i], e.items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart and resets the captured payment.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = nil
	e.paymentReceived = 0
	e.paymentSet = false
}

// SetPaymentReceived captures the amount handed over by the customer. It
// does not validate sufficiency; Checkout does.
func (e *Engine) SetPaymentReceived(amount float64) error {
	if amount < 0 {
		return apperr.NewValidation(apperr.CodeInvalidInput, "payment amount must be >= 0")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paymentReceived = amount
	e.paymentSet = true
	return nil
}

// Items returns a copy of the current lines in insertion order.
func (e *Engine) Items() []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LineItem, len(e.items))
	copy(out, e.items)
	return out
}

// Totals recomputes subtotal, total and change from the current state.
// No denormalized running totals are kept, so there is nothing to drift.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalsLocked()
}

func (e *Engine) totalsLocked() Totals {
	var subtotal float64
	for _, it := range e.items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}
	t := Totals{Subtotal: subtotal, Total: subtotal}
	if e.paymentSet && e.paymentReceived > t.Total {
		t.Change = e.paymentReceived - t.Total
	}
	return t
}

// Checkout validates the cart, builds an immutable transaction snapshot and
// hands it to the submitter. On success the cart is cleared and the saved
// transaction returned; on failure the cart is left intact for retry.
func (e *Engine) Checkout(ctx context.Context) (transaction.Transaction, error) {
	e.mu.Lock()
	if len(e.items) == 0 {
		e.mu.Unlock()
		return transaction.Transaction{}, apperr.NewValidation(apperr.CodeEmptyCart, "cart is empty")
	}
	totals := e.totalsLocked()
	if !e.paymentSet || e.paymentReceived < totals.Total {
		e.mu.Unlock()
		return transaction.Transaction{}, apperr.NewValidation(apperr.CodeInsufficientPayment, "amount received must be equal to or greater than total")
	}

	draft := transaction.Transaction{
		Items:          make([]transaction.Item, 0, len(e.items)),
		Total:          totals.Total,
		AmountReceived: e.paymentReceived,
		Change:         e.paymentReceived - totals.Total,
		UserID:         e.userID,
	}
	for _, it := range e.items {
		draft.Items = append(draft.Items, transaction.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	// release the lock across the persistence call; concurrent edits made
	// while a checkout is in flight are discarded by the clear on success
	e.mu.Unlock()

	saved, err := e.submitter.SubmitSale(ctx, draft)
	if err != nil {
		return transaction.Transaction{}, err
	}

	e.Clear()
	return saved, nil
}
