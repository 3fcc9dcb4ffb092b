package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bentamate/bentamate-backend/internal/apperr"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

type fakeSubmitter struct {
	saved []transaction.Transaction
	err   error
}

func (f *fakeSubmitter) SubmitSale(_ context.Context, draft transaction.Transaction) (transaction.Transaction, error) {
	if f.err != nil {
		return transaction.Transaction{}, f.err
	}
	draft.ID = "txn-1"
	f.saved = append(f.saved, draft)
	return draft, nil
}

func TestTotalsTrackEveryMutation(t *testing.T) {
	e := NewEngine("u1", &fakeSubmitter{})

	e.AddItem("A", "Beer", 45)
	e.AddItem("B", "Noodles", 25)
	e.AddItem("A", "Beer", 45)
	assert.Equal(t, 115.0, e.Totals().Subtotal)

	e.ChangeQuantity("B", 2)
	assert.Equal(t, 165.0, e.Totals().Subtotal)

	e.RemoveItem("A")
	assert.Equal(t, 75.0, e.Totals().Subtotal)

	e.ChangeQuantity("B", -3)
	assert.Equal(t, 0.0, e.Totals().Subtotal)
	assert.Empty(t, e.Items())
}

func TestAddItemLocksPriceAtAddTime(t *testing.T) {
	e := NewEngine("u1", &fakeSubmitter{})
	e.AddItem("A", "Beer", 45)
	// a later add for the same product increments quantity and does not
	// re-read the price
	e.AddItem("A", "Beer", 99)

	items := e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 45.0, items[0].UnitPrice)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestChangeQuantityClampsAndRemoves(t *testing.T) {
	e := NewEngine("u1", &fakeSubmitter{})
	e.AddItem("A", "Beer", 45)

	e.ChangeQuantity("A", -5)
	assert.Empty(t, e.Items(), "quantity driven to zero removes the line")

	// unknown id is a silent no-op
	e.ChangeQuantity("nope", 3)
	assert.Empty(t, e.Items())

	for _, it := range e.Items() {
		assert.Greater(t, it.Quantity, 0)
	}
}

func TestItemsKeepInsertionOrder(t *testing.T) {
	e := NewEngine("u1", &fakeSubmitter{})
	e.AddItem("C", "Rice", 250)
	e.AddItem("A", "Beer", 45)
	e.AddItem("B", "Noodles", 25)

	items := e.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "C", items[0].ProductID)
	assert.Equal(t, "A", items[1].ProductID)
	assert.Equal(t, "B", items[2].ProductID)
}

func TestCheckoutEmptyCart(t *testing.T) {
	sub := &fakeSubmitter{}
	e := NewEngine("u1", sub)

	_, err := e.Checkout(context.Background())
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, apperr.CodeEmptyCart, ve.Code)
	assert.Empty(t, sub.saved)
}

func TestCheckoutInsufficientPayment(t *testing.T) {
	sub := &fakeSubmitter{}
	e := NewEngine("u1", sub)
	e.AddItem("A", "Beer", 45)
	require.NoError(t, e.SetPaymentReceived(40))

	_, err := e.Checkout(context.Background())
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, apperr.CodeInsufficientPayment, ve.Code)

	// cart unchanged
	assert.Len(t, e.Items(), 1)
	assert.Empty(t, sub.saved)
}

func TestCheckoutSuccess(t *testing.T) {
	sub := &fakeSubmitter{}
	e := NewEngine("u1", sub)
	e.AddItem("A", "San Miguel Beer", 45)
	e.ChangeQuantity("A", 1)
	e.AddItem("B", "Noodles", 25)
	require.NoError(t, e.SetPaymentReceived(150))

	totals := e.Totals()
	assert.Equal(t, 115.0, totals.Subtotal)
	assert.Equal(t, 115.0, totals.Total)
	assert.Equal(t, 35.0, totals.Change)

	txn, err := e.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 115.0, txn.Total)
	assert.Equal(t, 150.0, txn.AmountReceived)
	assert.Equal(t, 35.0, txn.Change)
	assert.Equal(t, "u1", txn.UserID)
	require.Len(t, txn.Items, 2)
	assert.Equal(t, 2, txn.Items[0].Quantity)
	assert.Equal(t, 1, txn.Items[1].Quantity)

	// cart cleared, payment reset
	assert.Empty(t, e.Items())
	assert.Equal(t, 0.0, e.Totals().Total)

	_, err = e.Checkout(context.Background())
	require.Error(t, err, "second checkout starts from an empty cart")
}

func TestCheckoutFailureLeavesCartIntact(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("backend exploded")}
	e := NewEngine("u1", sub)
	e.AddItem("A", "Beer", 45)
	require.NoError(t, e.SetPaymentReceived(100))

	_, err := e.Checkout(context.Background())
	require.Error(t, err)

	assert.Len(t, e.Items(), 1, "failed checkout must not clear the cart")
	assert.Equal(t, 55.0, e.Totals().Change, "payment stays captured for retry")
}

func TestSetPaymentRejectsNegative(t *testing.T) {
	e := NewEngine("u1", &fakeSubmitter{})
	err := e.SetPaymentReceived(-1)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSessionsIsolatePerUser(t *testing.T) {
	s := NewSessions(&fakeSubmitter{})
	a := s.Get("alice")
	b := s.Get("bob")
	a.AddItem("A", "Beer", 45)

	assert.Empty(t, b.Items())
	assert.Same(t, a, s.Get("alice"))

	s.Drop("alice")
	assert.Empty(t, s.Get("alice").Items())
}
