package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bentamate/bentamate-backend/internal/apperr"
	"github.com/bentamate/bentamate-backend/internal/offline"
	"github.com/bentamate/bentamate-backend/internal/product"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

type stubStatus struct{ online bool }

func (s *stubStatus) Online() bool { return s.online }

// fakeBackend records what reached the "server".
type fakeBackend struct {
	sales    []transaction.Transaction
	products map[string]product.Product
	failWith error
	nextID   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{products: make(map[string]product.Product)}
}

func (b *fakeBackend) SaveSale(_ context.Context, txn transaction.Transaction) (transaction.Transaction, error) {
	if b.failWith != nil {
		return transaction.Transaction{}, b.failWith
	}
	b.nextID++
	txn.ID = "srv-" + string(rune('0'+b.nextID))
	txn.Offline = false
	b.sales = append(b.sales, txn)
	return txn, nil
}

func (b *fakeBackend) CreateProduct(_ context.Context, p product.Product) (product.Product, error) {
	if b.failWith != nil {
		return product.Product{}, b.failWith
	}
	if p.ID == "" {
		b.nextID++
		p.ID = "srv-p" + string(rune('0'+b.nextID))
	}
	b.products[p.ID] = p
	return p, nil
}

func (b *fakeBackend) UpdateProduct(_ context.Context, p product.Product) (product.Product, error) {
	if b.failWith != nil {
		return product.Product{}, b.failWith
	}
	if _, ok := b.products[p.ID]; !ok {
		return product.Product{}, product.ErrNotFound
	}
	b.products[p.ID] = p
	return p, nil
}

func (b *fakeBackend) DeleteProduct(_ context.Context, id string) error {
	if b.failWith != nil {
		return b.failWith
	}
	if _, ok := b.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(b.products, id)
	return nil
}

func newGateway(online bool) (*Gateway, *fakeBackend, *stubStatus, offline.Store) {
	backend := newFakeBackend()
	status := &stubStatus{online: online}
	store := offline.NewMemoryStore()
	return New(backend, store, status), backend, status, store
}

func draft() transaction.Transaction {
	return transaction.Transaction{
		Items:          []transaction.Item{{ProductID: "A", Name: "Beer", UnitPrice: 45, Quantity: 2}},
		Total:          90,
		AmountReceived: 100,
		Change:         10,
		UserID:         "u1",
	}
}

func TestSubmitSaleOnline(t *testing.T) {
	gw, backend, _, store := newGateway(true)

	saved, err := gw.SubmitSale(context.Background(), draft())
	require.NoError(t, err)
	assert.False(t, saved.Offline)
	assert.True(t, strings.HasPrefix(saved.ID, "srv-"))
	assert.Len(t, backend.sales, 1)

	pending, _ := store.UnsyncedTransactions()
	assert.Empty(t, pending, "online sale must not queue")
}

func TestSubmitSaleOffline(t *testing.T) {
	gw, backend, _, store := newGateway(false)

	saved, err := gw.SubmitSale(context.Background(), draft())
	require.NoError(t, err)
	assert.True(t, saved.Offline, "queued result must be tagged offline")
	assert.True(t, strings.HasPrefix(saved.ID, transaction.OfflineIDPrefix))
	assert.Empty(t, backend.sales)

	pending, err := store.UnsyncedTransactions()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, saved.ID, pending[0].ID)
}

func TestSubmitSaleFallsBackOnNetworkError(t *testing.T) {
	gw, backend, _, store := newGateway(true)
	backend.failWith = &apperr.NetworkError{Op: "save sale"}

	saved, err := gw.SubmitSale(context.Background(), draft())
	require.NoError(t, err)
	assert.True(t, saved.Offline)

	pending, _ := store.UnsyncedTransactions()
	assert.Len(t, pending, 1)
}

func TestSubmitSaleRequiresUser(t *testing.T) {
	gw, _, _, _ := newGateway(true)

	d := draft()
	d.UserID = ""
	_, err := gw.SubmitSale(context.Background(), d)
	var ae *apperr.AuthError
	require.ErrorAs(t, err, &ae)
}

func TestSubmitProductMutationValidationNotQueued(t *testing.T) {
	gw, _, _, store := newGateway(false)

	bad := product.Product{Name: "Candy", Barcode: "9", Capital: 18, Selling: 15, UserID: "u1"}
	_, err := gw.SubmitProductMutation(context.Background(), bad, product.ActionCreate)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, apperr.CodePriceBelowCost, ve.Code)

	pending, _ := store.UnsyncedProducts()
	assert.Empty(t, pending, "invalid input must never reach the queue")
}

func TestOfflineRoundTripReconcile(t *testing.T) {
	gw, backend, status, store := newGateway(false)

	// one sale and one product create while offline
	saved, err := gw.SubmitSale(context.Background(), draft())
	require.NoError(t, err)
	created, err := gw.SubmitProductMutation(context.Background(),
		product.Product{Name: "Candy", Barcode: "9", Capital: 10, Selling: 15, Stock: 4, UserID: "u1"},
		product.ActionCreate)
	require.NoError(t, err)
	assert.True(t, created.Offline)
	assert.True(t, strings.HasPrefix(created.ID, transaction.OfflineIDPrefix))

	// back online: reconcile pushes both and empties the queue
	status.online = true
	res, err := gw.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 0, res.Failed)

	require.Len(t, backend.sales, 1, "replayed sale appears exactly once")
	assert.Equal(t, saved.Total, backend.sales[0].Total)
	assert.False(t, strings.HasPrefix(backend.sales[0].ID, transaction.OfflineIDPrefix),
		"server assigns its own id on replay")
	assert.Len(t, backend.products, 1)

	pendingTxns, _ := store.UnsyncedTransactions()
	pendingProds, _ := store.UnsyncedProducts()
	assert.Empty(t, pendingTxns)
	assert.Empty(t, pendingProds)

	// a second pass has nothing to do
	res, err = gw.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{}, res)
}

func TestReconcileContinuesOnError(t *testing.T) {
	gw, backend, status, store := newGateway(false)

	_, err := gw.SubmitSale(context.Background(), draft())
	require.NoError(t, err)
	_, err = gw.SubmitProductMutation(context.Background(),
		product.Product{Name: "Candy", Barcode: "9", Capital: 10, Selling: 15, UserID: "u1"},
		product.ActionCreate)
	require.NoError(t, err)

	status.online = true
	backend.failWith = &apperr.NetworkError{Op: "save sale"}
	res, err := gw.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)

	pending, _ := store.UnsyncedTransactions()
	assert.Len(t, pending, 1, "failed record stays queued for the next pass")

	backend.failWith = nil
	res, err = gw.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Synced)
	assert.Len(t, backend.sales, 1)
}

func TestPendingCounts(t *testing.T) {
	gw, _, _, _ := newGateway(false)

	_, err := gw.SubmitSale(context.Background(), draft())
	require.NoError(t, err)

	txns, products, err := gw.PendingCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, txns)
	assert.Equal(t, 0, products)
}

func TestApplyPendingOps(t *testing.T) {
	snapshot := []product.Product{
		{ID: "a", Name: "Beer", Selling: 45},
		{ID: "b", Name: "Noodles", Selling: 25},
	}
	ops := []offline.ProductMutation{
		{Product: product.Product{ID: "b", Name: "Noodles XL", Selling: 30}, Action: product.ActionUpdate},
		{Product: product.Product{ID: "offline_c", Name: "Candy", Selling: 15}, Action: product.ActionCreate},
		{Product: product.Product{ID: "a"}, Action: product.ActionDelete},
	}

	merged := ApplyPendingOps(snapshot, ops)

	require.Len(t, merged, 2)
	assert.Equal(t, "Noodles XL", merged[0].Name)
	assert.True(t, merged[0].Offline, "locally edited rows are tagged")
	assert.Equal(t, "Candy", merged[1].Name)
	assert.True(t, merged[1].Offline)

	// the input snapshot is untouched
	assert.Equal(t, "Noodles", snapshot[1].Name)
	assert.Len(t, snapshot, 2)
}

func TestApplyPendingOpsNoOps(t *testing.T) {
	snapshot := []product.Product{{ID: "a"}}
	merged := ApplyPendingOps(snapshot, nil)
	assert.Equal(t, snapshot, merged)
}
