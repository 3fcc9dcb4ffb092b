// Package gateway is the single entry point for writes. It routes each
// operation to the remote backend when online, into the local durable store
// when offline, and replays queued records once connectivity returns.
package gateway

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/bentamate/bentamate-backend/internal/apperr"
	"github.com/bentamate/bentamate-backend/internal/offline"
	"github.com/bentamate/bentamate-backend/internal/product"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

// StatusSource reports current connectivity. Implemented by network.Observer.
type StatusSource interface {
	Online() bool
}

type Gateway struct {
	backend Backend
	store   offline.Store
	status  StatusSource

	// serializes reconciliation passes; offline writes racing a pass are
	// picked up by the next one
	reconcileMu sync.Mutex
}

func New(backend Backend, store offline.Store, status StatusSource) *Gateway {
	return &Gateway{backend: backend, store: store, status: status}
}

// SubmitSale persists a checkout. Online: the backend's result is returned
// unmodified. Offline (or when the backend turns out to be unreachable):
// the sale is queued locally and the result carries the provisional
// `offline_` id with Offline=true.
func (g *Gateway) SubmitSale(ctx context.Context, draft transaction.Transaction) (transaction.Transaction, error) {
	if draft.UserID == "" {
		return transaction.Transaction{}, &apperr.AuthError{}
	}

	if g.status.Online() {
		saved, err := g.backend.SaveSale(ctx, draft)
		if err == nil {
			return saved, nil
		}
		var ne *apperr.NetworkError
		if !errors.As(err, &ne) {
			return transaction.Transaction{}, err
		}
		// backend unreachable despite the online flag; queue instead
	}

	id, err := g.store.StoreTransaction(draft)
	if err != nil {
		return transaction.Transaction{}, err
	}
	queued := draft
	queued.ID = id
	queued.Offline = true
	return queued, nil
}

// SubmitProductMutation routes a catalog create/update/delete the same way.
func (g *Gateway) SubmitProductMutation(ctx context.Context, p product.Product, action product.Action) (product.Product, error) {
	if p.UserID == "" {
		return product.Product{}, &apperr.AuthError{}
	}
	if action == product.ActionCreate || action == product.ActionUpdate {
		if err := p.Validate(); err != nil {
			return product.Product{}, err
		}
	}
	if action != product.ActionCreate && p.ID == "" {
		return product.Product{}, apperr.NewValidation(apperr.CodeInvalidInput, "product id is required")
	}

	if g.status.Online() {
		result, err := g.applyMutation(ctx, p, action)
		if err == nil {
			return result, nil
		}
		var ne *apperr.NetworkError
		if !errors.As(err, &ne) {
			return product.Product{}, err
		}
	}

	if p.ID == "" {
		p.ID = offline.NewOfflineID()
	}
	if err := g.store.StoreProductMutation(p, action); err != nil {
		return product.Product{}, err
	}
	p.Offline = true
	return p, nil
}

func (g *Gateway) applyMutation(ctx context.Context, p product.Product, action product.Action) (product.Product, error) {
	switch action {
	case product.ActionCreate:
		return g.backend.CreateProduct(ctx, p)
	case product.ActionUpdate:
		return g.backend.UpdateProduct(ctx, p)
	case product.ActionDelete:
		return p, g.backend.DeleteProduct(ctx, p.ID)
	default:
		return product.Product{}, apperr.NewValidation(apperr.CodeInvalidInput, "unknown mutation action")
	}
}

// ReconcileResult summarizes one replay pass.
type ReconcileResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Reconcile replays all unsynced records against the backend, marking each
// one synced on success. A failing record never aborts the pass; it stays
// queued for the next one. Safe to call concurrently with new offline
// writes — anything queued mid-pass is handled next time.
func (g *Gateway) Reconcile(ctx context.Context) (ReconcileResult, error) {
	g.reconcileMu.Lock()
	defer g.reconcileMu.Unlock()

	var res ReconcileResult

	txns, err := g.store.UnsyncedTransactions()
	if err != nil {
		return res, err
	}
	for _, rec := range txns {
		if _, err := g.backend.SaveSale(ctx, rec.Transaction); err != nil {
			res.Failed++
			continue
		}
		if err := g.store.MarkTransactionSynced(rec.ID); err != nil {
			res.Failed++
			continue
		}
		res.Synced++
	}

	muts, err := g.store.UnsyncedProducts()
	if err != nil {
		return res, err
	}
	for _, rec := range muts {
		if err := g.replayMutation(ctx, rec); err != nil {
			res.Failed++
			continue
		}
		if err := g.store.MarkProductSynced(rec.ID); err != nil {
			res.Failed++
			continue
		}
		res.Synced++
	}
	return res, nil
}

func (g *Gateway) replayMutation(ctx context.Context, rec offline.ProductMutation) error {
	p := rec.Product
	p.Offline = false
	switch rec.Action {
	case product.ActionCreate:
		if strings.HasPrefix(p.ID, transaction.OfflineIDPrefix) {
			// let the backend assign a real id
			p.ID = ""
		}
		_, err := g.backend.CreateProduct(ctx, p)
		return err
	case product.ActionUpdate:
		_, err := g.backend.UpdateProduct(ctx, p)
		if errors.Is(err, product.ErrNotFound) {
			// the product is gone server-side; the queued edit cannot
			// apply anymore, drop it
			return nil
		}
		return err
	case product.ActionDelete:
		err := g.backend.DeleteProduct(ctx, p.ID)
		if errors.Is(err, product.ErrNotFound) {
			return nil
		}
		return err
	default:
		return nil
	}
}

// MergePending overlays the queued (unsynced) catalog mutations onto a
// server snapshot, oldest first, so reads reflect local edits that have
// not replayed yet.
func (g *Gateway) MergePending(snapshot []product.Product) ([]product.Product, error) {
	ops, err := g.store.UnsyncedProducts()
	if err != nil {
		return nil, err
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Timestamp < ops[j].Timestamp })
	return ApplyPendingOps(snapshot, ops), nil
}

// PendingCounts reports how many records await reconciliation.
func (g *Gateway) PendingCounts() (txns int, products int, err error) {
	t, err := g.store.UnsyncedTransactions()
	if err != nil {
		return 0, 0, err
	}
	p, err := g.store.UnsyncedProducts()
	if err != nil {
		return 0, 0, err
	}
	return len(t), len(p), nil
}

// ApplyPendingOps is the pure reducer behind MergePending: it applies
// queued create/update/delete mutations over a fetched product list and
// returns the merged view. The snapshot is not modified.
func ApplyPendingOps(snapshot []product.Product, ops []offline.ProductMutation) []product.Product {
	out := make([]product.Product, len(snapshot))
	copy(out, snapshot)

	for _, op := range ops {
		switch op.Action {
		case product.ActionCreate:
			if indexOf(out, op.Product.ID) < 0 {
				created := op.Product
				created.Offline = true
				out = append(out, created)
			}
		case product.ActionUpdate:
			if i := indexOf(out, op.Product.ID); i >= 0 {
				updated := op.Product
				updated.Offline = true
				out[i] = updated
			}
		case product.ActionDelete:
			if i := indexOf(out, op.Product.ID); i >= 0 {
				out = append(out[:i], out[i+1:]...)
			}
		}
	}
	return out
}

func indexOf(products []product.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}
