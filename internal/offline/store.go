// Package offline implements the local durable store that carries the POS
// through connectivity loss: queued (unsynced) transactions, queued product
// mutations and a read-through cache, all surviving process restarts.
package offline

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/bentamate/bentamate-backend/internal/product"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

// QueuedTransaction is a sale recorded while offline, awaiting replay.
type QueuedTransaction struct {
	transaction.Transaction
	Timestamp string `json:"timestamp"`
	Synced    bool   `json:"synced"`
}

// ProductMutation is a catalog edit recorded while offline. One record per
// product id; queueing a later action for the same product collapses with
// the queued one (see collapse in the implementations) so replay applies
// the net intent.
type ProductMutation struct {
	product.Product
	Action    product.Action `json:"action"`
	Timestamp string         `json:"timestamp"`
	Synced    bool           `json:"synced"`
}

// CacheEntry is a generic last-write-wins cache row.
type CacheEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Store is the durable medium behind the offline gateway. Implementations
// must allow Init to be called multiple times, including concurrently.
type Store interface {
	Init() error
	// StoreTransaction queues a sale and returns the locally-minted id.
	StoreTransaction(draft transaction.Transaction) (string, error)
	StoreProductMutation(p product.Product, action product.Action) error
	UnsyncedTransactions() ([]QueuedTransaction, error)
	UnsyncedProducts() ([]ProductMutation, error)
	// Mark*Synced flips synced in place; absent ids are a no-op.
	MarkTransactionSynced(id string) error
	MarkProductSynced(id string) error
	CacheData(key string, data interface{}) error
	// CachedData reports ok=false when the key is absent.
	CachedData(key string) (json.RawMessage, bool, error)
	// Clear wipes all three collections (diagnostics / reset only).
	Clear() error
	// Durable reports whether records survive a restart. False means the
	// store is running in the degraded in-memory fallback.
	Durable() bool
	Close() error
}

// NewOfflineID mints a local id that can never collide with a server UUID.
func NewOfflineID() string {
	return transaction.OfflineIDPrefix + uuid.NewString()
}

// collapse merges a newly queued mutation onto one already queued for the
// same product. The second return is false when the net effect is nothing
// (a delete cancelling a queued create) and the queued record should go.
func collapse(existing *ProductMutation, next ProductMutation) (ProductMutation, bool) {
	if existing == nil || existing.Synced {
		return next, true
	}
	switch {
	case existing.Action == product.ActionCreate && next.Action == product.ActionDelete:
		// the server never saw this product; drop the whole record
		return ProductMutation{}, false
	case existing.Action == product.ActionCreate:
		// still a create, just with the latest fields
		next.Action = product.ActionCreate
		return next, true
	case existing.Action == product.ActionDelete:
		// a delete already queued stands; later edits to a product the
		// user deleted are discarded
		return *existing, true
	default:
		return next, true
	}
}
