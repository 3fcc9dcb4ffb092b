package offline

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bentamate/bentamate-backend/internal/apperr"
	"github.com/bentamate/bentamate-backend/internal/product"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

// MemoryStore is the explicit degraded-mode fallback used when the durable
// medium cannot be opened. Queued records still get local ids and the same
// semantics, but nothing survives a restart — Durable() reports false so
// callers can surface the degradation instead of silently losing data.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]QueuedTransaction
	products     map[string]ProductMutation
	cache        map[string]CacheEntry
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	_ = s.Init()
	return s
}

func (s *MemoryStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transactions == nil {
		s.transactions = make(map[string]QueuedTransaction)
		s.products = make(map[string]ProductMutation)
		s.cache = make(map[string]CacheEntry)
	}
	return nil
}

func (s *MemoryStore) StoreTransaction(draft transaction.Transaction) (string, error) {
	rec := QueuedTransaction{
		Transaction: draft,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	rec.ID = NewOfflineID()
	rec.Offline = true

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[rec.ID] = rec
	return rec.ID, nil
}

func (s *MemoryStore) StoreProductMutation(p product.Product, action product.Action) error {
	next := ProductMutation{
		Product:   p,
		Action:    action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	next.Offline = true

	s.mu.Lock()
	defer s.mu.Unlock()
	var existing *ProductMutation
	if m, ok := s.products[p.ID]; ok {
		existing = &m
	}
	merged, keep := collapse(existing, next)
	if !keep {
		delete(s.products, p.ID)
		return nil
	}
	s.products[p.ID] = merged
	return nil
}

func (s *MemoryStore) UnsyncedTransactions() ([]QueuedTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]QueuedTransaction, 0, len(s.transactions))
	for _, rec := range s.transactions {
		if !rec.Synced {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) UnsyncedProducts() ([]ProductMutation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ProductMutation, 0, len(s.products))
	for _, rec := range s.products {
		if !rec.Synced {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkTransactionSynced(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.transactions[id]; ok {
		rec.Synced = true
		s.transactions[id] = rec
	}
	return nil
}

func (s *MemoryStore) MarkProductSynced(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.products[id]; ok {
		rec.Synced = true
		s.products[id] = rec
	}
	return nil
}

func (s *MemoryStore) CacheData(key string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return &apperr.IOError{Op: "encode cache entry", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = CacheEntry{
		Key:       key,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	return nil
}

func (s *MemoryStore) CachedData(key string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = make(map[string]QueuedTransaction)
	s.products = make(map[string]ProductMutation)
	s.cache = make(map[string]CacheEntry)
	return nil
}

func (s *MemoryStore) Durable() bool { return false }

func (s *MemoryStore) Close() error { return nil }
