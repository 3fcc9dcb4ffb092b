package transaction

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("transaction not found")
)

// OfflineIDPrefix marks ids minted locally while disconnected. A replayed
// transaction gets a fresh server id so the two namespaces never collide.
const OfflineIDPrefix = "offline_"

type Repository interface {
	// Create persists a transaction, assigning a server id when the draft
	// carries none (or carries a local offline id).
	Create(txn Transaction) (Transaction, error)
	List() ([]Transaction, error)
	ListByUser(userID string) ([]Transaction, error)
	ListBetween(from, to time.Time) ([]Transaction, error)
	ListByIDs(ids []string) ([]Transaction, error)
}

// InMemoryRepository backs tests and local scenarios.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Transaction
}

func NewInMemoryRepository(seed []Transaction) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]Transaction, 0, len(seed))}
	r.storage = append(r.storage, seed...)
	return r
}

func (r *InMemoryRepository) Create(txn Transaction) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if txn.ID == "" || strings.HasPrefix(txn.ID, OfflineIDPrefix) {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt == "" {
		txn.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	txn.Offline = false
	r.storage = append(r.storage, txn)
	return txn, nil
}

func (r *InMemoryRepository) List() ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Transaction, len(r.storage))
	copy(out, r.storage)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (r *InMemoryRepository) ListByUser(userID string) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Transaction, 0)
	for _, t := range r.storage {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (r *InMemoryRepository) ListBetween(from, to time.Time) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Transaction, 0)
	for _, t := range r.storage {
		ts, err := time.Parse(time.RFC3339, t.CreatedAt)
		if err != nil {
			continue
		}
		if !ts.Before(from) && ts.Before(to) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (r *InMemoryRepository) ListByIDs(ids []string) ([]Transaction, error) {
	if len(ids) == 0 {
		return []Transaction{}, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	byID := make(map[string]Transaction, len(r.storage))
	for _, t := range r.storage {
		byID[t.ID] = t
	}
	out := make([]Transaction, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
