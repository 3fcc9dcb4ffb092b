package offline

import (
	"encoding/json"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/bentamate/bentamate-backend/internal/apperr"
	"github.com/bentamate/bentamate-backend/internal/product"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

var (
	bucketTransactions = []byte("transactions")
	bucketProducts     = []byte("products")
	bucketCache        = []byte("cache")
)

// BoltStore persists the offline collections in a single bbolt file with
// one bucket per collection. Every exported operation runs in its own
// bbolt transaction, which gives the per-record isolation the callers need.
type BoltStore struct {
	path string

	mu sync.Mutex
	db *bolt.DB
}

func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path}
}

// Init opens the database file and creates the buckets. Callable any number
// of times, concurrently; every caller after the first successful open
// observes the same ready store.
func (s *BoltStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return &apperr.IOError{Op: "open", Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketTransactions, bucketProducts, bucketCache} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return &apperr.IOError{Op: "init", Err: err}
	}
	s.db = db
	return nil
}

func (s *BoltStore) handle() (*bolt.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		if err := s.Init(); err != nil {
			return nil, err
		}
		s.mu.Lock()
		db = s.db
		s.mu.Unlock()
	}
	return db, nil
}

func (s *BoltStore) StoreTransaction(draft transaction.Transaction) (string, error) {
	db, err := s.handle()
	if err != nil {
		return "", err
	}

	rec := QueuedTransaction{
		Transaction: draft,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	rec.ID = NewOfflineID()
	rec.Offline = true

	raw, err := json.Marshal(rec)
	if err != nil {
		return "", &apperr.IOError{Op: "encode transaction", Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTransactions).Put([]byte(rec.ID), raw)
	})
	if err != nil {
		return "", &apperr.IOError{Op: "store transaction", Err: err}
	}
	return rec.ID, nil
}

func (s *BoltStore) StoreProductMutation(p product.Product, action product.Action) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	next := ProductMutation{
		Product:   p,
		Action:    action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	next.Offline = true

	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProducts)
		key := []byte(p.ID)

		var existing *ProductMutation
		if raw := b.Get(key); raw != nil {
			var m ProductMutation
			if err := json.Unmarshal(raw, &m); err == nil {
				existing = &m
			}
		}

		merged, keep := collapse(existing, next)
		if !keep {
			return b.Delete(key)
		}
		raw, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		return b.Put(key, raw)
	})
	if err != nil {
		return &apperr.IOError{Op: "store product mutation", Err: err}
	}
	return nil
}

func (s *BoltStore) UnsyncedTransactions() ([]QueuedTransaction, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	out := make([]QueuedTransaction, 0)
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTransactions).ForEach(func(_, raw []byte) error {
			var rec QueuedTransaction
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			if !rec.Synced {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, &apperr.IOError{Op: "read transactions", Err: err}
	}
	return out, nil
}

func (s *BoltStore) UnsyncedProducts() ([]ProductMutation, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	out := make([]ProductMutation, 0)
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProducts).ForEach(func(_, raw []byte) error {
			var rec ProductMutation
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			if !rec.Synced {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, &apperr.IOError{Op: "read product mutations", Err: err}
	}
	return out, nil
}

func (s *BoltStore) MarkTransactionSynced(id string) error {
	return s.markSynced(bucketTransactions, id, "mark transaction synced")
}

func (s *BoltStore) MarkProductSynced(id string) error {
	return s.markSynced(bucketProducts, id, "mark product synced")
}

// markSynced rewrites the record with synced=true. Operates on the raw JSON
// map so the same helper serves both collections; absent ids are a no-op.
func (s *BoltStore) markSynced(bucket []byte, id, op string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		raw := b.Get([]byte(id))
		if raw == nil {
			return nil
		}
		var rec map[string]interface{}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		rec["synced"] = true
		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
	if err != nil {
		return &apperr.IOError{Op: op, Err: err}
	}
	return nil
}

func (s *BoltStore) CacheData(key string, data interface{}) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return &apperr.IOError{Op: "encode cache entry", Err: err}
	}
	entry := CacheEntry{
		Key:       key,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return &apperr.IOError{Op: "encode cache entry", Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCache).Put([]byte(key), raw)
	})
	if err != nil {
		return &apperr.IOError{Op: "cache write", Err: err}
	}
	return nil
}

func (s *BoltStore) CachedData(key string) (json.RawMessage, bool, error) {
	db, err := s.handle()
	if err != nil {
		return nil, false, err
	}
	var entry *CacheEntry
	err = db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCache).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var e CacheEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, false, &apperr.IOError{Op: "cache read", Err: err}
	}
	if entry == nil {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (s *BoltStore) Clear() error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketTransactions, bucketProducts, bucketCache} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &apperr.IOError{Op: "clear", Err: err}
	}
	return nil
}

func (s *BoltStore) Durable() bool { return true }

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return &apperr.IOError{Op: "close", Err: err}
	}
	return nil
}
