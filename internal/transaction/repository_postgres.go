package transaction

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	insertTransactionQuery = `
		INSERT INTO transactions (id, items, total, amount_received, change_amount, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	listTransactionsQuery = `
		SELECT id, items, total, amount_received, change_amount, user_id, created_at
		FROM transactions
		ORDER BY created_at DESC
	`
	listTransactionsByUserQuery = `
		SELECT id, items, total, amount_received, change_amount, user_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	listTransactionsBetweenQuery = `
		SELECT id, items, total, amount_received, change_amount, user_id, created_at
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
	`
	listTransactionsByIDsQuery = `
		SELECT id, items, total, amount_received, change_amount, user_id, created_at
		FROM transactions
		WHERE id = ANY($1)
	`
	decrementStockForSaleQuery = `UPDATE products SET stock = GREATEST(stock - $1, 0), updated_at = $2 WHERE id = $3`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the transaction and decrements stock for every line item
// inside a single SQL transaction, so a crash never leaves a saved sale
// with partially-applied stock.
func (r *PostgresRepository) Create(txn Transaction) (Transaction, error) {
	if txn.ID == "" || strings.HasPrefix(txn.ID, OfflineIDPrefix) {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt == "" {
		txn.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	txn.Offline = false

	items, err := json.Marshal(txn.Items)
	if err != nil {
		return Transaction{}, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(insertTransactionQuery,
		txn.ID, items, txn.Total, txn.AmountReceived, txn.Change, txn.UserID, txn.CreatedAt); err != nil {
		return Transaction{}, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, it := range txn.Items {
		if _, err := tx.Exec(decrementStockForSaleQuery, it.Quantity, now, it.ProductID); err != nil {
			return Transaction{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

func scanTransaction(rows *sql.Rows) (Transaction, error) {
	var (
		t     Transaction
		items []byte
	)
	if err := rows.Scan(&t.ID, &items, &t.Total, &t.AmountReceived, &t.Change, &t.UserID, &t.CreatedAt); err != nil {
		return Transaction{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &t.Items); err != nil {
			return Transaction{}, err
		}
	}
	return t, nil
}

func (r *PostgresRepository) queryList(query string, args ...interface{}) ([]Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) List() ([]Transaction, error) {
	return r.queryList(listTransactionsQuery)
}

func (r *PostgresRepository) ListByUser(userID string) ([]Transaction, error) {
	return r.queryList(listTransactionsByUserQuery, userID)
}

func (r *PostgresRepository) ListBetween(from, to time.Time) ([]Transaction, error) {
	return r.queryList(listTransactionsBetweenQuery,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

func (r *PostgresRepository) ListByIDs(ids []string) ([]Transaction, error) {
	if len(ids) == 0 {
		return []Transaction{}, nil
	}
	return r.queryList(listTransactionsByIDsQuery, pq.Array(ids))
}
