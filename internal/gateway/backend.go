package gateway

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"github.com/bentamate/bentamate-backend/internal/apperr"
	"github.com/bentamate/bentamate-backend/internal/product"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

// Backend is the remote collaborator every write lands on. SaveSale must
// persist the transaction and decrement stock for all its lines atomically.
// Implementations report unreachability as apperr.NetworkError so the
// gateway can fall back to the offline queue.
type Backend interface {
	SaveSale(ctx context.Context, txn transaction.Transaction) (transaction.Transaction, error)
	CreateProduct(ctx context.Context, p product.Product) (product.Product, error)
	UpdateProduct(ctx context.Context, p product.Product) (product.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// SQLBackend adapts the Postgres repositories to the Backend interface,
// classifying driver connectivity failures as NetworkError.
type SQLBackend struct {
	transactions transaction.Repository
	products     product.Repository
}

func NewSQLBackend(transactions transaction.Repository, products product.Repository) *SQLBackend {
	return &SQLBackend{transactions: transactions, products: products}
}

func (b *SQLBackend) SaveSale(ctx context.Context, txn transaction.Transaction) (transaction.Transaction, error) {
	saved, err := b.transactions.Create(txn)
	if err != nil {
		return transaction.Transaction{}, classify("save sale", err)
	}
	return saved, nil
}

func (b *SQLBackend) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	created, err := b.products.Create(p)
	if err != nil {
		return product.Product{}, classify("create product", err)
	}
	return created, nil
}

func (b *SQLBackend) UpdateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	updated, err := b.products.Update(p.ID, p)
	if err != nil {
		return product.Product{}, classify("update product", err)
	}
	return updated, nil
}

func (b *SQLBackend) DeleteProduct(ctx context.Context, id string) error {
	if err := b.products.Delete(id); err != nil {
		return classify("delete product", err)
	}
	return nil
}

func classify(op string, err error) error {
	if errors.Is(err, product.ErrNotFound) || errors.Is(err, transaction.ErrNotFound) {
		return err
	}
	if isConnErr(err) {
		return &apperr.NetworkError{Op: op, Err: err}
	}
	return err
}

func isConnErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET)
}
