package product

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listProductsQuery = `
		SELECT id, name, barcode, capital, selling, stock, category, description, user_id, created_at, updated_at
		FROM products
		ORDER BY name
	`
	getProductByIDQuery = `
		SELECT id, name, barcode, capital, selling, stock, category, description, user_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	getProductByBarcodeQuery = `
		SELECT id, name, barcode, capital, selling, stock, category, description, user_id, created_at, updated_at
		FROM products
		WHERE barcode = $1
	`
	insertProductQuery = `
		INSERT INTO products (id, name, barcode, capital, selling, stock, category, description, user_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`
	updateProductQuery = `
		UPDATE products
		SET name = $1,
			barcode = $2,
			capital = $3,
			selling = $4,
			stock = $5,
			category = $6,
			description = $7,
			updated_at = $8
		WHERE id = $9
	`
	deleteProductQuery    = `DELETE FROM products WHERE id = $1`
	decrementStockQuery   = `UPDATE products SET stock = GREATEST(stock - $1, 0), updated_at = $2 WHERE id = $3`
	truncateProductsQuery = `DELETE FROM products`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// rowScanner lets scanProduct work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p        Product
		category sql.NullString
		desc     sql.NullString
		userID   sql.NullString
		created  sql.NullString
		updated  sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Barcode, &p.Capital, &p.Selling, &p.Stock, &category, &desc, &userID, &created, &updated); err != nil {
		return Product{}, err
	}
	p.Category = category.String
	p.Description = desc.String
	p.UserID = userID.String
	p.CreatedAt = created.String
	p.UpdatedAt = updated.String
	return p, nil
}

func (r *PostgresRepository) List() ([]Product, error) {
	rows, err := r.db.Query(listProductsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(id string) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(getProductByIDQuery, id))
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) GetByBarcode(code string) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(getProductByBarcodeQuery, code))
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) Create(p Product) (Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if p.CreatedAt == "" {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.db.Exec(insertProductQuery,
		p.ID, p.Name, p.Barcode, p.Capital, p.Selling, p.Stock,
		p.Category, p.Description, p.UserID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Update(id string, p Product) (Product, error) {
	p.ID = id
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.Exec(updateProductQuery,
		p.Name, p.Barcode, p.Capital, p.Selling, p.Stock,
		p.Category, p.Description, p.UpdatedAt, id)
	if err != nil {
		return Product{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *PostgresRepository) Delete(id string) error {
	res, err := r.db.Exec(deleteProductQuery, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DecrementStock(id string, by int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.Exec(decrementStockQuery, by, now, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Reset clears the products table and inserts the provided list.
func (r *PostgresRepository) Reset(products []Product) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(truncateProductsQuery); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range products {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt == "" {
			p.CreatedAt = now
		}
		if _, err := tx.Exec(insertProductQuery,
			p.ID, p.Name, p.Barcode, p.Capital, p.Selling, p.Stock,
			p.Category, p.Description, p.UserID, p.CreatedAt, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
