// Package category lists the product categories in use, for catalog
// filters and the product form's category picker.
package category

import "database/sql"

type Repository interface {
	List() ([]string, error)
}

type PostgresRepository struct {
	db *sql.DB
}

const listCategoriesQuery = `
	SELECT DISTINCT category
	FROM products
	WHERE category IS NOT NULL AND category <> ''
	ORDER BY category
`

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List() ([]string, error) {
	rows, err := r.db.Query(listCategoriesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
