package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domainProduct "github.com/corebill/corebill/internal/domain/product"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/postgres"
	"github.com/corebill/corebill/internal/types"
)

type productRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewProductRepository creates a new postgres product repository
func NewProductRepository(db *postgres.DB, logger *logger.Logger) domainProduct.Repository {
	return &productRepository{db: db, logger: logger}
}

const productColumns = `
	id, name, description, unit_price, currency, tax_rate, metadata,
	org_id, status, created_at, updated_at, created_by, updated_by`

func (r *productRepository) Create(ctx context.Context, p *domainProduct.Product) error {
	q := r.db.GetQuerier(ctx)
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (
			:id, :name, :description, :unit_price, :currency, :tax_rate, :metadata,
			:org_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`
	if _, err := q.NamedExec(query, p); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create product").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (*domainProduct.Product, error) {
	q := r.db.GetQuerier(ctx)

	var p domainProduct.Product
	query := `SELECT ` + productColumns + ` FROM products
		WHERE id = $1 AND org_id = $2 AND status != $3`
	err := q.GetContext(ctx, &p, query, id, types.GetOrgID(ctx), types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("product not found").
				WithHintf("Product %s does not exist", id).
				WithReportableDetails(map[string]any{"product_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get product").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *productRepository) Update(ctx context.Context, p *domainProduct.Product) error {
	q := r.db.GetQuerier(ctx)

	query := `
		UPDATE products SET
			name = :name,
			description = :description,
			unit_price = :unit_price,
			currency = :currency,
			tax_rate = :tax_rate,
			metadata = :metadata,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND org_id = :org_id`

	result, err := q.NamedExec(query, p)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update product").
			Mark(ierr.ErrDatabase)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update product").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("product not found").
			WithHintf("Product %s does not exist", p.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	q := r.db.GetQuerier(ctx)

	query := `UPDATE products SET status = $1, updated_at = $2, updated_by = $3
		WHERE id = $4 AND org_id = $5 AND status != $1`
	result, err := q.ExecContext(ctx, query,
		types.StatusDeleted, time.Now().UTC(), types.GetUserID(ctx), id, types.GetOrgID(ctx))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete product").
			Mark(ierr.ErrDatabase)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete product").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("product not found").
			WithHintf("Product %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *productRepository) List(ctx context.Context, filter *types.QueryFilter) ([]*domainProduct.Product, error) {
	q := r.db.GetQuerier(ctx)

	query := fmt.Sprintf(`SELECT %s FROM products
		WHERE org_id = $1 AND status = $2
		ORDER BY %s %s`,
		productColumns, sanitizeSortColumn(filter.GetSort()), sanitizeSortOrder(filter.GetOrder()))

	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	products := make([]*domainProduct.Product, 0)
	if err := q.SelectContext(ctx, &products, query, types.GetOrgID(ctx), filter.GetStatus()); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list products").
			Mark(ierr.ErrDatabase)
	}
	return products, nil
}

func (r *productRepository) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	q := r.db.GetQuerier(ctx)

	var count int
	query := `SELECT COUNT(*) FROM products WHERE org_id = $1 AND status = $2`
	if err := q.GetContext(ctx, &count, query, types.GetOrgID(ctx), filter.GetStatus()); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count products").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}
