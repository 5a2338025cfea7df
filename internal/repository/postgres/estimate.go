package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domainEstimate "github.com/corebill/corebill/internal/domain/estimate"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/postgres"
	"github.com/corebill/corebill/internal/types"
)

type estimateRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewEstimateRepository creates a new postgres estimate repository
func NewEstimateRepository(db *postgres.DB, logger *logger.Logger) domainEstimate.Repository {
	return &estimateRepository{db: db, logger: logger}
}

const estimateColumns = `
	id, estimate_number, contact_id, estimate_status, currency,
	customer_name, customer_email, customer_phone, customer_address,
	issue_date, expires_at,
	subtotal, tax_rate, tax_amount, discount_type, discount_value, discount_amount, total,
	notes, terms, metadata,
	sent_at, accepted_at, declined_at,
	converted_invoice_id, converted_at,
	org_id, status, created_at, updated_at, created_by, updated_by`

func (r *estimateRepository) Create(ctx context.Context, est *domainEstimate.Estimate) error {
	q := r.db.GetQuerier(ctx)
	query := `
		INSERT INTO estimates (` + estimateColumns + `)
		VALUES (
			:id, :estimate_number, :contact_id, :estimate_status, :currency,
			:customer_name, :customer_email, :customer_phone, :customer_address,
			:issue_date, :expires_at,
			:subtotal, :tax_rate, :tax_amount, :discount_type, :discount_value, :discount_amount, :total,
			:notes, :terms, :metadata,
			:sent_at, :accepted_at, :declined_at,
			:converted_invoice_id, :converted_at,
			:org_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`
	if _, err := q.NamedExec(query, est); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An estimate with this number already exists").
				WithReportableDetails(map[string]any{"estimate_number": est.EstimateNumber}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create estimate").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *estimateRepository) CreateWithLineItems(ctx context.Context, est *domainEstimate.Estimate) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if err := r.Create(ctx, est); err != nil {
			return err
		}
		return r.insertLineItems(ctx, est.ID, est.LineItems)
	})
}

func (r *estimateRepository) insertLineItems(ctx context.Context, estimateID string, items []*domainEstimate.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	q := r.db.GetQuerier(ctx)
	query := `
		INSERT INTO estimate_line_items (
			id, estimate_id, product_id, name, description,
			quantity, unit_price, tax_rate, amount, display_order,
			org_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :estimate_id, :product_id, :name, :description,
			:quantity, :unit_price, :tax_rate, :amount, :display_order,
			:org_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	for _, item := range items {
		item.EstimateID = estimateID
		if _, err := q.NamedExec(query, item); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create estimate line item").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *estimateRepository) Get(ctx context.Context, id string) (*domainEstimate.Estimate, error) {
	q := r.db.GetQuerier(ctx)

	var est domainEstimate.Estimate
	query := `SELECT ` + estimateColumns + ` FROM estimates
		WHERE id = $1 AND org_id = $2 AND status != $3`
	err := q.GetContext(ctx, &est, query, id, types.GetOrgID(ctx), types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("estimate not found").
				WithHintf("Estimate %s does not exist", id).
				WithReportableDetails(map[string]any{"estimate_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get estimate").
			Mark(ierr.ErrDatabase)
	}

	if err := r.loadLineItems(ctx, &est); err != nil {
		return nil, err
	}
	return &est, nil
}

func (r *estimateRepository) loadLineItems(ctx context.Context, est *domainEstimate.Estimate) error {
	q := r.db.GetQuerier(ctx)
	query := `
		SELECT id, estimate_id, product_id, name, description,
			quantity, unit_price, tax_rate, amount, display_order,
			org_id, status, created_at, updated_at, created_by, updated_by
		FROM estimate_line_items
		WHERE estimate_id = $1 AND status != $2
		ORDER BY display_order ASC`

	items := make([]*domainEstimate.LineItem, 0)
	if err := q.SelectContext(ctx, &items, query, est.ID, types.StatusDeleted); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load estimate line items").
			Mark(ierr.ErrDatabase)
	}
	est.LineItems = items
	return nil
}

func (r *estimateRepository) Update(ctx context.Context, est *domainEstimate.Estimate) error {
	q := r.db.GetQuerier(ctx)

	query := `
		UPDATE estimates SET
			estimate_number = :estimate_number,
			estimate_status = :estimate_status,
			customer_name = :customer_name,
			customer_email = :customer_email,
			customer_phone = :customer_phone,
			customer_address = :customer_address,
			issue_date = :issue_date,
			expires_at = :expires_at,
			subtotal = :subtotal,
			tax_rate = :tax_rate,
			tax_amount = :tax_amount,
			discount_type = :discount_type,
			discount_value = :discount_value,
			discount_amount = :discount_amount,
			total = :total,
			notes = :notes,
			terms = :terms,
			metadata = :metadata,
			sent_at = :sent_at,
			accepted_at = :accepted_at,
			declined_at = :declined_at,
			converted_invoice_id = :converted_invoice_id,
			converted_at = :converted_at,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND org_id = :org_id`

	result, err := q.NamedExec(query, est)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update estimate").
			Mark(ierr.ErrDatabase)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update estimate").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("estimate not found").
			WithHintf("Estimate %s does not exist", est.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *estimateRepository) List(ctx context.Context, filter *types.EstimateFilter) ([]*domainEstimate.Estimate, error) {
	where, args := r.buildFilterClause(ctx, filter)

	query := fmt.Sprintf(`SELECT %s FROM estimates WHERE %s ORDER BY %s %s`,
		estimateColumns, where, sanitizeSortColumn(filter.GetSort()), sanitizeSortOrder(filter.GetOrder()))

	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	q := r.db.GetQuerier(ctx)
	estimates := make([]*domainEstimate.Estimate, 0)
	if err := q.SelectContext(ctx, &estimates, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list estimates").
			Mark(ierr.ErrDatabase)
	}

	for _, est := range estimates {
		if err := r.loadLineItems(ctx, est); err != nil {
			return nil, err
		}
	}
	return estimates, nil
}

func (r *estimateRepository) Count(ctx context.Context, filter *types.EstimateFilter) (int, error) {
	where, args := r.buildFilterClause(ctx, filter)

	q := r.db.GetQuerier(ctx)
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM estimates WHERE %s`, where)
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count estimates").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *estimateRepository) ExistsNumber(ctx context.Context, estimateNumber string) (bool, error) {
	q := r.db.GetQuerier(ctx)
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM estimates
		WHERE estimate_number = $1 AND org_id = $2 AND status != $3)`
	if err := q.GetContext(ctx, &exists, query, estimateNumber, types.GetOrgID(ctx), types.StatusDeleted); err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check estimate number").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

func (r *estimateRepository) buildFilterClause(ctx context.Context, filter *types.EstimateFilter) (string, []interface{}) {
	clauses := []string{"org_id = ?", "status = ?"}
	args := []interface{}{types.GetOrgID(ctx), filter.GetStatus()}

	if len(filter.EstimateIDs) > 0 {
		placeholders := make([]string, len(filter.EstimateIDs))
		for i, id := range filter.EstimateIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.ContactID != "" {
		clauses = append(clauses, "contact_id = ?")
		args = append(args, filter.ContactID)
	}
	if len(filter.EstimateStatus) > 0 {
		placeholders := make([]string, len(filter.EstimateStatus))
		for i, st := range filter.EstimateStatus {
			placeholders[i] = "?"
			args = append(args, st)
		}
		clauses = append(clauses, fmt.Sprintf("estimate_status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.EstimateNumber != "" {
		clauses = append(clauses, "estimate_number = ?")
		args = append(args, filter.EstimateNumber)
	}
	if filter.ExpiresBefore != nil {
		clauses = append(clauses, "expires_at < ?")
		args = append(args, *filter.ExpiresBefore)
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			clauses = append(clauses, "created_at >= ?")
			args = append(args, *filter.StartTime)
		}
		if filter.EndTime != nil {
			clauses = append(clauses, "created_at <= ?")
			args = append(args, *filter.EndTime)
		}
	}

	return rebind(strings.Join(clauses, " AND ")), args
}
