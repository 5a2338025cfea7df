package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domainInvoice "github.com/corebill/corebill/internal/domain/invoice"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/postgres"
	"github.com/corebill/corebill/internal/types"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewInvoiceRepository creates a new postgres invoice repository
func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) domainInvoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

const invoiceColumns = `
	id, invoice_number, contact_id, invoice_status, currency,
	customer_name, customer_email, customer_phone, customer_address,
	issue_date, due_date, payment_terms,
	subtotal, tax_rate, tax_amount, discount_type, discount_value, discount_amount,
	total, amount_paid, amount_due,
	notes, terms, metadata,
	sent_at, last_sent_at, viewed_at, paid_at, cancelled_at, refunded_at,
	recurring_template_id, idempotency_key, is_recurring_source, source_estimate_id, version,
	org_id, status, created_at, updated_at, created_by, updated_by`

const insertInvoiceQuery = `
	INSERT INTO invoices (` + invoiceColumns + `)
	VALUES (
		:id, :invoice_number, :contact_id, :invoice_status, :currency,
		:customer_name, :customer_email, :customer_phone, :customer_address,
		:issue_date, :due_date, :payment_terms,
		:subtotal, :tax_rate, :tax_amount, :discount_type, :discount_value, :discount_amount,
		:total, :amount_paid, :amount_due,
		:notes, :terms, :metadata,
		:sent_at, :last_sent_at, :viewed_at, :paid_at, :cancelled_at, :refunded_at,
		:recurring_template_id, :idempotency_key, :is_recurring_source, :source_estimate_id, :version,
		:org_id, :status, :created_at, :updated_at, :created_by, :updated_by
	)`

func (r *invoiceRepository) Create(ctx context.Context, inv *domainInvoice.Invoice) error {
	q := r.db.GetQuerier(ctx)
	if _, err := q.NamedExec(insertInvoiceQuery, inv); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An invoice with this number or idempotency key already exists").
				WithReportableDetails(map[string]any{"invoice_number": inv.InvoiceNumber}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) CreateWithLineItems(ctx context.Context, inv *domainInvoice.Invoice) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if err := r.Create(ctx, inv); err != nil {
			return err
		}
		return r.insertLineItems(ctx, inv.ID, inv.LineItems)
	})
}

func (r *invoiceRepository) insertLineItems(ctx context.Context, invoiceID string, items []*domainInvoice.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	q := r.db.GetQuerier(ctx)
	query := `
		INSERT INTO invoice_line_items (
			id, invoice_id, product_id, name, description,
			quantity, unit_price, tax_rate, amount, display_order,
			org_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :invoice_id, :product_id, :name, :description,
			:quantity, :unit_price, :tax_rate, :amount, :display_order,
			:org_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	for _, item := range items {
		item.InvoiceID = invoiceID
		if _, err := q.NamedExec(query, item); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create invoice line item").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*domainInvoice.Invoice, error) {
	q := r.db.GetQuerier(ctx)

	var inv domainInvoice.Invoice
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE id = $1 AND org_id = $2 AND status != $3`
	err := q.GetContext(ctx, &inv, query, id, types.GetOrgID(ctx), types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice not found").
				WithHintf("Invoice %s does not exist", id).
				WithReportableDetails(map[string]any{"invoice_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	if err := r.loadLineItems(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domainInvoice.Invoice, error) {
	q := r.db.GetQuerier(ctx)

	var inv domainInvoice.Invoice
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE idempotency_key = $1 AND org_id = $2 AND status != $3`
	err := q.GetContext(ctx, &inv, query, key, types.GetOrgID(ctx), types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice not found").
				WithHint("No invoice exists for this idempotency key").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	if err := r.loadLineItems(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) loadLineItems(ctx context.Context, inv *domainInvoice.Invoice) error {
	q := r.db.GetQuerier(ctx)
	query := `
		SELECT id, invoice_id, product_id, name, description,
			quantity, unit_price, tax_rate, amount, display_order,
			org_id, status, created_at, updated_at, created_by, updated_by
		FROM invoice_line_items
		WHERE invoice_id = $1 AND status != $2
		ORDER BY display_order ASC`

	items := make([]*domainInvoice.LineItem, 0)
	if err := q.SelectContext(ctx, &items, query, inv.ID, types.StatusDeleted); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load invoice line items").
			Mark(ierr.ErrDatabase)
	}
	inv.LineItems = items
	return nil
}

// Update writes the invoice with an optimistic version check. The row only
// updates when the stored version matches the version read by the caller;
// a mismatch means another writer got there first.
func (r *invoiceRepository) Update(ctx context.Context, inv *domainInvoice.Invoice) error {
	q := r.db.GetQuerier(ctx)

	query := `
		UPDATE invoices SET
			invoice_number = :invoice_number,
			invoice_status = :invoice_status,
			customer_name = :customer_name,
			customer_email = :customer_email,
			customer_phone = :customer_phone,
			customer_address = :customer_address,
			issue_date = :issue_date,
			due_date = :due_date,
			payment_terms = :payment_terms,
			subtotal = :subtotal,
			tax_rate = :tax_rate,
			tax_amount = :tax_amount,
			discount_type = :discount_type,
			discount_value = :discount_value,
			discount_amount = :discount_amount,
			total = :total,
			amount_paid = :amount_paid,
			amount_due = :amount_due,
			notes = :notes,
			terms = :terms,
			metadata = :metadata,
			sent_at = :sent_at,
			last_sent_at = :last_sent_at,
			viewed_at = :viewed_at,
			paid_at = :paid_at,
			cancelled_at = :cancelled_at,
			refunded_at = :refunded_at,
			is_recurring_source = :is_recurring_source,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by,
			version = version + 1
		WHERE id = :id AND org_id = :org_id AND version = :version`

	result, err := q.NamedExec(query, inv)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("invoice was modified concurrently").
			WithHint("The invoice changed since it was read, retry the operation").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"version":    inv.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	inv.Version++
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*domainInvoice.Invoice, error) {
	where, args := r.buildFilterClause(ctx, filter)

	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY %s %s`,
		invoiceColumns, where, sanitizeSortColumn(filter.GetSort()), sanitizeSortOrder(filter.GetOrder()))

	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	q := r.db.GetQuerier(ctx)
	invoices := make([]*domainInvoice.Invoice, 0)
	if err := q.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}

	for _, inv := range invoices {
		if err := r.loadLineItems(ctx, inv); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	where, args := r.buildFilterClause(ctx, filter)

	q := r.db.GetQuerier(ctx)
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM invoices WHERE %s`, where)
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *invoiceRepository) ExistsNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	q := r.db.GetQuerier(ctx)
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM invoices
		WHERE invoice_number = $1 AND org_id = $2 AND status != $3)`
	if err := q.GetContext(ctx, &exists, query, invoiceNumber, types.GetOrgID(ctx), types.StatusDeleted); err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check invoice number").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

func (r *invoiceRepository) buildFilterClause(ctx context.Context, filter *types.InvoiceFilter) (string, []interface{}) {
	clauses := []string{"org_id = ?", "status = ?"}
	args := []interface{}{types.GetOrgID(ctx), filter.GetStatus()}

	if len(filter.InvoiceIDs) > 0 {
		placeholders := make([]string, len(filter.InvoiceIDs))
		for i, id := range filter.InvoiceIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.ContactID != "" {
		clauses = append(clauses, "contact_id = ?")
		args = append(args, filter.ContactID)
	}
	if len(filter.InvoiceStatus) > 0 {
		placeholders := make([]string, len(filter.InvoiceStatus))
		for i, st := range filter.InvoiceStatus {
			placeholders[i] = "?"
			args = append(args, st)
		}
		clauses = append(clauses, fmt.Sprintf("invoice_status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.InvoiceNumber != "" {
		clauses = append(clauses, "invoice_number = ?")
		args = append(args, filter.InvoiceNumber)
	}
	if filter.RecurringTemplateID != "" {
		clauses = append(clauses, "recurring_template_id = ?")
		args = append(args, filter.RecurringTemplateID)
	}
	if filter.DueDateBefore != nil {
		clauses = append(clauses, "due_date < ?")
		args = append(args, *filter.DueDateBefore)
	}
	if filter.DueDateAfter != nil {
		clauses = append(clauses, "due_date > ?")
		args = append(args, *filter.DueDateAfter)
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
