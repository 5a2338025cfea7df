package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domainTemplate "github.com/corebill/corebill/internal/domain/template"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/postgres"
	"github.com/corebill/corebill/internal/types"
)

type templateRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewTemplateRepository creates a new postgres recurring template repository
func NewTemplateRepository(db *postgres.DB, logger *logger.Logger) domainTemplate.Repository {
	return &templateRepository{db: db, logger: logger}
}

const templateColumns = `
	id, name, contact_id, frequency, recurring_status, currency,
	start_date, end_date, next_run_date,
	max_occurrences, invoices_generated, last_generated_at,
	auto_send, payment_terms,
	tax_rate, discount_type, discount_value,
	notes, metadata, source_invoice_id,
	org_id, status, created_at, updated_at, created_by, updated_by`

func (r *templateRepository) Create(ctx context.Context, tmpl *domainTemplate.Template) error {
	q := r.db.GetQuerier(ctx)
	query := `
		INSERT INTO recurring_templates (` + templateColumns + `)
		VALUES (
			:id, :name, :contact_id, :frequency, :recurring_status, :currency,
			:start_date, :end_date, :next_run_date,
			:max_occurrences, :invoices_generated, :last_generated_at,
			:auto_send, :payment_terms,
			:tax_rate, :discount_type, :discount_value,
			:notes, :metadata, :source_invoice_id,
			:org_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`
	if _, err := q.NamedExec(query, tmpl); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create recurring template").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *templateRepository) CreateWithLineItems(ctx context.Context, tmpl *domainTemplate.Template) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if err := r.Create(ctx, tmpl); err != nil {
			return err
		}
		return r.insertLineItems(ctx, tmpl.ID, tmpl.LineItems)
	})
}

func (r *templateRepository) insertLineItems(ctx context.Context, templateID string, items []*domainTemplate.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	q := r.db.GetQuerier(ctx)
	query := `
		INSERT INTO recurring_template_line_items (
			id, template_id, product_id, name, description,
			quantity, unit_price, tax_rate, display_order,
			org_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :template_id, :product_id, :name, :description,
			:quantity, :unit_price, :tax_rate, :display_order,
			:org_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	for _, item := range items {
		item.TemplateID = templateID
		if _, err := q.NamedExec(query, item); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create template line item").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *templateRepository) Get(ctx context.Context, id string) (*domainTemplate.Template, error) {
	q := r.db.GetQuerier(ctx)

	var tmpl domainTemplate.Template
	query := `SELECT ` + templateColumns + ` FROM recurring_templates
		WHERE id = $1 AND org_id = $2 AND status != $3`
	err := q.GetContext(ctx, &tmpl, query, id, types.GetOrgID(ctx), types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("recurring template not found").
				WithHintf("Template %s does not exist", id).
				WithReportableDetails(map[string]any{"template_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get recurring template").
			Mark(ierr.ErrDatabase)
	}

	if err := r.loadLineItems(ctx, &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepository) loadLineItems(ctx context.Context, tmpl *domainTemplate.Template) error {
	q := r.db.GetQuerier(ctx)
	query := `
		SELECT id, template_id, product_id, name, description,
			quantity, unit_price, tax_rate, display_order,
			org_id, status, created_at, updated_at, created_by, updated_by
		FROM recurring_template_line_items
		WHERE template_id = $1 AND status != $2
		ORDER BY display_order ASC`

	items := make([]*domainTemplate.LineItem, 0)
	if err := q.SelectContext(ctx, &items, query, tmpl.ID, types.StatusDeleted); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load template line items").
			Mark(ierr.ErrDatabase)
	}
	tmpl.LineItems = items
	return nil
}

func (r *templateRepository) Update(ctx context.Context, tmpl *domainTemplate.Template) error {
	q := r.db.GetQuerier(ctx)

	query := `
		UPDATE recurring_templates SET
			name = :name,
			frequency = :frequency,
			recurring_status = :recurring_status,
			start_date = :start_date,
			end_date = :end_date,
			next_run_date = :next_run_date,
			max_occurrences = :max_occurrences,
			invoices_generated = :invoices_generated,
			last_generated_at = :last_generated_at,
			auto_send = :auto_send,
			payment_terms = :payment_terms,
			tax_rate = :tax_rate,
			discount_type = :discount_type,
			discount_value = :discount_value,
			notes = :notes,
			metadata = :metadata,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND org_id = :org_id`

	result, err := q.NamedExec(query, tmpl)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update recurring template").
			Mark(ierr.ErrDatabase)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update recurring template").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("recurring template not found").
			WithHintf("Template %s does not exist", tmpl.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *templateRepository) List(ctx context.Context, filter *types.TemplateFilter) ([]*domainTemplate.Template, error) {
	where, args := r.buildFilterClause(ctx, filter)

	query := fmt.Sprintf(`SELECT %s FROM recurring_templates WHERE %s ORDER BY %s %s`,
		templateColumns, where, sanitizeSortColumn(filter.GetSort()), sanitizeSortOrder(filter.GetOrder()))

	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	q := r.db.GetQuerier(ctx)
	templates := make([]*domainTemplate.Template, 0)
	if err := q.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list recurring templates").
			Mark(ierr.ErrDatabase)
	}

	for _, tmpl := range templates {
		if err := r.loadLineItems(ctx, tmpl); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (r *templateRepository) Count(ctx context.Context, filter *types.TemplateFilter) (int, error) {
	where, args := r.buildFilterClause(ctx, filter)

	q := r.db.GetQuerier(ctx)
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM recurring_templates WHERE %s`, where)
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count recurring templates").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

// ListDue locks due rows for the scheduler tick so two concurrent runs never
// pick up the same template
func (r *templateRepository) ListDue(ctx context.Context, cutoff time.Time) ([]*domainTemplate.Template, error) {
	q := r.db.GetQuerier(ctx)

	query := `SELECT ` + templateColumns + ` FROM recurring_templates
		WHERE org_id = $1 AND status = $2
			AND recurring_status = $3 AND next_run_date <= $4
		ORDER BY next_run_date ASC
		FOR UPDATE SKIP LOCKED`

	templates := make([]*domainTemplate.Template, 0)
	err := q.SelectContext(ctx, &templates, query,
		types.GetOrgID(ctx), types.StatusPublished, types.RecurringStatusActive, cutoff)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list due templates").
			Mark(ierr.ErrDatabase)
	}

	for _, tmpl := range templates {
		if err := r.loadLineItems(ctx, tmpl); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (r *templateRepository) buildFilterClause(ctx context.Context, filter *types.TemplateFilter) (string, []interface{}) {
	clauses := []string{"org_id = ?", "status = ?"}
	args := []interface{}{types.GetOrgID(ctx), filter.GetStatus()}

	if len(filter.TemplateIDs) > 0 {
		placeholders := make([]string, len(filter.TemplateIDs))
		for i, id := range filter.TemplateIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.ContactID != "" {
		clauses = append(clauses, "contact_id = ?")
		args = append(args, filter.ContactID)
	}
	if filter.RecurringStatus != nil {
		clauses = append(clauses, "recurring_status = ?")
		args = append(args, *filter.RecurringStatus)
	}
	if filter.Frequency != nil {
		clauses = append(clauses, "frequency = ?")
		args = append(args, *filter.Frequency)
	}
	if filter.DueBefore != nil {
		clauses = append(clauses, "next_run_date <= ?")
		args = append(args, *filter.DueBefore)
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
