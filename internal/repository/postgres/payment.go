package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domainPayment "github.com/corebill/corebill/internal/domain/payment"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/postgres"
	"github.com/corebill/corebill/internal/types"
)

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewPaymentRepository creates a new postgres payment repository
func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) domainPayment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

const paymentColumns = `
	id, invoice_id, amount, overpayment_amount, currency,
	payment_method, payment_date, reference, notes,
	gateway_payment_id, payment_link_url, idempotency_key, metadata,
	org_id, status, created_at, updated_at, created_by, updated_by`

func (r *paymentRepository) Create(ctx context.Context, p *domainPayment.Payment) error {
	q := r.db.GetQuerier(ctx)
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (
			:id, :invoice_id, :amount, :overpayment_amount, :currency,
			:payment_method, :payment_date, :reference, :notes,
			:gateway_payment_id, :payment_link_url, :idempotency_key, :metadata,
			:org_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`
	if _, err := q.NamedExec(query, p); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A payment with this idempotency key already exists").
				WithReportableDetails(map[string]any{"invoice_id": p.InvoiceID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*domainPayment.Payment, error) {
	q := r.db.GetQuerier(ctx)

	var p domainPayment.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE id = $1 AND org_id = $2 AND status != $3`
	err := q.GetContext(ctx, &p, query, id, types.GetOrgID(ctx), types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("payment not found").
				WithHintf("Payment %s does not exist", id).
				WithReportableDetails(map[string]any{"payment_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domainPayment.Payment, error) {
	q := r.db.GetQuerier(ctx)

	var p domainPayment.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE idempotency_key = $1 AND org_id = $2 AND status != $3`
	err := q.GetContext(ctx, &p, query, key, types.GetOrgID(ctx), types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("payment not found").
				WithHint("No payment exists for this idempotency key").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*domainPayment.Payment, error) {
	where, args := r.buildFilterClause(ctx, filter)

	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s ORDER BY %s %s`,
		paymentColumns, where, sanitizeSortColumn(filter.GetSort()), sanitizeSortOrder(filter.GetOrder()))

	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	q := r.db.GetQuerier(ctx)
	payments := make([]*domainPayment.Payment, 0)
	if err := q.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	where, args := r.buildFilterClause(ctx, filter)

	q := r.db.GetQuerier(ctx)
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM payments WHERE %s`, where)
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count payments").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *paymentRepository) buildFilterClause(ctx context.Context, filter *types.PaymentFilter) (string, []interface{}) {
	clauses := []string{"org_id = ?", "status = ?"}
	args := []interface{}{types.GetOrgID(ctx), filter.GetStatus()}

	if len(filter.PaymentIDs) > 0 {
		placeholders := make([]string, len(filter.PaymentIDs))
		for i, id := range filter.PaymentIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.InvoiceID != "" {
		clauses = append(clauses, "invoice_id = ?")
		args = append(args, filter.InvoiceID)
	}
	if filter.PaymentMethod != nil {
		clauses = append(clauses, "payment_method = ?")
		args = append(args, *filter.PaymentMethod)
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			clauses = append(clauses, "payment_date >= ?")
			args = append(args, *filter.StartTime)
		}
		if filter.EndTime != nil {
			clauses = append(clauses, "payment_date <= ?")
			args = append(args, *filter.EndTime)
		}
	}

	return rebind(strings.Join(clauses, " AND ")), args
}
