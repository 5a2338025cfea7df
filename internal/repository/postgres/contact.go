package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domainContact "github.com/corebill/corebill/internal/domain/contact"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/postgres"
	"github.com/corebill/corebill/internal/types"
)

type contactRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewContactRepository creates a new postgres contact repository
func NewContactRepository(db *postgres.DB, logger *logger.Logger) domainContact.Repository {
	return &contactRepository{db: db, logger: logger}
}

const contactColumns = `
	id, name, email, phone, company, address, notes, metadata,
	org_id, status, created_at, updated_at, created_by, updated_by`

func (r *contactRepository) Create(ctx context.Context, c *domainContact.Contact) error {
	q := r.db.GetQuerier(ctx)
	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES (
			:id, :name, :email, :phone, :company, :address, :notes, :metadata,
			:org_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`
	if _, err := q.NamedExec(query, c); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create contact").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *contactRepository) Get(ctx context.Context, id string) (*domainContact.Contact, error) {
	q := r.db.GetQuerier(ctx)

	var c domainContact.Contact
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE id = $1 AND org_id = $2 AND status != $3`
	err := q.GetContext(ctx, &c, query, id, types.GetOrgID(ctx), types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("contact not found").
				WithHintf("Contact %s does not exist", id).
				WithReportableDetails(map[string]any{"contact_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get contact").
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}

func (r *contactRepository) Update(ctx context.Context, c *domainContact.Contact) error {
	q := r.db.GetQuerier(ctx)

	query := `
		UPDATE contacts SET
			name = :name,
			email = :email,
			phone = :phone,
			company = :company,
			address = :address,
			notes = :notes,
			metadata = :metadata,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND org_id = :org_id`

	result, err := q.NamedExec(query, c)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update contact").
			Mark(ierr.ErrDatabase)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update contact").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("contact not found").
			WithHintf("Contact %s does not exist", c.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *contactRepository) Delete(ctx context.Context, id string) error {
	q := r.db.GetQuerier(ctx)

	query := `UPDATE contacts SET status = $1, updated_at = $2, updated_by = $3
		WHERE id = $4 AND org_id = $5 AND status != $1`
	result, err := q.ExecContext(ctx, query,
		types.StatusDeleted, time.Now().UTC(), types.GetUserID(ctx), id, types.GetOrgID(ctx))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete contact").
			Mark(ierr.ErrDatabase)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete contact").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("contact not found").
			WithHintf("Contact %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *contactRepository) List(ctx context.Context, filter *types.QueryFilter) ([]*domainContact.Contact, error) {
	q := r.db.GetQuerier(ctx)

	query := fmt.Sprintf(`SELECT %s FROM contacts
		WHERE org_id = $1 AND status = $2
		ORDER BY %s %s`,
		contactColumns, sanitizeSortColumn(filter.GetSort()), sanitizeSortOrder(filter.GetOrder()))

	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	contacts := make([]*domainContact.Contact, 0)
	if err := q.SelectContext(ctx, &contacts, query, types.GetOrgID(ctx), filter.GetStatus()); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list contacts").
			Mark(ierr.ErrDatabase)
	}
	return contacts, nil
}

func (r *contactRepository) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	q := r.db.GetQuerier(ctx)

	var count int
	query := `SELECT COUNT(*) FROM contacts WHERE org_id = $1 AND status = $2`
	if err := q.GetContext(ctx, &count, query, types.GetOrgID(ctx), filter.GetStatus()); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count contacts").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}
