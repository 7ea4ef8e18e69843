package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing client or project.
var ErrNotFound = errors.New("reports: not found")

// Repository provides the PostgreSQL backed record source adapters. The
// reporting engine only reads; the owning CRUD services write these tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceQuery = `
	SELECT total, issued_on, status, client_id, project_id
	FROM invoices
	WHERE ($1::date IS NULL OR issued_on >= $1)
	  AND ($2::date IS NULL OR issued_on <= $2)
	ORDER BY issued_on`

const purchaseQuery = `
	SELECT total, purchased_on, status, client_id, project_id
	FROM purchases
	WHERE ($1::date IS NULL OR purchased_on >= $1)
	  AND ($2::date IS NULL OR purchased_on <= $2)
	ORDER BY purchased_on`

const expenseQuery = `
	SELECT amount, spent_on, status, client_id, project_id
	FROM operating_expenses
	WHERE ($1::date IS NULL OR spent_on >= $1)
	  AND ($2::date IS NULL OR spent_on <= $2)
	ORDER BY spent_on`

const installmentQuery = `
	SELECT amount, due_on, status, client_id, project_id
	FROM installments
	WHERE ($1::date IS NULL OR due_on >= $1)
	  AND ($2::date IS NULL OR due_on <= $2)
	ORDER BY due_on`

// ListInvoices returns invoice records attributed to their issue date.
func (r *Repository) ListInvoices(ctx context.Context, dr DateRange) ([]FinancialRecord, error) {
	return r.listRecords(ctx, invoiceQuery, "invoices", dr)
}

// ListPurchases returns purchase records attributed to their purchase date.
func (r *Repository) ListPurchases(ctx context.Context, dr DateRange) ([]FinancialRecord, error) {
	return r.listRecords(ctx, purchaseQuery, "purchases", dr)
}

// ListExpenses returns operating expense records attributed to their expense
// date.
func (r *Repository) ListExpenses(ctx context.Context, dr DateRange) ([]FinancialRecord, error) {
	return r.listRecords(ctx, expenseQuery, "operating_expenses", dr)
}

// ListInstallments returns legacy installment records attributed to their due
// date.
func (r *Repository) ListInstallments(ctx context.Context, dr DateRange) ([]FinancialRecord, error) {
	return r.listRecords(ctx, installmentQuery, "installments", dr)
}

func (r *Repository) listRecords(ctx context.Context, query, table string, dr DateRange) ([]FinancialRecord, error) {
	rows, err := r.pool.Query(ctx, query, dateParam(dr.From), dateParam(dr.To))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var records []FinancialRecord
	for rows.Next() {
		var (
			amount    pgtype.Float8
			date      pgtype.Date
			status    pgtype.Text
			clientID  pgtype.Int8
			projectID pgtype.Int8
		)
		if err := rows.Scan(&amount, &date, &status, &clientID, &projectID); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		// Rows without a date or amount are a data integrity problem and are
		// rejected here, never tolerated downstream.
		if !amount.Valid || !date.Valid || !status.Valid {
			return nil, fmt.Errorf("%s: malformed row: amount, date and status are required", table)
		}
		if amount.Float64 < 0 {
			return nil, fmt.Errorf("%s: malformed row: negative amount %v", table, amount.Float64)
		}
		rec := FinancialRecord{
			Amount: amount.Float64,
			Date:   date.Time,
			Status: status.String,
		}
		if clientID.Valid {
			v := clientID.Int64
			rec.ClientID = &v
		}
		if projectID.Valid {
			v := projectID.Int64
			rec.ProjectID = &v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return records, nil
}

// ClientName resolves a client's display name for export labeling.
func (r *Repository) ClientName(ctx context.Context, id int64) (string, error) {
	return r.lookupName(ctx, "SELECT name FROM clients WHERE id = $1", id)
}

// ProjectName resolves a project's display name for export labeling.
func (r *Repository) ProjectName(ctx context.Context, id int64) (string, error) {
	return r.lookupName(ctx, "SELECT name FROM projects WHERE id = $1", id)
}

func (r *Repository) lookupName(ctx context.Context, query string, id int64) (string, error) {
	var name string
	if err := r.pool.QueryRow(ctx, query, id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return name, nil
}

func dateParam(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: dayOf(t), Valid: true}
}
