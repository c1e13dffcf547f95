package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

// InvoiceRepository manages persistence for invoices.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs an InvoiceRepository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, user_id, contract_id, amount, due_date, status, type, paid_at, payment_method, created_at, updated_at`

// List returns invoices matching the provided filters.
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	base := "FROM invoices"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.ContractID != "" {
		conditions = append(conditions, fmt.Sprintf("contract_id = $%d", len(args)+1))
		args = append(args, filter.ContractID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"due_date":   "due_date",
		"amount":     "amount",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "due_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", invoiceColumns, base, column, order, size, offset)

	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// FindByID fetches an invoice by ID.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	query := fmt.Sprintf("SELECT %s FROM invoices WHERE id = $1", invoiceColumns)
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Create inserts a new invoice.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	invoice.UpdatedAt = now
	const query = `INSERT INTO invoices (id, user_id, contract_id, amount, due_date, status, type, payment_method, paid_at, created_at, updated_at)
	VALUES (:id, :user_id, :contract_id, :amount, :due_date, :status, :type, :payment_method, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// MarkPaid settles a pending or overdue invoice. The status guard lives in
// the statement so a concurrent double payment can change at most one row.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time, method string) (bool, error) {
	const query = `UPDATE invoices SET status = $2, paid_at = $3, payment_method = NULLIF($4, ''), updated_at = $3
	WHERE id = $1 AND status IN ($5, $6)`
	res, err := r.db.ExecContext(ctx, query, id, models.InvoiceStatusPaid, paidAt.UTC(), method,
		models.InvoiceStatusPending, models.InvoiceStatusOverdue)
	if err != nil {
		return false, fmt.Errorf("mark invoice paid: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark invoice paid rows: %w", err)
	}
	return rows > 0, nil
}

// MarkOverdue flips pending invoices whose due date has passed. Returns the
// number of invoices flipped.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	const query = `UPDATE invoices SET status = $2, updated_at = $3 WHERE status = $1 AND due_date < $3`
	res, err := r.db.ExecContext(ctx, query, models.InvoiceStatusPending, models.InvoiceStatusOverdue, asOf.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue rows: %w", err)
	}
	return rows, nil
}

// BillingCandidates lists active contracts that have no rent invoice due
// inside the given period. Feeds the recurring billing cycle.
func (r *InvoiceRepository) BillingCandidates(ctx context.Context, periodStart, periodEnd time.Time) ([]models.BillingCandidate, error) {
	const query = `SELECT c.id AS contract_id, c.user_id, c.monthly_rent, c.start_date
	FROM contracts c
	WHERE c.status = $1
	  AND c.start_date <= $3
	  AND c.end_date >= $2
	  AND NOT EXISTS (
		SELECT 1 FROM invoices i
		WHERE i.contract_id = c.id AND i.type = $4 AND i.due_date >= $2 AND i.due_date <= $3
	  )
	ORDER BY c.created_at ASC`
	var candidates []models.BillingCandidate
	if err := r.db.SelectContext(ctx, &candidates, query,
		models.ContractStatusActive, periodStart.UTC(), periodEnd.UTC(), models.InvoiceTypeRoomRent); err != nil {
		return nil, fmt.Errorf("billing candidates: %w", err)
	}
	return candidates, nil
}

// Summary aggregates invoice counts and totals, scoped to a user when
// userID is non-empty.
func (r *InvoiceRepository) Summary(ctx context.Context, userID string) (*models.InvoiceSummary, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE status = 'pending') AS pending_count,
		COUNT(*) FILTER (WHERE status = 'paid') AS paid_count,
		COUNT(*) FILTER (WHERE status = 'overdue') AS overdue_count,
		COALESCE(SUM(amount) FILTER (WHERE status IN ('pending', 'overdue')), 0) AS pending_amount,
		COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0) AS paid_amount
	FROM invoices`
	args := []interface{}{}
	if userID != "" {
		query += " WHERE user_id = $1"
		args = append(args, userID)
	}
	var summary models.InvoiceSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, fmt.Errorf("invoice summary: %w", err)
	}
	return &summary, nil
}
