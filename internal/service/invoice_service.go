package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/export"
)

type invoiceRepository interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error)
	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time, method string) (bool, error)
	Summary(ctx context.Context, userID string) (*models.InvoiceSummary, error)
}

// PayInvoiceRequest records a payment against an invoice.
type PayInvoiceRequest struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=cash bank_transfer momo"`
}

// ExportFormat selects the invoice export rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered invoice export ready to stream.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// InvoiceService manages invoice listing, payment and export.
type InvoiceService struct {
	repo      invoiceRepository
	dashboard dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(repo invoiceRepository, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InvoiceService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// WithDashboard registers a dashboard cache to drop after payments, so
// the revenue counters reflect them on the next load.
func (s *InvoiceService) WithDashboard(dashboard dashboardInvalidator) *InvoiceService {
	s.dashboard = dashboard
	return s
}

// List returns invoices visible to the actor. Students only see their own.
func (s *InvoiceService) List(ctx context.Context, actor models.Actor, filter models.InvoiceFilter) ([]models.Invoice, *models.Pagination, error) {
	if !actor.IsStaff() {
		filter.UserID = actor.UserID
	}
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return invoices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single invoice, restricted to the owner for students.
func (s *InvoiceService) Get(ctx context.Context, actor models.Actor, id string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	if !actor.IsStaff() && invoice.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invoice belongs to another student")
	}
	return invoice, nil
}

// Pay settles a pending or overdue invoice. Paying an already paid invoice
// fails the status precondition without changing anything.
func (s *InvoiceService) Pay(ctx context.Context, actor models.Actor, id string, req PayInvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	if !actor.IsStaff() && invoice.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invoice belongs to another student")
	}

	paid, err := s.repo.MarkPaid(ctx, id, s.now().UTC(), req.PaymentMethod)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pay invoice")
	}
	if !paid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "invoice has already been paid")
	}

	invoice, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload invoice")
	}

	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
	s.logger.Info("invoice paid",
		zap.String("invoiceId", id),
		zap.String("paidBy", actor.UserID))

	return invoice, nil
}

// Summary aggregates invoice counts and totals, scoped to the actor for
// students.
func (s *InvoiceService) Summary(ctx context.Context, actor models.Actor) (*models.InvoiceSummary, error) {
	userID := ""
	if !actor.IsStaff() {
		userID = actor.UserID
	}
	summary, err := s.repo.Summary(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise invoices")
	}
	return summary, nil
}

// Export renders the actor's visible invoices as CSV or PDF.
func (s *InvoiceService) Export(ctx context.Context, actor models.Actor, filter models.InvoiceFilter, format ExportFormat) (*ExportFile, error) {
	if !actor.IsStaff() {
		filter.UserID = actor.UserID
	}
	filter.Page = 1
	filter.PageSize = 100

	var all []models.Invoice
	for {
		invoices, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoices for export")
		}
		all = append(all, invoices...)
		if len(all) >= total || len(invoices) == 0 {
			break
		}
		filter.Page++
	}

	table := export.Table{
		Title: "Invoices",
		Columns: []export.Column{
			{Key: "id", Label: "ID"},
			{Key: "contract", Label: "Contract"},
			{Key: "type", Label: "Type"},
			{Key: "amount", Label: "Amount", Numeric: true},
			{Key: "due_date", Label: "Due Date"},
			{Key: "status", Label: "Status"},
			{Key: "paid_at", Label: "Paid At"},
		},
	}
	for _, invoice := range all {
		paidAt := ""
		if invoice.PaidAt != nil {
			paidAt = invoice.PaidAt.Format("2006-01-02")
		}
		table.Rows = append(table.Rows, map[string]string{
			"id":       invoice.ID,
			"contract": invoice.ContractID,
			"type":     string(invoice.Type),
			"amount":   strconv.FormatInt(invoice.Amount, 10),
			"due_date": invoice.DueDate.Format("2006-01-02"),
			"status":   string(invoice.Status),
			"paid_at":  paidAt,
		})
	}

	stamp := s.now().UTC().Format("20060102")
	switch format {
	case ExportFormatPDF:
		content, err := table.PDF()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportFile{
			FileName:    fmt.Sprintf("invoices_%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	case ExportFormatCSV:
		content, err := table.CSV()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportFile{
			FileName:    fmt.Sprintf("invoices_%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
