package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

type mockInvoiceRepo struct {
	invoice    *models.Invoice
	invoices   []models.Invoice
	paid       bool
	paidMethod string
	listFilter models.InvoiceFilter
	summaryFor *string
}

func (m *mockInvoiceRepo) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	m.listFilter = filter
	if filter.Page > 1 {
		return nil, len(m.invoices), nil
	}
	return m.invoices, len(m.invoices), nil
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	if m.invoice == nil {
		return nil, sql.ErrNoRows
	}
	return m.invoice, nil
}

func (m *mockInvoiceRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time, method string) (bool, error) {
	if !m.paid {
		return false, nil
	}
	m.paidMethod = method
	if m.invoice != nil {
		m.invoice.Status = models.InvoiceStatusPaid
		m.invoice.PaidAt = &paidAt
	}
	return true, nil
}

func (m *mockInvoiceRepo) Summary(ctx context.Context, userID string) (*models.InvoiceSummary, error) {
	m.summaryFor = &userID
	return &models.InvoiceSummary{}, nil
}

func TestInvoicePaySuccess(t *testing.T) {
	repo := &mockInvoiceRepo{
		paid:    true,
		invoice: &models.Invoice{ID: "inv-1", UserID: "u1", Status: models.InvoiceStatusPending},
	}
	svc := NewInvoiceService(repo, nil, zap.NewNop())

	paid, err := svc.Pay(context.Background(), studentActor("u1"), "inv-1", PayInvoiceRequest{PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, "cash", repo.paidMethod)
}

func TestInvoicePayAlreadyPaid(t *testing.T) {
	repo := &mockInvoiceRepo{
		paid:    false,
		invoice: &models.Invoice{ID: "inv-1", UserID: "u1", Status: models.InvoiceStatusPaid},
	}
	svc := NewInvoiceService(repo, nil, zap.NewNop())

	_, err := svc.Pay(context.Background(), studentActor("u1"), "inv-1", PayInvoiceRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestInvoicePayForbidsOtherStudents(t *testing.T) {
	repo := &mockInvoiceRepo{
		paid:    true,
		invoice: &models.Invoice{ID: "inv-1", UserID: "owner", Status: models.InvoiceStatusPending},
	}
	svc := NewInvoiceService(repo, nil, zap.NewNop())

	_, err := svc.Pay(context.Background(), studentActor("intruder"), "inv-1", PayInvoiceRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestInvoicePayRejectsUnknownMethod(t *testing.T) {
	svc := NewInvoiceService(&mockInvoiceRepo{}, nil, zap.NewNop())

	_, err := svc.Pay(context.Background(), studentActor("u1"), "inv-1", PayInvoiceRequest{PaymentMethod: "crypto"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestInvoiceListScopesStudents(t *testing.T) {
	repo := &mockInvoiceRepo{}
	svc := NewInvoiceService(repo, nil, zap.NewNop())

	_, _, err := svc.List(context.Background(), studentActor("u1"), models.InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, "u1", repo.listFilter.UserID)
}

func TestInvoiceSummaryScope(t *testing.T) {
	repo := &mockInvoiceRepo{}
	svc := NewInvoiceService(repo, nil, zap.NewNop())

	_, err := svc.Summary(context.Background(), studentActor("u1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", *repo.summaryFor)

	_, err = svc.Summary(context.Background(), staffActor())
	require.NoError(t, err)
	assert.Empty(t, *repo.summaryFor)
}

func TestInvoiceExportCSV(t *testing.T) {
	paidAt := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	repo := &mockInvoiceRepo{invoices: []models.Invoice{
		{ID: "inv-1", ContractID: "con-1", Type: models.InvoiceTypeRoomRent, Amount: 400000,
			DueDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Status: models.InvoiceStatusPaid, PaidAt: &paidAt},
	}}
	svc := NewInvoiceService(repo, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

	file, err := svc.Export(context.Background(), staffActor(), models.InvoiceFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "invoices_20260310.csv", file.FileName)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Content)
	assert.True(t, strings.Contains(body, "inv-1"))
	assert.True(t, strings.Contains(body, "400000"))
	assert.True(t, strings.Contains(body, "2026-03-05"))
}

func TestInvoiceExportPDF(t *testing.T) {
	repo := &mockInvoiceRepo{invoices: []models.Invoice{
		{ID: "inv-1", ContractID: "con-1", Type: models.InvoiceTypeRoomRent, Amount: 400000,
			DueDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Status: models.InvoiceStatusPending},
	}}
	svc := NewInvoiceService(repo, nil, zap.NewNop())

	file, err := svc.Export(context.Background(), staffActor(), models.InvoiceFilter{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.NotEmpty(t, file.Content)
}

func TestInvoiceExportScopesStudents(t *testing.T) {
	repo := &mockInvoiceRepo{invoices: []models.Invoice{
		{ID: "inv-1", ContractID: "con-1", UserID: "u1", Type: models.InvoiceTypeRoomRent, Amount: 400000,
			DueDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Status: models.InvoiceStatusPending},
	}}
	svc := NewInvoiceService(repo, nil, zap.NewNop())

	file, err := svc.Export(context.Background(), studentActor("u1"), models.InvoiceFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "u1", repo.listFilter.UserID)
	assert.True(t, strings.Contains(string(file.Content), "inv-1"))
}

func TestInvoicePayDropsDashboardCache(t *testing.T) {
	repo := &mockInvoiceRepo{
		paid:    true,
		invoice: &models.Invoice{ID: "inv-1", UserID: "u1", Status: models.InvoiceStatusPending},
	}
	dashboard := &mockDashboard{}
	svc := NewInvoiceService(repo, nil, zap.NewNop()).WithDashboard(dashboard)

	_, err := svc.Pay(context.Background(), studentActor("u1"), "inv-1", PayInvoiceRequest{PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, 1, dashboard.invalidated)
}

func TestInvoiceExportUnknownFormat(t *testing.T) {
	svc := NewInvoiceService(&mockInvoiceRepo{}, nil, zap.NewNop())

	_, err := svc.Export(context.Background(), staffActor(), models.InvoiceFilter{}, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
