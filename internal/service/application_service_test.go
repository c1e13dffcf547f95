package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/repository"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/config"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

type mockApplicationRepo struct {
	application   *models.Application
	approveParams *repository.ApproveParams
	approveErr    error
	rejectMoved   bool
	listFilter    models.ApplicationFilter
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	m.listFilter = filter
	return nil, 0, nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if m.application == nil {
		return nil, sql.ErrNoRows
	}
	return m.application, nil
}

func (m *mockApplicationRepo) Create(ctx context.Context, application *models.Application) error {
	application.ID = "app-1"
	m.application = application
	return nil
}

func (m *mockApplicationRepo) Reject(ctx context.Context, id string) (bool, error) {
	if m.rejectMoved && m.application != nil {
		m.application.Status = models.ApplicationStatusRejected
	}
	return m.rejectMoved, nil
}

func (m *mockApplicationRepo) Approve(ctx context.Context, params repository.ApproveParams) (*models.ApprovalResult, error) {
	m.approveParams = &params
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	contract := params.Contract
	contract.ID = "con-1"
	invoice := params.Invoice
	invoice.ID = "inv-1"
	invoice.ContractID = contract.ID
	app := *m.application
	app.Status = models.ApplicationStatusApproved
	return &models.ApprovalResult{Application: app, Contract: contract, Invoice: invoice}, nil
}

func newApplicationService(repo *mockApplicationRepo, rooms *mockRoomLookup) *ApplicationService {
	billing := NewBillingService(&mockBillingInvoiceRepo{}, &mockBillingContractRepo{}, zap.NewNop(), config.BillingConfig{DueDay: 5, ContractMonths: 5})
	svc := NewApplicationService(repo, rooms, billing, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestApplicationListScopesStudents(t *testing.T) {
	repo := &mockApplicationRepo{}
	svc := newApplicationService(repo, &mockRoomLookup{})

	_, _, err := svc.List(context.Background(), studentActor("u1"), models.ApplicationFilter{})
	require.NoError(t, err)
	assert.Equal(t, "u1", repo.listFilter.UserID)
}

func TestApplicationCreateRejectsMaintenanceRoom(t *testing.T) {
	rooms := &mockRoomLookup{room: &models.Room{ID: uuid.NewString(), Status: models.RoomStatusMaintenance}}
	svc := newApplicationService(&mockApplicationRepo{}, rooms)

	_, err := svc.Create(context.Background(), studentActor("u1"), ApplicationCreateRequest{
		RoomID: rooms.room.ID, Semester: "HK1", AcademicYear: "2026-2027",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApplicationCreatePending(t *testing.T) {
	rooms := &mockRoomLookup{room: &models.Room{ID: uuid.NewString(), Status: models.RoomStatusAvailable}}
	repo := &mockApplicationRepo{}
	svc := newApplicationService(repo, rooms)

	created, err := svc.Create(context.Background(), studentActor("u1"), ApplicationCreateRequest{
		RoomID: rooms.room.ID, Semester: "HK1", AcademicYear: "2026-2027",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, created.Status)
	assert.Equal(t, "u1", created.UserID)
}

func TestApplicationApproveDerivesContractAndInvoice(t *testing.T) {
	roomID := uuid.NewString()
	repo := &mockApplicationRepo{application: &models.Application{
		ID: "app-1", UserID: "u1", RoomID: roomID, Status: models.ApplicationStatusPending,
	}}
	rooms := &mockRoomLookup{room: &models.Room{ID: roomID, PricePerSemester: 2000000, Status: models.RoomStatusAvailable}}
	svc := newApplicationService(repo, rooms)

	result, err := svc.Approve(context.Background(), staffActor(), "app-1")
	require.NoError(t, err)
	require.NotNil(t, repo.approveParams)

	contract := repo.approveParams.Contract
	assert.Equal(t, int64(400000), contract.MonthlyRent)
	assert.Equal(t, models.ContractStatusActive, contract.Status)
	assert.Equal(t, time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC), contract.EndDate)

	invoice := repo.approveParams.Invoice
	assert.Equal(t, int64(400000), invoice.Amount)
	// Start on Feb 10 is past the due day, first invoice rolls to March 5.
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), invoice.DueDate)
	assert.Equal(t, models.InvoiceTypeRoomRent, invoice.Type)

	assert.Equal(t, models.ApplicationStatusApproved, result.Application.Status)
}

func TestApplicationApproveRequiresStaff(t *testing.T) {
	svc := newApplicationService(&mockApplicationRepo{}, &mockRoomLookup{})

	_, err := svc.Approve(context.Background(), studentActor("u1"), "app-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApplicationApproveAlreadyDecided(t *testing.T) {
	repo := &mockApplicationRepo{application: &models.Application{
		ID: "app-1", Status: models.ApplicationStatusApproved,
	}}
	svc := newApplicationService(repo, &mockRoomLookup{})

	_, err := svc.Approve(context.Background(), staffActor(), "app-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApplicationApproveLostRace(t *testing.T) {
	roomID := uuid.NewString()
	repo := &mockApplicationRepo{
		application: &models.Application{ID: "app-1", RoomID: roomID, Status: models.ApplicationStatusPending},
		approveErr:  repository.ErrApplicationNotPending,
	}
	rooms := &mockRoomLookup{room: &models.Room{ID: roomID, PricePerSemester: 2000000}}
	svc := newApplicationService(repo, rooms)

	_, err := svc.Approve(context.Background(), staffActor(), "app-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApplicationRejectAlreadyDecided(t *testing.T) {
	repo := &mockApplicationRepo{
		application: &models.Application{ID: "app-1", Status: models.ApplicationStatusApproved},
		rejectMoved: false,
	}
	svc := newApplicationService(repo, &mockRoomLookup{})

	_, err := svc.Reject(context.Background(), staffActor(), "app-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApplicationRejectTwiceIsIdempotent(t *testing.T) {
	repo := &mockApplicationRepo{
		application: &models.Application{ID: "app-1", Status: models.ApplicationStatusRejected},
		rejectMoved: false,
	}
	svc := newApplicationService(repo, &mockRoomLookup{})

	rejected, err := svc.Reject(context.Background(), staffActor(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, rejected.Status)
}

func TestApplicationRejectNotFound(t *testing.T) {
	svc := newApplicationService(&mockApplicationRepo{}, &mockRoomLookup{})

	_, err := svc.Reject(context.Background(), staffActor(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplicationRejectSuccess(t *testing.T) {
	repo := &mockApplicationRepo{
		application: &models.Application{ID: "app-1", Status: models.ApplicationStatusPending},
		rejectMoved: true,
	}
	svc := newApplicationService(repo, &mockRoomLookup{})

	rejected, err := svc.Reject(context.Background(), staffActor(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, rejected.Status)
}

func TestApplicationDecisionsDropDashboardCache(t *testing.T) {
	roomID := uuid.NewString()
	repo := &mockApplicationRepo{
		application: &models.Application{ID: "app-1", UserID: "u1", RoomID: roomID, Status: models.ApplicationStatusPending},
	}
	rooms := &mockRoomLookup{room: &models.Room{ID: roomID, PricePerSemester: 2000000, Status: models.RoomStatusAvailable}}
	dashboard := &mockDashboard{}
	svc := newApplicationService(repo, rooms).WithDashboard(dashboard)

	_, err := svc.Approve(context.Background(), staffActor(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, 1, dashboard.invalidated)
}
