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

type mockContractRepo struct {
	contract     *models.Contract
	createdWith  *models.Contract
	terminateErr error
	deleted      bool
}

func (m *mockContractRepo) List(ctx context.Context, filter models.ContractFilter) ([]models.ContractDetail, int, error) {
	return nil, 0, nil
}

func (m *mockContractRepo) FindByID(ctx context.Context, id string) (*models.Contract, error) {
	if m.contract == nil {
		return nil, sql.ErrNoRows
	}
	return m.contract, nil
}

func (m *mockContractRepo) CreateWithFirstInvoice(ctx context.Context, contract models.Contract, invoice models.Invoice) (*models.Contract, *models.Invoice, *models.Room, error) {
	contract.ID = "con-1"
	invoice.ID = "inv-1"
	invoice.ContractID = contract.ID
	m.createdWith = &contract
	room := models.Room{ID: contract.RoomID, CurrentOccupancy: 1, Status: models.RoomStatusAvailable}
	return &contract, &invoice, &room, nil
}

func (m *mockContractRepo) Terminate(ctx context.Context, id string) (*models.Contract, error) {
	if m.terminateErr != nil {
		return nil, m.terminateErr
	}
	m.contract.Status = models.ContractStatusTerminated
	return m.contract, nil
}

func (m *mockContractRepo) Delete(ctx context.Context, id string) (bool, error) {
	m.deleted = true
	return m.contract != nil, nil
}

type mockContractUserRepo struct {
	user *models.User
}

func (m *mockContractUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func newContractService(repo *mockContractRepo, rooms *mockRoomLookup, users *mockContractUserRepo) *ContractService {
	billing := NewBillingService(&mockBillingInvoiceRepo{}, &mockBillingContractRepo{}, zap.NewNop(), config.BillingConfig{DueDay: 5, ContractMonths: 5})
	svc := NewContractService(repo, rooms, users, billing, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestContractCreateDerivation(t *testing.T) {
	userID := uuid.NewString()
	roomID := uuid.NewString()
	repo := &mockContractRepo{}
	rooms := &mockRoomLookup{room: &models.Room{ID: roomID, PricePerSemester: 4500000}}
	users := &mockContractUserRepo{user: &models.User{ID: userID, Role: models.RoleStudent}}
	svc := newContractService(repo, rooms, users)

	result, err := svc.Create(context.Background(), staffActor(), ContractCreateRequest{UserID: userID, RoomID: roomID})
	require.NoError(t, err)

	assert.Equal(t, int64(900000), result.Contract.MonthlyRent)
	assert.Equal(t, time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC), result.Contract.EndDate)
	// Starting Feb 1 is before the due day, so the first invoice is due Feb 5.
	assert.Equal(t, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), result.Invoice.DueDate)
	assert.Equal(t, result.Contract.ID, result.Invoice.ContractID)
}

func TestContractCreateWithExplicitTerms(t *testing.T) {
	userID := uuid.NewString()
	roomID := uuid.NewString()
	repo := &mockContractRepo{}
	rooms := &mockRoomLookup{room: &models.Room{ID: roomID, PricePerSemester: 4500000}}
	users := &mockContractUserRepo{user: &models.User{ID: userID, Role: models.RoleStudent}}
	svc := newContractService(repo, rooms, users)

	start := "2026-09-01"
	end := "2027-01-01"
	rent := int64(999999)
	result, err := svc.Create(context.Background(), staffActor(), ContractCreateRequest{
		UserID:      userID,
		RoomID:      roomID,
		StartDate:   &start,
		EndDate:     &end,
		MonthlyRent: &rent,
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), result.Contract.StartDate)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), result.Contract.EndDate)
	assert.Equal(t, int64(999999), result.Contract.MonthlyRent)
	assert.Equal(t, int64(999999), result.Invoice.Amount)
	// The first invoice follows the supplied start, not the clock.
	assert.Equal(t, time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC), result.Invoice.DueDate)
}

func TestContractCreateRejectsInvertedDates(t *testing.T) {
	userID := uuid.NewString()
	roomID := uuid.NewString()
	rooms := &mockRoomLookup{room: &models.Room{ID: roomID, PricePerSemester: 4500000}}
	users := &mockContractUserRepo{user: &models.User{ID: userID, Role: models.RoleStudent}}
	svc := newContractService(&mockContractRepo{}, rooms, users)

	start := "2026-09-01"
	end := "2026-08-01"
	_, err := svc.Create(context.Background(), staffActor(), ContractCreateRequest{
		UserID:    userID,
		RoomID:    roomID,
		StartDate: &start,
		EndDate:   &end,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContractCreateRejectsNonStudents(t *testing.T) {
	userID := uuid.NewString()
	users := &mockContractUserRepo{user: &models.User{ID: userID, Role: models.RoleManager}}
	svc := newContractService(&mockContractRepo{}, &mockRoomLookup{}, users)

	_, err := svc.Create(context.Background(), staffActor(), ContractCreateRequest{UserID: userID, RoomID: uuid.NewString()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContractTerminateNotActive(t *testing.T) {
	repo := &mockContractRepo{
		contract:     &models.Contract{ID: "con-1", Status: models.ContractStatusExpired},
		terminateErr: repository.ErrContractNotActive,
	}
	svc := newContractService(repo, &mockRoomLookup{}, &mockContractUserRepo{})

	_, err := svc.Terminate(context.Background(), staffActor(), "con-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestContractTerminateRequiresStaff(t *testing.T) {
	svc := newContractService(&mockContractRepo{}, &mockRoomLookup{}, &mockContractUserRepo{})

	_, err := svc.Terminate(context.Background(), studentActor("u1"), "con-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestContractGetForbidsOtherStudents(t *testing.T) {
	repo := &mockContractRepo{contract: &models.Contract{ID: "con-1", UserID: "owner"}}
	svc := newContractService(repo, &mockRoomLookup{}, &mockContractUserRepo{})

	_, err := svc.Get(context.Background(), studentActor("intruder"), "con-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestContractDelete(t *testing.T) {
	repo := &mockContractRepo{contract: &models.Contract{ID: "con-1"}}
	svc := newContractService(repo, &mockRoomLookup{}, &mockContractUserRepo{})

	require.NoError(t, svc.Delete(context.Background(), staffActor(), "con-1"))
	assert.True(t, repo.deleted)
}

func TestContractWritesDropDashboardCache(t *testing.T) {
	userID := uuid.NewString()
	roomID := uuid.NewString()
	repo := &mockContractRepo{contract: &models.Contract{ID: "con-1", Status: models.ContractStatusActive}}
	rooms := &mockRoomLookup{room: &models.Room{ID: roomID, PricePerSemester: 4500000}}
	users := &mockContractUserRepo{user: &models.User{ID: userID, Role: models.RoleStudent}}
	dashboard := &mockDashboard{}
	svc := newContractService(repo, rooms, users).WithDashboard(dashboard)

	_, err := svc.Create(context.Background(), staffActor(), ContractCreateRequest{UserID: userID, RoomID: roomID})
	require.NoError(t, err)
	_, err = svc.Terminate(context.Background(), staffActor(), "con-1")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), staffActor(), "con-1"))

	assert.Equal(t, 3, dashboard.invalidated)
}
