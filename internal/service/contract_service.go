package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/repository"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

type contractRepository interface {
	List(ctx context.Context, filter models.ContractFilter) ([]models.ContractDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Contract, error)
	CreateWithFirstInvoice(ctx context.Context, contract models.Contract, invoice models.Invoice) (*models.Contract, *models.Invoice, *models.Room, error)
	Terminate(ctx context.Context, id string) (*models.Contract, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type contractUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ContractCreateRequest is the payload for staff creating a contract
// directly, bypassing the application flow. StartDate, EndDate and
// MonthlyRent override the derived values when supplied, so transfers
// and back-dated tenancies keep their real terms.
type ContractCreateRequest struct {
	UserID      string  `json:"user_id" validate:"required,uuid"`
	RoomID      string  `json:"room_id" validate:"required,uuid"`
	StartDate   *string `json:"start_date" validate:"omitempty"`
	EndDate     *string `json:"end_date" validate:"omitempty"`
	MonthlyRent *int64  `json:"monthly_rent" validate:"omitempty,gt=0"`
}

// ContractCreateResult bundles the records produced by a direct contract
// creation.
type ContractCreateResult struct {
	Contract models.Contract `json:"contract"`
	Invoice  models.Invoice  `json:"invoice"`
	Room     models.Room     `json:"room"`
}

// ContractService manages tenancy contracts.
type ContractService struct {
	repo      contractRepository
	rooms     applicationRoomRepository
	users     contractUserRepository
	billing   *BillingService
	dashboard dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewContractService constructs a ContractService.
func NewContractService(repo contractRepository, rooms applicationRoomRepository, users contractUserRepository, billing *BillingService, validate *validator.Validate, logger *zap.Logger) *ContractService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContractService{repo: repo, rooms: rooms, users: users, billing: billing, validator: validate, logger: logger, now: time.Now}
}

// WithDashboard registers a dashboard cache to drop after occupancy
// changes.
func (s *ContractService) WithDashboard(dashboard dashboardInvalidator) *ContractService {
	s.dashboard = dashboard
	return s
}

func (s *ContractService) invalidateDashboard(ctx context.Context) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
}

// List returns contracts visible to the actor. Students only see their own.
func (s *ContractService) List(ctx context.Context, actor models.Actor, filter models.ContractFilter) ([]models.ContractDetail, *models.Pagination, error) {
	if !actor.IsStaff() {
		filter.UserID = actor.UserID
	}
	contracts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contracts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return contracts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single contract, restricted to the owner for students.
func (s *ContractService) Get(ctx context.Context, actor models.Actor, id string) (*models.Contract, error) {
	contract, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contract not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contract")
	}
	if !actor.IsStaff() && contract.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "contract belongs to another student")
	}
	return contract, nil
}

// Create lets staff place a student in a room directly. By default the
// derivation matches the application approval path: same rent formula,
// contract window, first invoice, and occupancy update, all in one
// transaction. Explicit dates or rent in the payload take precedence
// over the derived values.
func (s *ContractService) Create(ctx context.Context, actor models.Actor, req ContractCreateRequest) (*ContractCreateResult, error) {
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can create contracts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contract payload")
	}

	tenant, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if tenant.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "contracts can only be created for students")
	}

	room, err := s.rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	start := s.now().UTC()
	if req.StartDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be formatted as YYYY-MM-DD")
		}
		start = parsed
	}
	end := s.billing.ContractEndDate(start)
	if req.EndDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be formatted as YYYY-MM-DD")
		}
		end = parsed
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}
	rent := s.billing.MonthlyRent(room.PricePerSemester)
	if req.MonthlyRent != nil {
		rent = *req.MonthlyRent
	}

	contract := models.Contract{
		UserID:      tenant.ID,
		RoomID:      room.ID,
		StartDate:   start,
		EndDate:     end,
		Status:      models.ContractStatusActive,
		MonthlyRent: rent,
	}
	invoice := models.Invoice{
		UserID:  tenant.ID,
		Amount:  contract.MonthlyRent,
		DueDate: s.billing.FirstDueDate(start),
		Status:  models.InvoiceStatusPending,
		Type:    models.InvoiceTypeRoomRent,
	}

	created, firstInvoice, updatedRoom, err := s.repo.CreateWithFirstInvoice(ctx, contract, invoice)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "room no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contract")
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("contract created",
		zap.String("contractId", created.ID),
		zap.String("userId", tenant.ID),
		zap.String("roomId", room.ID),
		zap.String("createdBy", actor.UserID))

	return &ContractCreateResult{Contract: *created, Invoice: *firstInvoice, Room: *updatedRoom}, nil
}

// Terminate ends an active contract early and releases its room slot.
func (s *ContractService) Terminate(ctx context.Context, actor models.Actor, id string) (*models.Contract, error) {
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can terminate contracts")
	}

	contract, err := s.repo.Terminate(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contract not found")
		case errors.Is(err, repository.ErrContractNotActive):
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "contract is not active")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to terminate contract")
		}
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("contract terminated",
		zap.String("contractId", contract.ID),
		zap.String("terminatedBy", actor.UserID))

	return contract, nil
}

// Delete removes a contract together with all of its invoices.
func (s *ContractService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only staff can delete contracts")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete contract")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "contract not found")
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("contract deleted",
		zap.String("contractId", id),
		zap.String("deletedBy", actor.UserID))

	return nil
}
