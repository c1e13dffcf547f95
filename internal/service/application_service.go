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

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	Create(ctx context.Context, application *models.Application) error
	Reject(ctx context.Context, id string) (bool, error)
	Approve(ctx context.Context, params repository.ApproveParams) (*models.ApprovalResult, error)
}

type applicationRoomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// ApplicationCreateRequest is the payload for a student room application.
type ApplicationCreateRequest struct {
	RoomID       string `json:"room_id" validate:"required,uuid"`
	Semester     string `json:"semester" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

// ApplicationService manages room applications and the approval flow that
// derives contracts and first invoices from them.
type ApplicationService struct {
	repo      applicationRepository
	rooms     applicationRoomRepository
	billing   *BillingService
	dashboard dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(repo applicationRepository, rooms applicationRoomRepository, billing *BillingService, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ApplicationService{repo: repo, rooms: rooms, billing: billing, validator: validate, logger: logger, now: time.Now}
}

// WithDashboard registers a dashboard cache to drop after decisions, so
// the pending-application counters never serve stale numbers.
func (s *ApplicationService) WithDashboard(dashboard dashboardInvalidator) *ApplicationService {
	s.dashboard = dashboard
	return s
}

func (s *ApplicationService) invalidateDashboard(ctx context.Context) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
}

// List returns applications visible to the actor. Students only see their
// own; staff see everything and may filter by applicant.
func (s *ApplicationService) List(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	if !actor.IsStaff() {
		filter.UserID = actor.UserID
	}
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return applications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single application, restricted to the owner for students.
func (s *ApplicationService) Get(ctx context.Context, actor models.Actor, id string) (*models.Application, error) {
	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if !actor.IsStaff() && application.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another student")
	}
	return application, nil
}

// Create submits a new pending application for the actor.
func (s *ApplicationService) Create(ctx context.Context, actor models.Actor, req ApplicationCreateRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	room, err := s.rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if room.Status == models.RoomStatusMaintenance {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "room is under maintenance")
	}

	application := &models.Application{
		UserID:       actor.UserID,
		RoomID:       room.ID,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		Status:       models.ApplicationStatusPending,
	}
	if err := s.repo.Create(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.invalidateDashboard(ctx)
	return application, nil
}

// Approve derives a contract and first invoice from a pending application
// and assigns the room. The rent and dates are computed up front; the
// repository re-validates application and room state inside the
// transaction, so a lost race surfaces as a precondition failure rather
// than partial writes.
func (s *ApplicationService) Approve(ctx context.Context, actor models.Actor, id string) (*models.ApprovalResult, error) {
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can approve applications")
	}

	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if application.Status != models.ApplicationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "application has already been decided")
	}

	room, err := s.rooms.FindByID(ctx, application.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	start := s.now().UTC()
	contract := models.Contract{
		UserID:      application.UserID,
		RoomID:      room.ID,
		StartDate:   start,
		EndDate:     s.billing.ContractEndDate(start),
		Status:      models.ContractStatusActive,
		MonthlyRent: s.billing.MonthlyRent(room.PricePerSemester),
	}
	invoice := models.Invoice{
		UserID:  application.UserID,
		Amount:  contract.MonthlyRent,
		DueDate: s.billing.FirstDueDate(start),
		Status:  models.InvoiceStatusPending,
		Type:    models.InvoiceTypeRoomRent,
	}

	result, err := s.repo.Approve(ctx, repository.ApproveParams{
		ApplicationID: application.ID,
		Contract:      contract,
		Invoice:       invoice,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrApplicationNotPending):
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "application has already been decided")
		case errors.Is(err, repository.ErrRoomNotFound):
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "room no longer exists")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve application")
		}
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("application approved",
		zap.String("applicationId", result.Application.ID),
		zap.String("contractId", result.Contract.ID),
		zap.String("invoiceId", result.Invoice.ID),
		zap.String("approvedBy", actor.UserID))

	return result, nil
}

// Reject marks a pending application as rejected. Rejecting twice is
// idempotent and returns the rejected record again; rejecting an
// approved application is a precondition failure.
func (s *ApplicationService) Reject(ctx context.Context, actor models.Actor, id string) (*models.Application, error) {
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can reject applications")
	}

	rejected, err := s.repo.Reject(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject application")
	}
	if !rejected {
		application, findErr := s.repo.FindByID(ctx, id)
		if findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
			}
			return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
		}
		if application.Status == models.ApplicationStatusRejected {
			return application, nil
		}
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "application has already been decided")
	}

	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload application")
	}
	s.invalidateDashboard(ctx)
	return application, nil
}
