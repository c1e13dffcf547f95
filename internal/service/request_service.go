package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

type requestRepository interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.RequestDetail, error)
	Create(ctx context.Context, request *models.Request) error
	UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error)
}

// requestTransitions maps each target status to the status a ticket must
// currently hold. Completed and rejected have no outgoing edges.
var requestTransitions = map[models.RequestStatus]models.RequestStatus{
	models.RequestStatusInProgress: models.RequestStatusPending,
	models.RequestStatusRejected:   models.RequestStatusPending,
	models.RequestStatusCompleted:  models.RequestStatusInProgress,
}

// RequestCreateRequest is the payload for raising a ticket.
type RequestCreateRequest struct {
	RoomID      string             `json:"room_id" validate:"required,uuid"`
	Type        models.RequestType `json:"type" validate:"required,oneof=maintenance complaint other"`
	Title       string             `json:"title" validate:"required,max=200"`
	Description string             `json:"description" validate:"required"`
}

// RequestService manages maintenance and complaint tickets.
type RequestService struct {
	repo      requestRepository
	rooms     applicationRoomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService constructs a RequestService.
func NewRequestService(repo requestRepository, rooms applicationRoomRepository, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{repo: repo, rooms: rooms, validator: validate, logger: logger}
}

// List returns tickets visible to the actor. Students only see their own.
func (s *RequestService) List(ctx context.Context, actor models.Actor, filter models.RequestFilter) ([]models.RequestDetail, *models.Pagination, error) {
	if !actor.IsStaff() {
		filter.UserID = actor.UserID
	}
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single ticket, restricted to the reporter for students.
func (s *RequestService) Get(ctx context.Context, actor models.Actor, id string) (*models.RequestDetail, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if !actor.IsStaff() && request.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another student")
	}
	return request, nil
}

// Create raises a new pending ticket against a room.
func (s *RequestService) Create(ctx context.Context, actor models.Actor, req RequestCreateRequest) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	if _, err := s.rooms.FindByID(ctx, req.RoomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	request := &models.Request{
		UserID:      actor.UserID,
		RoomID:      req.RoomID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	return request, nil
}

// Transition moves a ticket along its lifecycle. Only staff may change a
// ticket's status, and only edges of the state machine are allowed: a
// pending ticket can start or be rejected, and an in-progress ticket can
// complete. Anything else fails without touching the ticket.
func (s *RequestService) Transition(ctx context.Context, actor models.Actor, id string, to models.RequestStatus) (*models.RequestDetail, error) {
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can update request status")
	}

	from, ok := requestTransitions[to]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot transition a request to %q", to))
	}

	moved, err := s.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
	}
	if !moved {
		request, findErr := s.repo.FindByID(ctx, id)
		if findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
			}
			return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
		}
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("request is %s and cannot move to %s", request.Status, to))
	}

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}

	s.logger.Info("request status updated",
		zap.String("requestId", id),
		zap.String("status", string(to)),
		zap.String("updatedBy", actor.UserID))

	return request, nil
}
