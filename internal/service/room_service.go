package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	StatusCounts(ctx context.Context) (*models.RoomStatusCounts, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) (bool, error)
}

// RoomCreateRequest is the staff payload for adding a room.
type RoomCreateRequest struct {
	RoomNumber       string          `json:"room_number" validate:"required,max=20"`
	Building         string          `json:"building" validate:"required,max=50"`
	Floor            int             `json:"floor" validate:"required,min=1"`
	Type             models.RoomType `json:"type" validate:"required,oneof=standard vip deluxe"`
	Capacity         int             `json:"capacity" validate:"required,min=1,max=12"`
	PricePerSemester int64           `json:"price_per_semester" validate:"required,gt=0"`
	Amenities        []string        `json:"amenities"`
}

// RoomUpdateRequest is the staff payload for editing a room. Status here
// only accepts the maintenance override or clearing it; occupancy-driven
// states are recomputed, never set directly.
type RoomUpdateRequest struct {
	RoomNumber       string            `json:"room_number" validate:"required,max=20"`
	Building         string            `json:"building" validate:"required,max=50"`
	Floor            int               `json:"floor" validate:"required,min=1"`
	Type             models.RoomType   `json:"type" validate:"required,oneof=standard vip deluxe"`
	Capacity         int               `json:"capacity" validate:"required,min=1,max=12"`
	PricePerSemester int64             `json:"price_per_semester" validate:"required,gt=0"`
	Amenities        []string          `json:"amenities"`
	Status           models.RoomStatus `json:"status" validate:"omitempty,oneof=available occupied maintenance"`
}

// RoomService manages the room inventory.
type RoomService struct {
	repo      roomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs a RoomService.
func NewRoomService(repo roomRepository, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RoomService{repo: repo, validator: validate, logger: logger}
}

// List returns rooms matching the filter together with status counts.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, *models.RoomStatusCounts, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rooms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return rooms, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, counts, nil
}

// Get loads a single room.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// Create adds a new room to the inventory.
func (s *RoomService) Create(ctx context.Context, actor models.Actor, req RoomCreateRequest) (*models.Room, error) {
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can create rooms")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room := &models.Room{
		RoomNumber:       req.RoomNumber,
		Building:         req.Building,
		Floor:            req.Floor,
		Type:             req.Type,
		Capacity:         req.Capacity,
		PricePerSemester: req.PricePerSemester,
		Amenities:        req.Amenities,
		Status:           models.RoomStatusAvailable,
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return room, nil
}

// Update edits a room. Shrinking capacity below the current occupancy is
// rejected, and the status is rederived so a capacity change immediately
// reflects in availability.
func (s *RoomService) Update(ctx context.Context, actor models.Actor, id string, req RoomUpdateRequest) (*models.Room, error) {
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can update rooms")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	if req.Capacity < room.CurrentOccupancy {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "capacity cannot drop below current occupancy")
	}

	room.RoomNumber = req.RoomNumber
	room.Building = req.Building
	room.Floor = req.Floor
	room.Type = req.Type
	room.Capacity = req.Capacity
	room.PricePerSemester = req.PricePerSemester
	room.Amenities = req.Amenities

	if req.Status == models.RoomStatusMaintenance {
		room.Status = models.RoomStatusMaintenance
	} else {
		current := room.Status
		if req.Status != "" {
			current = req.Status
		}
		room.Status = models.OccupancyStatus(current, room.CurrentOccupancy, room.Capacity)
	}

	if err := s.repo.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	return room, nil
}

// Delete removes a room that has no occupants.
func (s *RoomService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only staff can delete rooms")
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if room.CurrentOccupancy > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "room still has occupants")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "room not found")
	}
	return nil
}
