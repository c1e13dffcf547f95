package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
}

// StaffCreateRequest is the payload for an admin provisioning a manager
// or admin account. Students register themselves with the full identity
// flow instead.
type StaffCreateRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=6"`
	FullName    string          `json:"full_name" validate:"required"`
	PhoneNumber string          `json:"phone_number" validate:"required"`
	Role        models.UserRole `json:"role" validate:"required,oneof=manager admin"`
}

// ProfileUpdateRequest is the payload for a user editing their own
// contact details. Identity fields set at registration stay fixed.
type ProfileUpdateRequest struct {
	FullName       string `json:"full_name" validate:"required"`
	PhoneNumber    string `json:"phone_number" validate:"required"`
	CurrentAddress string `json:"current_address"`
	EmergencyName  string `json:"emergency_contact_name"`
	EmergencyPhone string `json:"emergency_contact_phone"`
	EmergencyRel   string `json:"emergency_contact_relation"`
}

// UserService manages account listing and profile maintenance.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns accounts matching the filter. Staff only.
func (s *UserService) List(ctx context.Context, actor models.Actor, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if !actor.IsStaff() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can list users")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create provisions a staff account. Admin only.
func (s *UserService) Create(ctx context.Context, actor models.Actor, req StaffCreateRequest) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can create accounts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "phone number must be 10 digits starting with 0")
	}

	taken, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("staff account created",
		zap.String("userId", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("createdBy", actor.UserID))

	return user, nil
}

// Get loads an account. Students may only load themselves.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if !actor.IsStaff() && actor.UserID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another user's account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile edits the actor's own contact details.
func (s *UserService) UpdateProfile(ctx context.Context, actor models.Actor, req ProfileUpdateRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "phone number must be 10 digits starting with 0")
	}

	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user.FullName = req.FullName
	user.PhoneNumber = req.PhoneNumber
	user.CurrentAddress = optionalString(req.CurrentAddress)
	user.EmergencyName = optionalString(req.EmergencyName)
	user.EmergencyPhone = optionalString(req.EmergencyPhone)
	user.EmergencyRelation = optionalString(req.EmergencyRel)

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return user, nil
}

// Deactivate disables an account. Admin only, and never self.
func (s *UserService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can deactivate accounts")
	}
	if actor.UserID == id {
		return appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own account")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}

	s.logger.Info("user deactivated",
		zap.String("userId", id),
		zap.String("deactivatedBy", actor.UserID))

	return nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
