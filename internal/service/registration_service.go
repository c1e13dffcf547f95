package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/config"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

var (
	phonePattern      = regexp.MustCompile(`^0\d{9}$`)
	studentIDPattern  = regexp.MustCompile(`^\d{10}$`)
	nationalIDPattern = regexp.MustCompile(`^(\d{9}|\d{12})$`)
)

type registrationUserRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByStudentID(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

// RegistrationService validates and creates student accounts.
type RegistrationService struct {
	repo      registrationUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.RegistrationConfig
	now       func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(repo registrationUserRepository, validate *validator.Validate, logger *zap.Logger, cfg config.RegistrationConfig) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = 18
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30
	}
	return &RegistrationService{repo: repo, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Register creates a new student account after running the full intake
// validation. All checks run before any write so a rejected registration
// leaves no partial state.
func (s *RegistrationService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if err := s.validateDomainRules(req); err != nil {
		return nil, err
	}

	emailTaken, err := s.repo.ExistsByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if emailTaken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	}

	studentIDTaken, err := s.repo.ExistsByStudentID(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student id")
	}
	if studentIDTaken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student id is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	status := models.AcademicStatusStudying
	user := &models.User{
		Email:             strings.ToLower(req.Email),
		PasswordHash:      string(hash),
		FullName:          req.FullName,
		PhoneNumber:       req.PhoneNumber,
		Role:              models.RoleStudent,
		Active:            true,
		StudentID:         &req.StudentID,
		Class:             &req.Class,
		Faculty:           &req.Faculty,
		Major:             &req.Major,
		Course:            &req.Course,
		AcademicStatus:    &status,
		DateOfBirth:       &req.DateOfBirth,
		Gender:            &req.Gender,
		NationalID:        &req.NationalID,
		PortraitImage:     &req.PortraitImage,
		IDCardFrontImage:  &req.IDCardFront,
		IDCardBackImage:   &req.IDCardBack,
		PlaceOfOrigin:     &req.PlaceOfOrigin,
		CurrentAddress:    &req.CurrentAddress,
		EmergencyName:     &req.EmergencyName,
		EmergencyPhone:    &req.EmergencyPhone,
		EmergencyRelation: &req.EmergencyRel,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("student registered",
		zap.String("userId", user.ID),
		zap.String("studentId", req.StudentID))

	return user, nil
}

func (s *RegistrationService) validateDomainRules(req models.RegisterRequest) error {
	if !s.emailDomainAllowed(req.Email) {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("email must belong to one of: %s", strings.Join(s.cfg.AllowedEmailDomains, ", ")))
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		return appErrors.Clone(appErrors.ErrValidation, "phone number must be 10 digits starting with 0")
	}
	if !studentIDPattern.MatchString(req.StudentID) {
		return appErrors.Clone(appErrors.ErrValidation, "student id must be exactly 10 digits")
	}
	if !nationalIDPattern.MatchString(req.NationalID) {
		return appErrors.Clone(appErrors.ErrValidation, "national id must be 9 or 12 digits")
	}
	if !phonePattern.MatchString(req.EmergencyPhone) {
		return appErrors.Clone(appErrors.ErrValidation, "emergency contact phone must be 10 digits starting with 0")
	}

	age := ageAt(req.DateOfBirth, s.now().UTC())
	if age < s.cfg.MinAge || age > s.cfg.MaxAge {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("age must be between %d and %d", s.cfg.MinAge, s.cfg.MaxAge))
	}
	return nil
}

func (s *RegistrationService) emailDomainAllowed(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range s.cfg.AllowedEmailDomains {
		if domain == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// ageAt computes completed years between birth date and the reference time.
func ageAt(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	anniversary := birth.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}
