package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/config"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

type mockRegistrationRepo struct {
	emailTaken     bool
	studentIDTaken bool
	created        *models.User
}

func (m *mockRegistrationRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.emailTaken, nil
}

func (m *mockRegistrationRepo) ExistsByStudentID(ctx context.Context, studentID string) (bool, error) {
	return m.studentIDTaken, nil
}

func (m *mockRegistrationRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "new-user"
	m.created = user
	return nil
}

func newRegistrationService(repo *mockRegistrationRepo) *RegistrationService {
	svc := NewRegistrationService(repo, validator.New(), zap.NewNop(), config.RegistrationConfig{
		AllowedEmailDomains: []string{"vanlanguni.vn", "vlu.edu.vn"},
		MinAge:              18,
		MaxAge:              30,
	})
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func validRegisterRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Email:           "Student@vlu.edu.vn",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FullName:        "Nguyen Van A",
		PhoneNumber:     "0901234567",
		StudentID:       "2174802010",
		Class:           "K27-CNTT1",
		Faculty:         "CNTT",
		Major:           "KTPM",
		Course:          "2021",
		DateOfBirth:     time.Date(2006, 5, 20, 0, 0, 0, 0, time.UTC),
		Gender:          "male",
		NationalID:      "123456789",
		PlaceOfOrigin:   "TP.HCM",
		CurrentAddress:  "KTX khu A",
		EmergencyName:   "Nguyen Van B",
		EmergencyPhone:  "0907654321",
		EmergencyRel:    "father",
		PortraitImage:   "identity/2174802010/portrait.jpg",
		IDCardFront:     "identity/2174802010/front.jpg",
		IDCardBack:      "identity/2174802010/back.jpg",
	}
}

func TestRegisterSuccess(t *testing.T) {
	repo := &mockRegistrationRepo{}
	svc := newRegistrationService(repo)

	user, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.True(t, user.Active)
	assert.Equal(t, "student@vlu.edu.vn", user.Email)
	require.NotNil(t, user.AcademicStatus)
	assert.Equal(t, models.AcademicStatusStudying, *user.AcademicStatus)
	require.NotNil(t, repo.created)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created.PasswordHash), []byte("secret1")))
}

func TestRegisterRejectsPasswordMismatch(t *testing.T) {
	repo := &mockRegistrationRepo{}
	svc := newRegistrationService(repo)
	req := validRegisterRequest()
	req.ConfirmPassword = "different1"

	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestRegisterRejectsForeignEmailDomain(t *testing.T) {
	svc := newRegistrationService(&mockRegistrationRepo{})
	req := validRegisterRequest()
	req.Email = "student@gmail.com"

	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectsBadPhone(t *testing.T) {
	svc := newRegistrationService(&mockRegistrationRepo{})
	for _, phone := range []string{"123456789", "09012345678", "090123456", "84901234567"} {
		req := validRegisterRequest()
		req.PhoneNumber = phone
		_, err := svc.Register(context.Background(), req)
		require.Error(t, err, "phone %s should be rejected", phone)
	}
}

func TestRegisterRejectsBadStudentID(t *testing.T) {
	svc := newRegistrationService(&mockRegistrationRepo{})
	req := validRegisterRequest()
	req.StudentID = "21748020"

	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
}

func TestRegisterNationalIDLengths(t *testing.T) {
	repo := &mockRegistrationRepo{}
	svc := newRegistrationService(repo)

	for _, id := range []string{"123456789", "123456789012"} {
		req := validRegisterRequest()
		req.NationalID = id
		_, err := svc.Register(context.Background(), req)
		require.NoError(t, err, "national id %s should pass", id)
	}

	req := validRegisterRequest()
	req.NationalID = "1234567890"
	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
}

func TestRegisterAgeBounds(t *testing.T) {
	svc := newRegistrationService(&mockRegistrationRepo{})

	tooYoung := validRegisterRequest()
	tooYoung.DateOfBirth = time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Register(context.Background(), tooYoung)
	require.Error(t, err)

	tooOld := validRegisterRequest()
	tooOld.DateOfBirth = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Register(context.Background(), tooOld)
	require.Error(t, err)

	// Turns 18 exactly on the reference date.
	exact := validRegisterRequest()
	exact.DateOfBirth = time.Date(2008, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Register(context.Background(), exact)
	require.NoError(t, err)
}

func TestRegisterConflicts(t *testing.T) {
	svcEmail := newRegistrationService(&mockRegistrationRepo{emailTaken: true})
	_, err := svcEmail.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	svcStudent := newRegistrationService(&mockRegistrationRepo{studentIDTaken: true})
	_, err = svcStudent.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAgeAt(t *testing.T) {
	ref := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 20, ageAt(time.Date(2006, 9, 1, 0, 0, 0, 0, time.UTC), ref))
	assert.Equal(t, 19, ageAt(time.Date(2006, 9, 2, 0, 0, 0, 0, time.UTC), ref))
}
