package handler

import (
	"mime/multipart"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/service"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/response"
)

// RegistrationHandler exposes the student intake endpoint.
type RegistrationHandler struct {
	registration *service.RegistrationService
	uploads      *service.UploadService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *service.RegistrationService, uploads *service.UploadService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, uploads: uploads}
}

// Register godoc
// @Summary Register a student account
// @Description Multipart form carrying the profile fields plus three identity images: portrait, id_card_front, id_card_back.
// @Tags Auth
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /auth/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	req := models.RegisterRequest{
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirm_password"),
		FullName:        c.PostForm("full_name"),
		PhoneNumber:     c.PostForm("phone_number"),
		StudentID:       c.PostForm("student_id"),
		Class:           c.PostForm("class"),
		Faculty:         c.PostForm("faculty"),
		Major:           c.PostForm("major"),
		Course:          c.PostForm("course"),
		Gender:          c.PostForm("gender"),
		NationalID:      c.PostForm("national_id"),
		PlaceOfOrigin:   c.PostForm("place_of_origin"),
		CurrentAddress:  c.PostForm("current_address"),
		EmergencyName:   c.PostForm("emergency_contact_name"),
		EmergencyPhone:  c.PostForm("emergency_contact_phone"),
		EmergencyRel:    c.PostForm("emergency_contact_relation"),
	}

	dob, err := time.Parse("2006-01-02", c.PostForm("date_of_birth"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_of_birth must be formatted as YYYY-MM-DD"))
		return
	}
	req.DateOfBirth = dob

	// The images are stored before the account exists, keyed by the
	// student id. A rejected registration leaves orphaned files that the
	// storage cleanup sweeps later.
	images := map[service.ImageKind]*string{
		service.ImagePortrait:    &req.PortraitImage,
		service.ImageIDCardFront: &req.IDCardFront,
		service.ImageIDCardBack:  &req.IDCardBack,
	}
	for kind, target := range images {
		header, err := c.FormFile(string(kind))
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, string(kind)+" image is required"))
			return
		}
		stored, err := h.storeImage(req.StudentID, kind, header)
		if err != nil {
			response.Error(c, err)
			return
		}
		*target = stored.Path
	}

	user, err := h.registration.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

func (h *RegistrationHandler) storeImage(studentID string, kind service.ImageKind, header *multipart.FileHeader) (*service.StoredImage, error) {
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cannot read uploaded file")
	}
	defer file.Close() //nolint:errcheck
	return h.uploads.Store(studentID, kind, file, header.Size)
}
