package models

import "time"

// RegisterRequest is the student intake payload. The three identity image
// paths are filled in by the handler after the uploaded files pass
// validation, so by the time the service sees the request the images are
// already on disk.
type RegisterRequest struct {
	Email           string    `json:"email" validate:"required,email"`
	Password        string    `json:"password" validate:"required,min=6"`
	ConfirmPassword string    `json:"confirm_password" validate:"required,eqfield=Password"`
	FullName        string    `json:"full_name" validate:"required"`
	PhoneNumber     string    `json:"phone_number" validate:"required"`
	StudentID       string    `json:"student_id" validate:"required"`
	Class           string    `json:"class" validate:"required"`
	Faculty         string    `json:"faculty" validate:"required"`
	Major           string    `json:"major" validate:"required"`
	Course          string    `json:"course" validate:"required"`
	DateOfBirth     time.Time `json:"date_of_birth" validate:"required"`
	Gender          string    `json:"gender" validate:"required,oneof=male female other"`
	NationalID      string    `json:"national_id" validate:"required"`
	PlaceOfOrigin   string    `json:"place_of_origin" validate:"required"`
	CurrentAddress  string    `json:"current_address" validate:"required"`
	EmergencyName   string    `json:"emergency_contact_name" validate:"required"`
	EmergencyPhone  string    `json:"emergency_contact_phone" validate:"required"`
	EmergencyRel    string    `json:"emergency_contact_relation" validate:"required"`
	PortraitImage   string    `json:"-" validate:"required"`
	IDCardFront     string    `json:"-" validate:"required"`
	IDCardBack      string    `json:"-" validate:"required"`
}
