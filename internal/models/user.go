package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

// IsStaff reports whether the role may run approval and lifecycle operations.
func (r UserRole) IsStaff() bool {
	return r == RoleManager || r == RoleAdmin
}

// AcademicStatus tracks a student's enrollment state at the university.
type AcademicStatus string

const (
	AcademicStatusStudying  AcademicStatus = "studying"
	AcademicStatusOnLeave   AcademicStatus = "on_leave"
	AcademicStatusGraduated AcademicStatus = "graduated"
	AcademicStatusExpelled  AcademicStatus = "expelled"
)

// User represents an application user stored in the users table.
// Student-academic, personal and emergency-contact fields are optional and
// only populated for student accounts.
type User struct {
	ID           string   `db:"id" json:"id"`
	Email        string   `db:"email" json:"email"`
	PasswordHash string   `db:"password_hash" json:"-"`
	FullName     string   `db:"full_name" json:"full_name"`
	PhoneNumber  string   `db:"phone_number" json:"phone_number"`
	Role         UserRole `db:"role" json:"role"`
	Active       bool     `db:"active" json:"active"`

	StudentID      *string         `db:"student_id" json:"student_id,omitempty"`
	Class          *string         `db:"class" json:"class,omitempty"`
	Faculty        *string         `db:"faculty" json:"faculty,omitempty"`
	Major          *string         `db:"major" json:"major,omitempty"`
	Course         *string         `db:"course" json:"course,omitempty"`
	AcademicStatus *AcademicStatus `db:"academic_status" json:"academic_status,omitempty"`

	DateOfBirth       *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            *string    `db:"gender" json:"gender,omitempty"`
	NationalID        *string    `db:"national_id" json:"national_id,omitempty"`
	PortraitImage     *string    `db:"portrait_image" json:"portrait_image,omitempty"`
	IDCardFrontImage  *string    `db:"id_card_front_image" json:"id_card_front_image,omitempty"`
	IDCardBackImage   *string    `db:"id_card_back_image" json:"id_card_back_image,omitempty"`
	PlaceOfOrigin     *string    `db:"place_of_origin" json:"place_of_origin,omitempty"`
	CurrentAddress    *string    `db:"current_address" json:"current_address,omitempty"`
	EmergencyName     *string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyPhone    *string    `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	EmergencyRelation *string    `db:"emergency_contact_relation" json:"emergency_contact_relation,omitempty"`

	LastLogin *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Actor identifies the authenticated caller inside service operations.
// It replaces ambient current-user state: every operation that needs
// identity-based filtering receives one explicitly.
type Actor struct {
	UserID string
	Role   UserRole
}

// IsStaff reports whether the actor may run staff-only operations.
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
