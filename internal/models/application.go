package models

import "time"

// ApplicationStatus is the lifecycle state of a room application.
// Approved and rejected are both terminal.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Application is a student's request to be assigned a specific room for a
// semester.
type Application struct {
	ID           string            `db:"id" json:"id"`
	UserID       string            `db:"user_id" json:"user_id"`
	RoomID       string            `db:"room_id" json:"room_id"`
	Semester     string            `db:"semester" json:"semester"`
	AcademicYear string            `db:"academic_year" json:"academic_year"`
	Status       ApplicationStatus `db:"status" json:"status"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationDetail joins applicant and room display fields onto an
// application for list views.
type ApplicationDetail struct {
	Application
	ApplicantName *string `db:"applicant_name" json:"applicant_name,omitempty"`
	RoomNumber    *string `db:"room_number" json:"room_number,omitempty"`
	Building      *string `db:"building" json:"building,omitempty"`
}

// ApplicationFilter captures filtering criteria for listing applications.
type ApplicationFilter struct {
	UserID    string
	RoomID    string
	Status    *ApplicationStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ApprovalResult reports the records derived from approving an application.
type ApprovalResult struct {
	Application Application `json:"application"`
	Contract    Contract    `json:"contract"`
	Invoice     Invoice     `json:"invoice"`
	Room        Room        `json:"room"`
}
