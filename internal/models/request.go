package models

import "time"

// RequestType classifies maintenance/complaint tickets.
type RequestType string

const (
	RequestTypeMaintenance RequestType = "maintenance"
	RequestTypeComplaint   RequestType = "complaint"
	RequestTypeOther       RequestType = "other"
)

// RequestStatus is the ticket state. Completed and rejected are terminal;
// an in-progress ticket can only complete.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusRejected   RequestStatus = "rejected"
)

// Request is a maintenance or complaint ticket raised against a room.
type Request struct {
	ID          string        `db:"id" json:"id"`
	UserID      string        `db:"user_id" json:"user_id"`
	RoomID      string        `db:"room_id" json:"room_id"`
	Type        RequestType   `db:"type" json:"type"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Status      RequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestDetail joins reporter and room display fields onto a request.
type RequestDetail struct {
	Request
	ReporterName *string `db:"reporter_name" json:"reporter_name,omitempty"`
	RoomNumber   *string `db:"room_number" json:"room_number,omitempty"`
}

// RequestFilter captures filtering criteria for listing requests.
type RequestFilter struct {
	UserID    string
	RoomID    string
	Status    *RequestStatus
	Type      *RequestType
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RequestStatusCounts aggregates requests per status.
type RequestStatusCounts struct {
	Pending    int `db:"pending" json:"pending"`
	InProgress int `db:"in_progress" json:"in_progress"`
	Completed  int `db:"completed" json:"completed"`
	Rejected   int `db:"rejected" json:"rejected"`
}
