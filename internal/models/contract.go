package models

import "time"

// ContractStatus is the lifecycle state of a tenancy contract.
type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "active"
	ContractStatusExpired    ContractStatus = "expired"
	ContractStatusTerminated ContractStatus = "terminated"
)

// Contract is a binding tenancy record generated from an approved
// application or created directly by staff.
type Contract struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	RoomID      string         `db:"room_id" json:"room_id"`
	StartDate   time.Time      `db:"start_date" json:"start_date"`
	EndDate     time.Time      `db:"end_date" json:"end_date"`
	Status      ContractStatus `db:"status" json:"status"`
	MonthlyRent int64          `db:"monthly_rent" json:"monthly_rent"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ContractDetail joins tenant and room display fields onto a contract.
type ContractDetail struct {
	Contract
	TenantName *string `db:"tenant_name" json:"tenant_name,omitempty"`
	RoomNumber *string `db:"room_number" json:"room_number,omitempty"`
	Building   *string `db:"building" json:"building,omitempty"`
}

// ContractFilter captures filtering criteria for listing contracts.
type ContractFilter struct {
	UserID    string
	RoomID    string
	Status    *ContractStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
