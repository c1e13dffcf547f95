package models

import "time"

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// InvoiceType labels what an invoice charges for.
type InvoiceType string

const (
	InvoiceTypeRoomRent    InvoiceType = "room_rent"
	InvoiceTypeElectricity InvoiceType = "electricity"
	InvoiceTypeWater       InvoiceType = "water"
	InvoiceTypeOther       InvoiceType = "other"
)

// Invoice is a billable charge tied to a contract.
type Invoice struct {
	ID            string        `db:"id" json:"id"`
	UserID        string        `db:"user_id" json:"user_id"`
	ContractID    string        `db:"contract_id" json:"contract_id"`
	Amount        int64         `db:"amount" json:"amount"`
	DueDate       time.Time     `db:"due_date" json:"due_date"`
	Status        InvoiceStatus `db:"status" json:"status"`
	Type          InvoiceType   `db:"type" json:"type"`
	PaidAt        *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	PaymentMethod *string       `db:"payment_method" json:"payment_method,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// InvoiceFilter captures filtering criteria for listing invoices.
type InvoiceFilter struct {
	UserID     string
	ContractID string
	Status     *InvoiceStatus
	Type       *InvoiceType
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// InvoiceSummary aggregates payment totals for the invoice list header.
type InvoiceSummary struct {
	PendingCount  int   `db:"pending_count" json:"pending_count"`
	PaidCount     int   `db:"paid_count" json:"paid_count"`
	OverdueCount  int   `db:"overdue_count" json:"overdue_count"`
	PendingAmount int64 `db:"pending_amount" json:"pending_amount"`
	PaidAmount    int64 `db:"paid_amount" json:"paid_amount"`
}

// BillingCandidate is an active contract missing its rent invoice for the
// current billing period.
type BillingCandidate struct {
	ContractID  string    `db:"contract_id"`
	UserID      string    `db:"user_id"`
	MonthlyRent int64     `db:"monthly_rent"`
	StartDate   time.Time `db:"start_date"`
}
