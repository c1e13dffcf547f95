package models

// DashboardStats aggregates the headline numbers shown to staff.
type DashboardStats struct {
	TotalStudents       int   `db:"total_students" json:"total_students"`
	TotalRooms          int   `db:"total_rooms" json:"total_rooms"`
	AvailableRooms      int   `db:"available_rooms" json:"available_rooms"`
	OccupiedRooms       int   `db:"occupied_rooms" json:"occupied_rooms"`
	MaintenanceRooms    int   `db:"maintenance_rooms" json:"maintenance_rooms"`
	PendingApplications int   `db:"pending_applications" json:"pending_applications"`
	ActiveContracts     int   `db:"active_contracts" json:"active_contracts"`
	PendingRequests     int   `db:"pending_requests" json:"pending_requests"`
	OverdueInvoices     int   `db:"overdue_invoices" json:"overdue_invoices"`
	CollectedRevenue    int64 `db:"collected_revenue" json:"collected_revenue"`
	OutstandingRevenue  int64 `db:"outstanding_revenue" json:"outstanding_revenue"`
}
