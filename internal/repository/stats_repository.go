package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

// StatsRepository aggregates headline numbers across the tenancy tables.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs a StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// DashboardStats runs the aggregate queries behind the staff dashboard.
// A single statement with scalar subqueries keeps the numbers from one
// consistent snapshot.
func (r *StatsRepository) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM users WHERE role = 'student' AND is_active) AS total_students,
		(SELECT COUNT(*) FROM rooms) AS total_rooms,
		(SELECT COUNT(*) FROM rooms WHERE status = 'available') AS available_rooms,
		(SELECT COUNT(*) FROM rooms WHERE status = 'occupied') AS occupied_rooms,
		(SELECT COUNT(*) FROM rooms WHERE status = 'maintenance') AS maintenance_rooms,
		(SELECT COUNT(*) FROM applications WHERE status = 'pending') AS pending_applications,
		(SELECT COUNT(*) FROM contracts WHERE status = 'active') AS active_contracts,
		(SELECT COUNT(*) FROM requests WHERE status = 'pending') AS pending_requests,
		(SELECT COUNT(*) FROM invoices WHERE status = 'overdue') AS overdue_invoices,
		(SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status = 'paid') AS collected_revenue,
		(SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status IN ('pending', 'overdue')) AS outstanding_revenue`

	var stats models.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &stats, nil
}
