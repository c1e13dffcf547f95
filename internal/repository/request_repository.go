package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

// RequestRepository manages persistence for maintenance/complaint requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs a RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `r.id, r.user_id, r.room_id, r.type, r.title, r.description, r.status, r.created_at, r.updated_at`

// List returns requests with reporter and room display fields joined in.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	base := `FROM requests r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN rooms rm ON rm.id = r.room_id`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("r.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("r.type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"created_at": "r.created_at",
		"status":     "r.status",
		"type":       "r.type",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "r.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, u.full_name AS reporter_name, rm.room_number %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		requestColumns, base, column, order, size, offset)

	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// FindByID fetches a single request with joined display fields.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.full_name AS reporter_name, rm.room_number
	FROM requests r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN rooms rm ON rm.id = r.room_id
	WHERE r.id = $1`, requestColumns)
	var request models.RequestDetail
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a new request in pending state.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.Status = models.RequestStatusPending
	request.CreatedAt = now
	request.UpdatedAt = now
	const query = `INSERT INTO requests (id, user_id, room_id, type, title, description, status, created_at, updated_at)
	VALUES (:id, :user_id, :room_id, :type, :title, :description, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// UpdateStatus moves a request from one status to another. The from-state
// guard is in the statement so stale transitions affect zero rows.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	const query = `UPDATE requests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update request status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update request status rows: %w", err)
	}
	return rows > 0, nil
}

// StatusCounts aggregates requests per status for the dashboard.
func (r *RequestRepository) StatusCounts(ctx context.Context) (*models.RequestStatusCounts, error) {
	const query = `SELECT
		COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress,
		COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
	FROM requests`
	var counts models.RequestStatusCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("request status counts: %w", err)
	}
	return &counts, nil
}
