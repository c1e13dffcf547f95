package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

// Workflow sentinels surfaced to services for precise error mapping.
var (
	// ErrApplicationNotPending signals an approval or rejection attempt on
	// an application that already reached a terminal state.
	ErrApplicationNotPending = errors.New("application is not pending")
	// ErrRoomNotFound signals that a workflow's referenced room is absent.
	ErrRoomNotFound = errors.New("referenced room not found")
)

// ApplicationRepository manages persistence for room applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// List returns applications matching the provided filters, joined with
// applicant and room display fields.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	base := `FROM applications a
	LEFT JOIN users u ON u.id = a.user_id
	LEFT JOIN rooms rm ON rm.id = a.room_id`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("a.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("a.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"created_at": "a.created_at",
		"status":     "a.status",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "a.created_at"
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

	query := fmt.Sprintf(`SELECT a.id, a.user_id, a.room_id, a.semester, a.academic_year, a.status, a.created_at, a.updated_at,
	u.full_name AS applicant_name, rm.room_number, rm.building
	%s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// FindByID fetches an application by ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	const query = `SELECT id, user_id, room_id, semester, academic_year, status, created_at, updated_at
	FROM applications WHERE id = $1`
	var application models.Application
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// Create inserts a new pending application.
func (r *ApplicationRepository) Create(ctx context.Context, application *models.Application) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if application.CreatedAt.IsZero() {
		application.CreatedAt = now
	}
	application.UpdatedAt = now
	const query = `INSERT INTO applications (id, user_id, room_id, semester, academic_year, status, created_at, updated_at)
	VALUES (:id, :user_id, :room_id, :semester, :academic_year, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, application); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// Reject marks a pending application rejected. Rejecting an already
// rejected application reports rejected=false with no error so repeated
// attempts stay a no-op.
func (r *ApplicationRepository) Reject(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE applications SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.ApplicationStatusRejected, time.Now().UTC(), models.ApplicationStatusPending)
	if err != nil {
		return false, fmt.Errorf("reject application: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject application rows: %w", err)
	}
	return rows > 0, nil
}

// ApproveParams carries the records the approval derives. Contract and
// Invoice are prepared by the service from the application's room; the
// repository inserts them atomically with the status flip and occupancy
// update.
type ApproveParams struct {
	ApplicationID string
	Contract      models.Contract
	Invoice       models.Invoice
}

// Approve runs the full approval derivation in one transaction: the
// application flips to approved, the contract and first invoice are
// inserted, and the room occupancy is incremented with its status
// rederived. A missing room or a non-pending application aborts the whole
// transaction, leaving every record untouched.
func (r *ApplicationRepository) Approve(ctx context.Context, params ApproveParams) (result *models.ApprovalResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approve tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var application models.Application
	const selectApp = `SELECT id, user_id, room_id, semester, academic_year, status, created_at, updated_at
	FROM applications WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &application, selectApp, params.ApplicationID); err != nil {
		return nil, fmt.Errorf("load application: %w", err)
	}
	if application.Status != models.ApplicationStatusPending {
		err = ErrApplicationNotPending
		return nil, err
	}

	room, roomErr := roomForUpdate(ctx, tx, application.RoomID)
	if roomErr != nil {
		if errors.Is(roomErr, sql.ErrNoRows) {
			err = ErrRoomNotFound
			return nil, err
		}
		err = fmt.Errorf("load room: %w", roomErr)
		return nil, err
	}

	now := time.Now().UTC()
	const updateApp = `UPDATE applications SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateApp, application.ID, models.ApplicationStatusApproved, now); err != nil {
		return nil, fmt.Errorf("approve application: %w", err)
	}
	application.Status = models.ApplicationStatusApproved
	application.UpdatedAt = now

	contract := params.Contract
	if err = insertContract(ctx, tx, &contract); err != nil {
		return nil, err
	}

	invoice := params.Invoice
	invoice.ContractID = contract.ID
	if err = insertInvoice(ctx, tx, &invoice); err != nil {
		return nil, err
	}

	if err = applyOccupancyDelta(ctx, tx, room, 1); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve tx: %w", err)
	}

	return &models.ApprovalResult{
		Application: application,
		Contract:    contract,
		Invoice:     invoice,
		Room:        *room,
	}, nil
}
