package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

// ErrContractNotActive signals a lifecycle change on a contract that is not
// active.
var ErrContractNotActive = errors.New("contract is not active")

// ContractRepository manages persistence for tenancy contracts.
type ContractRepository struct {
	db *sqlx.DB
}

// NewContractRepository constructs a ContractRepository.
func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// List returns contracts matching the provided filters, joined with tenant
// and room display fields.
func (r *ContractRepository) List(ctx context.Context, filter models.ContractFilter) ([]models.ContractDetail, int, error) {
	base := `FROM contracts c
	LEFT JOIN users u ON u.id = c.user_id
	LEFT JOIN rooms rm ON rm.id = c.room_id`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("c.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"start_date": "c.start_date",
		"end_date":   "c.end_date",
		"created_at": "c.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "c.created_at"
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

	query := fmt.Sprintf(`SELECT c.id, c.user_id, c.room_id, c.start_date, c.end_date, c.status, c.monthly_rent, c.created_at, c.updated_at,
	u.full_name AS tenant_name, rm.room_number, rm.building
	%s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var contracts []models.ContractDetail
	if err := r.db.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contracts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contracts: %w", err)
	}
	return contracts, total, nil
}

// FindByID fetches a contract by ID.
func (r *ContractRepository) FindByID(ctx context.Context, id string) (*models.Contract, error) {
	const query = `SELECT id, user_id, room_id, start_date, end_date, status, monthly_rent, created_at, updated_at
	FROM contracts WHERE id = $1`
	var contract models.Contract
	if err := r.db.GetContext(ctx, &contract, query, id); err != nil {
		return nil, err
	}
	return &contract, nil
}

// CreateWithFirstInvoice inserts a staff-created contract together with its
// first rent invoice and the room occupancy increment, all in one
// transaction. The referenced room must exist.
func (r *ContractRepository) CreateWithFirstInvoice(ctx context.Context, contract models.Contract, invoice models.Invoice) (created *models.Contract, firstInvoice *models.Invoice, room *models.Room, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("begin create contract tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	room, roomErr := roomForUpdate(ctx, tx, contract.RoomID)
	if roomErr != nil {
		if errors.Is(roomErr, sql.ErrNoRows) {
			err = ErrRoomNotFound
			return nil, nil, nil, err
		}
		err = fmt.Errorf("load room: %w", roomErr)
		return nil, nil, nil, err
	}

	if err = insertContract(ctx, tx, &contract); err != nil {
		return nil, nil, nil, err
	}

	invoice.ContractID = contract.ID
	if err = insertInvoice(ctx, tx, &invoice); err != nil {
		return nil, nil, nil, err
	}

	if err = applyOccupancyDelta(ctx, tx, room, 1); err != nil {
		return nil, nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, nil, fmt.Errorf("commit create contract tx: %w", err)
	}
	return &contract, &invoice, room, nil
}

// Terminate flips an active contract to terminated and releases its slot in
// the room occupancy, in one transaction.
func (r *ContractRepository) Terminate(ctx context.Context, id string) (terminated *models.Contract, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin terminate tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var contract models.Contract
	const selectContract = `SELECT id, user_id, room_id, start_date, end_date, status, monthly_rent, created_at, updated_at
	FROM contracts WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &contract, selectContract, id); err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if contract.Status != models.ContractStatusActive {
		err = ErrContractNotActive
		return nil, err
	}

	now := time.Now().UTC()
	const updateContract = `UPDATE contracts SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateContract, id, models.ContractStatusTerminated, now); err != nil {
		return nil, fmt.Errorf("terminate contract: %w", err)
	}
	contract.Status = models.ContractStatusTerminated
	contract.UpdatedAt = now

	room, roomErr := roomForUpdate(ctx, tx, contract.RoomID)
	if roomErr == nil {
		if err = applyOccupancyDelta(ctx, tx, room, -1); err != nil {
			return nil, err
		}
	} else if !errors.Is(roomErr, sql.ErrNoRows) {
		err = fmt.Errorf("load room: %w", roomErr)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit terminate tx: %w", err)
	}
	return &contract, nil
}

// Delete removes a contract and cascades to its invoices in one
// transaction. Invoices of other contracts are untouched.
func (r *ContractRepository) Delete(ctx context.Context, id string) (deleted bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete contract tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM invoices WHERE contract_id = $1`, id); err != nil {
		return false, fmt.Errorf("delete contract invoices: %w", err)
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete contract: %w", execErr)
		return false, err
	}
	rows, rowsErr := res.RowsAffected()
	if rowsErr != nil {
		err = fmt.Errorf("delete contract rows: %w", rowsErr)
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete contract tx: %w", err)
	}
	return rows > 0, nil
}

// MarkExpired flips active contracts whose end date has passed. Returns the
// number of contracts expired.
func (r *ContractRepository) MarkExpired(ctx context.Context, asOf time.Time) (int64, error) {
	const query = `UPDATE contracts SET status = $2, updated_at = $3 WHERE status = $1 AND end_date < $3`
	res, err := r.db.ExecContext(ctx, query, models.ContractStatusActive, models.ContractStatusExpired, asOf.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark expired contracts: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark expired rows: %w", err)
	}
	return rows, nil
}
