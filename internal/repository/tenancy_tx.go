package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

// In-transaction helpers shared by the approval and direct-contract
// workflows. Every caller runs them inside a single BeginTxx transaction so
// the contract, its first invoice and the room occupancy either all commit
// or none do.

func roomForUpdate(ctx context.Context, tx *sqlx.Tx, roomID string) (*models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE id = $1 FOR UPDATE", roomColumns)
	var room models.Room
	if err := tx.GetContext(ctx, &room, query, roomID); err != nil {
		return nil, err
	}
	return &room, nil
}

func insertContract(ctx context.Context, tx *sqlx.Tx, contract *models.Contract) error {
	if contract.ID == "" {
		contract.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = now
	}
	contract.UpdatedAt = now
	const query = `INSERT INTO contracts (id, user_id, room_id, start_date, end_date, status, monthly_rent, created_at, updated_at)
	VALUES (:id, :user_id, :room_id, :start_date, :end_date, :status, :monthly_rent, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, contract); err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func insertInvoice(ctx context.Context, tx *sqlx.Tx, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	invoice.UpdatedAt = now
	const query = `INSERT INTO invoices (id, user_id, contract_id, amount, due_date, status, type, payment_method, paid_at, created_at, updated_at)
	VALUES (:id, :user_id, :contract_id, :amount, :due_date, :status, :type, :payment_method, :paid_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// applyOccupancyDelta adjusts a locked room's occupancy and rederives its
// status. The room struct is updated in place so callers can return the
// post-commit view without a second read.
func applyOccupancyDelta(ctx context.Context, tx *sqlx.Tx, room *models.Room, delta int) error {
	occupancy := room.CurrentOccupancy + delta
	if occupancy < 0 {
		occupancy = 0
	}
	status := models.OccupancyStatus(room.Status, occupancy, room.Capacity)
	now := time.Now().UTC()
	const query = `UPDATE rooms SET current_occupancy = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, room.ID, occupancy, status, now); err != nil {
		return fmt.Errorf("update room occupancy: %w", err)
	}
	room.CurrentOccupancy = occupancy
	room.Status = status
	room.UpdatedAt = now
	return nil
}
