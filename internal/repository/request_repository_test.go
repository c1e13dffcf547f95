package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

func TestRequestRepositoryListScoped(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "room_id", "type", "title", "description", "status", "created_at", "updated_at", "reporter_name", "room_number"}).
		AddRow("req-1", "u1", "r1", "maintenance", "Broken fan", "Fan in room A101", "pending", now, now, "Nguyen Van A", "A101")
	mock.ExpectQuery("SELECT (.+) FROM requests r").
		WithArgs("u1").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM requests r").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	requests, total, err := repo.List(context.Background(), models.RequestFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, 1, total)
	require.NotNil(t, requests[0].RoomNumber)
	assert.Equal(t, "A101", *requests[0].RoomNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCreateStartsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO requests").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.Request{UserID: "u1", RoomID: "r1", Type: models.RequestTypeMaintenance, Title: "Broken fan", Description: "Fan in room A101"}
	err := repo.Create(context.Background(), request)
	require.NoError(t, err)
	assert.NotEmpty(t, request.ID)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("UPDATE requests SET status = \\$3, updated_at = \\$4 WHERE id = \\$1 AND status = \\$2").
		WithArgs("req-1", models.RequestStatusPending, models.RequestStatusInProgress, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.UpdateStatus(context.Background(), "req-1", models.RequestStatusPending, models.RequestStatusInProgress)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateStatusStaleTransition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("UPDATE requests SET status = \\$3").
		WithArgs("req-1", models.RequestStatusInProgress, models.RequestStatusCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateStatus(context.Background(), "req-1", models.RequestStatusInProgress, models.RequestStatusCompleted)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryStatusCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"pending", "in_progress", "completed", "rejected"}).
		AddRow(3, 2, 10, 1)
	mock.ExpectQuery("COUNT\\(\\*\\) FILTER").WillReturnRows(rows)

	counts, err := repo.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Pending)
	assert.Equal(t, 10, counts.Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
