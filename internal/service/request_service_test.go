package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

type mockRequestRepo struct {
	request      *models.RequestDetail
	created      *models.Request
	listFilter   models.RequestFilter
	updateMoved  bool
	updatedFrom  models.RequestStatus
	updatedTo    models.RequestStatus
	updateCalled bool
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	m.listFilter = filter
	if m.request == nil {
		return nil, 0, nil
	}
	return []models.RequestDetail{*m.request}, 1, nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	if m.request == nil {
		return nil, sql.ErrNoRows
	}
	return m.request, nil
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.Request) error {
	request.ID = "req-1"
	request.Status = models.RequestStatusPending
	m.created = request
	return nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	m.updateCalled = true
	m.updatedFrom = from
	m.updatedTo = to
	if m.updateMoved && m.request != nil {
		m.request.Status = to
	}
	return m.updateMoved, nil
}

type mockRoomLookup struct {
	room *models.Room
}

func (m *mockRoomLookup) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if m.room == nil {
		return nil, sql.ErrNoRows
	}
	return m.room, nil
}

func staffActor() models.Actor {
	return models.Actor{UserID: "staff-1", Role: models.RoleManager}
}

func studentActor(id string) models.Actor {
	return models.Actor{UserID: id, Role: models.RoleStudent}
}

func TestRequestListScopesStudents(t *testing.T) {
	repo := &mockRequestRepo{}
	svc := NewRequestService(repo, &mockRoomLookup{}, nil, zap.NewNop())

	_, _, err := svc.List(context.Background(), studentActor("u1"), models.RequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, "u1", repo.listFilter.UserID)

	_, _, err = svc.List(context.Background(), staffActor(), models.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, repo.listFilter.UserID)
}

func TestRequestGetForbidsOtherStudents(t *testing.T) {
	repo := &mockRequestRepo{request: &models.RequestDetail{Request: models.Request{ID: "req-1", UserID: "owner"}}}
	svc := NewRequestService(repo, &mockRoomLookup{}, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), studentActor("intruder"), "req-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), studentActor("owner"), "req-1")
	require.NoError(t, err)
}

func TestRequestCreateStartsPending(t *testing.T) {
	repo := &mockRequestRepo{}
	rooms := &mockRoomLookup{room: &models.Room{ID: uuid.NewString()}}
	svc := NewRequestService(repo, rooms, nil, zap.NewNop())

	created, err := svc.Create(context.Background(), studentActor("u1"), RequestCreateRequest{
		RoomID:      rooms.room.ID,
		Type:        models.RequestTypeMaintenance,
		Title:       "Broken fan",
		Description: "The ceiling fan stopped working",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, created.Status)
	assert.Equal(t, "u1", created.UserID)
}

func TestRequestCreateUnknownRoom(t *testing.T) {
	svc := NewRequestService(&mockRequestRepo{}, &mockRoomLookup{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), studentActor("u1"), RequestCreateRequest{
		RoomID:      uuid.NewString(),
		Type:        models.RequestTypeOther,
		Title:       "x",
		Description: "y",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRequestTransitionStaffOnly(t *testing.T) {
	svc := NewRequestService(&mockRequestRepo{}, &mockRoomLookup{}, nil, zap.NewNop())

	_, err := svc.Transition(context.Background(), studentActor("u1"), "req-1", models.RequestStatusInProgress)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRequestTransitionUsesStateMachine(t *testing.T) {
	repo := &mockRequestRepo{
		updateMoved: true,
		request:     &models.RequestDetail{Request: models.Request{ID: "req-1", Status: models.RequestStatusPending}},
	}
	svc := NewRequestService(repo, &mockRoomLookup{}, nil, zap.NewNop())

	updated, err := svc.Transition(context.Background(), staffActor(), "req-1", models.RequestStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, repo.updatedFrom)
	assert.Equal(t, models.RequestStatusInProgress, repo.updatedTo)
	assert.Equal(t, models.RequestStatusInProgress, updated.Status)
}

func TestRequestTransitionRejectsUnknownTarget(t *testing.T) {
	repo := &mockRequestRepo{}
	svc := NewRequestService(repo, &mockRoomLookup{}, nil, zap.NewNop())

	_, err := svc.Transition(context.Background(), staffActor(), "req-1", models.RequestStatusPending)
	require.Error(t, err)
	assert.False(t, repo.updateCalled)
}

func TestRequestTransitionBlockedByCurrentStatus(t *testing.T) {
	repo := &mockRequestRepo{
		updateMoved: false,
		request:     &models.RequestDetail{Request: models.Request{ID: "req-1", Status: models.RequestStatusCompleted}},
	}
	svc := NewRequestService(repo, &mockRoomLookup{}, nil, zap.NewNop())

	_, err := svc.Transition(context.Background(), staffActor(), "req-1", models.RequestStatusInProgress)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestRequestTransitionNotFound(t *testing.T) {
	repo := &mockRequestRepo{updateMoved: false}
	svc := NewRequestService(repo, &mockRoomLookup{}, nil, zap.NewNop())

	_, err := svc.Transition(context.Background(), staffActor(), "missing", models.RequestStatusRejected)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
