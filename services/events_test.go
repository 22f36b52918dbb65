package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/scheduler/models"
)

type mockEventStore struct {
	mock.Mock
}

func (m *mockEventStore) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *mockEventStore) Create(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockEventStore) Update(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockEventStore) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) Enqueue(ctx context.Context, eventType, entityID string, payload interface{}) bool {
	args := m.Called(ctx, eventType, entityID, payload)
	return args.Bool(0)
}

func validInput() EventInput {
	return EventInput{
		Title: "Practice",
		Start: "2999-01-01 10:00:00",
		End:   "2999-01-01 11:00:00",
	}
}

func TestCreateEventEnqueuesNotification(t *testing.T) {
	store := new(mockEventStore)
	queue := new(mockBroadcaster)
	store.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Event).ID = 42
	}).Return(nil)
	queue.On("Enqueue", mock.Anything, models.EventTypeCreate, "42", mock.Anything).Return(true).Once()

	svc := NewEventService(store, queue, nil)
	event, err := svc.CreateEvent(context.Background(), 7, validInput())

	require.NoError(t, err)
	require.Equal(t, uint(42), event.ID)
	require.Equal(t, uint(7), event.UserID)
	queue.AssertExpectations(t)
}

func TestCreateEventRejectsLongTitle(t *testing.T) {
	store := new(mockEventStore)
	queue := new(mockBroadcaster)
	svc := NewEventService(store, queue, nil)

	input := validInput()
	input.Title = strings.Repeat("x", 101)

	_, err := svc.CreateEvent(context.Background(), 7, input)
	require.Error(t, err)
	require.Contains(t, err.Error(), "title")

	store.AssertNotCalled(t, "Create")
	queue.AssertNotCalled(t, "Enqueue")
}

func TestCreateEventAcceptsTitleAtLimit(t *testing.T) {
	store := new(mockEventStore)
	queue := new(mockBroadcaster)
	store.On("Create", mock.Anything, mock.Anything).Return(nil)
	queue.On("Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)

	svc := NewEventService(store, queue, nil)
	input := validInput()
	input.Title = strings.Repeat("x", 100)

	_, err := svc.CreateEvent(context.Background(), 7, input)
	require.NoError(t, err)
}

func TestCreateEventRejectsBadDates(t *testing.T) {
	svc := NewEventService(new(mockEventStore), new(mockBroadcaster), nil)

	input := validInput()
	input.Start = "whenever"
	_, err := svc.CreateEvent(context.Background(), 7, input)
	require.Error(t, err)

	input = validInput()
	input.End = "2999-01-01 09:00:00"
	_, err = svc.CreateEvent(context.Background(), 7, input)
	require.EqualError(t, err, "end time cannot be before start time")
}

func TestUpdateEventChecksOwnership(t *testing.T) {
	store := new(mockEventStore)
	queue := new(mockBroadcaster)
	store.On("GetByID", mock.Anything, uint(5)).Return(&models.Event{ID: 5, UserID: 99}, nil)

	svc := NewEventService(store, queue, nil)
	_, err := svc.UpdateEvent(context.Background(), 5, 7, validInput())

	require.ErrorIs(t, err, ErrNotOwner)
	store.AssertNotCalled(t, "Update")
	queue.AssertNotCalled(t, "Enqueue")
}

func TestUpdateEventEnqueuesNotification(t *testing.T) {
	store := new(mockEventStore)
	queue := new(mockBroadcaster)
	store.On("GetByID", mock.Anything, uint(5)).Return(&models.Event{ID: 5, UserID: 7, Title: "Old"}, nil)
	store.On("Update", mock.Anything, mock.Anything).Return(nil)
	queue.On("Enqueue", mock.Anything, models.EventTypeUpdate, "5", mock.Anything).Return(true).Once()

	svc := NewEventService(store, queue, nil)
	event, err := svc.UpdateEvent(context.Background(), 5, 7, validInput())

	require.NoError(t, err)
	require.Equal(t, "Practice", event.Title)
	queue.AssertExpectations(t)
}

func TestDeleteEventChecksOwnership(t *testing.T) {
	store := new(mockEventStore)
	queue := new(mockBroadcaster)
	store.On("GetByID", mock.Anything, uint(5)).Return(&models.Event{ID: 5, UserID: 99}, nil)

	svc := NewEventService(store, queue, nil)
	err := svc.DeleteEvent(context.Background(), 5, 7)

	require.ErrorIs(t, err, ErrNotOwner)
	store.AssertNotCalled(t, "Delete")
}

func TestDeleteEventEnqueuesFinalState(t *testing.T) {
	store := new(mockEventStore)
	queue := new(mockBroadcaster)
	existing := &models.Event{ID: 5, UserID: 7, Title: "Doomed"}
	store.On("GetByID", mock.Anything, uint(5)).Return(existing, nil)
	store.On("Delete", mock.Anything, uint(5)).Return(nil)
	// The delete notification carries the event as it was before removal
	queue.On("Enqueue", mock.Anything, models.EventTypeDelete, "5", existing).Return(true).Once()

	svc := NewEventService(store, queue, nil)
	require.NoError(t, svc.DeleteEvent(context.Background(), 5, 7))
	queue.AssertExpectations(t)
}
