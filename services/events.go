package services

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/scheduler/importer"
	"example.com/backstage/services/scheduler/models"
	"example.com/backstage/services/scheduler/utils"
)

// ErrNotOwner is returned when a caller mutates an event they don't own
var ErrNotOwner = errors.New("event does not belong to this user")

// eventStore is the persistence surface the writer path needs
type eventStore interface {
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uint) error
}

// broadcaster enqueues one change notification per accepted mutation
type broadcaster interface {
	Enqueue(ctx context.Context, eventType, entityID string, payload interface{}) bool
}

// indexer keeps the search index in step with the event store
type indexer interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	RemoveEvent(ctx context.Context, eventID uint) error
}

// EventInput carries the fields a writer supplies for a single event.
// The 100-character title cap applies at this boundary only; the bulk
// import path deliberately does not enforce it.
type EventInput struct {
	Title       string `json:"title" validate:"required,max=100"`
	Start       string `json:"start" validate:"required"`
	End         string `json:"end"`
	Description string `json:"description"`
	Color       string `json:"color" validate:"omitempty,max=32"`
}

// EventService is the single-event writer path. Every mutation it
// accepts funnels through the notification queue, same as the bulk
// import pipeline; the enqueue is best effort after commit.
type EventService struct {
	events eventStore
	queue  broadcaster
	search indexer
}

// NewEventService creates a new event service. search may be nil.
func NewEventService(events eventStore, queue broadcaster, search indexer) *EventService {
	return &EventService{
		events: events,
		queue:  queue,
		search: search,
	}
}

// CreateEvent validates the input, persists the event and enqueues a
// create notification
func (s *EventService) CreateEvent(ctx context.Context, userID uint, input EventInput) (*models.Event, error) {
	event, err := s.buildEvent(userID, input)
	if err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.notify(ctx, models.EventTypeCreate, event)
	s.index(ctx, event)

	log.Info().Uint("event_id", event.ID).Uint("user_id", userID).Msg("Event created")
	return event, nil
}

// UpdateEvent applies changes to an event owned by userID and enqueues
// an update notification
func (s *EventService) UpdateEvent(ctx context.Context, id, userID uint, input EventInput) (*models.Event, error) {
	existing, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, ErrNotOwner
	}

	updated, err := s.buildEvent(userID, input)
	if err != nil {
		return nil, err
	}

	existing.Title = updated.Title
	existing.StartTime = updated.StartTime
	existing.EndTime = updated.EndTime
	existing.Description = updated.Description
	existing.Color = updated.Color

	if err := s.events.Update(ctx, existing); err != nil {
		return nil, err
	}

	s.notify(ctx, models.EventTypeUpdate, existing)
	s.index(ctx, existing)

	log.Info().Uint("event_id", existing.ID).Uint("user_id", userID).Msg("Event updated")
	return existing, nil
}

// DeleteEvent physically removes an event owned by userID and enqueues a
// delete notification carrying the event as it was at deletion time
func (s *EventService) DeleteEvent(ctx context.Context, id, userID uint) error {
	existing, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrNotOwner
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}

	s.notify(ctx, models.EventTypeDelete, existing)
	if s.search != nil {
		if err := s.search.RemoveEvent(ctx, id); err != nil {
			log.Warn().Err(err).Uint("event_id", id).Msg("Failed to remove event from search index")
		}
	}

	log.Info().Uint("event_id", id).Uint("user_id", userID).Msg("Event deleted")
	return nil
}

// buildEvent validates and normalizes the input into a canonical event
func (s *EventService) buildEvent(userID uint, input EventInput) (*models.Event, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	start, err := importer.ParseTimestamp(input.Start)
	if err != nil {
		return nil, errors.New("invalid date/time format")
	}

	end := start
	if input.End != "" {
		end, err = importer.ParseTimestamp(input.End)
		if err != nil {
			return nil, errors.New("invalid date/time format")
		}
	}
	if end.Before(start) {
		return nil, errors.New("end time cannot be before start time")
	}

	return &models.Event{
		Title:       input.Title,
		StartTime:   start,
		EndTime:     end,
		UserID:      userID,
		Description: input.Description,
		Color:       input.Color,
	}, nil
}

// notify enqueues a change log entry, fire-and-forget
func (s *EventService) notify(ctx context.Context, eventType string, event *models.Event) {
	s.queue.Enqueue(ctx, eventType, strconv.FormatUint(uint64(event.ID), 10), event)
}

// index pushes the event into the search index, best effort
func (s *EventService) index(ctx context.Context, event *models.Event) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexEvent(ctx, event); err != nil {
		log.Warn().Err(err).Uint("event_id", event.ID).Msg("Failed to index event")
	}
}
