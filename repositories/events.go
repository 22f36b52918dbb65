package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/scheduler/models"
)

// EventRepository provides access to calendar events
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetByID gets an event by id
func (r *EventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to get event by id")
	}
	return &event, nil
}

// Create persists a single event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return errors.Wrap(err, "failed to create event")
	}
	return nil
}

// CreateBatch persists all events inside one transaction. Either every
// event is inserted or none is.
func (r *EventRepository) CreateBatch(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, event := range events {
			if err := tx.Create(event).Error; err != nil {
				return errors.Wrap(err, "failed to create event in batch")
			}
		}
		return nil
	})
}

// Update persists changes to an existing event
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Save(event).Error; err != nil {
		return errors.Wrap(err, "failed to update event")
	}
	return nil
}

// Delete removes an event. Deletion is physical, there is no soft-delete.
func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Event{}, id).Error; err != nil {
		return errors.Wrap(err, "failed to delete event")
	}
	return nil
}

// FindOverlapping returns the owner's events whose interval overlaps
// [start, end). The boundary semantics treat the start as inclusive and
// the end as exclusive, so back-to-back bookings do not collide.
func (r *EventRepository) FindOverlapping(ctx context.Context, userID uint, start, end time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("(start_time <= ? AND end_time > ?) OR (start_time < ? AND end_time >= ?) OR (start_time >= ? AND start_time < ?)",
			start, start, end, end, start, end).
		Order("start_time ASC").
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query overlapping events")
	}
	return events, nil
}
