package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/scheduler/models"
	"example.com/backstage/services/scheduler/repositories"
)

const (
	// DefaultPollLimit caps a poll response when the caller gives no limit
	DefaultPollLimit = 10
	// MaxPollLimit bounds a single poll response
	MaxPollLimit = 100
)

// Store is the persistence surface the notification queue relies on.
// Implemented by repositories.NotificationRepository.
type Store interface {
	Append(ctx context.Context, n *models.Notification) error
	ListAfter(ctx context.Context, sinceID uint, limit int) ([]models.Notification, error)
	LatestID(ctx context.Context) (uint, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountRecentByTypeEntity(ctx context.Context, eventType, entityID string, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAllButMostRecent(ctx context.Context, keep int) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	FindDuplicatePatterns(ctx context.Context, since time.Time, threshold int64) ([]repositories.DuplicatePattern, error)
}

// Queue is the polling-based change log. Every accepted mutation appends
// exactly one entry; consumers observe entries in strictly increasing id
// order by re-polling with their last seen id. Broadcast, at-least-once,
// no acknowledgments.
type Queue struct {
	store      Store
	suppressor *Suppressor
	retention  *Retention

	inlineMaxAgeHours int
	inlineMaxRecords  int
}

// NewQueue creates a new notification queue. The inline thresholds drive
// the opportunistic cleanup that runs after every successful enqueue.
func NewQueue(store Store, suppressor *Suppressor, retention *Retention, inlineMaxAgeHours, inlineMaxRecords int) *Queue {
	if inlineMaxAgeHours <= 0 {
		inlineMaxAgeHours = 24
	}
	if inlineMaxRecords <= 0 {
		inlineMaxRecords = 1000
	}
	return &Queue{
		store:             store,
		suppressor:        suppressor,
		retention:         retention,
		inlineMaxAgeHours: inlineMaxAgeHours,
		inlineMaxRecords:  inlineMaxRecords,
	}
}

// Enqueue appends one change log entry for (eventType, entityID) unless
// the duplicate suppressor short-circuits it. Returns true when an entry
// was appended. Failures are logged, never thrown: the mutation this
// notification describes has already been committed.
func (q *Queue) Enqueue(ctx context.Context, eventType, entityID string, payload interface{}) bool {
	if q.suppressor != nil && q.suppressor.ShouldSuppress(ctx, eventType, entityID) {
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).
			Str("event_type", eventType).
			Str("entity_id", entityID).
			Msg("Failed to marshal notification payload")
		return false
	}

	entry := &models.Notification{
		EventType: eventType,
		EntityID:  entityID,
		Payload:   data,
	}
	if err := q.store.Append(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("event_type", eventType).
			Str("entity_id", entityID).
			Msg("Failed to append notification")
		return false
	}

	// Opportunistic trim so the log cannot grow without bound even if
	// the scheduled job is down. Best effort only.
	if q.retention != nil {
		if _, err := q.retention.Cleanup(ctx, q.inlineMaxAgeHours, q.inlineMaxRecords); err != nil {
			log.Warn().Err(err).Msg("Inline notification cleanup failed")
		}
	}

	return true
}

// Poll returns entries with id > sinceID in ascending id order, at most
// limit of them. An empty slice is a valid result meaning nothing new.
func (q *Queue) Poll(ctx context.Context, sinceID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultPollLimit
	}
	if limit > MaxPollLimit {
		limit = MaxPollLimit
	}
	return q.store.ListAfter(ctx, sinceID, limit)
}

// LatestID returns the current maximum entry id, or 0 when the log is
// empty. New consumers use it to establish a starting cursor without
// replaying history.
func (q *Queue) LatestID(ctx context.Context) (uint, error) {
	return q.store.LatestID(ctx)
}
