package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/scheduler/models"
)

// DuplicatePattern is one (event_type, entity_id) pair that appeared more
// often than a threshold within a time window. Reported for operational
// alerting only.
type DuplicatePattern struct {
	EventType string `json:"event_type"`
	EntityID  string `json:"entity_id"`
	Count     int64  `json:"count"`
}

// NotificationRepository provides access to the append-only change log
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Append inserts one change log entry. Entries are never updated.
func (r *NotificationRepository) Append(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return errors.Wrap(err, "failed to append notification")
	}
	return nil
}

// ListAfter returns entries with id > sinceID in ascending id order,
// capped at limit. An empty result is valid and means nothing new yet.
func (r *NotificationRepository) ListAfter(ctx context.Context, sinceID uint, limit int) ([]models.Notification, error) {
	var entries []models.Notification
	err := r.db.WithContext(ctx).
		Where("id > ?", sinceID).
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return entries, nil
}

// LatestID returns the current maximum entry id, or 0 for an empty log
func (r *NotificationRepository) LatestID(ctx context.Context) (uint, error) {
	var latest uint
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&latest).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to get latest notification id")
	}
	return latest, nil
}

// Count returns the total number of entries in the log
func (r *NotificationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count notifications")
	}
	return count, nil
}

// CountRecentByTypeEntity counts entries with the given type and entity
// created at or after since. Used by the cross-process duplicate check.
func (r *NotificationRepository) CountRecentByTypeEntity(ctx context.Context, eventType, entityID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("event_type = ? AND entity_id = ? AND created_at >= ?", eventType, entityID, since).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count recent notifications")
	}
	return count, nil
}

// CountSince counts entries created at or after since
func (r *NotificationRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count notifications since")
	}
	return count, nil
}

// DeleteOlderThan removes entries created before the cutoff and returns
// the number deleted
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to delete old notifications")
	}
	return res.RowsAffected, nil
}

// DeleteAllButMostRecent keeps the newest keep entries by id and removes
// the rest, returning the number deleted
func (r *NotificationRepository) DeleteAllButMostRecent(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	// Find the smallest id that survives; anything below it goes.
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Select("id").
		Order("id DESC").
		Limit(1).
		Offset(keep - 1).
		Scan(&ids).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to find retention cutoff id")
	}
	if keep > 0 && len(ids) == 0 {
		// Fewer than keep entries exist
		return 0, nil
	}

	query := r.db.WithContext(ctx)
	if keep == 0 {
		query = query.Where("id > ?", 0)
	} else {
		query = query.Where("id < ?", ids[0])
	}

	res := query.Delete(&models.Notification{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to delete surplus notifications")
	}
	return res.RowsAffected, nil
}

// DeleteAll truncates the change log unconditionally and returns the
// number of entries removed
func (r *NotificationRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id > ?", 0).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to purge notifications")
	}
	return res.RowsAffected, nil
}

// FindDuplicatePatterns returns (event_type, entity_id) pairs that occur
// more than threshold times since the given time
func (r *NotificationRepository) FindDuplicatePatterns(ctx context.Context, since time.Time, threshold int64) ([]DuplicatePattern, error) {
	var patterns []DuplicatePattern
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Select("event_type, entity_id, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("event_type, entity_id").
		Having("COUNT(*) > ?", threshold).
		Order("count DESC").
		Scan(&patterns).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find duplicate patterns")
	}
	return patterns, nil
}
