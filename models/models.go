package models

import (
	"time"

	"gorm.io/gorm"
)

// TimeFormat is the canonical on-the-wire timestamp form. All parsers
// normalize their heterogeneous inputs to this layout before storage.
const TimeFormat = "2006-01-02 15:04:05"

// User represents an account events belong to
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is the canonical calendar event shared by all write paths
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	StartTime   time.Time `gorm:"index:idx_events_owner_start,priority:2" json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	UserID      uint      `gorm:"index:idx_events_owner_start,priority:1" json:"user_id"`
	Description string    `json:"description,omitempty"`
	Color       string    `gorm:"size:32" json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Notification is one entry in the append-only change log. The
// auto-increment ID doubles as the pagination cursor for polling
// consumers; rows are never updated, only appended and pruned.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventType string    `gorm:"size:64;index:idx_notifications_type_entity,priority:1" json:"event_type"`
	EntityID  string    `gorm:"size:64;index:idx_notifications_type_entity,priority:2" json:"entity_id"`
	Payload   []byte    `json:"event_data"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Well-known notification event types. Callers may also supply custom types.
const (
	EventTypeCreate       = "create"
	EventTypeUpdate       = "update"
	EventTypeDelete       = "delete"
	EventTypeNotification = "notification"
	EventTypeUserActivity = "user_activity"
)

// SetupModels runs the schema migrations for all persisted relations
func SetupModels(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Event{}, &Notification{})
}
