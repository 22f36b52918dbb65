package importer

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"example.com/backstage/services/scheduler/models"
)

// timeLayouts are the textual forms accepted for start/end values, tried
// in order. Everything is normalized to models.TimeFormat before storage.
var timeLayouts = []string{
	models.TimeFormat,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"20060102150405",
	"20060102",
}

// UserDirectory resolves display names to user ids. Implementations must
// return ErrUserNotFound for unknown names and must never create users.
type UserDirectory interface {
	FindIDByName(ctx context.Context, name string) (uint, error)
}

// ConflictFinder returns the owner's events overlapping [start, end)
type ConflictFinder interface {
	FindOverlapping(ctx context.Context, userID uint, start, end time.Time) ([]models.Event, error)
}

// Validator turns raw records into canonical events, enforcing required
// fields, date normalization, the future-only policy, user resolution
// and per-owner conflict detection. First failure wins; a failed record
// leaves no side effects.
type Validator struct {
	users  UserDirectory
	events ConflictFinder
	now    func() time.Time
}

// NewValidator creates a new validator
func NewValidator(users UserDirectory, events ConflictFinder) *Validator {
	return &Validator{
		users:  users,
		events: events,
		now:    time.Now,
	}
}

// ValidateAndProcess validates one raw record and builds the canonical
// event. userCache memoizes name resolution across a batch; it is local
// to one batch and never persisted.
func (v *Validator) ValidateAndProcess(ctx context.Context, record RawRecord, userCache map[string]uint) (*models.Event, error) {
	title := strings.TrimSpace(record["title"])
	if title == "" {
		return nil, &ValidationError{Reason: "title is required"}
	}

	startRaw := strings.TrimSpace(record["start"])
	if startRaw == "" {
		return nil, &ValidationError{Reason: "start time is required"}
	}

	start, err := ParseTimestamp(startRaw)
	if err != nil {
		return nil, &ValidationError{Reason: "invalid date/time format"}
	}

	// Absent end defaults to start (zero-length event)
	end := start
	if endRaw := strings.TrimSpace(record["end"]); endRaw != "" {
		end, err = ParseTimestamp(endRaw)
		if err != nil {
			return nil, &ValidationError{Reason: "invalid date/time format"}
		}
	}

	// This pipeline is import-only; backfilling historical events is
	// intentionally excluded.
	if !start.After(v.now()) {
		return nil, &ValidationError{Reason: "only future events can be imported"}
	}

	if end.Before(start) {
		return nil, &ValidationError{Reason: "end time cannot be before start time"}
	}

	userName := strings.TrimSpace(record["user_name"])
	if userName == "" {
		return nil, &ValidationError{Reason: "user name is required"}
	}

	userID, err := v.resolveUser(ctx, userName, userCache)
	if err != nil {
		return nil, err
	}

	overlapping, err := v.events.FindOverlapping(ctx, userID, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "conflict check failed")
	}
	if len(overlapping) > 0 {
		return nil, &ConflictError{Existing: overlapping[0]}
	}

	return &models.Event{
		Title:       title,
		StartTime:   start,
		EndTime:     end,
		UserID:      userID,
		Description: strings.TrimSpace(record["description"]),
		Color:       strings.TrimSpace(record["color"]),
	}, nil
}

// resolveUser memoizes name lookups in the batch-local cache before
// consulting the directory
func (v *Validator) resolveUser(ctx context.Context, name string, userCache map[string]uint) (uint, error) {
	if userCache != nil {
		if id, ok := userCache[name]; ok {
			return id, nil
		}
	}

	id, err := v.users.FindIDByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, &ResolutionError{Name: name}
		}
		return 0, errors.Wrap(err, "user lookup failed")
	}

	if userCache != nil {
		userCache[name] = id
	}
	return id, nil
}

// ParseTimestamp parses one of the accepted textual timestamp forms into
// a local wall-clock time
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized date/time value %q", value)
}
