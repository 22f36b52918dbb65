package importer

import (
	"fmt"

	"github.com/pkg/errors"

	"example.com/backstage/services/scheduler/models"
)

// ErrUserNotFound is returned by a UserDirectory when a display name does
// not resolve to any known user. The pipeline never creates users.
var ErrUserNotFound = errors.New("user not found")

// FormatError means the file content doesn't match any supported format,
// or matches one but contains zero usable records. User-facing.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid file format: %s", e.Reason)
}

// LimitError means the batch exceeds the import cap. The batch is
// rejected wholesale before any record is validated.
type LimitError struct {
	Count int
	Max   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("too many events: %d exceeds the maximum of %d per import", e.Count, e.Max)
}

// ValidationError means a single record failed a field-level or
// date-logic rule. Recorded per record, never aborts a batch.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ConflictError means a record's interval overlaps an existing booking
// for the same owner. Recorded per record like ValidationError.
type ConflictError struct {
	Existing models.Event
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time conflict with existing event %q (%s - %s)",
		e.Existing.Title,
		e.Existing.StartTime.Format(models.TimeFormat),
		e.Existing.EndTime.Format(models.TimeFormat))
}

// ResolutionError means the referenced user cannot be found
type ResolutionError struct {
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("user %q not found", e.Name)
}

// PersistenceError means the atomic commit step itself failed. It aborts
// the whole batch; nothing is partially imported.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("import failed during persistence: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
