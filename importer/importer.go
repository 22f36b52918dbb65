package importer

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/scheduler/models"
)

// DefaultMaxEvents is the hard cap on records per import batch
const DefaultMaxEvents = 20

// EventStore persists validated events. CreateBatch must be atomic:
// either every event in the slice is inserted or none is.
type EventStore interface {
	CreateBatch(ctx context.Context, events []*models.Event) error
}

// Broadcaster enqueues change notifications. Returns false when the
// entry was suppressed as a duplicate or could not be appended; either
// way the mutation itself already succeeded.
type Broadcaster interface {
	Enqueue(ctx context.Context, eventType, entityID string, payload interface{}) bool
}

// Indexer pushes imported events into the search index, best effort
type Indexer interface {
	IndexEvent(ctx context.Context, event *models.Event) error
}

// RecordError is one failed record with enough context to fix and
// re-upload: the original index, the failure, and the raw data.
type RecordError struct {
	Index   int       `json:"index"`
	Error   string    `json:"error"`
	RawData RawRecord `json:"raw_data"`
}

// Result is the per-batch aggregate. ImportedCount + ErrorCount always
// equals TotalEvents.
type Result struct {
	BatchID        string          `json:"batch_id,omitempty"`
	TotalEvents    int             `json:"total_events"`
	ImportedCount  int             `json:"imported_count"`
	ErrorCount     int             `json:"error_count"`
	ImportedEvents []*models.Event `json:"imported_events"`
	Errors         []RecordError   `json:"errors"`
}

// Importer coordinates one import batch: independent per-record
// validation, one atomic persistence step, then post-commit
// notification fan-in through the duplicate suppressor.
type Importer struct {
	validator *Validator
	store     EventStore
	queue     Broadcaster
	search    Indexer
	maxEvents int
}

// NewImporter creates a new import coordinator. search may be nil.
func NewImporter(validator *Validator, store EventStore, queue Broadcaster, search Indexer, maxEvents int) *Importer {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Importer{
		validator: validator,
		store:     store,
		queue:     queue,
		search:    search,
		maxEvents: maxEvents,
	}
}

// MaxEvents returns the batch cap
func (i *Importer) MaxEvents() int {
	return i.maxEvents
}

// Import runs the batch through validation and persistence.
//
// A validation failure is recorded per record and never blocks the
// others. Persistence is the one all-or-nothing step: if the commit
// fails, a PersistenceError is returned and nothing is imported. A
// batch over the cap is rejected wholesale before any validation runs.
func (i *Importer) Import(ctx context.Context, records []RawRecord, actingUserID uint) (*Result, error) {
	if len(records) > i.maxEvents {
		return nil, &LimitError{Count: len(records), Max: i.maxEvents}
	}

	batchID := uuid.New().String()
	result := &Result{
		BatchID:        batchID,
		TotalEvents:    len(records),
		ImportedEvents: []*models.Event{},
		Errors:         []RecordError{},
	}

	userCache := make(map[string]uint)
	accepted := make([]*models.Event, 0, len(records))

	for idx, record := range records {
		event, err := i.validator.ValidateAndProcess(ctx, record, userCache)
		if err != nil {
			result.Errors = append(result.Errors, RecordError{
				Index:   idx,
				Error:   err.Error(),
				RawData: record,
			})
			continue
		}
		accepted = append(accepted, event)
	}

	if err := i.store.CreateBatch(ctx, accepted); err != nil {
		log.Error().Err(err).
			Str("batch_id", batchID).
			Int("batch_size", len(accepted)).
			Uint("acting_user_id", actingUserID).
			Msg("Import batch commit failed, rolled back")
		return nil, &PersistenceError{Err: err}
	}

	result.ImportedEvents = accepted
	result.ImportedCount = len(accepted)
	result.ErrorCount = len(result.Errors)

	// Commit done; notification and indexing are fire-and-forget from
	// here. A crash between commit and enqueue loses only the live
	// update signal, never the data.
	for _, event := range accepted {
		i.queue.Enqueue(ctx, models.EventTypeCreate, strconv.FormatUint(uint64(event.ID), 10), event)

		if i.search != nil {
			if err := i.search.IndexEvent(ctx, event); err != nil {
				log.Warn().Err(err).Uint("event_id", event.ID).Msg("Failed to index imported event")
			}
		}
	}

	log.Info().
		Str("batch_id", batchID).
		Int("total", result.TotalEvents).
		Int("imported", result.ImportedCount).
		Int("errors", result.ErrorCount).
		Uint("acting_user_id", actingUserID).
		Msg("Import batch completed")

	return result, nil
}

// Check dry-runs validation over the batch without persisting anything.
// Used by the validate and preview actions.
func (i *Importer) Check(ctx context.Context, records []RawRecord) *Result {
	result := &Result{
		TotalEvents:    len(records),
		ImportedEvents: []*models.Event{},
		Errors:         []RecordError{},
	}

	userCache := make(map[string]uint)
	for idx, record := range records {
		event, err := i.validator.ValidateAndProcess(ctx, record, userCache)
		if err != nil {
			result.Errors = append(result.Errors, RecordError{
				Index:   idx,
				Error:   err.Error(),
				RawData: record,
			})
			continue
		}
		result.ImportedEvents = append(result.ImportedEvents, event)
	}

	result.ImportedCount = len(result.ImportedEvents)
	result.ErrorCount = len(result.Errors)
	return result
}
