package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// localWindow is how long an in-process broadcast suppresses repeats
	localWindow = 5 * time.Second
	// storeWindow is the persisted lookback used for cross-process checks
	storeWindow = 10 * time.Second
)

// lookbackStore is the slice of the change log store the suppressor needs
type lookbackStore interface {
	CountRecentByTypeEntity(ctx context.Context, eventType, entityID string, since time.Time) (int64, error)
}

// broadcast is one recent enqueue decision in the sliding window
type broadcast struct {
	eventType string
	entityID  string
	at        time.Time
}

// Suppressor prevents the same logical event from producing repeated
// notifications within a short interval. It keeps a bounded in-process
// window of recent broadcasts, then falls back to a persisted-store
// lookback for duplicates emitted by other process instances.
//
// The in-process window is owned by this component and constructed once
// per process; it is deliberately not shared across instances.
type Suppressor struct {
	mu     sync.Mutex
	recent []broadcast
	store  lookbackStore
	now    func() time.Time
}

// NewSuppressor creates a new duplicate suppressor
func NewSuppressor(store lookbackStore) *Suppressor {
	return &Suppressor{
		store: store,
		now:   time.Now,
	}
}

// ShouldSuppress reports whether an enqueue for (eventType, entityID)
// should be skipped. When it returns false, the broadcast is recorded in
// the in-process window. A failing store lookback never suppresses:
// broadcasting twice beats silently losing a message.
func (s *Suppressor) ShouldSuppress(ctx context.Context, eventType, entityID string) bool {
	now := s.now()

	s.mu.Lock()
	s.prune(now)
	for _, b := range s.recent {
		if b.eventType == eventType && b.entityID == entityID {
			s.mu.Unlock()
			log.Debug().
				Str("event_type", eventType).
				Str("entity_id", entityID).
				Msg("Duplicate notification suppressed by in-process window")
			return true
		}
	}
	s.mu.Unlock()

	count, err := s.store.CountRecentByTypeEntity(ctx, eventType, entityID, now.Add(-storeWindow))
	if err != nil {
		log.Warn().Err(err).
			Str("event_type", eventType).
			Str("entity_id", entityID).
			Msg("Duplicate lookback failed, broadcasting anyway")
		s.record(eventType, entityID, now)
		return false
	}
	if count > 0 {
		log.Info().
			Str("event_type", eventType).
			Str("entity_id", entityID).
			Int64("recent_count", count).
			Msg("Cross-process duplicate notification suppressed")
		return true
	}

	s.record(eventType, entityID, now)
	return false
}

// record remembers a broadcast in the sliding window
func (s *Suppressor) record(eventType, entityID string, at time.Time) {
	s.mu.Lock()
	s.recent = append(s.recent, broadcast{eventType: eventType, entityID: entityID, at: at})
	s.mu.Unlock()
}

// prune drops window entries older than localWindow. Caller holds the lock.
func (s *Suppressor) prune(now time.Time) {
	cutoff := now.Add(-localWindow)
	kept := s.recent[:0]
	for _, b := range s.recent {
		if b.at.After(cutoff) {
			kept = append(kept, b)
		}
	}
	s.recent = kept
}
