package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/scheduler/repositories"
)

const (
	// rateWindow is the sampling window for the insert-rate signal
	rateWindow = 5 * time.Minute
	// duplicateWindow is the lookback for the duplicate-pattern signal
	duplicateWindow = 10 * time.Minute
	// duplicateThreshold flags (type, entity) pairs above this count
	duplicateThreshold = 10
)

// Retention prunes the change log by age and by count. It runs inline
// after every enqueue with loose thresholds and on a schedule with tight
// ones; both conditions apply independently.
type Retention struct {
	store Store
	now   func() time.Time
}

// NewRetention creates a new retention policy
func NewRetention(store Store) *Retention {
	return &Retention{
		store: store,
		now:   time.Now,
	}
}

// Cleanup deletes entries older than maxAgeHours and, separately, all
// but the most recent maxRecords entries by id. Returns the total
// number deleted across both rules.
func (r *Retention) Cleanup(ctx context.Context, maxAgeHours, maxRecords int) (int64, error) {
	cutoff := r.now().Add(-time.Duration(maxAgeHours) * time.Hour)

	byAge, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return byAge, err
	}

	byCount, err := r.store.DeleteAllButMostRecent(ctx, maxRecords)
	if err != nil {
		return byAge + byCount, err
	}

	total := byAge + byCount
	if total > 0 {
		log.Info().
			Int64("by_age", byAge).
			Int64("by_count", byCount).
			Int("max_age_hours", maxAgeHours).
			Int("max_records", maxRecords).
			Msg("Notification cleanup removed entries")
	}
	return total, nil
}

// SimpleCleanup is the age-only variant used by lightweight scheduled
// maintenance
func (r *Retention) SimpleCleanup(ctx context.Context, maxAgeHours int) (int64, error) {
	cutoff := r.now().Add(-time.Duration(maxAgeHours) * time.Hour)
	return r.store.DeleteOlderThan(ctx, cutoff)
}

// KeepMostRecent is the count-only variant used by the maintenance CLI
func (r *Retention) KeepMostRecent(ctx context.Context, keep int) (int64, error) {
	return r.store.DeleteAllButMostRecent(ctx, keep)
}

// PurgeAll truncates the change log unconditionally. Emergency use only.
func (r *Retention) PurgeAll(ctx context.Context) (int64, error) {
	deleted, err := r.store.DeleteAll(ctx)
	if err != nil {
		return deleted, err
	}
	log.Warn().Int64("deleted", deleted).Msg("Notification log purged")
	return deleted, nil
}

// RateSignal returns how many entries were created within the last five
// minutes. Alerting only; mutates nothing.
func (r *Retention) RateSignal(ctx context.Context) (int64, error) {
	return r.store.CountSince(ctx, r.now().Add(-rateWindow))
}

// DuplicateSignal returns (event_type, entity_id) pairs seen more than
// ten times within the last ten minutes. Alerting only; mutates nothing.
func (r *Retention) DuplicateSignal(ctx context.Context) ([]repositories.DuplicatePattern, error) {
	return r.store.FindDuplicatePatterns(ctx, r.now().Add(-duplicateWindow), duplicateThreshold)
}
