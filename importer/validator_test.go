package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/scheduler/models"
)

// Mock user directory for testing
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindIDByName(ctx context.Context, name string) (uint, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(uint), args.Error(1)
}

// Mock conflict finder for testing
type MockConflictFinder struct {
	mock.Mock
}

func (m *MockConflictFinder) FindOverlapping(ctx context.Context, userID uint, start, end time.Time) ([]models.Event, error) {
	args := m.Called(ctx, userID, start, end)
	return args.Get(0).([]models.Event), args.Error(1)
}

// newTestValidator pins "now" so the future-only rule is deterministic
func newTestValidator(users UserDirectory, events ConflictFinder) *Validator {
	v := NewValidator(users, events)
	v.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	}
	return v
}

func TestValidateAndProcessHappyPath(t *testing.T) {
	users := new(MockUserDirectory)
	events := new(MockConflictFinder)
	users.On("FindIDByName", mock.Anything, "Alice").Return(uint(7), nil)
	events.On("FindOverlapping", mock.Anything, uint(7), mock.Anything, mock.Anything).Return([]models.Event{}, nil)

	v := newTestValidator(users, events)
	event, err := v.ValidateAndProcess(context.Background(), RawRecord{
		"title":     "Practice",
		"start":     "2999-01-01 10:00:00",
		"end":       "2999-01-01 11:00:00",
		"user_name": "Alice",
	}, map[string]uint{})

	require.NoError(t, err)
	require.Equal(t, "Practice", event.Title)
	require.Equal(t, uint(7), event.UserID)
	require.Equal(t, "2999-01-01 10:00:00", event.StartTime.Format(models.TimeFormat))
	require.Equal(t, "2999-01-01 11:00:00", event.EndTime.Format(models.TimeFormat))
}

func TestValidateAndProcessRequiredFields(t *testing.T) {
	v := newTestValidator(new(MockUserDirectory), new(MockConflictFinder))

	var validationErr *ValidationError

	_, err := v.ValidateAndProcess(context.Background(), RawRecord{"start": "2999-01-01 10:00:00"}, nil)
	require.ErrorAs(t, err, &validationErr)

	_, err = v.ValidateAndProcess(context.Background(), RawRecord{"title": "No Start"}, nil)
	require.ErrorAs(t, err, &validationErr)
}

func TestValidateAndProcessInvalidDate(t *testing.T) {
	v := newTestValidator(new(MockUserDirectory), new(MockConflictFinder))

	_, err := v.ValidateAndProcess(context.Background(), RawRecord{
		"title": "Bad Date",
		"start": "sometime next week",
	}, nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "invalid date/time format", validationErr.Reason)
}

func TestValidateAndProcessFutureOnly(t *testing.T) {
	v := newTestValidator(new(MockUserDirectory), new(MockConflictFinder))

	_, err := v.ValidateAndProcess(context.Background(), RawRecord{
		"title": "Last Year",
		"start": "2024-01-01 10:00:00",
	}, nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "only future events can be imported", validationErr.Reason)
}

func TestValidateAndProcessEndBeforeStart(t *testing.T) {
	v := newTestValidator(new(MockUserDirectory), new(MockConflictFinder))

	_, err := v.ValidateAndProcess(context.Background(), RawRecord{
		"title": "Backwards",
		"start": "2999-01-02 10:00:00",
		"end":   "2999-01-01 10:00:00",
	}, nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestValidateAndProcessDefaultsEndToStart(t *testing.T) {
	users := new(MockUserDirectory)
	events := new(MockConflictFinder)
	users.On("FindIDByName", mock.Anything, "Alice").Return(uint(7), nil)
	events.On("FindOverlapping", mock.Anything, uint(7), mock.Anything, mock.Anything).Return([]models.Event{}, nil)

	v := newTestValidator(users, events)
	event, err := v.ValidateAndProcess(context.Background(), RawRecord{
		"title":     "Point In Time",
		"start":     "2999-01-01 10:00:00",
		"user_name": "Alice",
	}, nil)

	require.NoError(t, err)
	require.Equal(t, event.StartTime, event.EndTime)
}

func TestValidateAndProcessUnknownUser(t *testing.T) {
	users := new(MockUserDirectory)
	users.On("FindIDByName", mock.Anything, "Nobody").Return(uint(0), ErrUserNotFound)

	v := newTestValidator(users, new(MockConflictFinder))
	_, err := v.ValidateAndProcess(context.Background(), RawRecord{
		"title":     "Orphan",
		"start":     "2999-01-01 10:00:00",
		"user_name": "Nobody",
	}, map[string]uint{})

	var resolutionErr *ResolutionError
	require.ErrorAs(t, err, &resolutionErr)
	require.Equal(t, "Nobody", resolutionErr.Name)
}

func TestValidateAndProcessMemoizesUserLookups(t *testing.T) {
	users := new(MockUserDirectory)
	events := new(MockConflictFinder)
	// The directory must be consulted exactly once for the whole batch
	users.On("FindIDByName", mock.Anything, "Alice").Return(uint(7), nil).Once()
	events.On("FindOverlapping", mock.Anything, uint(7), mock.Anything, mock.Anything).Return([]models.Event{}, nil)

	v := newTestValidator(users, events)
	userCache := map[string]uint{}

	for _, start := range []string{"2999-01-01 10:00:00", "2999-02-01 10:00:00"} {
		_, err := v.ValidateAndProcess(context.Background(), RawRecord{
			"title":     "Repeat",
			"start":     start,
			"user_name": "Alice",
		}, userCache)
		require.NoError(t, err)
	}

	users.AssertExpectations(t)
	require.Equal(t, uint(7), userCache["Alice"])
}

func TestValidateAndProcessConflict(t *testing.T) {
	users := new(MockUserDirectory)
	events := new(MockConflictFinder)
	existing := models.Event{
		ID:        42,
		Title:     "Existing Booking",
		StartTime: mustParse(t, "2999-01-01 09:00:00"),
		EndTime:   mustParse(t, "2999-01-01 11:00:00"),
		UserID:    7,
	}
	users.On("FindIDByName", mock.Anything, "Alice").Return(uint(7), nil)
	events.On("FindOverlapping", mock.Anything, uint(7), mock.Anything, mock.Anything).Return([]models.Event{existing}, nil)

	v := newTestValidator(users, events)
	_, err := v.ValidateAndProcess(context.Background(), RawRecord{
		"title":     "Clash",
		"start":     "2999-01-01 10:00:00",
		"end":       "2999-01-01 12:00:00",
		"user_name": "Alice",
	}, nil)

	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, "Existing Booking", conflictErr.Existing.Title)
	require.Contains(t, conflictErr.Error(), "Existing Booking")
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, value := range []string{
		"2999-01-01 10:00:00",
		"2999-01-01T10:00:00",
		"2999-01-01",
		"01/02/2999 10:00",
		"29990101100000",
	} {
		_, err := ParseTimestamp(value)
		require.NoError(t, err, value)
	}

	_, err := ParseTimestamp("next tuesday")
	require.Error(t, err)
}

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := ParseTimestamp(value)
	require.NoError(t, err)
	return parsed
}
