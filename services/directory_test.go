package services

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"example.com/backstage/services/scheduler/importer"
	"example.com/backstage/services/scheduler/models"
)

type mockUserFinder struct {
	mock.Mock
}

func (m *mockUserFinder) FindByName(ctx context.Context, name string) (*models.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestFindIDByNameResolves(t *testing.T) {
	users := new(mockUserFinder)
	users.On("FindByName", mock.Anything, "Alice").Return(&models.User{ID: 7, Name: "Alice"}, nil)

	dir := NewCachedUserDirectory(users, nil)
	id, err := dir.FindIDByName(context.Background(), "Alice")

	require.NoError(t, err)
	require.Equal(t, uint(7), id)
}

func TestFindIDByNameUnknownUser(t *testing.T) {
	users := new(mockUserFinder)
	users.On("FindByName", mock.Anything, "Nobody").Return(nil, gorm.ErrRecordNotFound)

	dir := NewCachedUserDirectory(users, nil)
	_, err := dir.FindIDByName(context.Background(), "Nobody")

	// The import pipeline matches on this sentinel to classify the
	// failure as a resolution error rather than an infrastructure one
	require.ErrorIs(t, err, importer.ErrUserNotFound)
}

func TestFindIDByNameStoreFailure(t *testing.T) {
	users := new(mockUserFinder)
	users.On("FindByName", mock.Anything, "Alice").Return(nil, errors.New("connection refused"))

	dir := NewCachedUserDirectory(users, nil)
	_, err := dir.FindIDByName(context.Background(), "Alice")

	require.Error(t, err)
	require.NotErrorIs(t, err, importer.ErrUserNotFound)
}
