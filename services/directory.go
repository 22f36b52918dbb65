package services

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/scheduler/cache"
	"example.com/backstage/services/scheduler/importer"
	"example.com/backstage/services/scheduler/models"
)

// userFinder is the store lookup behind the directory
type userFinder interface {
	FindByName(ctx context.Context, name string) (*models.User, error)
}

// CachedUserDirectory resolves display names to user ids through the
// redis cache, falling back to the user store. It implements
// importer.UserDirectory and never creates users.
type CachedUserDirectory struct {
	users userFinder
	cache *cache.RedisCache
}

// NewCachedUserDirectory creates a new directory. cache may be nil.
func NewCachedUserDirectory(users userFinder, redisCache *cache.RedisCache) *CachedUserDirectory {
	return &CachedUserDirectory{
		users: users,
		cache: redisCache,
	}
}

// FindIDByName resolves a display name to a user id
func (d *CachedUserDirectory) FindIDByName(ctx context.Context, name string) (uint, error) {
	if d.cache != nil {
		if id, ok := d.cache.GetUserID(ctx, name); ok {
			return id, nil
		}
	}

	user, err := d.users.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, importer.ErrUserNotFound
		}
		return 0, err
	}

	if d.cache != nil {
		d.cache.SetUserID(ctx, name, user.ID)
	}
	return user.ID, nil
}
