package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/scheduler/models"
)

// UserRepository provides access to user data
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByName gets a user by display name. Returns gorm.ErrRecordNotFound
// (wrapped) when the user does not exist; the import pipeline never
// auto-creates users.
func (r *UserRepository) FindByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to get user by name")
	}
	return &user, nil
}

// GetByID gets a user by id
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by id")
	}
	return &user, nil
}
