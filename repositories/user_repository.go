package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"reliefhub-api/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. A taken e-mail address is a conflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return translate(err, "check email")
	}
	if count > 0 {
		return models.NewConflictError("email already registered")
	}
	return translate(r.db.WithContext(ctx).Create(user).Error, "create user")
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err, "get user by email")
	}
	return &user, nil
}

// SetRole changes a user's role.
func (r *UserRepository) SetRole(ctx context.Context, id string, role models.UserRole) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return errors.Wrap(res.Error, "set user role")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(models.ErrNotFound, "set user role")
	}
	return nil
}
