package repositories

import (
	"errors"
	"fmt"
	"strings"

	"herbstore/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository keeps accounts in the users table.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{db: db}
}

// Insert stores a new account under its lower-cased email.
func (r *GORMUserRepository) Insert(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := r.db.Create(user).Error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", user.Email, ErrDuplicateEmail)
	case err != nil:
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *GORMUserRepository) FindByEmail(email string) (*models.User, error) {
	return r.findOne("email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *GORMUserRepository) FindByID(id string) (*models.User, error) {
	return r.findOne("id = ?", id)
}

func (r *GORMUserRepository) findOne(cond string, arg string) (*models.User, error) {
	var user models.User
	err := r.db.Where(cond, arg).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("user %s: %w", arg, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("failed to load user %s: %w", arg, err)
	}
	return &user, nil
}
