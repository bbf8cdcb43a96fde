package repositories

import "herbstore/internal/models"

// UserRepository stores accounts. Emails are compared case-insensitively.
type UserRepository interface {
	Insert(user *models.User) error
	FindByEmail(email string) (*models.User, error)
	FindByID(id string) (*models.User, error)
}
