package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a shopper or an administrator.
type User struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name      string         `json:"name" gorm:"type:varchar(100)" validate:"required,notblank,min=2,max=100"`
	Email     string         `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string         `json:"password,omitempty" gorm:"type:varchar(255)" validate:"required,min=6"`
	IsAdmin   bool           `json:"is_admin" gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
