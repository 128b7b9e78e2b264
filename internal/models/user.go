package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user may hold.
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// User represents an operator of the contact book.
type User struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username  string         `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email     string         `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string         `json:"password,omitempty" gorm:"type:varchar(255)" validate:"required,min=6"` // cleared before responses
	Role      string         `json:"role" gorm:"type:varchar(16)" validate:"omitempty,oneof=owner staff"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
