package models

import "time"

// Contact represents a single entry in the contact book.
type Contact struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null" validate:"required" label:"Name"`
	Phone     string    `json:"phone" gorm:"type:varchar(64);not null" validate:"required,digitsonly" label:"Phone"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null" validate:"required,simple_email" label:"Email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactInput holds the raw field values a user submitted for a contact.
// It is handed back on storage failures so the values can be resubmitted.
type ContactInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// ToContact builds a Contact from the input without an ID.
func (in ContactInput) ToContact() Contact {
	return Contact{Name: in.Name, Phone: in.Phone, Email: in.Email}
}
