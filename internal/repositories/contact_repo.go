package repositories

import (
	"strings"

	"contactbook/internal/models"
)

// SearchableFields lists the contact columns a search term may be matched against.
var SearchableFields = map[string]bool{
	"name":  true,
	"phone": true,
	"email": true,
}

// ContactFilter narrows a contact query. An empty Term matches every contact.
type ContactFilter struct {
	Term   string
	Fields []string // defaults to name
}

// term returns the normalized search term.
func (f ContactFilter) term() string {
	return strings.TrimSpace(f.Term)
}

// searchFields returns the known fields to match against, in a stable order.
func (f ContactFilter) searchFields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, field := range f.Fields {
		field = strings.ToLower(strings.TrimSpace(field))
		if !SearchableFields[field] || seen[field] {
			continue
		}
		seen[field] = true
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return []string{"name"}
	}
	return fields
}

// ContactRepository defines the interface for contact data access.
type ContactRepository interface {
	Insert(contact *models.Contact) error
	Update(id uint, name, phone, email string) error
	Delete(id uint) error
	Query(filter ContactFilter) ([]models.Contact, error)
	GetByID(id uint) (*models.Contact, error)
}
