package repositories

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"contactbook/internal/models"
)

// MockContactRepository is an in-memory implementation of ContactRepository.
type MockContactRepository struct {
	contacts map[uint]models.Contact
	nextID   uint
	mu       sync.RWMutex
}

// NewMockContactRepository creates a new instance of MockContactRepository.
func NewMockContactRepository() *MockContactRepository {
	return &MockContactRepository{
		contacts: make(map[uint]models.Contact),
		nextID:   1,
	}
}

// Insert adds a new contact and assigns it the next sequential ID.
func (r *MockContactRepository) Insert(contact *models.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	contact.ID = r.nextID
	contact.CreatedAt = now
	contact.UpdatedAt = now
	r.nextID++
	r.contacts[contact.ID] = *contact
	return nil
}

// Update replaces the fields of an existing contact.
func (r *MockContactRepository) Update(id uint, name, phone, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contact, ok := r.contacts[id]
	if !ok {
		return fmt.Errorf("contact with ID %d not found for update: %w", id, ErrNotFound)
	}
	contact.Name = name
	contact.Phone = phone
	contact.Email = email
	contact.UpdatedAt = time.Now()
	r.contacts[id] = contact
	return nil
}

// Delete removes a contact by its ID.
func (r *MockContactRepository) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contacts[id]; !ok {
		return fmt.Errorf("contact with ID %d not found for deletion: %w", id, ErrNotFound)
	}
	delete(r.contacts, id)
	return nil
}

// Query returns the contacts matching filter ordered by ID.
func (r *MockContactRepository) Query(filter ContactFilter) ([]models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term := strings.ToLower(filter.term())
	fields := filter.searchFields()

	contactList := make([]models.Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		if term == "" || matchesAny(c, fields, term) {
			contactList = append(contactList, c)
		}
	}
	sort.Slice(contactList, func(i, j int) bool { return contactList[i].ID < contactList[j].ID })
	return contactList, nil
}

// GetByID returns a contact by its ID.
func (r *MockContactRepository) GetByID(id uint) (*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contact, ok := r.contacts[id]
	if !ok {
		return nil, fmt.Errorf("contact with ID %d: %w", id, ErrNotFound)
	}
	return &contact, nil
}

func matchesAny(c models.Contact, fields []string, term string) bool {
	for _, field := range fields {
		var value string
		switch field {
		case "name":
			value = c.Name
		case "phone":
			value = c.Phone
		case "email":
			value = c.Email
		}
		if strings.Contains(strings.ToLower(value), term) {
			return true
		}
	}
	return false
}
