package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"contactbook/internal/models"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GORMContactRepository is a GORM implementation of ContactRepository.
type GORMContactRepository struct {
	db *gorm.DB
}

// NewGORMContactRepository creates a new instance of GORMContactRepository.
func NewGORMContactRepository(db *gorm.DB) *GORMContactRepository {
	return &GORMContactRepository{
		db: db,
	}
}

// Insert creates a new contact row. The assigned ID is written back to contact.
func (r *GORMContactRepository) Insert(contact *models.Contact) error {
	contact.ID = 0
	if err := r.db.Create(contact).Error; err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

// Update replaces name, phone and email of the contact in a single statement.
func (r *GORMContactRepository) Update(id uint, name, phone, email string) error {
	res := r.db.Model(&models.Contact{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":       name,
		"phone":      phone,
		"email":      email,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update contact %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("contact with ID %d not found for update: %w", id, ErrNotFound)
	}
	return nil
}

// Delete permanently removes a contact by its ID.
func (r *GORMContactRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Contact{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete contact %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("contact with ID %d not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// Query returns the contacts matching filter ordered by ID.
func (r *GORMContactRepository) Query(filter ContactFilter) ([]models.Contact, error) {
	tx := r.db.Model(&models.Contact{})
	if term := filter.term(); term != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		fields := filter.searchFields()
		conds := make([]string, 0, len(fields))
		args := make([]interface{}, 0, len(fields))
		for _, field := range fields {
			conds = append(conds, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, field))
			args = append(args, pattern)
		}
		tx = tx.Where(strings.Join(conds, " OR "), args...)
	}

	contacts := make([]models.Contact, 0)
	if err := tx.Order("id ASC").Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	return contacts, nil
}

// GetByID retrieves a single contact by its ID.
func (r *GORMContactRepository) GetByID(id uint) (*models.Contact, error) {
	var contact models.Contact
	if err := r.db.First(&contact, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("contact with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contact by ID %d: %w", id, err)
	}
	return &contact, nil
}
