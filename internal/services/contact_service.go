package services

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"contactbook/internal/models"
	"contactbook/internal/repositories"
)

// EventPublisher receives contact events after a mutation is committed.
type EventPublisher interface {
	PublishContactEvent(event models.ContactEvent) error
}

// RefreshFunc is called with the freshly listed contacts after every refresh.
type RefreshFunc func(contacts []models.Contact)

// ContactService is the contact directory. It validates input, is the only
// writer of the contact store and rebuilds the displayed list from storage
// after every mutation.
//
// Operations are serialized: each runs to completion before the next starts.
type ContactService struct {
	repo         repositories.ContactRepository
	validator    *ContactValidator
	publisher    EventPublisher // optional
	searchFields []string

	mu         sync.Mutex
	searchTerm string
	displayed  []models.Contact
	listeners  []RefreshFunc
	dialog     DeleteDialog
}

// NewContactService creates a new ContactService. publisher may be nil.
// searchFields selects the columns a search term is matched against and defaults to name.
func NewContactService(repo repositories.ContactRepository, publisher EventPublisher, searchFields []string) *ContactService {
	return &ContactService{
		repo:         repo,
		validator:    NewContactValidator(),
		publisher:    publisher,
		searchFields: searchFields,
	}
}

// OnRefresh registers fn to be called after every refresh.
// Listeners run with the directory locked and must not call back into it.
func (s *ContactService) OnRefresh(fn RefreshFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// List returns the contacts matching searchTerm, or all contacts when it is empty,
// ordered by ID. The term becomes the active search term for later refreshes.
func (s *ContactService) List(searchTerm string) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchTerm = strings.TrimSpace(searchTerm)
	if err := s.refreshLocked(); err != nil {
		return nil, err
	}
	return s.displayedLocked(), nil
}

// Refresh re-lists the directory using the active search term.
// Add, Update and Delete clear the term and re-list everything.
func (s *ContactService) Refresh() ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return nil, err
	}
	return s.displayedLocked(), nil
}

// Displayed returns the contacts produced by the last refresh.
func (s *ContactService) Displayed() []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayedLocked()
}

// SearchTerm returns the active search term.
func (s *ContactService) SearchTerm() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchTerm
}

// Get returns a single contact.
func (s *ContactService) Get(id uint) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, err := s.repo.GetByID(id)
	if err != nil {
		return nil, s.classify("get", id, models.ContactInput{}, err)
	}
	return contact, nil
}

// Add validates and stores a new contact, then refreshes the directory.
func (s *ContactService) Add(name, phone, email string) (*models.Contact, error) {
	input := models.ContactInput{Name: name, Phone: phone, Email: email}
	contact, err := s.validator.Validate(input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Insert(&contact); err != nil {
		return nil, &StorageError{Op: "add", Input: input, Err: err}
	}

	created := contact
	s.publish(models.ContactCreated, created.ID, &created)
	s.refreshAfterMutation()
	return &contact, nil
}

// Update validates the input and replaces all three fields of contact id.
func (s *ContactService) Update(id uint, name, phone, email string) error {
	input := models.ContactInput{Name: name, Phone: phone, Email: email}
	contact, err := s.validator.Validate(input)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Update(id, contact.Name, contact.Phone, contact.Email); err != nil {
		return s.classify("update", id, input, err)
	}

	contact.ID = id
	s.publish(models.ContactUpdated, id, &contact)
	s.refreshAfterMutation()
	return nil
}

// Delete removes contact id immediately. Interactive callers go through
// RequestDelete and ConfirmDelete instead.
func (s *ContactService) Delete(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

// RequestDelete opens the delete confirmation for id and returns its token.
func (s *ContactService) RequestDelete(id uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dialog.State() == DialogConfirmPending {
		return "", ErrDialogBusy
	}
	if _, err := s.repo.GetByID(id); err != nil {
		return "", s.classify("delete", id, models.ContactInput{}, err)
	}
	return s.dialog.Request(id)
}

// CancelDelete abandons a pending confirmation without touching storage.
// It reports whether a confirmation was pending.
func (s *ContactService) CancelDelete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialog.Cancel()
}

// ConfirmDelete commits the pending delete if token matches. It reports
// false, with no error, when there was nothing to confirm. After a storage
// fault the confirmation stays pending under the same token.
func (s *ContactService) ConfirmDelete(token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.dialog.Accept(token)
	if !ok {
		return false, nil
	}
	if err := s.deleteLocked(id); err != nil {
		if IsStorageError(err) {
			// Keep the confirmation open so the same token can be retried.
			s.dialog.restore(id, token)
		}
		return false, err
	}
	return true, nil
}

// PendingDelete returns the dialog state and the contact awaiting confirmation.
func (s *ContactService) PendingDelete() (DialogState, uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _, _ := s.dialog.Pending()
	return s.dialog.State(), id
}

func (s *ContactService) deleteLocked(id uint) error {
	if err := s.repo.Delete(id); err != nil {
		return s.classify("delete", id, models.ContactInput{}, err)
	}
	s.publish(models.ContactDeleted, id, nil)
	s.refreshAfterMutation()
	return nil
}

func (s *ContactService) refreshLocked() error {
	contacts, err := s.repo.Query(repositories.ContactFilter{
		Term:   s.searchTerm,
		Fields: s.searchFields,
	})
	if err != nil {
		return &StorageError{Op: "list", Err: err}
	}
	s.displayed = contacts
	for _, fn := range s.listeners {
		fn(s.displayedLocked())
	}
	return nil
}

// refreshAfterMutation drops the active search term and re-lists every contact.
// The committed mutation stays successful even if the re-list fails; the stale
// projection stays until the next refresh.
func (s *ContactService) refreshAfterMutation() {
	s.searchTerm = ""
	if err := s.refreshLocked(); err != nil {
		log.Printf("Warning: failed to refresh contacts after mutation: %v", err)
	}
}

func (s *ContactService) displayedLocked() []models.Contact {
	out := make([]models.Contact, len(s.displayed))
	copy(out, s.displayed)
	return out
}

func (s *ContactService) classify(op string, id uint, input models.ContactInput, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	return &StorageError{Op: op, Input: input, Err: err}
}

func (s *ContactService) publish(eventType string, id uint, contact *models.Contact) {
	if s.publisher == nil {
		return
	}
	event := models.ContactEvent{
		Type:       eventType,
		ContactID:  id,
		Contact:    contact,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.PublishContactEvent(event); err != nil {
		log.Printf("Warning: Failed to publish %s event for contact %d: %v", eventType, id, err)
	}
}
