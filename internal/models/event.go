package models

import "time"

// Contact event types published after a committed mutation.
const (
	ContactCreated = "contact.created"
	ContactUpdated = "contact.updated"
	ContactDeleted = "contact.deleted"
)

// ContactEvent describes a change to the contact table.
type ContactEvent struct {
	Type       string    `json:"type"`
	ContactID  uint      `json:"contact_id"`
	Contact    *Contact  `json:"contact,omitempty"` // nil for deletions
	OccurredAt time.Time `json:"occurred_at"`
}
