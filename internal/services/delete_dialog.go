package services

import "github.com/google/uuid"

// DialogState is the state of the delete confirmation flow.
type DialogState int

const (
	DialogIdle DialogState = iota
	DialogConfirmPending
)

func (s DialogState) String() string {
	switch s {
	case DialogIdle:
		return "idle"
	case DialogConfirmPending:
		return "confirm_pending"
	default:
		return "unknown"
	}
}

// DeleteDialog tracks a single two-step delete:
// Idle -> ConfirmPending on request, back to Idle on cancel or confirm.
// It is not safe for concurrent use; ContactService guards it.
type DeleteDialog struct {
	state     DialogState
	contactID uint
	token     string
}

// Request opens the confirmation for id and returns the token that must accompany the confirm.
func (d *DeleteDialog) Request(id uint) (string, error) {
	if d.state == DialogConfirmPending {
		return "", ErrDialogBusy
	}
	d.state = DialogConfirmPending
	d.contactID = id
	d.token = uuid.New().String()
	return d.token, nil
}

// Cancel closes a pending confirmation. It reports false if nothing was pending.
func (d *DeleteDialog) Cancel() bool {
	if d.state != DialogConfirmPending {
		return false
	}
	d.reset()
	return true
}

// Accept closes a pending confirmation whose token matches and returns the contact to delete.
// Any other call is a no-op.
func (d *DeleteDialog) Accept(token string) (uint, bool) {
	if d.state != DialogConfirmPending || token != d.token {
		return 0, false
	}
	id := d.contactID
	d.reset()
	return id, true
}

// State returns the current dialog state.
func (d *DeleteDialog) State() DialogState {
	return d.state
}

// Pending returns the contact and token awaiting confirmation, if any.
func (d *DeleteDialog) Pending() (uint, string, bool) {
	if d.state != DialogConfirmPending {
		return 0, "", false
	}
	return d.contactID, d.token, true
}

// restore reopens the confirmation for id under an already issued token.
func (d *DeleteDialog) restore(id uint, token string) {
	d.state = DialogConfirmPending
	d.contactID = id
	d.token = token
}

func (d *DeleteDialog) reset() {
	d.state = DialogIdle
	d.contactID = 0
	d.token = ""
}
