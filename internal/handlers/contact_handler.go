package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"contactbook/internal/models"
	"contactbook/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ContactHandler handles HTTP requests for the contact directory.
type ContactHandler struct {
	service *services.ContactService
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(service *services.ContactService) *ContactHandler {
	return &ContactHandler{
		service: service,
	}
}

// RegisterRoutes registers the contact routes. confirmGuard runs before a delete is committed.
func (h *ContactHandler) RegisterRoutes(router fiber.Router, confirmGuard ...fiber.Handler) {
	contactRoutes := router.Group("/contacts")
	contactRoutes.Get("/", h.HandleListContacts)
	contactRoutes.Get("/displayed", h.HandleDisplayedContacts)
	contactRoutes.Get("/delete", h.HandleGetDeleteState)
	contactRoutes.Post("/delete/confirm", append(confirmGuard, h.HandleConfirmDelete)...)
	contactRoutes.Post("/delete/cancel", h.HandleCancelDelete)
	contactRoutes.Post("/", h.HandleAddContact)
	contactRoutes.Get("/:id", h.HandleGetContact)
	contactRoutes.Put("/:id", h.HandleUpdateContact)
	contactRoutes.Post("/:id/delete", h.HandleRequestDelete)
}

// HandleListContacts lists every contact, or those matching the q query parameter.
func (h *ContactHandler) HandleListContacts(c *fiber.Ctx) error {
	contacts, err := h.service.List(c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(contacts)
}

// HandleDisplayedContacts returns the list produced by the last refresh.
func (h *ContactHandler) HandleDisplayedContacts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"search":   h.service.SearchTerm(),
		"contacts": h.service.Displayed(),
	})
}

// HandleGetContact retrieves a single contact by its ID.
func (h *ContactHandler) HandleGetContact(c *fiber.Ctx) error {
	id, err := contactID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	contact, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(contact)
}

// HandleAddContact creates a new contact.
func (h *ContactHandler) HandleAddContact(c *fiber.Ctx) error {
	var input models.ContactInput
	if err := c.BodyParser(&input); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	contact, err := h.service.Add(input.Name, input.Phone, input.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(contact)
}

// HandleUpdateContact replaces the fields of an existing contact.
func (h *ContactHandler) HandleUpdateContact(c *fiber.Ctx) error {
	id, err := contactID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	var input models.ContactInput
	if err := c.BodyParser(&input); err != nil {
		log.Printf("Error parsing request body for contact %d: %v", id, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.service.Update(id, input.Name, input.Phone, input.Email); err != nil {
		return respondError(c, err)
	}

	contact, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(contact)
}

// HandleRequestDelete opens the delete confirmation for a contact.
func (h *ContactHandler) HandleRequestDelete(c *fiber.Ctx) error {
	id, err := contactID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	token, err := h.service.RequestDelete(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":    "Are you sure you want to delete this contact?",
		"contact_id": id,
		"token":      token,
	})
}

// HandleGetDeleteState reports whether a delete is awaiting confirmation.
func (h *ContactHandler) HandleGetDeleteState(c *fiber.Ctx) error {
	state, id := h.service.PendingDelete()
	resp := fiber.Map{"state": state.String()}
	if state == services.DialogConfirmPending {
		resp["contact_id"] = id
	}
	return c.JSON(resp)
}

// HandleConfirmDelete commits the pending delete.
func (h *ContactHandler) HandleConfirmDelete(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	deleted, err := h.service.ConfirmDelete(req.Token)
	if err != nil {
		return respondError(c, err)
	}
	if !deleted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "No matching delete is awaiting confirmation",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Contact deleted successfully",
	})
}

// HandleCancelDelete abandons the pending delete.
func (h *ContactHandler) HandleCancelDelete(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"cancelled": h.service.CancelDelete(),
	})
}

func contactID(c *fiber.Ctx) (uint, error) {
	raw := c.Params("id")
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid contact ID: %s", raw)
	}
	return uint(id), nil
}

// respondError maps directory errors to HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		storageErr    *services.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErr.Fields,
		})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": notFoundErr.Error(),
		})
	case errors.Is(err, services.ErrDialogBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": err.Error(),
		})
	case errors.As(err, &storageErr):
		log.Printf("Storage error during %s: %v", storageErr.Op, storageErr.Err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Something went wrong, please try again",
			"input":   storageErr.Input,
		})
	default:
		log.Printf("Unexpected error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong, please try again",
			"error":   err.Error(),
		})
	}
}
