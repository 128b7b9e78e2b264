package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"contactbook/internal/handlers"
	"contactbook/internal/middleware"
	"contactbook/internal/models"
	"contactbook/internal/repositories"
	"contactbook/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	ownerName     = "owner"
	ownerPassword = "admin123"
)

// failingContactRepository simulates a lost database connection on inserts.
type failingContactRepository struct {
	repositories.ContactRepository
	mock.Mock
}

func (f *failingContactRepository) Insert(contact *models.Contact) error {
	return f.Called(contact).Error(0)
}

// setupApp sets up a Fiber app backed by an in-memory SQLite user table and the given contact repository.
func setupApp(t *testing.T, contactRepo repositories.ContactRepository) (*fiber.App, *services.AuthService) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	authService := services.NewAuthService(repositories.NewGORMUserRepository(db), "test_jwt_secret")
	require.NoError(t, authService.EnsureOwner(ownerName, "owner@example.com", ownerPassword))

	contactService := services.NewContactService(contactRepo, nil, nil)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	protected := apiV1.Group("", middleware.AuthRequired(authService))
	handlers.NewContactHandler(contactService).RegisterRoutes(protected, middleware.RoleRequired(models.RoleOwner))

	return app, authService
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func listContacts(t *testing.T, app *fiber.App, token, query string) []models.Contact {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts"+query, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var contacts []models.Contact
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&contacts))
	return contacts
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app, authService := setupApp(t, repositories.NewMockContactRepository())

	userToRegister := map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
		"role":     "owner",
	}
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "User registered successfully", body["message"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, models.RoleStaff, user["role"], "self-registered users are staff")
	assert.NotContains(t, user, "password")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "errors")

	token := login(t, app, "testuser", "password123")
	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "testuser", claims["username"])
	assert.Equal(t, models.RoleStaff, claims["role"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "testuser",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestContactEndpointsWithoutAuth(t *testing.T) {
	app, _ := setupApp(t, repositories.NewMockContactRepository())

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/contacts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/contacts", "", map[string]string{
		"name": "A", "phone": "555", "email": "a@b.com",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/contacts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestContactAddAndSearch(t *testing.T) {
	app, _ := setupApp(t, repositories.NewMockContactRepository())
	token := login(t, app, ownerName, ownerPassword)

	resp, created := doJSON(t, app, http.MethodPost, "/api/v1/contacts", token, map[string]string{
		"name": "Ada Lovelace", "phone": "5551234", "email": "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotZero(t, created["id"])

	_, _ = doJSON(t, app, http.MethodPost, "/api/v1/contacts", token, map[string]string{
		"name": "Grace Hopper", "phone": "5550000", "email": "grace@example.com",
	})

	// Every invalid field is reported at once and nothing is stored
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/contacts", token, map[string]string{
		"name": "", "phone": "55a5", "email": "not-an-email",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errs := body["errors"].(map[string]interface{})
	assert.Equal(t, "Name cannot be empty.", errs["name"])
	assert.Equal(t, "Phone must contain only digits.", errs["phone"])
	assert.Equal(t, "Invalid email format.", errs["email"])

	all := listContacts(t, app, token, "")
	assert.Len(t, all, 2)
	assert.Less(t, all[0].ID, all[1].ID)

	found := listContacts(t, app, token, "?q=LOVE")
	require.Len(t, found, 1)
	assert.Equal(t, "Ada Lovelace", found[0].Name)

	assert.Empty(t, listContacts(t, app, token, "?q=nobody"))

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/contacts/displayed", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nobody", body["search"])
	assert.Empty(t, body["contacts"])
}

func TestContactUpdate(t *testing.T) {
	app, _ := setupApp(t, repositories.NewMockContactRepository())
	token := login(t, app, ownerName, ownerPassword)

	_, created := doJSON(t, app, http.MethodPost, "/api/v1/contacts", token, map[string]string{
		"name": "A", "phone": "555", "email": "a@b.com",
	})
	path := fmt.Sprintf("/api/v1/contacts/%v", created["id"])

	resp, updated := doJSON(t, app, http.MethodPut, path, token, map[string]string{
		"name": "B", "phone": "666", "email": "b@b.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created["id"], updated["id"])
	assert.Equal(t, "B", updated["name"])

	resp, body := doJSON(t, app, http.MethodPut, path, token, map[string]string{
		"name": "C", "phone": "", "email": "c@c.com",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Phone cannot be empty.", body["errors"].(map[string]interface{})["phone"])

	resp, _ = doJSON(t, app, http.MethodPut, "/api/v1/contacts/999", token, map[string]string{
		"name": "C", "phone": "777", "email": "c@c.com",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/contacts/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	contacts := listContacts(t, app, token, "")
	require.Len(t, contacts, 1)
	assert.Equal(t, "B", contacts[0].Name)
	assert.Equal(t, "666", contacts[0].Phone)
	assert.Equal(t, "b@b.com", contacts[0].Email)
}

func TestContactDeleteFlow(t *testing.T) {
	repo := repositories.NewMockContactRepository()
	app, authService := setupApp(t, repo)
	ownerToken := login(t, app, ownerName, ownerPassword)

	require.NoError(t, authService.RegisterUser(&models.User{
		Username: "clerk", Email: "clerk@example.com", Password: "staff123",
	}))
	staffToken := login(t, app, "clerk", "staff123")

	_, created := doJSON(t, app, http.MethodPost, "/api/v1/contacts", staffToken, map[string]string{
		"name": "A", "phone": "555", "email": "a@b.com",
	})
	deletePath := fmt.Sprintf("/api/v1/contacts/%v/delete", created["id"])

	// Request then cancel keeps the contact
	resp, body := doJSON(t, app, http.MethodPost, deletePath, staffToken, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	_, state := doJSON(t, app, http.MethodGet, "/api/v1/contacts/delete", staffToken, nil)
	assert.Equal(t, "confirm_pending", state["state"])
	assert.Equal(t, created["id"], state["contact_id"])

	resp, _ = doJSON(t, app, http.MethodPost, deletePath, staffToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/contacts/delete/cancel", staffToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["cancelled"])
	assert.Len(t, listContacts(t, app, staffToken, ""), 1)

	// Staff cannot confirm
	_, body = doJSON(t, app, http.MethodPost, deletePath, staffToken, nil)
	confirmToken := body["token"]
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/contacts/delete/confirm", staffToken, map[string]interface{}{"token": confirmToken})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Len(t, listContacts(t, app, ownerToken, ""), 1)

	// Wrong token is a no-op
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/contacts/delete/confirm", ownerToken, map[string]string{"token": "nope"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Len(t, listContacts(t, app, ownerToken, ""), 1)

	// Owner confirms
	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/contacts/delete/confirm", ownerToken, map[string]interface{}{"token": confirmToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["message"], "deleted successfully")
	assert.Empty(t, listContacts(t, app, ownerToken, ""))

	// Confirming again does nothing and the contact is gone
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/contacts/delete/confirm", ownerToken, map[string]interface{}{"token": confirmToken})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, deletePath, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContactAddStorageFailure(t *testing.T) {
	repo := &failingContactRepository{ContactRepository: repositories.NewMockContactRepository()}
	repo.On("Insert", mock.AnythingOfType("*models.Contact")).Return(fmt.Errorf("database is locked"))
	app, _ := setupApp(t, repo)
	token := login(t, app, ownerName, ownerPassword)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/contacts", token, map[string]string{
		"name": "Ada", "phone": "555", "email": "ada@example.com",
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	input := body["input"].(map[string]interface{})
	assert.Equal(t, "Ada", input["name"])
	assert.Equal(t, "555", input["phone"])
	assert.Equal(t, "ada@example.com", input["email"])
	assert.Empty(t, listContacts(t, app, token, ""))
}
