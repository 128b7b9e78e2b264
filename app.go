package main

import (
	"fmt"
	"log"
	"time"

	"contactbook/internal/config"
	"contactbook/internal/database"
	"contactbook/internal/handlers"
	"contactbook/internal/middleware"
	"contactbook/internal/models"
	"contactbook/internal/repositories"
	"contactbook/internal/services"
	"contactbook/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// App bundles the HTTP server with the services it exposes.
type App struct {
	Fiber    *fiber.App
	Contacts *services.ContactService
	Auth     *services.AuthService

	db          *gorm.DB
	contactRepo repositories.ContactRepository
	mqClient    *rabbitmq.Client
}

// NewApp wires storage, services and routes from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	a := &App{db: db}

	// Event publishing is optional; the directory works without a broker.
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Printf("Warning: RabbitMQ unavailable, contact events disabled: %v", err)
		} else {
			a.mqClient = mqClient
			publisher = mqClient
		}
	}

	// The memory driver keeps contacts in process; users stay in the in-memory sqlite database.
	if cfg.DBDriver == config.DriverMemory {
		a.contactRepo = repositories.NewMockContactRepository()
	} else {
		a.contactRepo = repositories.NewGORMContactRepository(db)
	}
	userRepo := repositories.NewGORMUserRepository(db)

	a.Contacts = services.NewContactService(a.contactRepo, publisher, cfg.SearchFields)
	a.Auth = services.NewAuthService(userRepo, cfg.JWTSecret)

	if cfg.SeedOwner() {
		if err := a.Auth.EnsureOwner(cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to seed owner account: %w", err)
		}
	}

	// Build the initial projection so the displayed list is ready before the first request.
	if _, err := a.Contacts.List(""); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	a.Fiber = fiber.New()
	a.Fiber.Use(recover.New())
	a.Fiber.Use(logger.New())

	apiV1 := a.Fiber.Group("/api/v1")
	handlers.NewAuthHandler(a.Auth).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(a.Auth))
	handlers.NewContactHandler(a.Contacts).RegisterRoutes(protected, middleware.RoleRequired(models.RoleOwner))

	a.Fiber.Get("/health", a.handleHealth)

	return a, nil
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	resp := fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"database": "connected",
		"rabbitMQ": "disabled",
	}
	if a.mqClient != nil {
		resp["rabbitMQ"] = "connected"
	}

	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		status = fiber.StatusServiceUnavailable
		resp["status"] = "unhealthy"
		resp["database"] = err.Error()
	}
	return c.Status(status).JSON(resp)
}

// Close releases the broker and database connections.
func (a *App) Close() error {
	var errs []error
	if a.mqClient != nil {
		if err := a.mqClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors occurred during shutdown: %v", errs)
	}
	return nil
}
