package handlers

import (
	"context"

	"meal-journal/models"
	"meal-journal/services"
	"meal-journal/validation"

	"github.com/gofiber/fiber/v2"
)

type Authenticator interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func summarize(u *models.User) userSummary {
	return userSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

func SetupAuthRoutes(app *fiber.App, auth Authenticator) {
	group := app.Group("/auth")

	group.Post("/register", func(c *fiber.Ctx) error {
		var req services.RegisterInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", err)
		}
		if err := validation.ValidateStruct(req); err != nil {
			return respondError(c, err)
		}
		user, err := auth.Register(c.UserContext(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "User registered successfully",
			"user":    summarize(user),
		})
	})

	group.Post("/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", err)
		}
		if err := validation.ValidateStruct(req); err != nil {
			return respondError(c, err)
		}
		token, user, err := auth.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"token": token,
			"user":  summarize(user),
		})
	})
}
