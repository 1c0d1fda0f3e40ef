package handlers

import (
	"context"

	"meal-journal/middleware"
	"meal-journal/models"
	"meal-journal/services"
	"meal-journal/utils"
	"meal-journal/validation"

	"github.com/gofiber/fiber/v2"
)

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*services.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in services.ProfileUpdate) (*models.User, error)
}

// profileRequest accepts both JSON and the multipart profile form.
type profileRequest struct {
	FirstName       string `json:"firstName" form:"firstName"`
	LastName        string `json:"lastName" form:"lastName"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	RemovePhoto     bool   `json:"removePhoto" form:"removePhoto"`
}

func SetupUserRoutes(app *fiber.App, auth fiber.Handler, profiles ProfileStore, photos utils.PhotoStore) {
	group := app.Group("/users", auth)

	group.Get("/profile", func(c *fiber.Ctx) error {
		profile, err := profiles.GetProfile(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(profile)
	})

	group.Put("/profile", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var req profileRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", err)
		}
		update := services.ProfileUpdate{
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Email:           req.Email,
			Password:        req.Password,
			CurrentPassword: req.CurrentPassword,
			ClearPhoto:      req.RemovePhoto,
		}
		if err := validation.ValidateStruct(update); err != nil {
			return respondError(c, err)
		}

		if fh, err := c.FormFile("profilePhoto"); err == nil {
			url, err := photos.Save(c.UserContext(), fh, utils.PhotoKey("profiles", userID, fh.Filename))
			if err != nil {
				return respondError(c, err)
			}
			update.ProfilePhotoURL = &url
			update.ClearPhoto = false
		}

		user, err := profiles.UpdateProfile(c.UserContext(), userID, update)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "Profile updated successfully!",
			"user":    user,
		})
	})
}
