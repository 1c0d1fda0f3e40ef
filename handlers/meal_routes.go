package handlers

import (
	"context"
	"strconv"
	"strings"

	"meal-journal/middleware"
	"meal-journal/models"
	"meal-journal/services"
	"meal-journal/utils"
	"meal-journal/validation"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

type MealStore interface {
	CreateMeal(ctx context.Context, userID string, in services.MealInput) (*models.Meal, error)
	ListMeals(ctx context.Context, userID string) ([]models.Meal, error)
	GetMeal(ctx context.Context, userID, mealID string) (*models.Meal, error)
	UpdateMeal(ctx context.Context, userID, mealID string, in services.MealInput) (*models.Meal, error)
	DeleteMeal(ctx context.Context, userID, mealID string) error
}

// mealForm mirrors the multipart fields of the create and edit forms.
type mealForm struct {
	Title         string                     `json:"title" validate:"required,max=200"`
	Description   string                     `json:"description" validate:"max=4000"`
	DateMade      string                     `json:"dateMade" validate:"required,mealdate"`
	OverallRating int                        `json:"overallRating" validate:"min=1,max=5"`
	Tags          []string                   `json:"tags" validate:"max=30,dive,max=50"`
	Ingredients   []services.IngredientInput `json:"ingredients" validate:"max=100,dive"`
}

func SetupMealRoutes(app *fiber.App, auth fiber.Handler, meals MealStore, photos utils.PhotoStore) {
	group := app.Group("/meals", auth)

	group.Post("/", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		in, err := parseMealForm(c, userID, photos)
		if err != nil {
			return respondError(c, err)
		}
		meal, err := meals.CreateMeal(c.UserContext(), userID, *in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(meal)
	})

	group.Get("/", func(c *fiber.Ctx) error {
		list, err := meals.ListMeals(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	group.Get("/:id", func(c *fiber.Ctx) error {
		meal, err := meals.GetMeal(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(meal)
	})

	group.Put("/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		in, err := parseMealForm(c, userID, photos)
		if err != nil {
			return respondError(c, err)
		}
		in.ClearPhoto = in.PhotoURL == nil && c.FormValue("removePhoto") == "true"
		meal, err := meals.UpdateMeal(c.UserContext(), userID, c.Params("id"), *in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(meal)
	})

	group.Delete("/:id", func(c *fiber.Ctx) error {
		if err := meals.DeleteMeal(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Meal deleted"})
	})
}

// parseMealForm reads and validates the form and uploads the photo if one was
// attached.
func parseMealForm(c *fiber.Ctx, userID string, photos utils.PhotoStore) (*services.MealInput, error) {
	form := mealForm{
		Title:       strings.TrimSpace(c.FormValue("title")),
		Description: c.FormValue("description"),
		DateMade:    c.FormValue("dateMade"),
	}

	rating, err := strconv.Atoi(c.FormValue("overallRating"))
	if err != nil {
		return nil, &requestError{msg: "overallRating must be a number between 1 and 5", cause: err}
	}
	form.OverallRating = rating

	if raw := strings.TrimSpace(c.FormValue("tags")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form.Tags); err != nil {
			return nil, &requestError{msg: "tags must be a JSON array of strings", cause: err}
		}
	}
	if raw := strings.TrimSpace(c.FormValue("ingredients")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form.Ingredients); err != nil {
			return nil, &requestError{msg: "ingredients must be a JSON array", cause: err}
		}
	}

	if err := validation.ValidateStruct(form); err != nil {
		return nil, err
	}
	dateMade, _ := validation.ParseDate(form.DateMade)

	in := &services.MealInput{
		Title:         form.Title,
		Description:   form.Description,
		DateMade:      dateMade,
		OverallRating: form.OverallRating,
		Tags:          form.Tags,
		Ingredients:   form.Ingredients,
	}

	if fh, err := c.FormFile("photo"); err == nil {
		url, err := photos.Save(c.UserContext(), fh, utils.PhotoKey("meals", userID, fh.Filename))
		if err != nil {
			return nil, err
		}
		in.PhotoURL = &url
	}
	return in, nil
}
