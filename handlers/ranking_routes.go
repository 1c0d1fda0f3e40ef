package handlers

import (
	"context"

	"meal-journal/middleware"
	"meal-journal/services"
	"meal-journal/validation"

	"github.com/gofiber/fiber/v2"
)

type Comparer interface {
	RecordComparison(ctx context.Context, userID, winnerID, loserID string, outcome services.Outcome) (*services.ComparisonResult, error)
}

type Leaderboard interface {
	GetRanked(ctx context.Context, userID, mealID string) ([]services.RankedMeal, error)
	RemoveFromRankings(ctx context.Context, userID, mealID string) (bool, error)
}

type compareRequest struct {
	WinnerID string `json:"winnerId" validate:"required"`
	LoserID  string `json:"loserId" validate:"required,nefield=WinnerID"`
	Type     string `json:"type" validate:"required,outcome"`
}

func SetupRankingRoutes(app *fiber.App, auth fiber.Handler, comparisons Comparer, board Leaderboard) {
	rankings := app.Group("/rankings", auth)

	rankings.Post("/compare", func(c *fiber.Ctx) error {
		var req compareRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", err)
		}
		if err := validation.ValidateStruct(req); err != nil {
			return respondError(c, err)
		}

		result, err := comparisons.RecordComparison(c.UserContext(), middleware.UserID(c),
			req.WinnerID, req.LoserID, services.Outcome(req.Type))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "Comparison recorded",
			"result":  result,
		})
	})

	rankings.Get("/", func(c *fiber.Ctx) error {
		rows, err := board.GetRanked(c.UserContext(), middleware.UserID(c), c.Query("mealId"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rows)
	})

	rankings.Delete("/:mealId", func(c *fiber.Ctx) error {
		mealID := c.Params("mealId")
		removed, err := board.RemoveFromRankings(c.UserContext(), middleware.UserID(c), mealID)
		if err != nil {
			return respondError(c, err)
		}
		if !removed {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "meal is not ranked",
			})
		}
		return c.JSON(fiber.Map{
			"message": "Meal removed from rankings",
			"mealId":  mealID,
		})
	})
}
