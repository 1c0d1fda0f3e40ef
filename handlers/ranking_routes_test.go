package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"meal-journal/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth stands in for the JWT middleware: X-Test-User becomes the user id.
func fakeAuth(c *fiber.Ctx) error {
	id := c.Get("X-Test-User")
	if id == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	c.Locals("user_id", id)
	return c.Next()
}

type fakeComparer struct {
	err      error
	lastUser string
	calls    int
}

func (f *fakeComparer) RecordComparison(_ context.Context, userID, winnerID, loserID string, outcome services.Outcome) (*services.ComparisonResult, error) {
	f.calls++
	f.lastUser = userID
	if f.err != nil {
		return nil, f.err
	}
	w, l := services.ApplyOutcome(services.DefaultScore, services.DefaultScore, outcome)
	return &services.ComparisonResult{WinnerID: winnerID, LoserID: loserID, Outcome: outcome, WinnerScore: w, LoserScore: l}, nil
}

type fakeBoard struct {
	rows    []services.RankedMeal
	removed map[string]bool
}

func (f *fakeBoard) GetRanked(_ context.Context, _ string, mealID string) ([]services.RankedMeal, error) {
	rows := services.AssignRankPositions(append([]services.RankedMeal(nil), f.rows...))
	if mealID == "" {
		return rows, nil
	}
	for _, r := range rows {
		if r.MealID == mealID {
			return []services.RankedMeal{r}, nil
		}
	}
	return []services.RankedMeal{}, nil
}

func (f *fakeBoard) RemoveFromRankings(_ context.Context, _ string, mealID string) (bool, error) {
	if f.removed[mealID] {
		return false, nil
	}
	for _, r := range f.rows {
		if r.MealID == mealID {
			f.removed[mealID] = true
			return true, nil
		}
	}
	return false, nil
}

func newRankingApp(cmp *fakeComparer, board *fakeBoard) *fiber.App {
	app := fiber.New()
	SetupRankingRoutes(app, fakeAuth, cmp, board)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "user-1")
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestCompareStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"win", `{"winnerId":"a","loserId":"b","type":"win"}`, nil, fiber.StatusOK},
		{"tie", `{"winnerId":"a","loserId":"b","type":"tie"}`, nil, fiber.StatusOK},
		{"unknown outcome", `{"winnerId":"a","loserId":"b","type":"draw"}`, nil, fiber.StatusBadRequest},
		{"same meal", `{"winnerId":"a","loserId":"a","type":"win"}`, nil, fiber.StatusBadRequest},
		{"missing loser", `{"winnerId":"a","type":"win"}`, nil, fiber.StatusBadRequest},
		{"malformed json", `{"winnerId":`, nil, fiber.StatusBadRequest},
		{"not owned", `{"winnerId":"a","loserId":"b","type":"win"}`, services.ErrNotFoundOrForbidden, fiber.StatusNotFound},
		{"rolled back", `{"winnerId":"a","loserId":"b","type":"lose"}`,
			fmt.Errorf("record comparison: %w: %w", services.ErrTransientPersistence, context.DeadlineExceeded), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := &fakeComparer{err: tt.err}
			status, body := doJSON(t, newRankingApp(cmp, &fakeBoard{}), "POST", "/rankings/compare", tt.body)
			assert.Equal(t, tt.status, status)
			assert.NotNil(t, body)
		})
	}
}

func TestServerErrorHidesCause(t *testing.T) {
	cause := errors.New(`pq: relation "rankings" does not exist`)
	cmp := &fakeComparer{err: fmt.Errorf("record comparison: %w: %w", services.ErrTransientPersistence, cause)}
	status, body := doJSON(t, newRankingApp(cmp, &fakeBoard{}), "POST", "/rankings/compare",
		`{"winnerId":"a","loserId":"b","type":"win"}`)

	require.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, body, "cause")
}

func TestCompareReturnsScores(t *testing.T) {
	cmp := &fakeComparer{}
	status, body := doJSON(t, newRankingApp(cmp, &fakeBoard{}), "POST", "/rankings/compare",
		`{"winnerId":"a","loserId":"b","type":"win"}`)
	require.Equal(t, fiber.StatusOK, status)

	result := body["result"].(map[string]interface{})
	assert.Equal(t, 1532.0, result["winnerScore"])
	assert.Equal(t, 1468.0, result["loserScore"])
	assert.Equal(t, "user-1", cmp.lastUser)
}

func TestCompareValidationSkipsService(t *testing.T) {
	cmp := &fakeComparer{}
	status, _ := doJSON(t, newRankingApp(cmp, &fakeBoard{}), "POST", "/rankings/compare",
		`{"winnerId":"a","loserId":"b","type":"maybe"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Zero(t, cmp.calls)
}

func TestGetRankingsWithFilter(t *testing.T) {
	board := &fakeBoard{rows: []services.RankedMeal{
		{MealID: "low", Score: 1468},
		{MealID: "high", Score: 1532},
		{MealID: "mid", Score: 1500},
	}}
	app := newRankingApp(&fakeComparer{}, board)

	req := httptest.NewRequest("GET", "/rankings?mealId=low", nil)
	req.Header.Set("X-Test-User", "user-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rows []services.RankedMeal
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].RankPosition)
}

func TestDeleteRankingTwice(t *testing.T) {
	board := &fakeBoard{rows: []services.RankedMeal{{MealID: "m1", Score: 1500}}, removed: map[string]bool{}}
	app := newRankingApp(&fakeComparer{}, board)

	status, _ := doJSON(t, app, "DELETE", "/rankings/m1", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "DELETE", "/rankings/m1", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRankingRoutesRequireAuth(t *testing.T) {
	app := newRankingApp(&fakeComparer{}, &fakeBoard{})
	resp, err := app.Test(httptest.NewRequest("GET", "/rankings", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
