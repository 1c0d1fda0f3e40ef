package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparisonCounter(t *testing.T) {
	before := testutil.ToFloat64(ComparisonsRecorded.WithLabelValues("tie"))
	ComparisonsRecorded.WithLabelValues("tie").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ComparisonsRecorded.WithLabelValues("tie")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Delete("/rankings/:mealId", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/rankings/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	n := testutil.CollectAndCount(HTTPRequestDuration, "http_request_duration_seconds")
	assert.GreaterOrEqual(t, n, 1)
}
