package middleware

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"meal-journal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens map[string]string

func (s stubTokens) ParseToken(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Use(UserContextMiddleware(stubTokens{"good": "user-7"}))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	return app
}

func TestUserContextMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer good", fiber.StatusOK, "user-7"},
		{"missing header", "", fiber.StatusUnauthorized, ""},
		{"no bearer prefix", "good", fiber.StatusUnauthorized, ""},
		{"empty bearer", "Bearer ", fiber.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", fiber.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newAuthApp().Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				b, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.body, string(b))
			}
		})
	}
}

func TestRequestLoggerPropagatesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(logging.RequestIDFromContext(c.UserContext()))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)

	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "req-123", string(b))
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger())
	app.Get("/", func(c *fiber.Ctx) error { return nil })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestRequestLoggerHandlesErrors(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger())
	app.Get("/", func(c *fiber.Ctx) error { return fiber.ErrTeapot })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
}
