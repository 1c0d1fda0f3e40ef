package handlers

import (
	"context"
	"testing"
	"time"

	"meal-journal/models"
	"meal-journal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthService struct {
	users map[string]string // email -> password
}

func (f *fakeAuthService) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	if _, ok := f.users[in.Email]; ok {
		return nil, services.ErrEmailTaken
	}
	f.users[in.Email] = in.Password
	return &models.User{ID: "new-user", FirstName: in.FirstName, LastName: in.LastName, Email: in.Email}, nil
}

func (f *fakeAuthService) Login(_ context.Context, email, password string) (string, *models.User, error) {
	if pw, ok := f.users[email]; !ok || pw != password {
		return "", nil, services.ErrInvalidCredentials
	}
	return "signed-token", &models.User{ID: "u", Email: email}, nil
}

func TestRegisterAndLogin(t *testing.T) {
	app := fiber.New()
	SetupAuthRoutes(app, &fakeAuthService{users: map[string]string{}})

	reg := `{"firstName":"Ada","lastName":"Cook","email":"ada@example.com","password":"hunter2hunter2"}`
	status, body := doJSON(t, app, "POST", "/auth/register", reg)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "ada@example.com", body["user"].(map[string]interface{})["email"])

	status, _ = doJSON(t, app, "POST", "/auth/register", reg)
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = doJSON(t, app, "POST", "/auth/login", `{"email":"ada@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "signed-token", body["token"])

	status, _ = doJSON(t, app, "POST", "/auth/login", `{"email":"ada@example.com","password":"wrong"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestRegisterValidation(t *testing.T) {
	app := fiber.New()
	SetupAuthRoutes(app, &fakeAuthService{users: map[string]string{}})

	status, body := doJSON(t, app, "POST", "/auth/register", `{"firstName":"A","lastName":"B","email":"not-an-email","password":"short"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Len(t, body["fields"], 2)
}

type fakeProfiles struct {
	profile *services.Profile
	update  *services.ProfileUpdate
	err     error
}

func (f *fakeProfiles) GetProfile(context.Context, string) (*services.Profile, error) {
	return f.profile, f.err
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, userID string, in services.ProfileUpdate) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.update = &in
	return &models.User{ID: userID, FirstName: in.FirstName, Email: in.Email}, nil
}

func TestGetProfileExposesStreak(t *testing.T) {
	last := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	profiles := &fakeProfiles{profile: &services.Profile{
		ID: "user-1",
		Stats: services.ProfileStats{
			TotalMeals: 4, AverageRating: 3.75, TopRankedMeals: []services.RankedMeal{},
			CurrentStreak: 2, LongestStreak: 3, LastMealDate: &last,
		},
	}}
	app := fiber.New()
	SetupUserRoutes(app, fakeAuth, profiles, &fakePhotos{})

	status, body := doJSON(t, app, "GET", "/users/profile", "")
	require.Equal(t, fiber.StatusOK, status)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, 2.0, stats["currentStreak"])
	assert.Equal(t, 3.0, stats["longestStreak"])
	assert.Equal(t, "2024-01-03T00:00:00Z", stats["lastMealDate"])
	assert.Equal(t, 3.75, stats["averageRating"])
}

func TestUpdateProfileWithPhoto(t *testing.T) {
	profiles, photos := &fakeProfiles{}, &fakePhotos{}
	app := fiber.New()
	SetupUserRoutes(app, fakeAuth, profiles, photos)

	fields := map[string]string{"firstName": "Ada", "lastName": "Cook", "email": "ada@example.com", "removePhoto": "true"}
	require.Equal(t, fiber.StatusOK, sendForm(t, app, "PUT", "/users/profile", fields, "profilePhoto", []byte("img")))

	require.NotNil(t, profiles.update.ProfilePhotoURL)
	assert.Contains(t, *profiles.update.ProfilePhotoURL, "profiles/user-1/")
	assert.False(t, profiles.update.ClearPhoto)
}

func TestUpdateProfileWrongPassword(t *testing.T) {
	app := fiber.New()
	SetupUserRoutes(app, fakeAuth, &fakeProfiles{err: services.ErrWrongPassword}, &fakePhotos{})

	status, _ := doJSON(t, app, "PUT", "/users/profile",
		`{"firstName":"Ada","lastName":"Cook","email":"ada@example.com","password":"newpassword1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
