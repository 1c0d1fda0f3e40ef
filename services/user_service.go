package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"meal-journal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const topRankedLimit = 5

type ProfileStats struct {
	TotalMeals     int64        `json:"totalMeals"`
	AverageRating  float64      `json:"averageRating"`
	TopRankedMeals []RankedMeal `json:"topRankedMeals"`
	CurrentStreak  int          `json:"currentStreak"`
	LongestStreak  int          `json:"longestStreak"`
	LastMealDate   *time.Time   `json:"lastMealDate"`
}

type Profile struct {
	ID              string       `json:"id"`
	FirstName       string       `json:"firstName"`
	LastName        string       `json:"lastName"`
	Email           string       `json:"email"`
	CreatedAt       time.Time    `json:"createdAt"`
	ProfilePhotoURL *string      `json:"profilePhotoUrl"`
	Stats           ProfileStats `json:"stats"`
}

type ProfileUpdate struct {
	FirstName       string `json:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"omitempty,min=8,max=72"`
	CurrentPassword string `json:"currentPassword"`
	ProfilePhotoURL *string
	ClearPhoto      bool
}

type UserService struct {
	DB          *gorm.DB
	Meals       *MealService
	Leaderboard *LeaderboardService
}

func NewUserService(db *gorm.DB, meals *MealService, leaderboard *LeaderboardService) *UserService {
	return &UserService{DB: db, Meals: meals, Leaderboard: leaderboard}
}

// GetProfile returns identity fields and stats. Streak values are read as
// stored; nothing here recomputes them.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceError("load profile", err)
	}

	total, avg, err := s.Meals.CountAndAverage(ctx, userID)
	if err != nil {
		return nil, err
	}
	top, err := s.Leaderboard.TopRanked(ctx, userID, topRankedLimit)
	if err != nil {
		return nil, err
	}

	return &Profile{
		ID:              user.ID,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Email:           user.Email,
		CreatedAt:       user.CreatedAt,
		ProfilePhotoURL: user.ProfilePhotoURL,
		Stats: ProfileStats{
			TotalMeals:     total,
			AverageRating:  math.Round(avg*100) / 100,
			TopRankedMeals: top,
			CurrentStreak:  user.CurrentStreak,
			LongestStreak:  user.LongestStreak,
			LastMealDate:   user.LastMealDate,
		},
	}, nil
}

// UpdateProfile changes identity fields. A new password needs the current one.
// Streak columns are never written here.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	var updated models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "NO KEY UPDATE"}).
			Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		hash := user.PasswordHash
		if in.Password != "" {
			if in.CurrentPassword == "" ||
				bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
				return ErrWrongPassword
			}
			h, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
			if err != nil {
				return err
			}
			hash = string(h)
		}

		photo := user.ProfilePhotoURL
		if in.ProfilePhotoURL != nil {
			photo = in.ProfilePhotoURL
		} else if in.ClearPhoto {
			photo = nil
		}

		first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"first_name":        first,
			"last_name":         last,
			"name":              first + " " + last,
			"email":             normalizeEmail(in.Email),
			"password_hash":     hash,
			"profile_photo_url": photo,
		}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).First(&updated).Error
	})
	switch {
	case err == nil:
		return &updated, nil
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrWrongPassword):
		return nil, err
	case isUniqueViolation(err):
		return nil, ErrEmailTaken
	default:
		return nil, persistenceError("update profile", err)
	}
}
