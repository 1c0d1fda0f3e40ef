package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"meal-journal/logging"
	"meal-journal/metrics"
	"meal-journal/models"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IngredientInput struct {
	Name     string   `json:"name" validate:"required,max=120"`
	Quantity float64  `json:"quantity" validate:"gte=0"`
	Unit     string   `json:"unit,omitempty" validate:"max=32"`
	Calories *float64 `json:"calories,omitempty" validate:"omitempty,gte=0"`
	Protein  *float64 `json:"protein,omitempty" validate:"omitempty,gte=0"`
	Carbs    *float64 `json:"carbs,omitempty" validate:"omitempty,gte=0"`
	Fat      *float64 `json:"fat,omitempty" validate:"omitempty,gte=0"`
}

// MealInput is the parsed create/update form. PhotoURL is already uploaded.
type MealInput struct {
	Title         string
	Description   string
	DateMade      time.Time
	OverallRating int
	Tags          []string
	Ingredients   []IngredientInput
	PhotoURL      *string
	ClearPhoto    bool
}

type MealService struct {
	DB      *gorm.DB
	Streaks *StreakTracker
}

func NewMealService(db *gorm.DB, streaks *StreakTracker) *MealService {
	return &MealService{DB: db, Streaks: streaks}
}

// CreateMeal inserts the meal with its tags and ingredients and advances the
// user's streak, all in one transaction.
func (s *MealService) CreateMeal(ctx context.Context, userID string, in MealInput) (*models.Meal, error) {
	meal := &models.Meal{
		UserID:        userID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		DateMade:      NormalizeDate(in.DateMade),
		PhotoURL:      in.PhotoURL,
		OverallRating: in.OverallRating,
	}

	var streak StreakState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(meal).Error; err != nil {
			return fmt.Errorf("failed to insert meal: %w", err)
		}
		if err := replaceTags(tx, meal.ID, in.Tags); err != nil {
			return err
		}
		if err := replaceIngredients(tx, meal.ID, in.Ingredients); err != nil {
			return err
		}
		var err error
		streak, err = s.Streaks.ApplyMeal(ctx, tx, userID, meal.DateMade)
		return err
	})
	if err != nil {
		return nil, persistenceError("create meal", err)
	}

	metrics.MealsCreated.Inc()
	logging.Ctx(ctx).Info().
		Str("user_id", userID).Str("meal_id", meal.ID).
		Int("current_streak", streak.Current).Int("longest_streak", streak.Longest).
		Msg("meal created")

	return s.GetMeal(ctx, userID, meal.ID)
}

// ListMeals returns the user's meals newest first, with tags.
func (s *MealService) ListMeals(ctx context.Context, userID string) ([]models.Meal, error) {
	var meals []models.Meal
	if err := s.DB.WithContext(ctx).
		Preload("Tags.Tag").
		Where("user_id = ?", userID).
		Order("date_made DESC, created_at DESC").
		Find(&meals).Error; err != nil {
		return nil, persistenceError("list meals", err)
	}
	return meals, nil
}

// GetMeal loads one meal with tags and ingredients.
func (s *MealService) GetMeal(ctx context.Context, userID, mealID string) (*models.Meal, error) {
	if !validMealID(mealID) {
		return nil, ErrNotFoundOrForbidden
	}
	var meal models.Meal
	if err := s.DB.WithContext(ctx).
		Preload("Tags.Tag").
		Preload("Ingredients.Ingredient").
		Where("id = ? AND user_id = ?", mealID, userID).
		First(&meal).Error; err != nil {
		if err = notFoundIfMissing(err); errors.Is(err, ErrNotFoundOrForbidden) {
			return nil, err
		}
		return nil, persistenceError("get meal", err)
	}
	return &meal, nil
}

// UpdateMeal rewrites the meal fields and replaces its tags and ingredients.
// Streak state is left alone.
func (s *MealService) UpdateMeal(ctx context.Context, userID, mealID string, in MealInput) (*models.Meal, error) {
	if !validMealID(mealID) {
		return nil, ErrNotFoundOrForbidden
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Meal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", mealID, userID).
			First(&current).Error; err != nil {
			return notFoundIfMissing(err)
		}

		photo := current.PhotoURL
		if in.PhotoURL != nil {
			photo = in.PhotoURL
		} else if in.ClearPhoto {
			photo = nil
		}

		if err := tx.Model(&models.Meal{}).
			Where("id = ?", mealID).
			Updates(map[string]interface{}{
				"title":          strings.TrimSpace(in.Title),
				"description":    in.Description,
				"date_made":      NormalizeDate(in.DateMade),
				"photo_url":      photo,
				"overall_rating": in.OverallRating,
			}).Error; err != nil {
			return fmt.Errorf("failed to update meal: %w", err)
		}
		if err := tx.Where("meal_id = ?", mealID).Delete(&models.MealTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear meal tags: %w", err)
		}
		if err := replaceTags(tx, mealID, in.Tags); err != nil {
			return err
		}
		if err := tx.Where("meal_id = ?", mealID).Delete(&models.MealIngredient{}).Error; err != nil {
			return fmt.Errorf("failed to clear meal ingredients: %w", err)
		}
		return replaceIngredients(tx, mealID, in.Ingredients)
	})
	if errors.Is(err, ErrNotFoundOrForbidden) {
		return nil, err
	}
	if err != nil {
		return nil, persistenceError("update meal", err)
	}
	return s.GetMeal(ctx, userID, mealID)
}

// DeleteMeal removes the meal; its ranking row goes with it through the
// foreign key cascade.
func (s *MealService) DeleteMeal(ctx context.Context, userID, mealID string) error {
	if !validMealID(mealID) {
		return ErrNotFoundOrForbidden
	}
	res := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", mealID, userID).Delete(&models.Meal{})
	if res.Error != nil {
		return persistenceError("delete meal", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}

// MealsBelongToUser reports whether every id names a meal owned by userID.
func (s *MealService) MealsBelongToUser(ctx context.Context, userID string, mealIDs ...string) (bool, error) {
	unique := make(map[string]struct{}, len(mealIDs))
	for _, id := range mealIDs {
		if !validMealID(id) {
			return false, nil
		}
		unique[id] = struct{}{}
	}
	ids := make([]string, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}

	var count int64
	if err := s.DB.WithContext(ctx).
		Model(&models.Meal{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count == int64(len(ids)), nil
}

// CountAndAverage returns the meal count and mean overall rating for a user.
func (s *MealService) CountAndAverage(ctx context.Context, userID string) (int64, float64, error) {
	var agg struct {
		Total int64
		Avg   *float64
	}
	if err := s.DB.WithContext(ctx).
		Model(&models.Meal{}).
		Select("COUNT(*) AS total, AVG(overall_rating) AS avg").
		Where("user_id = ?", userID).
		Scan(&agg).Error; err != nil {
		return 0, 0, persistenceError("meal stats", err)
	}
	if agg.Avg == nil {
		return agg.Total, 0, nil
	}
	return agg.Total, *agg.Avg, nil
}

// replaceTags links the meal to its tags. Catalog rows are upserted in slug
// order and the no-op update keeps each one locked until commit, so the janitor
// cannot delete a tag between the upsert and the link.
func replaceTags(tx *gorm.DB, mealID string, raw []string) error {
	tags := NormalizeTags(raw)
	sort.Slice(tags, func(i, j int) bool { return tags[i].Slug < tags[j].Slug })
	for _, t := range tags {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"slug"}),
		}).Create(&t).Error; err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", t.Slug, err)
		}
		if err := tx.Create(&models.MealTag{MealID: mealID, TagSlug: t.Slug}).Error; err != nil {
			return fmt.Errorf("failed to link tag %q: %w", t.Slug, err)
		}
	}
	return nil
}

// NormalizeTags slugs tag names and drops blanks and duplicates, keeping the
// first spelling seen as the display name.
func NormalizeTags(raw []string) []models.Tag {
	seen := make(map[string]bool, len(raw))
	out := make([]models.Tag, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		s := slug.Make(name)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, models.Tag{Slug: s, Name: name})
	}
	return out
}

var titleCaser = cases.Title(language.English)

// IngredientName canonicalizes an ingredient for the shared catalog, so
// "olive OIL " and "Olive oil" are one row.
func IngredientName(name string) string {
	return titleCaser.String(strings.ToLower(strings.Join(strings.Fields(name), " ")))
}

// replaceIngredients upserts catalog rows in name order, the same order every
// writer uses, then links them. Repeated names keep the first entry.
func replaceIngredients(tx *gorm.DB, mealID string, inputs []IngredientInput) error {
	byName := make(map[string]IngredientInput, len(inputs))
	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		name := IngredientName(in.Name)
		if name == "" {
			continue
		}
		if _, dup := byName[name]; dup {
			continue
		}
		byName[name] = in
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		in := byName[name]
		ing := models.Ingredient{
			Name:     name,
			Calories: in.Calories,
			Protein:  in.Protein,
			Carbs:    in.Carbs,
			Fat:      in.Fat,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"calories", "protein", "carbs", "fat"}),
		}).Create(&ing).Error; err != nil {
			return fmt.Errorf("failed to upsert ingredient %q: %w", name, err)
		}
		if err := tx.Create(&models.MealIngredient{
			MealID:       mealID,
			IngredientID: ing.ID,
			Quantity:     in.Quantity,
			Unit:         in.Unit,
		}).Error; err != nil {
			return fmt.Errorf("failed to link ingredient %q: %w", name, err)
		}
	}
	return nil
}
