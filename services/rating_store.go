package services

import (
	"context"
	"fmt"

	"meal-journal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingStore maps (user, meal) to a comparison score. Every method runs on
// the handle it was built with, so WithTx scopes it to a caller transaction.
type RatingStore struct {
	DB *gorm.DB
}

func NewRatingStore(db *gorm.DB) *RatingStore {
	return &RatingStore{DB: db}
}

// WithTx returns a store bound to tx.
func (s *RatingStore) WithTx(tx *gorm.DB) *RatingStore {
	return &RatingStore{DB: tx}
}

// ensure inserts the default row if absent. ON CONFLICT DO NOTHING makes two
// concurrent first touches converge on a single row.
func (s *RatingStore) ensure(ctx context.Context, userID, mealID string) error {
	row := models.Ranking{UserID: userID, MealID: mealID, Score: DefaultScore}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "meal_id"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

// GetOrDefault returns the stored score, creating the row with DefaultScore
// on first reference.
func (s *RatingStore) GetOrDefault(ctx context.Context, userID, mealID string) (float64, error) {
	return s.getOrDefault(ctx, userID, mealID, false)
}

// getOrDefaultForUpdate is GetOrDefault plus a row lock held until the
// surrounding transaction ends.
func (s *RatingStore) getOrDefaultForUpdate(ctx context.Context, userID, mealID string) (float64, error) {
	return s.getOrDefault(ctx, userID, mealID, true)
}

func (s *RatingStore) getOrDefault(ctx context.Context, userID, mealID string, lock bool) (float64, error) {
	if err := s.ensure(ctx, userID, mealID); err != nil {
		return 0, fmt.Errorf("failed to ensure ranking %s: %w", mealID, err)
	}

	q := s.DB.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row models.Ranking
	if err := q.Where("user_id = ? AND meal_id = ?", userID, mealID).First(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to read ranking %s: %w", mealID, err)
	}
	return row.Score, nil
}

// Set overwrites the score of an existing row.
func (s *RatingStore) Set(ctx context.Context, userID, mealID string, score float64) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Ranking{}).
		Where("user_id = ? AND meal_id = ?", userID, mealID).
		Update("score", score)
	if res.Error != nil {
		return fmt.Errorf("failed to update ranking %s: %w", mealID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to update ranking %s: %w", mealID, gorm.ErrRecordNotFound)
	}
	return nil
}

// Remove deletes the row and reports whether one existed.
func (s *RatingStore) Remove(ctx context.Context, userID, mealID string) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("user_id = ? AND meal_id = ?", userID, mealID).
		Delete(&models.Ranking{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete ranking %s: %w", mealID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListForUser returns every rating of the user in no particular order.
func (s *RatingStore) ListForUser(ctx context.Context, userID string) ([]models.Ranking, error) {
	var rows []models.Ranking
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}
	return rows, nil
}
