package services

import (
	"context"
	"fmt"
	"time"

	"meal-journal/metrics"
	"meal-journal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StreakState is the per-user streak stored on the users row.
type StreakState struct {
	Current      int        `json:"currentStreak"`
	Longest      int        `json:"longestStreak"`
	LastMealDate *time.Time `json:"lastMealDate"`
}

type StreakTransition string

const (
	StreakFirst     StreakTransition = "first"
	StreakExtend    StreakTransition = "extend"
	StreakSameDay   StreakTransition = "same_day"
	StreakReset     StreakTransition = "reset"
	StreakBackdated StreakTransition = "backdated"
)

// NormalizeDate drops the time of day, in UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextStreak is the streak rule applied once per meal insert:
//
//	no previous meal   -> current = 1
//	next day           -> current + 1
//	same day           -> unchanged
//	gap of 2+ days     -> current = 1
//	before last meal   -> unchanged, last meal date kept
//
// Longest is raised to current when current passes it.
func NextStreak(state StreakState, mealDate time.Time) (StreakState, StreakTransition) {
	mealDate = NormalizeDate(mealDate)
	next := state
	var transition StreakTransition

	if state.LastMealDate == nil {
		next.Current = 1
		next.LastMealDate = &mealDate
		transition = StreakFirst
	} else {
		last := NormalizeDate(*state.LastMealDate)
		diffDays := int(mealDate.Sub(last).Hours() / 24)
		switch {
		case diffDays == 1:
			next.Current = state.Current + 1
			next.LastMealDate = &mealDate
			transition = StreakExtend
		case diffDays == 0:
			next.LastMealDate = &mealDate
			transition = StreakSameDay
		case diffDays > 1:
			next.Current = 1
			next.LastMealDate = &mealDate
			transition = StreakReset
		default:
			transition = StreakBackdated
		}
	}

	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	return next, transition
}

// StreakTracker persists NextStreak for a user inside the caller's transaction.
type StreakTracker struct{}

func NewStreakTracker() *StreakTracker {
	return &StreakTracker{}
}

// ApplyMeal locks the user row, applies NextStreak and writes the result.
// tx must be the transaction that inserted the meal.
//
// The lock is FOR NO KEY UPDATE: the meal insert already holds KEY SHARE on the
// same row through its foreign key, and FOR UPDATE would deadlock two
// concurrent inserts for one user against each other.
func (t *StreakTracker) ApplyMeal(ctx context.Context, tx *gorm.DB, userID string, mealDate time.Time) (StreakState, error) {
	var user models.User
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "NO KEY UPDATE"}).
		Select("id", "current_streak", "longest_streak", "last_meal_date").
		Where("id = ?", userID).
		First(&user).Error; err != nil {
		return StreakState{}, fmt.Errorf("failed to lock streak state for %s: %w", userID, err)
	}

	prev := StreakState{Current: user.CurrentStreak, Longest: user.LongestStreak, LastMealDate: user.LastMealDate}
	next, transition := NextStreak(prev, mealDate)

	if err := tx.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"current_streak": next.Current,
			"longest_streak": next.Longest,
			"last_meal_date": next.LastMealDate,
		}).Error; err != nil {
		return StreakState{}, fmt.Errorf("failed to write streak state for %s: %w", userID, err)
	}

	metrics.StreakTransitions.WithLabelValues(string(transition)).Inc()
	return next, nil
}
