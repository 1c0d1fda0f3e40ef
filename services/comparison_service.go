package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"meal-journal/logging"
	"meal-journal/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealOwnership is the gate run before any comparison touches a rating.
type MealOwnership interface {
	MealsBelongToUser(ctx context.Context, userID string, mealIDs ...string) (bool, error)
}

// ComparisonResult carries the committed scores for both slots.
type ComparisonResult struct {
	WinnerID    string  `json:"winnerId"`
	LoserID     string  `json:"loserId"`
	Outcome     Outcome `json:"type"`
	WinnerScore float64 `json:"winnerScore"`
	LoserScore  float64 `json:"loserScore"`
}

type ComparisonService struct {
	DB      *gorm.DB
	Ratings *RatingStore
	Meals   MealOwnership
}

func NewComparisonService(db *gorm.DB, ratings *RatingStore, meals MealOwnership) *ComparisonService {
	return &ComparisonService{DB: db, Ratings: ratings, Meals: meals}
}

// RecordComparison applies one pairwise outcome inside a single transaction.
//
// Both rating rows are created if needed and locked FOR UPDATE in ascending
// meal id order, so two comparisons over the same pair in opposite slots queue
// instead of deadlocking. Resubmitting the same comparison applies it again.
func (s *ComparisonService) RecordComparison(ctx context.Context, userID, winnerID, loserID string, outcome Outcome) (*ComparisonResult, error) {
	if _, err := ParseOutcome(string(outcome)); err != nil {
		metrics.ComparisonFailures.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if winnerID == loserID {
		metrics.ComparisonFailures.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: a meal cannot be compared with itself", ErrInvalidOutcome)
	}

	owned, err := s.Meals.MealsBelongToUser(ctx, userID, winnerID, loserID)
	if err != nil {
		metrics.ComparisonFailures.WithLabelValues("persistence").Inc()
		return nil, persistenceError("check meal ownership", err)
	}
	if !owned {
		metrics.ComparisonFailures.WithLabelValues("not_found").Inc()
		return nil, ErrNotFoundOrForbidden
	}

	result := &ComparisonResult{WinnerID: winnerID, LoserID: loserID, Outcome: outcome}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.Ratings.WithTx(tx)

		ordered := []string{winnerID, loserID}
		sort.Strings(ordered)
		scores := make(map[string]float64, 2)
		for _, mealID := range ordered {
			score, err := store.getOrDefaultForUpdate(ctx, userID, mealID)
			if err != nil {
				return err
			}
			scores[mealID] = score
		}

		newWinner, newLoser := ApplyOutcome(scores[winnerID], scores[loserID], outcome)
		if err := store.Set(ctx, userID, winnerID, newWinner); err != nil {
			return err
		}
		if err := store.Set(ctx, userID, loserID, newLoser); err != nil {
			return err
		}
		result.WinnerScore, result.LoserScore = newWinner, newLoser
		return nil
	})
	if isForeignKeyViolation(err) {
		// a meal deleted after the ownership check
		metrics.ComparisonFailures.WithLabelValues("not_found").Inc()
		return nil, ErrNotFoundOrForbidden
	}
	if err != nil {
		metrics.ComparisonFailures.WithLabelValues("persistence").Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("user_id", userID).Str("winner_id", winnerID).Str("loser_id", loserID).
			Msg("comparison rolled back")
		return nil, persistenceError("record comparison", err)
	}

	metrics.ComparisonsRecorded.WithLabelValues(string(outcome)).Inc()
	logging.Ctx(ctx).Info().
		Str("user_id", userID).Str("winner_id", winnerID).Str("loser_id", loserID).
		Str("outcome", string(outcome)).
		Float64("winner_score", result.WinnerScore).Float64("loser_score", result.LoserScore).
		Msg("comparison recorded")
	return result, nil
}

// validMealID filters ids that cannot exist before they reach a uuid column.
func validMealID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// notFoundIfMissing maps gorm's not-found onto the ownership error.
func notFoundIfMissing(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFoundOrForbidden
	}
	return err
}
