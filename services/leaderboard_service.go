package services

import (
	"context"
	"sort"
	"time"

	"meal-journal/models"

	"gorm.io/gorm"
)

// RankedMeal is one leaderboard row: the stored score, the derived position
// and the meal fields the rankings page renders.
type RankedMeal struct {
	MealID        string    `json:"mealId"`
	Score         float64   `json:"score"`
	RankPosition  int       `json:"rankPosition"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PhotoURL      *string   `json:"photoUrl"`
	OverallRating int       `json:"overallRating"`
	DateMade      time.Time `json:"dateMade"`
	Tags          []string  `json:"tags"`
}

type LeaderboardService struct {
	DB      *gorm.DB
	Ratings *RatingStore
}

func NewLeaderboardService(db *gorm.DB, ratings *RatingStore) *LeaderboardService {
	return &LeaderboardService{DB: db, Ratings: ratings}
}

// AssignRankPositions sorts by score descending and numbers the rows 1..N.
// Equal scores are ordered by meal id ascending so positions are stable
// between reads.
func AssignRankPositions(rows []RankedMeal) []RankedMeal {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].MealID < rows[j].MealID
	})
	for i := range rows {
		rows[i].RankPosition = i + 1
	}
	return rows
}

// GetRanked returns the user's leaderboard. When mealID is set only that row
// is returned, with the position it holds in the full board.
func (s *LeaderboardService) GetRanked(ctx context.Context, userID, mealID string) ([]RankedMeal, error) {
	if mealID != "" && !validMealID(mealID) {
		return []RankedMeal{}, nil
	}

	ratings, err := s.Ratings.ListForUser(ctx, userID)
	if err != nil {
		return nil, persistenceError("load rankings", err)
	}
	rows, err := s.joinMeals(ctx, userID, ratings)
	if err != nil {
		return nil, err
	}

	rows = AssignRankPositions(rows)
	if mealID != "" {
		rows = filterMeal(rows, mealID)
	}
	if err := s.attachTags(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// TopRanked returns the first n rows of the leaderboard.
func (s *LeaderboardService) TopRanked(ctx context.Context, userID string, n int) ([]RankedMeal, error) {
	rows, err := s.GetRanked(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

// RemoveFromRankings drops the meal's rating without touching the meal.
func (s *LeaderboardService) RemoveFromRankings(ctx context.Context, userID, mealID string) (bool, error) {
	if !validMealID(mealID) {
		return false, nil
	}
	removed, err := s.Ratings.Remove(ctx, userID, mealID)
	if err != nil {
		return false, persistenceError("remove ranking", err)
	}
	return removed, nil
}

// joinMeals pairs each rating with the meal fields the board renders. A rating
// whose meal was deleted since it was read is dropped.
func (s *LeaderboardService) joinMeals(ctx context.Context, userID string, ratings []models.Ranking) ([]RankedMeal, error) {
	if len(ratings) == 0 {
		return []RankedMeal{}, nil
	}
	ids := make([]string, len(ratings))
	for i, r := range ratings {
		ids[i] = r.MealID
	}

	var meals []models.Meal
	if err := s.DB.WithContext(ctx).
		Select("id", "title", "description", "photo_url", "overall_rating", "date_made").
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&meals).Error; err != nil {
		return nil, persistenceError("load ranked meals", err)
	}
	byID := make(map[string]*models.Meal, len(meals))
	for i := range meals {
		byID[meals[i].ID] = &meals[i]
	}

	rows := make([]RankedMeal, 0, len(ratings))
	for _, r := range ratings {
		m, ok := byID[r.MealID]
		if !ok {
			continue
		}
		rows = append(rows, RankedMeal{
			MealID:        r.MealID,
			Score:         r.Score,
			Title:         m.Title,
			Description:   m.Description,
			PhotoURL:      m.PhotoURL,
			OverallRating: m.OverallRating,
			DateMade:      m.DateMade,
		})
	}
	return rows, nil
}

func filterMeal(rows []RankedMeal, mealID string) []RankedMeal {
	for _, r := range rows {
		if r.MealID == mealID {
			return []RankedMeal{r}
		}
	}
	return []RankedMeal{}
}

func (s *LeaderboardService) attachTags(ctx context.Context, rows []RankedMeal) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.MealID
	}

	var tags []models.MealTag
	if err := s.DB.WithContext(ctx).
		Preload("Tag").
		Where("meal_id IN ?", ids).
		Order("tag_slug").
		Find(&tags).Error; err != nil {
		return persistenceError("load ranking tags", err)
	}

	byMeal := make(map[string][]string, len(rows))
	for _, t := range tags {
		name := t.TagSlug
		if t.Tag != nil {
			name = t.Tag.Name
		}
		byMeal[t.MealID] = append(byMeal[t.MealID], name)
	}
	for i := range rows {
		rows[i].Tags = byMeal[rows[i].MealID]
		if rows[i].Tags == nil {
			rows[i].Tags = []string{}
		}
	}
	return nil
}
