package models

// Ranking is the per-(user, meal) comparison score. Rank positions are derived
// from score order at read time and never stored.
type Ranking struct {
	UserID string  `gorm:"primaryKey;type:uuid" json:"user_id"`
	MealID string  `gorm:"primaryKey;type:uuid" json:"meal_id"`
	Meal   *Meal   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Score  float64 `gorm:"not null;default:1500" json:"score"`

	Timestamps
}
