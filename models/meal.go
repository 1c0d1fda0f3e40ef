package models

import (
	"time"
)

type Meal struct {
	ID            string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID        string    `gorm:"type:uuid;index;not null" json:"user_id"`
	User          *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title         string    `gorm:"not null" json:"title"`
	Description   string    `json:"description"`
	DateMade      time.Time `gorm:"type:date;not null;index" json:"date_made"`
	PhotoURL      *string   `json:"photo_url"`
	OverallRating int       `gorm:"not null;check:overall_rating >= 1 AND overall_rating <= 5" json:"overall_rating"`

	Tags        []MealTag        `gorm:"foreignKey:MealID;constraint:OnDelete:CASCADE" json:"tags"`
	Ingredients []MealIngredient `gorm:"foreignKey:MealID;constraint:OnDelete:CASCADE" json:"ingredients"`

	Timestamps
}

// Tag is a shared catalog entry keyed by its slug so "Comfort Food" and
// "comfort food" collapse into one tag.
type Tag struct {
	Slug string `gorm:"primaryKey" json:"slug"`
	Name string `gorm:"not null" json:"name"`
}

// MealTag and MealIngredient restrict deletes of catalog rows still linked to
// a meal; only the meal side cascades.
type MealTag struct {
	MealID  string `gorm:"primaryKey;type:uuid" json:"-"`
	TagSlug string `gorm:"primaryKey" json:"slug"`
	Tag     *Tag   `gorm:"foreignKey:TagSlug;references:Slug;constraint:OnDelete:RESTRICT" json:"tag,omitempty"`
}

// Ingredient is a shared nutrition catalog entry; the last writer wins on macros.
type Ingredient struct {
	ID       string   `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name     string   `gorm:"uniqueIndex;not null" json:"name"`
	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fat      *float64 `json:"fat,omitempty"`
}

type MealIngredient struct {
	MealID       string      `gorm:"primaryKey;type:uuid" json:"-"`
	IngredientID string      `gorm:"primaryKey;type:uuid" json:"ingredient_id"`
	Ingredient   *Ingredient `gorm:"constraint:OnDelete:RESTRICT" json:"ingredient,omitempty"`
	Quantity     float64     `json:"quantity"`
	Unit         string      `json:"unit,omitempty"`
}

// TagNames flattens the preloaded tags into display names.
func (m *Meal) TagNames() []string {
	names := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		if t.Tag != nil {
			names = append(names, t.Tag.Name)
		} else {
			names = append(names, t.TagSlug)
		}
	}
	return names
}
