package models

import (
	"time"
)

// User is an account plus its cooking streak state. The streak columns are
// written only by the meal-creation flow.
type User struct {
	ID              string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	FirstName       string  `gorm:"not null" json:"firstName"`
	LastName        string  `gorm:"not null" json:"lastName"`
	Name            string  `json:"name"` // "First Last", kept for older clients
	Email           string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string  `gorm:"not null" json:"-"`
	ProfilePhotoURL *string `json:"profilePhotoUrl,omitempty"`

	CurrentStreak int        `gorm:"not null;default:0;check:current_streak >= 0" json:"currentStreak"`
	LongestStreak int        `gorm:"not null;default:0;check:longest_streak >= 0" json:"longestStreak"`
	LastMealDate  *time.Time `gorm:"type:date" json:"lastMealDate,omitempty"`

	Timestamps
}
