package models

import "time"

// Timestamps adds GORM auto-times. There is no soft delete: meal deletion has to
// reach the rankings foreign key cascade.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
