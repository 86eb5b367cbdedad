// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered profile. Slug is the lower-cased username and carries
// the unique index that makes usernames case-insensitively unique.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Address   string         `gorm:"uniqueIndex;size:42;not null" json:"address"`
	Username  string         `gorm:"size:15;not null" json:"username"`
	Slug      string         `gorm:"uniqueIndex;size:15;not null" json:"-"`
	TeamID    uint           `gorm:"default:0" json:"team_id"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
