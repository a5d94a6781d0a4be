package model

import "time"

// Workshop is an organizational unit that scopes users and components.
// Workshops are created at provisioning time and never modified afterwards.
type Workshop struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Users      []User      `gorm:"foreignKey:WorkshopID"`
	Components []Component `gorm:"foreignKey:WorkshopID"`
}
