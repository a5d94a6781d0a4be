package model

import "time"

// User roles. Role decides report visibility: Technicians only see their
// own steps, Admins see everything.
const (
	RoleAdmin      = "Admin"
	RoleTechnician = "Technician"
)

// User is a worker account. Admins may have no workshop assignment, so the
// foreign key is nullable and cleared when the workshop goes away.
type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:128;not null"`
	DisplayName  string `gorm:"size:128;not null"`
	Role         string `gorm:"size:32;not null;default:Technician"`
	IsActive     bool   `gorm:"not null;default:true"`
	WorkshopID   *int64 `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Associations
	Workshop *Workshop `gorm:"constraint:OnDelete:SET NULL"`
}
