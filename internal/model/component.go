package model

import "time"

// Component is a physical catalogued item that procedures are performed on.
// Rows are created lazily the first time a step references a new inventory
// code, and are never updated afterwards.
type Component struct {
	ID            int64  `gorm:"primaryKey"`
	Name          string `gorm:"size:256;not null"`
	InventoryCode string `gorm:"uniqueIndex;size:64;not null"`
	WorkshopID    int64  `gorm:"index;not null"`
	CreatedAt     time.Time

	// Associations
	Workshop Workshop `gorm:"constraint:OnDelete:CASCADE"`
}
