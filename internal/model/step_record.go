package model

import "time"

// Procedure classifications. The action type is half of the logical-report
// grouping key, next to the component.
const (
	ActionAssemble    = "Assemble"
	ActionDisassemble = "Disassemble"
)

// StepRecord is one authored unit of a report: a step number, description,
// optional photo reference, author and timestamp.
//
// A logical report has no row of its own. It is the derived set of
// StepRecords sharing (ComponentID, ActionType), ordered by StepNumber, and
// is reconstructed on demand from any one of its member step ids.
type StepRecord struct {
	ID          int64  `gorm:"primaryKey"`
	ComponentID int64  `gorm:"not null;index;uniqueIndex:idx_component_step"`
	UserID      int64  `gorm:"not null;index"`
	ActionType  string `gorm:"size:32;not null"`
	StepNumber  int    `gorm:"not null;uniqueIndex:idx_component_step"`
	Description string
	PhotoRef    string    `gorm:"not null"`
	LoggedAt    time.Time `gorm:"not null;index;autoCreateTime"`

	// Associations
	Component Component `gorm:"constraint:OnDelete:CASCADE"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
}
