package store

import "time"

// Identity is the authenticated caller as seen by every query: no ambient
// session state, the caller's id, role and workshop travel explicitly.
type Identity struct {
	UserID       int64  `json:"user_id"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	WorkshopID   *int64 `json:"workshop_id,omitempty"`
	WorkshopName string `json:"workshop_name,omitempty"`
}

// ReportHeader describes a logical report for listing and rendering. It is
// derived from the earliest-logged member step of the group, with the
// workshop resolved through the component. The workshop name is empty when
// the component's workshop is gone; that is not an error.
type ReportHeader struct {
	ComponentName string    `json:"component_name"`
	InventoryCode string    `json:"inventory_code"`
	ActionType    string    `json:"action_type"`
	Technician    string    `json:"technician"`
	WorkshopName  string    `json:"workshop_name"`
	LoggedAt      time.Time `json:"logged_at"`
}

// StepEntry is one ordered member of a logical report.
type StepEntry struct {
	StepID      int64     `json:"step_id"`
	StepNumber  int       `json:"step_number"`
	Description string    `json:"description"`
	PhotoRef    string    `json:"photo_ref"`
	LoggedAt    time.Time `json:"logged_at"`
}

// ReportSummary is one row of the report listing. The listing is per step:
// each step of a multi-step report is its own entry, most recent first.
// Unlike ReportHeader, the workshop here comes from the authoring user.
type ReportSummary struct {
	StepID        int64     `json:"step_id"`
	ComponentName string    `json:"component_name"`
	InventoryCode string    `json:"inventory_code"`
	ActionType    string    `json:"action_type"`
	Technician    string    `json:"technician"`
	WorkshopName  string    `json:"workshop_name"`
	LoggedAt      time.Time `json:"logged_at"`
}

// UserSummary is one row of the worker listing.
type UserSummary struct {
	UserID       int64  `json:"user_id"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	WorkshopName string `json:"workshop_name"`
}

// NewStep carries the fields of a step about to be written.
type NewStep struct {
	ComponentID int64
	UserID      int64
	ActionType  string
	StepNumber  int
	Description string
	PhotoRef    string
}
