package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"maintlog-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// Authenticate verifies a username/password-hash pair against active
	// user records. The hash is computed by the caller; the store only
	// equality-compares it.
	Authenticate(ctx context.Context, username, passwordHash string) (Identity, error)

	// ResolveComponent finds or creates a component by inventory code.
	// An existing row is returned unchanged even when name or workshop
	// differ from the caller's values.
	ResolveComponent(ctx context.Context, name, inventoryCode string, workshopID int64) (int64, error)

	// InsertStep records one authored step of a report.
	InsertStep(ctx context.Context, step NewStep) (int64, error)

	// InsertSteps records a batch of authored steps in one transaction.
	// On any failure nothing is persisted.
	InsertSteps(ctx context.Context, steps []NewStep) ([]int64, error)

	// DeriveReport reconstructs the logical report containing the given
	// step: the full (component, action) group ordered by step number,
	// plus a header from the earliest-logged member.
	DeriveReport(ctx context.Context, stepID int64) (ReportHeader, []StepEntry, error)

	// ListReports returns the role-filtered per-step report listing.
	ListReports(ctx context.Context, userID int64, role string) ([]ReportSummary, error)

	// ListUsers returns all worker accounts with their workshop names.
	ListUsers(ctx context.Context) ([]UserSummary, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Authenticate(ctx context.Context, username, passwordHash string) (Identity, error) {
	var row struct {
		UserID       int64
		DisplayName  string
		Role         string
		WorkshopID   *int64
		WorkshopName *string
	}
	err := s.db.WithContext(ctx).
		Table("users u").
		Select("u.id AS user_id, u.display_name, u.role, u.workshop_id, w.name AS workshop_name").
		Joins("LEFT JOIN workshops w ON u.workshop_id = w.id").
		Where("u.username = ? AND u.password_hash = ? AND u.is_active = ?", username, passwordHash, true).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("credential lookup: %w", err)
	}

	identity := Identity{
		UserID:      row.UserID,
		DisplayName: row.DisplayName,
		Role:        row.Role,
		WorkshopID:  row.WorkshopID,
	}
	if row.WorkshopName != nil {
		identity.WorkshopName = *row.WorkshopName
	}
	return identity, nil
}

func (s *gormStore) ResolveComponent(ctx context.Context, name, inventoryCode string, workshopID int64) (int64, error) {
	if name == "" || inventoryCode == "" || workshopID == 0 {
		return 0, ErrValidation
	}

	var id int64
	resolve := func(tx *gorm.DB) error {
		var existing model.Component
		err := tx.Where("inventory_code = ?", inventoryCode).Take(&existing).Error
		if err == nil {
			id = existing.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		created := model.Component{Name: name, InventoryCode: inventoryCode, WorkshopID: workshopID}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		id = created.ID
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(resolve)
	if isUniqueViolation(err) {
		// Lost the create race; the row exists now, look it up again.
		err = s.db.WithContext(ctx).Transaction(resolve)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve component %q: %w", inventoryCode, err)
	}
	return id, nil
}

func (s *gormStore) InsertStep(ctx context.Context, step NewStep) (int64, error) {
	return insertStep(s.db.WithContext(ctx), step)
}

func (s *gormStore) InsertSteps(ctx context.Context, steps []NewStep) ([]int64, error) {
	if len(steps) == 0 {
		return nil, ErrValidation
	}

	ids := make([]int64, 0, len(steps))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, step := range steps {
			id, err := insertStep(tx, step)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func insertStep(db *gorm.DB, step NewStep) (int64, error) {
	if step.ComponentID == 0 || step.UserID == 0 || step.StepNumber <= 0 {
		return 0, ErrValidation
	}
	if step.ActionType != model.ActionAssemble && step.ActionType != model.ActionDisassemble {
		return 0, ErrValidation
	}
	if step.Description == "" && step.PhotoRef == "" {
		return 0, ErrValidation
	}

	row := model.StepRecord{
		ComponentID: step.ComponentID,
		UserID:      step.UserID,
		ActionType:  step.ActionType,
		StepNumber:  step.StepNumber,
		Description: step.Description,
		PhotoRef:    step.PhotoRef,
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("step %d already recorded for component %d: %w",
				step.StepNumber, step.ComponentID, ErrIntegrity)
		}
		return 0, fmt.Errorf("insert step: %w", err)
	}
	return row.ID, nil
}

func (s *gormStore) DeriveReport(ctx context.Context, stepID int64) (ReportHeader, []StepEntry, error) {
	var header ReportHeader
	var steps []StepEntry

	// Both phases run in one transaction so a step inserted in between
	// cannot be observed by phase 2 only.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Phase 1: the anchor step yields the group key. Any member of
		// the group can anchor it, not just the first step.
		var anchor model.StepRecord
		if err := tx.Select("component_id", "action_type").Take(&anchor, stepID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("report %d: %w", stepID, ErrNotFound)
			}
			return err
		}

		// Phase 2: re-query by the group key.
		var rows []model.StepRecord
		if err := tx.
			Where("component_id = ? AND action_type = ?", anchor.ComponentID, anchor.ActionType).
			Order("step_number ASC").
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("report %d: %w", stepID, ErrNotFound)
		}

		steps = make([]StepEntry, len(rows))
		earliest := rows[0]
		for i, r := range rows {
			steps[i] = StepEntry{
				StepID:      r.ID,
				StepNumber:  r.StepNumber,
				Description: r.Description,
				PhotoRef:    r.PhotoRef,
				LoggedAt:    r.LoggedAt,
			}
			if r.LoggedAt.Before(earliest.LoggedAt) {
				earliest = r
			}
		}

		// The header comes from the earliest-logged member. Workshop is
		// resolved through the component here, so a report stays renderable
		// even when its author has no workshop assignment.
		var h struct {
			ComponentName string
			InventoryCode string
			ActionType    string
			Technician    string
			WorkshopName  *string
			LoggedAt      time.Time
		}
		if err := tx.
			Table("step_records s").
			Select("c.name AS component_name, c.inventory_code, s.action_type, "+
				"u.display_name AS technician, w.name AS workshop_name, s.logged_at").
			Joins("INNER JOIN components c ON s.component_id = c.id").
			Joins("INNER JOIN users u ON s.user_id = u.id").
			Joins("LEFT JOIN workshops w ON c.workshop_id = w.id").
			Where("s.id = ?", earliest.ID).
			Take(&h).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("report %d: %w", stepID, ErrNotFound)
			}
			return err
		}

		header = ReportHeader{
			ComponentName: h.ComponentName,
			InventoryCode: h.InventoryCode,
			ActionType:    h.ActionType,
			Technician:    h.Technician,
			LoggedAt:      h.LoggedAt,
		}
		if h.WorkshopName != nil {
			header.WorkshopName = *h.WorkshopName
		}
		return nil
	})
	if err != nil {
		return ReportHeader{}, nil, err
	}
	return header, steps, nil
}

func (s *gormStore) ListReports(ctx context.Context, userID int64, role string) ([]ReportSummary, error) {
	q := s.db.WithContext(ctx).
		Table("step_records s").
		Select("s.id AS step_id, c.name AS component_name, c.inventory_code, s.action_type, " +
			"u.display_name AS technician, w.name AS workshop_name, s.logged_at").
		Joins("INNER JOIN components c ON s.component_id = c.id").
		Joins("INNER JOIN users u ON s.user_id = u.id").
		// Unlike the report header, the listing resolves the workshop
		// through the authoring user.
		Joins("INNER JOIN workshops w ON u.workshop_id = w.id").
		Order("s.logged_at DESC, s.id DESC")

	// The sole authorization boundary on the read path, enforced in the
	// query, not after fetch.
	if role == model.RoleTechnician {
		q = q.Where("s.user_id = ?", userID)
	}

	var rows []ReportSummary
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return rows, nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]UserSummary, error) {
	var rows []struct {
		UserID       int64
		DisplayName  string
		Role         string
		WorkshopName *string
	}
	err := s.db.WithContext(ctx).
		Table("users u").
		Select("u.id AS user_id, u.display_name, u.role, w.name AS workshop_name").
		Joins("LEFT JOIN workshops w ON u.workshop_id = w.id").
		Order("u.display_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]UserSummary, len(rows))
	for i, r := range rows {
		users[i] = UserSummary{UserID: r.UserID, DisplayName: r.DisplayName, Role: r.Role}
		if r.WorkshopName != nil {
			users[i].WorkshopName = *r.WorkshopName
		}
	}
	return users, nil
}

// isUniqueViolation matches the duplicate-key errors of both supported
// drivers without importing either.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
