package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"maintlog-backend/internal/model"
)

const testPasswordHash = "e10adc3949ba59abbe56e057f20f883e" // MD5 of "123456"

// newTestDB opens a per-test in-memory SQLite database. The DSN carries the
// test name so parallel tests never share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Workshop{}, &model.User{}, &model.Component{}, &model.StepRecord{},
	))
	return db
}

type fixtures struct {
	workshop model.Workshop
	tech     model.User
	admin    model.User
}

func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()

	w := model.Workshop{Name: "Electromechanical"}
	require.NoError(t, db.Create(&w).Error)

	tech := model.User{
		Username:     "jperez",
		PasswordHash: testPasswordHash,
		DisplayName:  "Juan Perez",
		Role:         model.RoleTechnician,
		IsActive:     true,
		WorkshopID:   &w.ID,
	}
	admin := model.User{
		Username:     "admin",
		PasswordHash: testPasswordHash,
		DisplayName:  "General Administrator",
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&tech).Error)
	require.NoError(t, db.Create(&admin).Error)

	return fixtures{workshop: w, tech: tech, admin: admin}
}

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixtures(t, db)
	s := NewGormStore(db)
	ctx := context.Background()

	t.Run("active technician with matching hash", func(t *testing.T) {
		identity, err := s.Authenticate(ctx, "jperez", testPasswordHash)
		require.NoError(t, err)
		assert.Equal(t, fx.tech.ID, identity.UserID)
		assert.Equal(t, model.RoleTechnician, identity.Role)
		require.NotNil(t, identity.WorkshopID)
		assert.Equal(t, fx.workshop.ID, *identity.WorkshopID)
		assert.Equal(t, "Electromechanical", identity.WorkshopName)
	})

	t.Run("admin without workshop", func(t *testing.T) {
		identity, err := s.Authenticate(ctx, "admin", testPasswordHash)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, identity.Role)
		assert.Nil(t, identity.WorkshopID)
		assert.Empty(t, identity.WorkshopName)
	})

	t.Run("wrong hash", func(t *testing.T) {
		_, err := s.Authenticate(ctx, "jperez", "deadbeef")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.Authenticate(ctx, "nobody", testPasswordHash)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated user with valid credentials", func(t *testing.T) {
		require.NoError(t, db.Model(&model.User{}).
			Where("id = ?", fx.tech.ID).
			Update("is_active", false).Error)
		defer func() {
			require.NoError(t, db.Model(&model.User{}).
				Where("id = ?", fx.tech.ID).
				Update("is_active", true).Error)
		}()

		_, err := s.Authenticate(ctx, "jperez", testPasswordHash)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestResolveComponent(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixtures(t, db)
	s := NewGormStore(db)
	ctx := context.Background()

	other := model.Workshop{Name: "Hydraulic"}
	require.NoError(t, db.Create(&other).Error)

	id1, err := s.ResolveComponent(ctx, "Motor", "INV-001", fx.workshop.ID)
	require.NoError(t, err)
	require.NotZero(t, id1)

	// Resolving again with a different name and workshop must return the
	// same id and leave the stored row untouched.
	id2, err := s.ResolveComponent(ctx, "Renamed Motor", "INV-001", other.ID)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	var stored model.Component
	require.NoError(t, db.Take(&stored, id1).Error)
	assert.Equal(t, "Motor", stored.Name)
	assert.Equal(t, fx.workshop.ID, stored.WorkshopID)

	t.Run("missing fields", func(t *testing.T) {
		_, err := s.ResolveComponent(ctx, "", "INV-002", fx.workshop.ID)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = s.ResolveComponent(ctx, "Pump", "", fx.workshop.ID)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestInsertStep(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixtures(t, db)
	s := NewGormStore(db)
	ctx := context.Background()

	componentID, err := s.ResolveComponent(ctx, "Motor", "INV-001", fx.workshop.ID)
	require.NoError(t, err)

	valid := NewStep{
		ComponentID: componentID,
		UserID:      fx.tech.ID,
		ActionType:  model.ActionDisassemble,
		StepNumber:  1,
		Description: "remove cover",
	}

	id, err := s.InsertStep(ctx, valid)
	require.NoError(t, err)
	assert.NotZero(t, id)

	t.Run("duplicate step number for the same component", func(t *testing.T) {
		_, err := s.InsertStep(ctx, valid)
		assert.ErrorIs(t, err, ErrIntegrity)
	})

	t.Run("step number is unique across action types", func(t *testing.T) {
		other := valid
		other.ActionType = model.ActionAssemble
		_, err := s.InsertStep(ctx, other)
		assert.ErrorIs(t, err, ErrIntegrity)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		bad := valid
		bad.StepNumber = 0
		_, err := s.InsertStep(ctx, bad)
		assert.ErrorIs(t, err, ErrValidation)

		bad = valid
		bad.ActionType = "Inspect"
		_, err = s.InsertStep(ctx, bad)
		assert.ErrorIs(t, err, ErrValidation)

		bad = valid
		bad.StepNumber = 2
		bad.Description = ""
		bad.PhotoRef = ""
		_, err = s.InsertStep(ctx, bad)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestInsertSteps(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixtures(t, db)
	s := NewGormStore(db)
	ctx := context.Background()

	componentID, err := s.ResolveComponent(ctx, "Motor", "INV-001", fx.workshop.ID)
	require.NoError(t, err)

	mkStep := func(n int) NewStep {
		return NewStep{
			ComponentID: componentID,
			UserID:      fx.tech.ID,
			ActionType:  model.ActionDisassemble,
			StepNumber:  n,
			Description: fmt.Sprintf("step %d", n),
		}
	}
	countSteps := func() int64 {
		var n int64
		require.NoError(t, db.Model(&model.StepRecord{}).
			Where("component_id = ?", componentID).Count(&n).Error)
		return n
	}

	t.Run("empty batch", func(t *testing.T) {
		_, err := s.InsertSteps(ctx, nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("failed batch persists nothing", func(t *testing.T) {
		// The second step collides with the first, aborting the batch
		// after one row has already been inserted inside the transaction.
		_, err := s.InsertSteps(ctx, []NewStep{mkStep(1), mkStep(1)})
		assert.ErrorIs(t, err, ErrIntegrity)
		assert.Zero(t, countSteps(), "aborted batch must be rolled back")
	})

	t.Run("valid batch lands together", func(t *testing.T) {
		ids, err := s.InsertSteps(ctx, []NewStep{mkStep(1), mkStep(2), mkStep(3)})
		require.NoError(t, err)
		require.Len(t, ids, 3)
		assert.Equal(t, int64(3), countSteps())
	})
}

func TestDeriveReport(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixtures(t, db)
	s := NewGormStore(db)
	ctx := context.Background()

	motor := model.Component{Name: "Motor", InventoryCode: "INV-001", WorkshopID: fx.workshop.ID}
	pump := model.Component{Name: "Pump", InventoryCode: "INV-002", WorkshopID: fx.workshop.ID}
	require.NoError(t, db.Create(&motor).Error)
	require.NoError(t, db.Create(&pump).Error)

	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	// Steps inserted out of order: number 2 first, then number 1.
	step2 := model.StepRecord{
		ComponentID: motor.ID, UserID: fx.tech.ID,
		ActionType: model.ActionDisassemble, StepNumber: 2,
		Description: "tighten bolts", PhotoRef: "p2.jpg",
		LoggedAt: base.Add(time.Hour),
	}
	step1 := model.StepRecord{
		ComponentID: motor.ID, UserID: fx.tech.ID,
		ActionType: model.ActionDisassemble, StepNumber: 1,
		Description: "remove cover",
		LoggedAt:    base,
	}
	// Same component, different action: must not join the group. Step
	// numbering continues past the Disassemble steps because component and
	// step number are unique together regardless of action.
	assembleStep := model.StepRecord{
		ComponentID: motor.ID, UserID: fx.tech.ID,
		ActionType: model.ActionAssemble, StepNumber: 3,
		Description: "refit cover", LoggedAt: base.Add(2 * time.Hour),
	}
	// Different component entirely.
	pumpStep := model.StepRecord{
		ComponentID: pump.ID, UserID: fx.tech.ID,
		ActionType: model.ActionDisassemble, StepNumber: 1,
		Description: "drain fluid", LoggedAt: base,
	}
	require.NoError(t, db.Create(&step2).Error)
	require.NoError(t, db.Create(&step1).Error)
	require.NoError(t, db.Create(&assembleStep).Error)
	require.NoError(t, db.Create(&pumpStep).Error)

	t.Run("any member id anchors the whole ordered group", func(t *testing.T) {
		header, steps, err := s.DeriveReport(ctx, step2.ID)
		require.NoError(t, err)

		require.Len(t, steps, 2)
		assert.Equal(t, 1, steps[0].StepNumber)
		assert.Equal(t, 2, steps[1].StepNumber)
		assert.Equal(t, step1.ID, steps[0].StepID)
		assert.Equal(t, step2.ID, steps[1].StepID)

		// Round trip: values supplied at insertion come back unchanged.
		assert.Equal(t, "remove cover", steps[0].Description)
		assert.Empty(t, steps[0].PhotoRef)
		assert.Equal(t, "tighten bolts", steps[1].Description)
		assert.Equal(t, "p2.jpg", steps[1].PhotoRef)

		assert.Equal(t, "Motor", header.ComponentName)
		assert.Equal(t, "INV-001", header.InventoryCode)
		assert.Equal(t, model.ActionDisassemble, header.ActionType)
		assert.Equal(t, "Juan Perez", header.Technician)
		assert.Equal(t, "Electromechanical", header.WorkshopName)
		// Header comes from the earliest-logged member, not the anchor.
		assert.Equal(t, base.Unix(), header.LoggedAt.Unix())
	})

	t.Run("first step id yields the same report", func(t *testing.T) {
		_, steps, err := s.DeriveReport(ctx, step1.ID)
		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.Equal(t, step1.ID, steps[0].StepID)
		assert.Equal(t, step2.ID, steps[1].StepID)
	})

	t.Run("unknown step id", func(t *testing.T) {
		_, _, err := s.DeriveReport(ctx, 99999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListReports(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixtures(t, db)
	s := NewGormStore(db)
	ctx := context.Background()

	tech2 := model.User{
		Username:     "mlopez",
		PasswordHash: testPasswordHash,
		DisplayName:  "Maria Lopez",
		Role:         model.RoleTechnician,
		IsActive:     true,
		WorkshopID:   &fx.workshop.ID,
	}
	require.NoError(t, db.Create(&tech2).Error)

	motor := model.Component{Name: "Motor", InventoryCode: "INV-001", WorkshopID: fx.workshop.ID}
	require.NoError(t, db.Create(&motor).Error)

	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	steps := []model.StepRecord{
		{ComponentID: motor.ID, UserID: fx.tech.ID, ActionType: model.ActionDisassemble,
			StepNumber: 1, Description: "remove cover", LoggedAt: base},
		{ComponentID: motor.ID, UserID: fx.tech.ID, ActionType: model.ActionDisassemble,
			StepNumber: 2, Description: "tighten bolts", LoggedAt: base.Add(time.Hour)},
		{ComponentID: motor.ID, UserID: tech2.ID, ActionType: model.ActionAssemble,
			StepNumber: 3, Description: "refit cover", LoggedAt: base.Add(2 * time.Hour)},
	}
	require.NoError(t, db.Create(&steps).Error)

	t.Run("technician sees only their own steps", func(t *testing.T) {
		rows, err := s.ListReports(ctx, fx.tech.ID, model.RoleTechnician)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, r := range rows {
			assert.Equal(t, "Juan Perez", r.Technician)
		}
	})

	t.Run("admin sees everything, most recent first", func(t *testing.T) {
		rows, err := s.ListReports(ctx, fx.admin.ID, model.RoleAdmin)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Maria Lopez", rows[0].Technician)
		for i := 1; i < len(rows); i++ {
			assert.False(t, rows[i-1].LoggedAt.Before(rows[i].LoggedAt),
				"rows must be ordered by logged_at descending")
		}
	})
}

func TestListUsers(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixtures(t, db)
	s := NewGormStore(db)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	// Ordered by display name: "General Administrator" before "Juan Perez".
	assert.Equal(t, fx.admin.ID, users[0].UserID)
	assert.Empty(t, users[0].WorkshopName)
	assert.Equal(t, fx.tech.ID, users[1].UserID)
	assert.Equal(t, "Electromechanical", users[1].WorkshopName)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("disk I/O error")))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: components.inventory_code")))
	assert.True(t, isUniqueViolation(errors.New(`duplicate key value violates unique constraint "idx_component_step"`)))
}
