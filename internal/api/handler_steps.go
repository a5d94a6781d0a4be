package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"maintlog-backend/internal/model"
	"maintlog-backend/internal/mw"
	"maintlog-backend/internal/store"
)

type newStepRequest struct {
	StepNumber  int    `json:"step_number"`
	Description string `json:"description"`
	PhotoRef    string `json:"photo_ref"`
}

type createReportRequest struct {
	ComponentName string           `json:"component_name"`
	InventoryCode string           `json:"inventory_code"`
	ActionType    string           `json:"action_type"`
	Steps         []newStepRequest `json:"steps"`
}

// CreateReport handles POST /api/reports: resolve the component by
// inventory code, then insert every authored step in one transaction.
// Steps with neither a description nor a photo are skipped, matching the
// authoring flow where prepared-but-empty step slots are not recorded.
func (h *Handler) CreateReport(c *gin.Context) {
	caller, ok := mw.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ComponentName == "" || req.InventoryCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "component name and inventory code are required"})
		return
	}
	if req.ActionType != model.ActionAssemble && req.ActionType != model.ActionDisassemble {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action type must be Assemble or Disassemble"})
		return
	}
	if caller.WorkshopID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "caller has no workshop assignment"})
		return
	}

	ctx := c.Request.Context()
	componentID, err := h.store.ResolveComponent(ctx, req.ComponentName, req.InventoryCode, *caller.WorkshopID)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid component fields"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve component"})
		}
		return
	}

	batch := make([]store.NewStep, 0, len(req.Steps))
	for _, s := range req.Steps {
		if s.Description == "" && s.PhotoRef == "" {
			continue
		}
		batch = append(batch, store.NewStep{
			ComponentID: componentID,
			UserID:      caller.UserID,
			ActionType:  req.ActionType,
			StepNumber:  s.StepNumber,
			Description: s.Description,
			PhotoRef:    s.PhotoRef,
		})
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid steps to save"})
		return
	}

	// All steps of the report land together or not at all.
	stepIDs, err := h.store.InsertSteps(ctx, batch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrIntegrity):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save steps"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"component_id": componentID,
		"saved_steps":  len(stepIDs),
		"step_ids":     stepIDs,
	})
}
