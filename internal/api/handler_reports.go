package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"maintlog-backend/internal/mw"
	"maintlog-backend/internal/render"
	"maintlog-backend/internal/store"
)

// ListReports handles GET /api/reports. Technicians only see their own
// steps; Admins see everything. Multi-step reports appear once per step.
func (h *Handler) ListReports(c *gin.Context) {
	caller, ok := mw.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	reports, err := h.store.ListReports(c.Request.Context(), caller.UserID, caller.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve reports"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetReport handles GET /api/reports/:step_id. Any member step id resolves
// the whole logical report.
func (h *Handler) GetReport(c *gin.Context) {
	stepID, err := strconv.ParseInt(c.Param("step_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	header, steps, err := h.store.DeriveReport(c.Request.Context(), stepID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to derive report"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"header": header, "steps": steps})
}

// DownloadReport handles GET /api/reports/:step_id/pdf and serves the
// rendered document with its deterministic file name.
func (h *Handler) DownloadReport(c *gin.Context) {
	stepID, err := strconv.ParseInt(c.Param("step_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	header, steps, err := h.store.DeriveReport(c.Request.Context(), stepID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to derive report"})
		}
		return
	}

	pdf, err := h.renderer.Render(header, steps)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.FileName(header)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
