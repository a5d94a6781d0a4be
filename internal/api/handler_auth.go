package api

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"maintlog-backend/internal/mw"
	"maintlog-backend/internal/store"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HashPassword reproduces the legacy credential contract: the store only
// ever sees an MD5 hex digest and equality-compares it. Known-weak scheme
// kept for parity with the existing seed data; see DESIGN.md.
func HashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Login verifies credentials and opens a cookie session.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	identity, err := h.store.Authenticate(c.Request.Context(), req.Username, HashPassword(req.Password))
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	sess := sessions.Default(c)
	sess.Set(mw.SessionKeyUserID, identity.UserID)
	sess.Set(mw.SessionKeyRole, identity.Role)
	if identity.WorkshopID != nil {
		sess.Set(mw.SessionKeyWorkshopID, *identity.WorkshopID)
	}
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	c.JSON(http.StatusOK, identity)
}

// Logout clears the caller's session.
func (h *Handler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear session"})
		return
	}
	c.Status(http.StatusNoContent)
}
