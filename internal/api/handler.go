package api

import (
	"maintlog-backend/internal/render"
	"maintlog-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	renderer *render.Renderer
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, r *render.Renderer) *Handler {
	return &Handler{
		store:    s,
		renderer: r,
	}
}
