package api

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"maintlog-backend/config"
	"maintlog-backend/internal/model"
	"maintlog-backend/internal/mw"
	"maintlog-backend/internal/render"
	"maintlog-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, renderer *render.Renderer, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, renderer)

	sessionStore := cookie.NewStore([]byte(cfg.Session.Secret))
	r.Use(sessions.Sessions(cfg.Session.CookieName, sessionStore))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/login", handler.Login)
		api.POST("/logout", handler.Logout)

		authed := api.Group("")
		authed.Use(mw.RequireAuth())
		{
			// The report listing is role-scoped per caller and must not
			// go through the URI-keyed cache.
			authed.GET("/reports", handler.ListReports)
			authed.POST("/reports", handler.CreateReport)
			authed.GET("/reports/:step_id", handler.GetReport)
			authed.GET("/reports/:step_id/pdf", handler.DownloadReport)

			authed.GET("/users", mw.RequireRole(model.RoleAdmin), caching, handler.ListUsers)
		}
	}

	return r
}
