package controller

import (
	"net/http"

	"github.com/Itish41/ContraCam/middleware"
	"github.com/gin-gonic/gin"
)

// Routes bundles the controllers mounted by NewRouter.
type Routes struct {
	Documents *DocumentController
	Rules     *RuleController
	Session   *SessionController
	Auth      middleware.TokenChecker

	// PreviewDir is served under /previews when previews are stored locally.
	PreviewDir string
}

func NewRouter(r Routes) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	// Global rate limiter for most routes
	router.Use(middleware.GlobalRateLimiter.Limit())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	if r.PreviewDir != "" {
		router.Static("/previews", r.PreviewDir)
	}

	router.POST("/login", r.Session.Login)
	router.POST("/logout", r.Session.Logout)
	router.GET("/session", r.Session.GetSession)
	router.PUT("/session/theme", r.Session.SetTheme)
	router.PUT("/session/view", r.Session.Visit)

	authed := router.Group("/", middleware.RequireSession(r.Auth))
	{
		authed.POST("/contracts",
			middleware.StrictRateLimiter.Limit(),
			r.Documents.UploadContract)
		authed.GET("/contracts", r.Documents.ListContracts)
		authed.GET("/contracts/export", r.Documents.ExportContracts)
		authed.GET("/contracts/:position", r.Documents.GetContract)
		authed.DELETE("/contracts/:position", r.Documents.DeleteContract)
		authed.GET("/dashboard", r.Documents.Dashboard)
		authed.GET("/search", r.Documents.SearchContracts)

		authed.GET("/rules", r.Rules.ListRules)
		authed.POST("/rules",
			middleware.StrictRateLimiter.Limit(),
			r.Rules.AddRule)
	}

	return router
}
