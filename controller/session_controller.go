package controller

import (
	"net/http"

	service "github.com/Itish41/ContraCam/service"
	"github.com/gin-gonic/gin"
)

// SessionController handles the placeholder login and the settings view.
type SessionController struct {
	session *service.Session
}

func NewSessionController(session *service.Session) *SessionController {
	return &SessionController{session: session}
}

func (c *SessionController) Login(ctx *gin.Context) {
	token, err := c.session.Login(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

func (c *SessionController) Logout(ctx *gin.Context) {
	if err := c.session.Logout(ctx.Request.Context()); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *SessionController) GetSession(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.session.State())
}

func (c *SessionController) SetTheme(ctx *gin.Context) {
	var req struct {
		Theme string `json:"theme" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.session.SetTheme(ctx.Request.Context(), req.Theme); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, c.session.State())
}

// Visit records the view the client should resume to.
func (c *SessionController) Visit(ctx *gin.Context) {
	var req struct {
		View string `json:"view" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.session.Visit(ctx.Request.Context(), req.View); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, c.session.State())
}
