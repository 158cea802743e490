package controller

import (
	"net/http"

	"github.com/Itish41/ContraCam/models"
	service "github.com/Itish41/ContraCam/service"
	"github.com/gin-gonic/gin"
)

// RuleController exposes the alert trigger rules.
type RuleController struct {
	rules *service.RuleService
}

func NewRuleController(rules *service.RuleService) *RuleController {
	return &RuleController{rules: rules}
}

func (c *RuleController) AddRule(ctx *gin.Context) {
	var rule models.AlertRule
	if err := ctx.ShouldBindJSON(&rule); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.rules.AddRule(ctx.Request.Context(), &rule); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, rule)
}

// ListRules retrieves all alert rules from the database
func (c *RuleController) ListRules(ctx *gin.Context) {
	rules, err := c.rules.ListRules(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, rules)
}
