package controllers

import (
	"net/http"
	"strconv"

	"github.com/aegisai/backend/internal/services"
	"github.com/gin-gonic/gin"
)

// LLMController serves the LLM observability endpoints.
type LLMController struct {
	llm *services.LLMService
}

func NewLLMController(llm *services.LLMService) *LLMController {
	return &LLMController{llm: llm}
}

type LLMQueryRequest struct {
	Prompt  string  `json:"prompt" binding:"required"`
	UseCase string  `json:"useCase"`
	UserID  *string `json:"userId,omitempty"`
}

// Query proxies a prompt to the LLM and returns the response with metrics.
func (lc *LLMController) Query(c *gin.Context) {
	var req LLMQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UseCase == "" {
		req.UseCase = "customer_query"
	}

	result, err := lc.llm.Query(req.Prompt, req.UseCase, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LLM query failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Metrics returns aggregated LLM usage metrics.
func (lc *LLMController) Metrics(c *gin.Context) {
	hours := hoursQuery(c, 24)
	c.JSON(http.StatusOK, lc.llm.MetricsSummary(hours))
}

// Interactions returns recent interactions, newest first.
func (lc *LLMController) Interactions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	interactions, err := lc.llm.Interactions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get LLM interactions: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"interactions": interactions,
		"count":        len(interactions),
	})
}

// Alerts returns LLM alerts, optionally including acknowledged ones.
func (lc *LLMController) Alerts(c *gin.Context) {
	statusFilter := c.DefaultQuery("status", "open")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	alerts, err := lc.llm.Alerts(statusFilter, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get LLM alerts: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":       alerts,
		"count":        len(alerts),
		"statusFilter": statusFilter,
	})
}
