package controllers

import (
	"net/http"
	"strconv"

	"admissions-api/services"

	"github.com/gin-gonic/gin"
)

// AuditController serves the append-only ledger to elevated roles.
type AuditController struct {
	audit *services.AuditService
}

func NewAuditController(audit *services.AuditService) *AuditController {
	return &AuditController{audit: audit}
}

// GetAuditLogs returns the newest ledger entries (?limit=, default 100,
// max 500).
func (ctrl *AuditController) GetAuditLogs(c *gin.Context) {
	limit := 0
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	logs, err := ctrl.audit.List(currentActor(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audit_logs": logs,
		"total":      len(logs),
	})
}
