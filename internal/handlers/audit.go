package handlers

import (
	"net/http"
	"strconv"

	"crew-connect/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAuditLogs(c *gin.Context) {
	limit := 200
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	dbq := h.db.Order("created_at desc").Limit(limit)
	if entity := c.Query("entity"); entity != "" {
		dbq = dbq.Where("entity = ?", entity)
	}
	if severity := c.Query("severity"); severity != "" {
		dbq = dbq.Where("severity = ?", severity)
	}

	var logs []models.AuditLog
	if err := dbq.Find(&logs).Error; err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
