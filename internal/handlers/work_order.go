package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"crew-connect/internal/database"
	"crew-connect/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListWorkOrders(c *gin.Context) {
	dbq := h.db.Order("created_at desc")

	if pid, err := strconv.Atoi(c.Query("project_id")); err == nil && pid > 0 {
		dbq = dbq.Where("project_id = ?", pid)
	}
	if status := c.Query("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}

	var orders []models.WorkOrder
	if err := dbq.Find(&orders).Error; err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type workOrderForm struct {
	ProjectID   *uint   `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueByDate   *string `json:"due_by_date"`
}

func (h *Handler) CreateWorkOrder(c *gin.Context) {
	var form workOrderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	title := strings.TrimSpace(form.Title)
	if len(title) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "work order title must be at least 3 characters"})
		return
	}

	due, err := parseDate(form.DueByDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due date"})
		return
	}

	if form.ProjectID != nil {
		var project models.Project
		if err := h.db.Select("id").First(&project, *form.ProjectID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "project not found"})
			return
		}
	}

	order := models.WorkOrder{
		ProjectID:   form.ProjectID,
		Title:       title,
		Status:      models.WorkOrderNew,
		Description: strings.TrimSpace(form.Description),
		DueByDate:   due,
	}
	if due != nil {
		order.Status = models.WorkOrderScheduled
	}
	if err := h.db.Create(&order).Error; err != nil {
		h.fail(c, err)
		return
	}

	database.CreateAuditLog(h.db, actor(c).UserID, "work_order", order.ID, "create", "Created work order: "+order.Title)
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetWorkOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var order models.WorkOrder
	if err := h.db.First(&order, id).Error; err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
