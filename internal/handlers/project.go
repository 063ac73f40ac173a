package handlers

import (
	"net/http"
	"strings"

	"crew-connect/internal/database"
	"crew-connect/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//
// PROJECT LIST
//

func (h *Handler) ListProjects(c *gin.Context) {
	dbq := h.db.Order("created_at desc")

	if status := c.Query("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		dbq = dbq.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var projects []models.Project
	if err := dbq.Find(&projects).Error; err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

//
// CREATE PROJECT
//

type projectForm struct {
	Name          string          `json:"name"`
	CustomerRef   string          `json:"customer_ref"`
	Description   string          `json:"description"`
	TotalBudget   decimal.Decimal `json:"total_budget"`
	ContractValue decimal.Decimal `json:"contract_value"`
	StartDate     *string         `json:"start_date"`
	TargetEndDate *string         `json:"target_end_date"`
}

func (h *Handler) CreateProject(c *gin.Context) {
	var form projectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	name := strings.TrimSpace(form.Name)
	if len(name) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project name must be at least 3 characters"})
		return
	}
	if form.TotalBudget.IsNegative() || form.ContractValue.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "budget and contract value must not be negative"})
		return
	}

	start, err := parseDate(form.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return
	}
	end, err := parseDate(form.TargetEndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target end date"})
		return
	}
	if start != nil && end != nil && end.Before(*start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target end date is before start date"})
		return
	}

	project := models.Project{
		Name:          name,
		CustomerRef:   strings.TrimSpace(form.CustomerRef),
		Status:        models.ProjectActive,
		Description:   strings.TrimSpace(form.Description),
		TotalBudget:   form.TotalBudget.Round(2),
		ContractValue: form.ContractValue.Round(2),
		StartDate:     start,
		TargetEndDate: end,
	}
	if err := h.db.Create(&project).Error; err != nil {
		h.fail(c, err)
		return
	}

	database.CreateAuditLog(h.db, actor(c).UserID, "project", project.ID, "create", "Created project: "+project.Name)
	c.JSON(http.StatusCreated, project)
}

//
// PROJECT DETAIL
//

func (h *Handler) GetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := h.db.Preload("BudgetItems").First(&project, id).Error; err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) ListBudgetItems(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := h.db.Select("id").First(&project, id).Error; err != nil {
		h.fail(c, err)
		return
	}

	dbq := h.db.Where("project_id = ?", id).Order("id asc")
	if c.Query("source") == "change_order" {
		dbq = dbq.Where("change_order_id IS NOT NULL")
	}

	var items []models.ProjectBudgetItem
	if err := dbq.Find(&items).Error; err != nil {
		h.fail(c, err)
		return
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.EstimatedAmount)
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

//
// PROJECT HISTORY
//

func (h *Handler) ShowProjectHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := h.db.First(&project, id).Error; err != nil {
		h.fail(c, err)
		return
	}

	// change orders targeting the project carry most of its financial history
	var changeOrderIDs []uint
	err := h.db.Model(&models.ChangeOrder{}).
		Where("entity_type = ? AND entity_id = ?", models.EntityProject, id).
		Pluck("id", &changeOrderIDs).Error
	if err != nil {
		h.fail(c, err)
		return
	}

	dbq := h.db.Where("entity = ? AND entity_id = ?", "project", id)
	if len(changeOrderIDs) > 0 {
		dbq = dbq.Or("entity = ? AND entity_id IN ?", "change_order", changeOrderIDs)
	}

	var logs []models.AuditLog
	if err := dbq.Order("created_at asc").Find(&logs).Error; err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project": project,
		"logs":    logs,
	})
}
