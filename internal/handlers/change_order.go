package handlers

import (
	"net/http"
	"strconv"

	"crew-connect/internal/changeorder"
	"crew-connect/internal/models"
	"crew-connect/internal/notify"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListChangeOrders(c *gin.Context) {
	filter := changeorder.ListFilter{
		EntityType: models.EntityType(c.Query("entity_type")),
		Status:     models.ChangeOrderStatus(c.Query("status")),
	}
	if id, err := strconv.ParseUint(c.Query("entity_id"), 10, 64); err == nil {
		filter.EntityID = uint(id)
	}

	orders, err := h.workflow.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) CreateChangeOrder(c *gin.Context) {
	var in changeorder.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	co, err := h.workflow.Create(c.Request.Context(), in, actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, co)
}

func (h *Handler) GetChangeOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	co, err := h.workflow.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

type statusForm struct {
	Status models.ChangeOrderStatus `json:"status" form:"status"`
}

// ChangeChangeOrderStatus persists a status transition and reports whether the
// resulting impact update succeeded, along with every notification it raised.
func (h *Handler) ChangeChangeOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var form statusForm
	if err := c.ShouldBind(&form); err != nil || form.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	notes := &notify.Collector{}
	ctx := notify.WithNotifier(c.Request.Context(), notes)

	change, err := h.workflow.ChangeStatus(ctx, id, form.Status, actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"change_order":    change.ChangeOrder,
		"previous_status": change.Previous,
		"success":         change.ImpactErr == nil,
		"notifications":   notes.Items(),
	})
}
