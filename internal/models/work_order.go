package models

import (
	"time"

	"gorm.io/gorm"
)

type WorkOrderStatus string

const (
	WorkOrderNew        WorkOrderStatus = "new"
	WorkOrderScheduled  WorkOrderStatus = "scheduled"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderCompleted  WorkOrderStatus = "completed"
	WorkOrderCancelled  WorkOrderStatus = "cancelled"
)

type WorkOrder struct {
	gorm.Model
	// optional parent project
	ProjectID *uint `gorm:"index" json:"project_id"`

	Title       string          `gorm:"size:255;not null" json:"title"`
	Status      WorkOrderStatus `gorm:"type:varchar(30);not null;default:new" json:"status"`
	Description string          `gorm:"type:text" json:"description"`
	DueByDate   *time.Time      `json:"due_by_date"`
}
