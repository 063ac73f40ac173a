package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

type Project struct {
	gorm.Model
	Name        string        `gorm:"size:255;not null" json:"name"`
	CustomerRef string        `gorm:"size:100" json:"customer_ref"`
	Status      ProjectStatus `gorm:"type:varchar(30);not null;default:active" json:"status"`
	Description string        `gorm:"type:text" json:"description"`

	// cost side
	TotalBudget decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_budget"`
	// revenue side
	ContractValue decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"contract_value"`

	StartDate     *time.Time `json:"start_date"`
	TargetEndDate *time.Time `json:"target_end_date"`

	BudgetItems []ProjectBudgetItem `json:"budget_items,omitempty"`
}

// ProjectBudgetItem is a line of a project's cost budget. Rows carrying a
// ChangeOrderID are derived from an approved change order and are removed
// when that change order is reverted.
type ProjectBudgetItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectID uint `gorm:"index;not null" json:"project_id"`

	Category        string          `gorm:"size:255;not null" json:"category"`
	Description     string          `gorm:"type:text" json:"description"`
	EstimatedAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"estimated_amount"`
	ChangeOrderID   *uint           `gorm:"index" json:"change_order_id"`
	IsContingency   bool            `gorm:"not null;default:false" json:"is_contingency"`
}
