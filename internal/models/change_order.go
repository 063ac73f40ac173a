package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EntityType string
type ChangeOrderStatus string

const (
	EntityProject   EntityType = "PROJECT"
	EntityWorkOrder EntityType = "WORK_ORDER"

	ChangeOrderDraft       ChangeOrderStatus = "DRAFT"
	ChangeOrderSubmitted   ChangeOrderStatus = "SUBMITTED"
	ChangeOrderReview      ChangeOrderStatus = "REVIEW"
	ChangeOrderApproved    ChangeOrderStatus = "APPROVED"
	ChangeOrderRejected    ChangeOrderStatus = "REJECTED"
	ChangeOrderImplemented ChangeOrderStatus = "IMPLEMENTED"
	ChangeOrderCancelled   ChangeOrderStatus = "CANCELLED"
)

// ChangeOrder is a requested modification to a project or work order.
type ChangeOrder struct {
	gorm.Model
	EntityType EntityType `gorm:"type:varchar(20);not null;index:idx_change_order_entity,priority:1" json:"entity_type"`
	EntityID   uint       `gorm:"not null;index:idx_change_order_entity,priority:2" json:"entity_id"`

	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Status      ChangeOrderStatus `gorm:"type:varchar(20);not null;default:DRAFT" json:"status"`

	CostImpact    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"cost_impact"`
	RevenueImpact decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"revenue_impact"`
	ImpactDays    int             `gorm:"not null;default:0" json:"impact_days"`
	// sum of item selling prices
	TotalAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`

	RequestedBy uint       `json:"requested_by"`
	ApprovedBy  *uint      `json:"approved_by"`
	ApprovedAt  *time.Time `json:"approved_at"`

	// set while the parent entity carries this change order's impact
	ImpactAppliedAt *time.Time `json:"impact_applied_at"`

	Items []ChangeOrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type ChangeOrderItem struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	ChangeOrderID uint `gorm:"index;not null" json:"change_order_id"`
	Position      int  `gorm:"not null;default:0" json:"position"`

	Description string          `gorm:"type:text" json:"description"`
	ItemType    string          `gorm:"size:50" json:"item_type"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"unit_price"`
	// selling-price contribution of this line
	TotalPrice decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_price"`
}

// AppliesImpact reports whether the status carries the change order's impact
// onto its parent entity.
func (s ChangeOrderStatus) AppliesImpact() bool {
	return s == ChangeOrderApproved || s == ChangeOrderImplemented
}

// RevertsImpact reports whether the status withdraws a previously applied impact.
func (s ChangeOrderStatus) RevertsImpact() bool {
	return s == ChangeOrderRejected || s == ChangeOrderCancelled
}

func (s ChangeOrderStatus) Valid() bool {
	switch s {
	case ChangeOrderDraft, ChangeOrderSubmitted, ChangeOrderReview, ChangeOrderApproved,
		ChangeOrderRejected, ChangeOrderImplemented, ChangeOrderCancelled:
		return true
	}
	return false
}

// RecalculateTotals fills each item's TotalPrice from quantity and unit price,
// renumbers positions and sets TotalAmount to the sum of item totals.
func (co *ChangeOrder) RecalculateTotals() {
	total := decimal.Zero
	for i := range co.Items {
		item := &co.Items[i]
		item.Position = i
		item.TotalPrice = item.Quantity.Mul(item.UnitPrice).Round(2)
		total = total.Add(item.TotalPrice)
	}
	co.TotalAmount = total
}
