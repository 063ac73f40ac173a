package models

import "time"

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// zero for system-originated records
	UserID uint `json:"user_id"`

	Entity   string `gorm:"size:50;not null;index:idx_audit_entity,priority:1" json:"entity"` // "project", "work_order", "change_order"
	EntityID uint   `gorm:"index:idx_audit_entity,priority:2" json:"entity_id"`
	Action   string `gorm:"size:50;not null" json:"action"` // "create", "status_change", "impact_warning"...
	Severity string `gorm:"size:20" json:"severity"`
	Details  string `gorm:"type:text" json:"details"`
}
