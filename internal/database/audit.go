package database

import (
	"crew-connect/internal/models"

	"gorm.io/gorm"
)

// CreateAuditLog writes an audit record; failures are ignored.
func CreateAuditLog(db *gorm.DB, userID uint, entity string, entityID uint, action, details string) {
	if db == nil {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Severity: "info",
		Details:  details,
	}
	_ = db.Create(&record).Error
}
