package notify

import (
	"context"

	"crew-connect/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Audit records warnings and errors in the audit log so they survive the request.
type Audit struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAudit(db *gorm.DB, log *zap.Logger) *Audit {
	return &Audit{db: db, log: log}
}

func (a *Audit) Notify(ctx context.Context, n Notification) {
	if n.Severity == SeverityInfo {
		return
	}
	record := models.AuditLog{
		Entity:   n.Entity,
		EntityID: n.EntityID,
		Action:   "impact_" + string(n.Severity),
		Severity: string(n.Severity),
		Details:  n.Title + ": " + n.Description,
	}
	if record.Entity == "" {
		record.Entity = "system"
	}
	if err := a.db.WithContext(ctx).Create(&record).Error; err != nil {
		a.log.Warn("failed to record notification", zap.Error(err), zap.String("title", n.Title))
	}
}
