package notify

import (
	"context"
	"testing"

	"crew-connect/internal/config"
	"crew-connect/internal/database"
	"crew-connect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifierLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLog(zap.New(core))
	ctx := context.Background()

	n.Notify(ctx, Notification{Title: "a", Severity: SeverityInfo})
	n.Notify(ctx, Notification{Title: "b", Severity: SeverityWarning, Entity: "project", EntityID: 7})
	n.Notify(ctx, Notification{Title: "c", Severity: SeverityError})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "project", entries[1].ContextMap()["entity"])
}

func TestCollectorAndMulti(t *testing.T) {
	var a, b Collector
	n := Multi(&a, nil, &b)

	n.Notify(context.Background(), Notification{Title: "saved", Severity: SeverityInfo})

	assert.Len(t, a.Items(), 1)
	assert.Equal(t, "saved", b.Items()[0].Title)

	items := a.Items()
	items[0].Title = "changed"
	assert.Equal(t, "saved", a.Items()[0].Title)
}

func TestContextNotifier(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	c := &Collector{}
	ctx := WithNotifier(context.Background(), c)
	FromContext(ctx).Notify(ctx, Notification{Title: "x"})
	assert.Len(t, c.Items(), 1)
}

func TestAuditNotifierSkipsInfo(t *testing.T) {
	db, err := database.Open(config.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AuditLog{}))

	a := NewAudit(db, zap.NewNop())
	ctx := context.Background()
	a.Notify(ctx, Notification{Title: "ok", Severity: SeverityInfo})
	a.Notify(ctx, Notification{Title: "Budget items not created", Description: "boom", Severity: SeverityWarning, Entity: "change_order", EntityID: 3})

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "change_order", logs[0].Entity)
	assert.Equal(t, uint(3), logs[0].EntityID)
	assert.Equal(t, "impact_warning", logs[0].Action)
	assert.Equal(t, "Budget items not created: boom", logs[0].Details)
}
