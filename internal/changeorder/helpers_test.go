package changeorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"crew-connect/internal/config"
	"crew-connect/internal/database"
	"crew-connect/internal/models"
	"crew-connect/internal/notify"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func seedProject(t *testing.T, db *gorm.DB, budget, contract string, end *time.Time) models.Project {
	t.Helper()
	p := models.Project{
		Name:          "Riverside Clinic Renovation",
		Status:        models.ProjectActive,
		TotalBudget:   dec(budget),
		ContractValue: dec(contract),
		TargetEndDate: end,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedWorkOrder(t *testing.T, db *gorm.DB, due *time.Time) models.WorkOrder {
	t.Helper()
	wo := models.WorkOrder{Title: "Replace rooftop unit", Status: models.WorkOrderScheduled, DueByDate: due}
	require.NoError(t, db.Create(&wo).Error)
	return wo
}

func loadProject(t *testing.T, db *gorm.DB, id uint) models.Project {
	t.Helper()
	var p models.Project
	require.NoError(t, db.First(&p, id).Error)
	return p
}

func loadWorkOrder(t *testing.T, db *gorm.DB, id uint) models.WorkOrder {
	t.Helper()
	var wo models.WorkOrder
	require.NoError(t, db.First(&wo, id).Error)
	return wo
}

func budgetItemsFor(t *testing.T, db *gorm.DB, changeOrderID uint) []models.ProjectBudgetItem {
	t.Helper()
	var items []models.ProjectBudgetItem
	require.NoError(t, db.Where("change_order_id = ?", changeOrderID).Order("id asc").Find(&items).Error)
	return items
}

func countBudgetItems(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ProjectBudgetItem{}).Count(&n).Error)
	return n
}

// spyStore counts writes and injects project and budget-item failures.
type spyStore struct {
	Store
	writes    *int
	adjustErr error
	insertErr error
	deleteErr error
}

func newSpyStore(db *gorm.DB) *spyStore {
	return &spyStore{Store: NewGormStore(db), writes: new(int)}
}

func (s *spyStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.Store.Transaction(ctx, func(tx Store) error {
		return fn(&spyStore{Store: tx, writes: s.writes, adjustErr: s.adjustErr, insertErr: s.insertErr, deleteErr: s.deleteErr})
	})
}

func (s *spyStore) AdjustProject(ctx context.Context, adj ProjectAdjustment) error {
	*s.writes++
	if s.adjustErr != nil {
		return s.adjustErr
	}
	return s.Store.AdjustProject(ctx, adj)
}

func (s *spyStore) InsertBudgetItems(ctx context.Context, items []models.ProjectBudgetItem) error {
	*s.writes++
	if s.insertErr != nil {
		// write part of the batch first so a rollback is observable
		if err := s.Store.InsertBudgetItems(ctx, items[:1]); err != nil {
			return err
		}
		return s.insertErr
	}
	return s.Store.InsertBudgetItems(ctx, items)
}

func (s *spyStore) DeleteBudgetItemsByChangeOrder(ctx context.Context, id uint) (int64, error) {
	*s.writes++
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	return s.Store.DeleteBudgetItemsByChangeOrder(ctx, id)
}

func (s *spyStore) RescheduleWorkOrder(ctx context.Context, id uint, dueBy *time.Time, at time.Time) error {
	*s.writes++
	return s.Store.RescheduleWorkOrder(ctx, id, dueBy, at)
}

var errDisk = errors.New("disk full")

type applierFixture struct {
	db       *gorm.DB
	store    *spyStore
	notes    *notify.Collector
	applier  *Applier
	workflow *Workflow
}

func newFixture(t *testing.T, opts Options) *applierFixture {
	t.Helper()
	db := newTestDB(t)
	store := newSpyStore(db)
	notes := &notify.Collector{}
	opts.Clock = fixedClock
	applier := NewApplier(store, notes, zap.NewNop(), opts)
	return &applierFixture{
		db:       db,
		store:    store,
		notes:    notes,
		applier:  applier,
		workflow: NewWorkflow(db, applier, zap.NewNop()),
	}
}

func (f *applierFixture) lastNotification(t *testing.T) notify.Notification {
	t.Helper()
	items := f.notes.Items()
	require.NotEmpty(t, items)
	return items[len(items)-1]
}
