package changeorder

import (
	"context"
	"errors"
	"time"

	"crew-connect/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the slice of the relational store the impact applier writes to.
type Store interface {
	// Transaction runs fn against a store bound to a single transaction.
	// Calling it on a store passed to fn opens a savepoint.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	LockProject(ctx context.Context, id uint) (models.Project, error)
	AdjustProject(ctx context.Context, adj ProjectAdjustment) error
	InsertBudgetItems(ctx context.Context, items []models.ProjectBudgetItem) error
	DeleteBudgetItemsByChangeOrder(ctx context.Context, changeOrderID uint) (int64, error)

	LockWorkOrder(ctx context.Context, id uint) (models.WorkOrder, error)
	RescheduleWorkOrder(ctx context.Context, id uint, dueBy *time.Time, at time.Time) error

	// SetImpactApplied records (at != nil) or clears (at == nil) the marker
	// saying the change order's impact is carried by its parent.
	SetImpactApplied(ctx context.Context, changeOrderID uint, at *time.Time) error
}

// ProjectAdjustment is applied as relative increments, never as absolute values,
// so concurrent writers cannot lose each other's updates.
type ProjectAdjustment struct {
	ProjectID     uint
	BudgetDelta   decimal.Decimal
	ContractDelta decimal.Decimal
	// nil leaves target_end_date untouched
	TargetEndDate *time.Time
	UpdatedAt     time.Time
}

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// locking returns the row-lock clause for dialects that have one.
func (s *GormStore) locking() []clause.Expression {
	if s.db.Dialector.Name() == "postgres" {
		return []clause.Expression{clause.Locking{Strength: "UPDATE"}}
	}
	return nil
}

func (s *GormStore) LockProject(ctx context.Context, id uint) (models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).
		Clauses(s.locking()...).
		Select("id", "total_budget", "contract_value", "target_end_date").
		First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Project{}, notFound("project", id)
	}
	return p, err
}

func (s *GormStore) AdjustProject(ctx context.Context, adj ProjectAdjustment) error {
	updates := map[string]interface{}{
		"total_budget":   gorm.Expr("total_budget + ?", adj.BudgetDelta),
		"contract_value": gorm.Expr("contract_value + ?", adj.ContractDelta),
		"updated_at":     adj.UpdatedAt,
	}
	if adj.TargetEndDate != nil {
		updates["target_end_date"] = *adj.TargetEndDate
	}

	res := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", adj.ProjectID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("project", adj.ProjectID)
	}
	return nil
}

func (s *GormStore) InsertBudgetItems(ctx context.Context, items []models.ProjectBudgetItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&items).Error
}

func (s *GormStore) DeleteBudgetItemsByChangeOrder(ctx context.Context, changeOrderID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("change_order_id = ?", changeOrderID).
		Delete(&models.ProjectBudgetItem{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) LockWorkOrder(ctx context.Context, id uint) (models.WorkOrder, error) {
	var wo models.WorkOrder
	err := s.db.WithContext(ctx).
		Clauses(s.locking()...).
		Select("id", "due_by_date").
		First(&wo, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.WorkOrder{}, notFound("work order", id)
	}
	return wo, err
}

func (s *GormStore) RescheduleWorkOrder(ctx context.Context, id uint, dueBy *time.Time, at time.Time) error {
	updates := map[string]interface{}{"updated_at": at}
	if dueBy != nil {
		updates["due_by_date"] = *dueBy
	}

	res := s.db.WithContext(ctx).
		Model(&models.WorkOrder{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("work order", id)
	}
	return nil
}

// SetImpactApplied touches no row for a change order that was never persisted.
func (s *GormStore) SetImpactApplied(ctx context.Context, changeOrderID uint, at *time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.ChangeOrder{}).
		Where("id = ?", changeOrderID).
		UpdateColumn("impact_applied_at", at).Error
}
