package changeorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crew-connect/internal/database"
	"crew-connect/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor is the user performing a workflow step.
type Actor struct {
	UserID uint
	Role   models.UserRole
}

// Workflow owns the change-order lifecycle: creation, status transitions and
// the impact calls those transitions trigger.
type Workflow struct {
	db      *gorm.DB
	applier *Applier
	log     *zap.Logger
	clock   func() time.Time
}

func NewWorkflow(db *gorm.DB, applier *Applier, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{db: db, applier: applier, log: log, clock: applier.clock}
}

type ItemInput struct {
	Description string          `json:"description"`
	ItemType    string          `json:"item_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateInput struct {
	EntityType    models.EntityType `json:"entity_type"`
	EntityID      uint              `json:"entity_id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	CostImpact    decimal.Decimal   `json:"cost_impact"`
	RevenueImpact decimal.Decimal   `json:"revenue_impact"`
	ImpactDays    int               `json:"impact_days"`
	Items         []ItemInput       `json:"items"`
}

// Create validates the input and stores a new DRAFT change order with its items.
func (w *Workflow) Create(ctx context.Context, in CreateInput, actor Actor) (models.ChangeOrder, error) {
	title := strings.TrimSpace(in.Title)
	if len(title) < 3 {
		return models.ChangeOrder{}, invalid("title must be at least 3 characters")
	}
	if !canCreate(actor.Role) {
		return models.ChangeOrder{}, ErrForbidden
	}
	if err := w.checkTarget(ctx, in.EntityType, in.EntityID); err != nil {
		return models.ChangeOrder{}, err
	}

	co := models.ChangeOrder{
		EntityType:    in.EntityType,
		EntityID:      in.EntityID,
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Status:        models.ChangeOrderDraft,
		CostImpact:    in.CostImpact.Round(2),
		RevenueImpact: in.RevenueImpact.Round(2),
		ImpactDays:    in.ImpactDays,
		RequestedBy:   actor.UserID,
	}
	for i, item := range in.Items {
		if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
			return models.ChangeOrder{}, invalid(fmt.Sprintf("item %d: quantity and unit price must not be negative", i+1))
		}
		co.Items = append(co.Items, models.ChangeOrderItem{
			Description: strings.TrimSpace(item.Description),
			ItemType:    strings.TrimSpace(item.ItemType),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	co.RecalculateTotals()

	if err := w.db.WithContext(ctx).Create(&co).Error; err != nil {
		return models.ChangeOrder{}, &WriteError{Op: "create change order", Err: err}
	}

	database.CreateAuditLog(w.db.WithContext(ctx), actor.UserID, "change_order", co.ID, "create",
		"Created change order: "+co.Title)
	w.log.Info("change order created", zap.Uint("change_order_id", co.ID),
		zap.String("entity_type", string(co.EntityType)), zap.Uint("entity_id", co.EntityID))
	return co, nil
}

func (w *Workflow) checkTarget(ctx context.Context, entityType models.EntityType, id uint) error {
	var target interface{}
	switch entityType {
	case models.EntityProject:
		target = &models.Project{}
	case models.EntityWorkOrder:
		target = &models.WorkOrder{}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedEntity, entityType)
	}

	var count int64
	if err := w.db.WithContext(ctx).Model(target).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound(strings.ToLower(strings.ReplaceAll(string(entityType), "_", " ")), id)
	}
	return nil
}

// Get loads a change order with its items in entry order.
func (w *Workflow) Get(ctx context.Context, id uint) (models.ChangeOrder, error) {
	var co models.ChangeOrder
	err := w.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&co, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ChangeOrder{}, notFound("change order", id)
	}
	return co, err
}

type ListFilter struct {
	EntityType models.EntityType
	EntityID   uint
	Status     models.ChangeOrderStatus
}

func (w *Workflow) List(ctx context.Context, f ListFilter) ([]models.ChangeOrder, error) {
	q := w.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("created_at desc")

	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var out []models.ChangeOrder
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// StatusChange is the result of a persisted status transition.
type StatusChange struct {
	ChangeOrder models.ChangeOrder
	Previous    models.ChangeOrderStatus
	// ImpactErr is the failure of the apply/revert step triggered by the
	// transition. The new status stays persisted either way.
	ImpactErr error
}

// ChangeStatus moves a change order to next, then applies or reverts its impact.
// Whether the parent carries the impact is read from the change order's
// applied marker rather than its previous status: entering an approved state
// applies only when the marker is unset, so IMPLEMENTED retries a failed
// approval and never applies twice, and rejecting or cancelling reverts only
// an impact that actually landed.
func (w *Workflow) ChangeStatus(ctx context.Context, id uint, next models.ChangeOrderStatus, actor Actor) (StatusChange, error) {
	if !next.Valid() {
		return StatusChange{}, invalid(fmt.Sprintf("unknown status %q", next))
	}

	co, err := w.Get(ctx, id)
	if err != nil {
		return StatusChange{}, err
	}
	prev := co.Status

	if !canTransition(prev, next) {
		return StatusChange{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, next)
	}
	if !canChangeStatus(actor.Role, prev, next) {
		return StatusChange{}, fmt.Errorf("%w: %s cannot move %s -> %s", ErrForbidden, actor.Role, prev, next)
	}

	updates := map[string]interface{}{"status": next}
	if next == models.ChangeOrderApproved || (next.AppliesImpact() && co.ApprovedAt == nil) {
		now := w.clock()
		updates["approved_by"] = actor.UserID
		updates["approved_at"] = now
		co.ApprovedBy = &actor.UserID
		co.ApprovedAt = &now
	}

	// optimistic check on the previous status
	res := w.db.WithContext(ctx).
		Model(&models.ChangeOrder{}).
		Where("id = ? AND status = ?", co.ID, prev).
		Updates(updates)
	if res.Error != nil {
		return StatusChange{}, &WriteError{Op: "update change order status", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return StatusChange{}, ErrConflict
	}
	co.Status = next

	database.CreateAuditLog(w.db.WithContext(ctx), actor.UserID, "change_order", co.ID, "status_change",
		fmt.Sprintf("Status changed: %s -> %s", prev, next))

	change := StatusChange{ChangeOrder: co, Previous: prev}
	switch {
	case next.AppliesImpact() && co.ImpactAppliedAt == nil:
		change.ImpactErr = w.applier.Apply(ctx, co)
	case next.RevertsImpact() && co.ImpactAppliedAt != nil:
		change.ImpactErr = w.applier.Revert(ctx, co)
	default:
		return change, nil
	}

	// pick up the applied marker written by the applier
	if fresh, err := w.Get(ctx, co.ID); err == nil {
		change.ChangeOrder = fresh
	}
	return change, nil
}

var transitions = map[models.ChangeOrderStatus][]models.ChangeOrderStatus{
	models.ChangeOrderDraft:     {models.ChangeOrderSubmitted, models.ChangeOrderCancelled},
	models.ChangeOrderSubmitted: {models.ChangeOrderReview, models.ChangeOrderApproved, models.ChangeOrderRejected, models.ChangeOrderCancelled},
	models.ChangeOrderReview:    {models.ChangeOrderApproved, models.ChangeOrderRejected, models.ChangeOrderCancelled},
	models.ChangeOrderApproved:  {models.ChangeOrderImplemented, models.ChangeOrderCancelled},
	models.ChangeOrderRejected:  {models.ChangeOrderDraft},
}

func canTransition(current, next models.ChangeOrderStatus) bool {
	for _, s := range transitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// role rules
func canChangeStatus(role models.UserRole, current, next models.ChangeOrderStatus) bool {
	switch role {

	case models.RoleAdmin, models.RoleProjectManager:
		return true

	case models.RoleEstimator:
		switch current {
		case models.ChangeOrderDraft:
			return next == models.ChangeOrderSubmitted || next == models.ChangeOrderCancelled
		case models.ChangeOrderRejected:
			return next == models.ChangeOrderDraft
		}
		return false

	default:
		return false
	}
}

func canCreate(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleProjectManager || role == models.RoleEstimator
}
