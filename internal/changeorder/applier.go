package changeorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crew-connect/internal/metrics"
	"crew-connect/internal/models"
	"crew-connect/internal/notify"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	opApply  = "apply"
	opRevert = "revert"
)

type Options struct {
	// StrictBudgetItems makes a failed budget-item write roll back the
	// financial update of the same change order. By default the failure is
	// reported as a warning and the financial update stays committed.
	StrictBudgetItems bool

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Applier carries an approved change order's cost, revenue and schedule impact
// onto its parent project or work order, and withdraws it again when the
// change order is rejected or cancelled.
type Applier struct {
	store    Store
	notifier notify.Notifier
	log      *zap.Logger
	clock    func() time.Time
	strict   bool
}

func NewApplier(store Store, notifier notify.Notifier, log *zap.Logger, opts Options) *Applier {
	if notifier == nil {
		notifier = notify.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Applier{
		store:    store,
		notifier: notifier,
		log:      log,
		clock:    clock,
		strict:   opts.StrictBudgetItems,
	}
}

// outcome describes what a single apply/revert did, for notifications and metrics.
type outcome struct {
	itemsErr     error
	itemsCreated int
	itemsDeleted int64
	newDate      *time.Time
	skipped      bool
}

// Apply carries the impact of a change order whose APPROVED or IMPLEMENTED
// status has already been persisted. Any other status is a no-op. A nil error
// means success; a budget-item failure outside strict mode is reported through
// the notifier but does not fail the call.
func (a *Applier) Apply(ctx context.Context, co models.ChangeOrder) error {
	if !co.Status.AppliesImpact() {
		a.log.Debug("change order not approved, impact not applied",
			zap.Uint("change_order_id", co.ID), zap.String("status", string(co.Status)))
		a.record(opApply, co, metrics.OutcomeSkipped)
		return nil
	}

	var (
		out outcome
		err error
	)
	switch co.EntityType {
	case models.EntityProject:
		out, err = a.applyProject(ctx, co)
	case models.EntityWorkOrder:
		out, err = a.applyWorkOrder(ctx, co)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedEntity, co.EntityType)
	}

	return a.finish(ctx, opApply, co, out, err)
}

// Revert withdraws the impact of a change order whose REJECTED or CANCELLED
// status has already been persisted. Any other status is a no-op.
func (a *Applier) Revert(ctx context.Context, co models.ChangeOrder) error {
	if !co.Status.RevertsImpact() {
		a.log.Debug("change order not rejected or cancelled, impact not reverted",
			zap.Uint("change_order_id", co.ID), zap.String("status", string(co.Status)))
		a.record(opRevert, co, metrics.OutcomeSkipped)
		return nil
	}

	var (
		out outcome
		err error
	)
	switch co.EntityType {
	case models.EntityProject:
		out, err = a.revertProject(ctx, co)
	case models.EntityWorkOrder:
		// TODO: reverse the due-date shift once product decides whether a
		// cancelled work-order change order should pull the date back in.
		// Until then the applied marker stays set along with the shift.
		a.log.Info("work order schedule not reverted",
			zap.Uint("change_order_id", co.ID), zap.Uint("work_order_id", co.EntityID))
		out.skipped = true
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedEntity, co.EntityType)
	}

	return a.finish(ctx, opRevert, co, out, err)
}

func (a *Applier) applyProject(ctx context.Context, co models.ChangeOrder) (outcome, error) {
	var out outcome
	now := a.clock()

	err := a.store.Transaction(ctx, func(tx Store) error {
		project, err := tx.LockProject(ctx, co.EntityID)
		if err != nil {
			return err
		}

		out.newDate = shiftDate(project.TargetEndDate, co.ImpactDays)
		err = tx.AdjustProject(ctx, ProjectAdjustment{
			ProjectID:     project.ID,
			BudgetDelta:   co.CostImpact,
			ContractDelta: co.RevenueImpact,
			TargetEndDate: out.newDate,
			UpdatedAt:     now,
		})
		if err != nil {
			return &WriteError{Op: "update project", Err: err}
		}
		if err := tx.SetImpactApplied(ctx, co.ID, &now); err != nil {
			return &WriteError{Op: "mark change order applied", Err: err}
		}

		items := BudgetItems(co)
		if len(items) == 0 {
			return nil
		}
		err = tx.Transaction(ctx, func(sp Store) error {
			return sp.InsertBudgetItems(ctx, items)
		})
		if err != nil {
			out.itemsErr = &WriteError{Op: "insert budget items", Err: err}
			if a.strict {
				return out.itemsErr
			}
			return nil
		}
		out.itemsCreated = len(items)
		return nil
	})
	if err != nil {
		return outcome{}, err
	}
	return out, nil
}

func (a *Applier) applyWorkOrder(ctx context.Context, co models.ChangeOrder) (outcome, error) {
	var out outcome
	now := a.clock()

	err := a.store.Transaction(ctx, func(tx Store) error {
		wo, err := tx.LockWorkOrder(ctx, co.EntityID)
		if err != nil {
			return err
		}

		out.newDate = shiftDate(wo.DueByDate, co.ImpactDays)
		if err := tx.RescheduleWorkOrder(ctx, wo.ID, out.newDate, now); err != nil {
			return &WriteError{Op: "update work order", Err: err}
		}
		if err := tx.SetImpactApplied(ctx, co.ID, &now); err != nil {
			return &WriteError{Op: "mark change order applied", Err: err}
		}
		return nil
	})
	if err != nil {
		return outcome{}, err
	}
	return out, nil
}

// revertProject subtracts the financial impact only; the schedule shift made
// on approval is left in place.
func (a *Applier) revertProject(ctx context.Context, co models.ChangeOrder) (outcome, error) {
	var out outcome
	now := a.clock()

	err := a.store.Transaction(ctx, func(tx Store) error {
		project, err := tx.LockProject(ctx, co.EntityID)
		if err != nil {
			return err
		}

		err = tx.AdjustProject(ctx, ProjectAdjustment{
			ProjectID:     project.ID,
			BudgetDelta:   co.CostImpact.Neg(),
			ContractDelta: co.RevenueImpact.Neg(),
			UpdatedAt:     now,
		})
		if err != nil {
			return &WriteError{Op: "update project", Err: err}
		}
		if err := tx.SetImpactApplied(ctx, co.ID, nil); err != nil {
			return &WriteError{Op: "clear change order applied", Err: err}
		}

		err = tx.Transaction(ctx, func(sp Store) error {
			n, err := sp.DeleteBudgetItemsByChangeOrder(ctx, co.ID)
			out.itemsDeleted = n
			return err
		})
		if err != nil {
			out.itemsDeleted = 0
			out.itemsErr = &WriteError{Op: "delete budget items", Err: err}
			if a.strict {
				return out.itemsErr
			}
		}
		return nil
	})
	if err != nil {
		return outcome{}, err
	}
	return out, nil
}

// shiftDate returns d moved forward by days calendar days, or nil when the
// date is unset or the impact does not push it out.
func shiftDate(d *time.Time, days int) *time.Time {
	if d == nil || days <= 0 {
		return nil
	}
	shifted := d.AddDate(0, 0, days)
	return &shifted
}

// finish logs, counts and notifies once the store work is settled. It runs
// after the transaction so notifiers that write to the database never contend
// with it.
func (a *Applier) finish(ctx context.Context, op string, co models.ChangeOrder, out outcome, err error) error {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.Uint("change_order_id", co.ID),
		zap.String("entity_type", string(co.EntityType)),
		zap.Uint("entity_id", co.EntityID),
	}

	if err != nil {
		a.log.Error("change order impact failed", append(fields, zap.Error(err))...)
		a.record(op, co, metrics.OutcomeFailed)
		a.notify(ctx, co, notify.Notification{
			Title:       failureTitle(op, err),
			Description: err.Error(),
			Severity:    notify.SeverityError,
		})
		return err
	}

	metrics.BudgetItemsCreatedTotal.Add(float64(out.itemsCreated))
	metrics.BudgetItemsDeletedTotal.Add(float64(out.itemsDeleted))

	if out.itemsErr != nil {
		a.log.Warn("change order budget items not updated", append(fields, zap.Error(out.itemsErr))...)
		a.record(op, co, metrics.OutcomePartial)
		a.notify(ctx, co, notify.Notification{
			Title:       "Budget items not updated",
			Description: fmt.Sprintf("%s was %s, but its budget items could not be updated: %v", co.Title, pastTense(op), out.itemsErr),
			Severity:    notify.SeverityWarning,
		})
		return nil
	}

	if out.skipped {
		a.record(op, co, metrics.OutcomeSkipped)
	} else {
		a.record(op, co, metrics.OutcomeApplied)
	}
	a.log.Info("change order impact "+pastTense(op), append(fields,
		zap.Int("budget_items_created", out.itemsCreated),
		zap.Int64("budget_items_deleted", out.itemsDeleted))...)
	a.notify(ctx, co, notify.Notification{
		Title:       "Change order " + pastTense(op),
		Description: summary(op, co, out),
		Severity:    notify.SeverityInfo,
	})
	return nil
}

func (a *Applier) notify(ctx context.Context, co models.ChangeOrder, n notify.Notification) {
	n.Entity = "change_order"
	n.EntityID = co.ID
	a.notifier.Notify(ctx, n)
	if scoped := notify.FromContext(ctx); scoped != nil {
		scoped.Notify(ctx, n)
	}
}

func (a *Applier) record(op string, co models.ChangeOrder, result string) {
	entity := string(co.EntityType)
	if co.EntityType != models.EntityProject && co.EntityType != models.EntityWorkOrder {
		entity = "unsupported"
	}
	metrics.ImpactOperationsTotal.WithLabelValues(op, entity, result).Inc()
}

func failureTitle(op string, err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Change order target not found"
	case errors.Is(err, ErrUnsupportedEntity):
		return "Unsupported change order target"
	}
	if op == opRevert {
		return "Failed to revert change order"
	}
	return "Failed to apply change order"
}

func pastTense(op string) string {
	if op == opRevert {
		return "reverted"
	}
	return "applied"
}

func summary(op string, co models.ChangeOrder, out outcome) string {
	switch {
	case co.EntityType == models.EntityWorkOrder && op == opRevert:
		return fmt.Sprintf("%s: work order schedule left unchanged", co.Title)
	case co.EntityType == models.EntityWorkOrder:
		if out.newDate != nil {
			return fmt.Sprintf("%s: work order due date moved to %s", co.Title, out.newDate.Format("2006-01-02"))
		}
		return fmt.Sprintf("%s: work order schedule unchanged", co.Title)
	case op == opRevert:
		return fmt.Sprintf("%s: budget %s, contract value %s, %d budget items removed",
			co.Title, signed(co.CostImpact.Neg()), signed(co.RevenueImpact.Neg()), out.itemsDeleted)
	}
	s := fmt.Sprintf("%s: budget %s, contract value %s, %d budget items added",
		co.Title, signed(co.CostImpact), signed(co.RevenueImpact), out.itemsCreated)
	if out.newDate != nil {
		s += ", target end date " + out.newDate.Format("2006-01-02")
	}
	return s
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}
