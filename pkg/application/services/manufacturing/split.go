package manufacturing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
)

// Split moves qty of a non-terminal order into a new sibling order in the same state, except that
// the child of a to_close order is in progress since none of its work orders have run.
// Parent reservations shrink proportionally and the child gets its own reservations and a fresh
// set of work orders, so parent after plus child equals parent before.
func (s *Service) Split(ctx context.Context, actor dto.Actor, id string, in dto.SplitOrderInput) (*dto.SplitResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	op, err := s.execute(ctx, actor, id, func(op *operation) error {
		parent := op.mo
		if err := parent.RequireState("split", entities.OrderDraft, entities.OrderConfirmed, entities.OrderProgress, entities.OrderToClose); err != nil {
			return err
		}
		before := parent.ProductQty
		if in.Qty.GreaterThanOrEqual(before) {
			return entities.NewValidationError("qty", "must be less than product_qty %s, got %s", before, in.Qty)
		}

		after := before.Sub(in.Qty)
		parent.ProductQty = after
		if err := parent.CheckQuantities(s.config.AllowOverProduction); err != nil {
			return entities.NewValidationError("qty", "splitting %s leaves %s, below produced %s plus scrapped %s",
				in.Qty, after, parent.QtyProduced, parent.QtyScrapped)
		}
		parent.SplitCount++

		child, err := s.newChild(op, parent, in)
		if err != nil {
			return err
		}
		op.child = child

		released := 0
		if parent.State != entities.OrderDraft {
			// child reserves precede parent releases; a failed reserve is undone by releases alone
			reserved, err := s.expandChild(op, child)
			if err != nil {
				return err
			}
			released, err = op.shrinkReservations(parent, after, before)
			if err != nil {
				return err
			}
			if reserved > 0 {
				op.emit(events.NewMaterialsReservedEvent(child, reserved, op.now))
			}
		}

		op.emit(events.NewOrderSplitEvent(parent, child, in.Reason, op.now))
		op.emit(events.NewOrderCreatedEvent(child, op.now))
		if released > 0 {
			op.emit(events.NewMaterialsReleasedEvent(parent, released, op.now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.SplitResult{Parent: op.mo, Child: op.child}, nil
}

func (s *Service) newChild(op *operation, parent *entities.ManufacturingOrder, in dto.SplitOrderInput) (*entities.ManufacturingOrder, error) {
	child, err := entities.NewManufacturingOrder(uuid.NewString(), parent.TenantID, parent.ProductID, in.Qty)
	if err != nil {
		return nil, err
	}
	child.MONumber = fmt.Sprintf("%s-%d", parent.MONumber, parent.SplitCount)
	child.State = parent.State
	if child.State == entities.OrderToClose {
		child.State = entities.OrderProgress
	}
	child.BOMID = parent.BOMID
	child.RoutingID = parent.RoutingID
	child.Priority = parent.Priority
	child.SplitFromID = parent.ID
	child.SplitReason = in.Reason
	child.CreatedAt = op.now
	child.UpdatedAt = op.now
	if parent.DatePlannedStart != nil {
		planned := *parent.DatePlannedStart
		child.DatePlannedStart = &planned
	}
	if parent.DatePlannedFinished != nil {
		planned := *parent.DatePlannedFinished
		child.DatePlannedFinished = &planned
	}
	return child, nil
}

// shrinkReservations scales held reservations to after/before and releases the difference
func (op *operation) shrinkReservations(mo *entities.ManufacturingOrder, after, before decimal.Decimal) (int, error) {
	count := 0
	for _, r := range mo.HeldReservations() {
		scaled := r.ProductUOMQty.Mul(after).Div(before)
		diff := r.ProductUOMQty.Sub(scaled)
		if !diff.IsPositive() {
			continue
		}
		if err := op.release(r.ProductID, diff); err != nil {
			return count, err
		}
		r.ProductUOMQty = scaled
		count++
	}
	return count, nil
}

// expandChild gives a confirmed or later child its own reservations and work orders. A child of a
// started order restarts at its first operation.
func (s *Service) expandChild(op *operation, child *entities.ManufacturingOrder) (int, error) {
	bom, err := s.resolveBOM(op.ctx, child, true)
	if err != nil {
		return 0, err
	}
	routing, workCenters, err := s.resolveRouting(op.ctx, child)
	if err != nil {
		return 0, err
	}
	child.WorkOrders = expandWorkOrders(child, routing, workCenters)

	reserved, err := op.reserveMissing(child, bom)
	if err != nil {
		return reserved, err
	}

	if child.State == entities.OrderProgress {
		start := op.now
		child.DateStart = &start
		child.ReadyEligibleWorkOrders()
	}
	return reserved, nil
}
