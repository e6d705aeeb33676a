package manufacturing

import (
	"context"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
)

// GetWorkOrder returns the committed state of a work order
func (s *Service) GetWorkOrder(ctx context.Context, actor dto.Actor, id string) (*entities.WorkOrder, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	mo, err := s.orders.FindByWorkOrder(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	return mo.WorkOrder(id), nil
}

// onWorkOrder runs fn for the work order under its owning order's lock
func (s *Service) onWorkOrder(
	ctx context.Context,
	actor dto.Actor,
	id string,
	fn func(op *operation, wo *entities.WorkOrder) error,
) (*entities.WorkOrder, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	owner, err := s.orders.FindByWorkOrder(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	op, err := s.execute(ctx, actor, owner.ID, func(op *operation) error {
		wo := op.mo.WorkOrder(id)
		if wo == nil {
			return entities.NewNotFoundError("work order", id)
		}
		return fn(op, wo)
	})
	if err != nil {
		return nil, err
	}
	return op.mo.WorkOrder(id), nil
}

// StartWorkOrder begins a pending or ready work order once every earlier operation is finished
func (s *Service) StartWorkOrder(ctx context.Context, actor dto.Actor, id string) (*entities.WorkOrder, error) {
	return s.onWorkOrder(ctx, actor, id, func(op *operation, wo *entities.WorkOrder) error {
		mo := op.mo
		if err := mo.RequireState("start work order", entities.OrderProgress, entities.OrderToClose); err != nil {
			return err
		}
		from := events.WorkOrderLabel(wo)
		if wo.State == entities.WorkOrderPending && !mo.PredecessorsDone(wo) {
			return entities.NewInvalidStateError("work order", wo.ID, from+" (waiting on an earlier operation)",
				entities.WorkOrderProgress.String())
		}
		if err := wo.Start(op.actor.OperatorID, op.now); err != nil {
			return err
		}
		op.emit(events.NewWorkOrderStateChangedEvent(mo, wo, from, entities.ActivityStart.String(), op.actor.OperatorID, op.now))
		return nil
	})
}

// PauseWorkOrder stops the active interval; the reason is kept as downtime reason
func (s *Service) PauseWorkOrder(ctx context.Context, actor dto.Actor, id string, in dto.PauseWorkOrderInput) (*entities.WorkOrder, error) {
	return s.onWorkOrder(ctx, actor, id, func(op *operation, wo *entities.WorkOrder) error {
		from := events.WorkOrderLabel(wo)
		if err := wo.Pause(op.actor.OperatorID, in.Reason, op.now); err != nil {
			return err
		}
		op.emit(events.NewWorkOrderStateChangedEvent(op.mo, wo, from, entities.ActivityPause.String(), op.actor.OperatorID, op.now))
		return nil
	})
}

// ResumeWorkOrder opens a new active interval
func (s *Service) ResumeWorkOrder(ctx context.Context, actor dto.Actor, id string) (*entities.WorkOrder, error) {
	return s.onWorkOrder(ctx, actor, id, func(op *operation, wo *entities.WorkOrder) error {
		from := events.WorkOrderLabel(wo)
		if err := wo.Resume(op.actor.OperatorID, op.now); err != nil {
			return err
		}
		op.emit(events.NewWorkOrderStateChangedEvent(op.mo, wo, from, entities.ActivityResume.String(), op.actor.OperatorID, op.now))
		return nil
	})
}

// CompleteWorkOrder finishes a work order and reports its quantities to the order. Completing the
// last operation sets the order's produced quantity; once every work order is finished the order
// moves to to_close.
func (s *Service) CompleteWorkOrder(ctx context.Context, actor dto.Actor, id string, in dto.CompleteWorkOrderInput) (*entities.WorkOrder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.onWorkOrder(ctx, actor, id, func(op *operation, wo *entities.WorkOrder) error {
		mo := op.mo
		from := events.WorkOrderLabel(wo)
		if err := wo.Complete(op.actor.OperatorID, in.QtyProduced, in.QtyScrapped, op.now); err != nil {
			return err
		}

		mo.QtyScrapped = mo.QtyScrapped.Add(in.QtyScrapped)
		if last := mo.LastWorkOrder(); last != nil && last.ID == wo.ID {
			mo.QtyProduced = wo.QtyProduced
		}
		if err := mo.CheckQuantities(s.config.AllowOverProduction); err != nil {
			return err
		}
		op.emit(events.NewWorkOrderStateChangedEvent(mo, wo, from, entities.ActivityComplete.String(), op.actor.OperatorID, op.now))

		for _, next := range mo.ReadyEligibleWorkOrders() {
			op.emit(events.NewWorkOrderStateChangedEvent(mo, next, entities.WorkOrderPending.String(), "", op.actor.OperatorID, op.now))
		}
		if mo.State == entities.OrderProgress && mo.AllWorkOrdersFinished() {
			if err := mo.Transition(entities.OrderToClose); err != nil {
				return err
			}
			op.emit(events.NewOrderToCloseEvent(mo, op.now))
		}
		return nil
	})
}

// RecordScrap adds scrap to a running work order and to its order
func (s *Service) RecordScrap(ctx context.Context, actor dto.Actor, id string, in dto.RecordScrapInput) (*entities.WorkOrder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.onWorkOrder(ctx, actor, id, func(op *operation, wo *entities.WorkOrder) error {
		mo := op.mo
		if err := wo.RecordScrap(op.actor.OperatorID, in.Qty, in.Reason, op.now); err != nil {
			return err
		}
		mo.QtyScrapped = mo.QtyScrapped.Add(in.Qty)
		if err := mo.CheckQuantities(s.config.AllowOverProduction); err != nil {
			return err
		}
		op.emit(events.NewScrapRecordedEvent(mo, wo, in.Qty, in.Reason, op.actor.OperatorID, op.now))
		return nil
	})
}
