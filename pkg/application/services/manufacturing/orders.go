package manufacturing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
)

// Create registers a new draft order for a known product
func (s *Service) Create(ctx context.Context, actor dto.Actor, in dto.CreateOrderInput) (*entities.ManufacturingOrder, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	priority, err := in.Validate()
	if err != nil {
		return nil, err
	}

	if _, err := s.reference.GetProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}
	if in.BOMID != "" {
		if _, err := s.reference.GetBOM(ctx, in.BOMID); err != nil {
			return nil, err
		}
	}
	if in.RoutingID != "" {
		if _, err := s.reference.GetRouting(ctx, in.RoutingID); err != nil {
			return nil, err
		}
	}

	mo, err := entities.NewManufacturingOrder(uuid.NewString(), actor.TenantID, in.ProductID, in.ProductQty)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	mo.BOMID = in.BOMID
	mo.RoutingID = in.RoutingID
	mo.Priority = priority
	mo.DatePlannedStart = in.DatePlannedStart
	mo.DatePlannedFinished = in.DatePlannedFinished
	mo.CreatedAt = now
	mo.UpdatedAt = now

	mo.MONumber, err = s.orderNumber(ctx, actor.TenantID, now)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, mo); err != nil {
		return nil, storeErr(err, "create manufacturing order")
	}

	s.logger.Info("manufacturing order created",
		zap.String("mo_id", mo.ID),
		zap.String("mo_number", mo.MONumber),
		zap.String("tenant_id", actor.TenantID),
		zap.String("product_id", string(mo.ProductID)),
		zap.String("product_qty", mo.ProductQty.String()),
	)
	s.publish([]events.Event{events.NewOrderCreatedEvent(mo, now)})
	return mo, nil
}

// Get returns the committed state of an order
func (s *Service) Get(ctx context.Context, actor dto.Actor, id string) (*entities.ManufacturingOrder, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	return s.orders.Get(ctx, actor.TenantID, id)
}

// List returns the tenant's orders matching the query
func (s *Service) List(ctx context.Context, actor dto.Actor, query dto.ListOrdersQuery) ([]*entities.ManufacturingOrder, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	filter, err := query.ToFilter()
	if err != nil {
		return nil, err
	}
	return s.orders.List(ctx, actor.TenantID, filter)
}

// Confirm expands the BOM into held reservations and the routing into pending work orders
func (s *Service) Confirm(ctx context.Context, actor dto.Actor, id string) (*entities.ManufacturingOrder, error) {
	op, err := s.execute(ctx, actor, id, func(op *operation) error {
		mo := op.mo
		if err := mo.Transition(entities.OrderConfirmed); err != nil {
			return err
		}

		bom, err := s.resolveBOM(ctx, mo, true)
		if err != nil {
			return err
		}
		routing, workCenters, err := s.resolveRouting(ctx, mo)
		if err != nil {
			return err
		}
		mo.BOMID = bom.ID
		if routing != nil {
			mo.RoutingID = routing.ID
		}
		mo.WorkOrders = expandWorkOrders(mo, routing, workCenters)

		reserved, err := op.reserveMissing(mo, bom)
		if err != nil {
			return err
		}

		op.emit(events.NewOrderConfirmedEvent(mo, op.now))
		if reserved > 0 {
			op.emit(events.NewMaterialsReservedEvent(mo, reserved, op.now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.mo, nil
}

// Start moves a confirmed order into progress and readies the first work orders. Material
// shortfalls are logged and reported on the event unless strict availability is configured.
func (s *Service) Start(ctx context.Context, actor dto.Actor, id string) (*entities.ManufacturingOrder, error) {
	op, err := s.execute(ctx, actor, id, func(op *operation) error {
		mo := op.mo
		if err := mo.Transition(entities.OrderProgress); err != nil {
			return err
		}

		report, err := s.availability(ctx, mo)
		if err != nil {
			return err
		}
		if !report.Available {
			if s.config.StrictAvailability {
				return entities.NewConflictError(nil, "manufacturing order %s has %d missing materials",
					mo.ID, len(report.MissingMaterials))
			}
			for _, m := range report.MissingMaterials {
				s.logger.Warn("starting with material shortfall",
					zap.String("mo_id", mo.ID),
					zap.String("tenant_id", op.actor.TenantID),
					zap.String("product_id", string(m.ProductID)),
					zap.String("required_qty", m.RequiredQty.String()),
					zap.String("available_qty", m.AvailableQty.String()),
				)
			}
		}
		markAvailability(mo, report)

		start := op.now
		mo.DateStart = &start
		for _, wo := range mo.ReadyEligibleWorkOrders() {
			op.emit(events.NewWorkOrderStateChangedEvent(mo, wo, entities.WorkOrderPending.String(), "", op.actor.OperatorID, op.now))
		}
		op.emit(events.NewOrderStartedEvent(mo, report, op.now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.mo, nil
}

// Complete closes the order with the final produced quantity: open work orders are closed,
// components are consumed, leftover reservations are released and costing lines are finalized.
func (s *Service) Complete(ctx context.Context, actor dto.Actor, id string, in dto.CompleteOrderInput) (*entities.ManufacturingOrder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var summary *entities.CostSummary
	op, err := s.execute(ctx, actor, id, func(op *operation) error {
		mo := op.mo
		if err := mo.Transition(entities.OrderDone); err != nil {
			return err
		}
		mo.QtyProduced = in.QtyProduced
		if err := mo.CheckQuantities(s.config.AllowOverProduction); err != nil {
			return err
		}

		for _, wo := range mo.WorkOrders {
			from := events.WorkOrderLabel(wo)
			switch wo.State {
			case entities.WorkOrderPending, entities.WorkOrderReady:
				wo.Cancel(op.actor.OperatorID, op.now)
			case entities.WorkOrderProgress:
				if err := wo.Complete(op.actor.OperatorID, decimal.Zero, decimal.Zero, op.now); err != nil {
					return err
				}
			default:
				continue
			}
			op.emit(events.NewWorkOrderStateChangedEvent(mo, wo, from, "", op.actor.OperatorID, op.now))
		}

		bom, err := s.resolveBOM(ctx, mo, false)
		if err != nil {
			return err
		}
		released, err := op.releaseHeld(entities.ReservationDone)
		if err != nil {
			return err
		}
		consumptions, err := op.planConsumption(bom, mo.QtyProduced.Add(mo.QtyScrapped))
		if err != nil {
			return err
		}
		mo.Consumptions = append(mo.Consumptions, consumptions...)

		lines, err := s.costingLines(ctx, mo, bom, op.now)
		if err != nil {
			return err
		}
		for _, c := range consumptions {
			if err := op.consume(c.ProductID, c.Qty, c.UnitCost); err != nil {
				return err
			}
		}
		mo.CostingLines = append(mo.CostingLines, lines...)
		finished := op.now
		mo.DateFinished = &finished
		summary = entities.NewCostSummary(mo.ID, lines, true)

		if released > 0 {
			op.emit(events.NewMaterialsReleasedEvent(mo, released, op.now))
		}
		op.emit(events.NewOrderCompletedEvent(mo, summary, op.now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.mo, nil
}

// Cancel releases held materials and closes every unfinished work order. Terminal orders fail
// with an InvalidStateError.
func (s *Service) Cancel(ctx context.Context, actor dto.Actor, id string) (*entities.ManufacturingOrder, error) {
	op, err := s.execute(ctx, actor, id, func(op *operation) error {
		mo := op.mo
		from := mo.State
		if err := mo.Transition(entities.OrderCancel); err != nil {
			return err
		}

		released, err := op.releaseHeld(entities.ReservationCancelled)
		if err != nil {
			return err
		}
		for _, wo := range mo.WorkOrders {
			if wo.State == entities.WorkOrderDone || wo.State == entities.WorkOrderCancel {
				continue
			}
			label := events.WorkOrderLabel(wo)
			wo.Cancel(op.actor.OperatorID, op.now)
			op.emit(events.NewWorkOrderStateChangedEvent(mo, wo, label, "", op.actor.OperatorID, op.now))
		}

		op.emit(events.NewOrderCancelledEvent(mo, from, released, op.now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.mo, nil
}

// planConsumption values the BOM quantities for units actually built or scrapped at the
// inventory's current unit cost
func (op *operation) planConsumption(bom *entities.BOM, units decimal.Decimal) ([]entities.MaterialConsumption, error) {
	if bom == nil || !units.IsPositive() {
		return nil, nil
	}
	consumptions := make([]entities.MaterialConsumption, 0, len(bom.Lines))
	for _, line := range bom.Lines {
		qty, err := bom.ScaleQty(line.Qty, units)
		if err != nil {
			return nil, err
		}
		unitCost, err := op.svc.inventory.GetUnitCost(op.ctx, op.actor.TenantID, line.ProductID)
		if err != nil {
			return nil, entities.NewConflictError(err, "unit cost of %s", line.ProductID)
		}
		consumptions = append(consumptions, entities.MaterialConsumption{
			ProductID: line.ProductID,
			Qty:       qty,
			UnitCost:  unitCost,
		})
	}
	return consumptions, nil
}
