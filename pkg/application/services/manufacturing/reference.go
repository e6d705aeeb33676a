package manufacturing

import (
	"context"
	"errors"
	"sort"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// resolveBOM returns the order's BOM, falling back to the product default. A missing BOM is a
// ConflictError when required, otherwise nil.
func (s *Service) resolveBOM(ctx context.Context, mo *entities.ManufacturingOrder, required bool) (*entities.BOM, error) {
	var (
		bom *entities.BOM
		err error
	)
	if mo.BOMID != "" {
		bom, err = s.reference.GetBOM(ctx, mo.BOMID)
	} else {
		bom, err = s.reference.FindBOMByProduct(ctx, mo.ProductID)
	}
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) && !required {
			return nil, nil
		}
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.NewConflictError(err, "no BOM resolvable for manufacturing order %s", mo.ID)
		}
		return nil, entities.NewConflictError(err, "load BOM for manufacturing order %s", mo.ID)
	}

	if bom.ProductID != mo.ProductID {
		return nil, entities.NewConflictError(nil, "bom %s builds %s, not %s", bom.ID, bom.ProductID, mo.ProductID)
	}
	if err := s.validator.ValidateBOM(bom).Err("bom " + bom.ID); err != nil {
		return nil, err
	}
	return bom, nil
}

// resolveRouting returns the order's routing (or the product default) with its work centers.
// Orders without any routing get no work orders.
func (s *Service) resolveRouting(ctx context.Context, mo *entities.ManufacturingOrder) (*entities.Routing, map[string]*entities.WorkCenter, error) {
	var (
		routing *entities.Routing
		err     error
	)
	if mo.RoutingID != "" {
		routing, err = s.reference.GetRouting(ctx, mo.RoutingID)
	} else {
		routing, err = s.reference.FindRoutingByProduct(ctx, mo.ProductID)
		if errors.Is(err, entities.ErrNotFound) {
			return nil, map[string]*entities.WorkCenter{}, nil
		}
	}
	if err != nil {
		return nil, nil, entities.NewConflictError(err, "load routing for manufacturing order %s", mo.ID)
	}

	ids := make([]string, 0, len(routing.Operations))
	for _, op := range routing.Operations {
		ids = append(ids, op.WorkCenterID)
	}
	workCenters, err := s.workCenters(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	if err := s.validator.ValidateRouting(routing, workCenters).Err("routing " + routing.ID); err != nil {
		return nil, nil, err
	}

	sort.SliceStable(routing.Operations, func(i, j int) bool {
		return routing.Operations[i].Sequence < routing.Operations[j].Sequence
	})
	return routing, workCenters, nil
}

// workCenters loads the distinct work centers; unknown ids are left out for the validator to report
func (s *Service) workCenters(ctx context.Context, ids []string) (map[string]*entities.WorkCenter, error) {
	result := make(map[string]*entities.WorkCenter, len(ids))
	for _, id := range ids {
		if _, done := result[id]; done {
			continue
		}
		wc, err := s.reference.GetWorkCenter(ctx, id)
		if errors.Is(err, entities.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, entities.NewConflictError(err, "load work center %s", id)
		}
		result[id] = wc
	}
	return result, nil
}

// products loads every product referenced by the BOM lines
func (s *Service) products(ctx context.Context, bom *entities.BOM) (map[entities.ProductID]*entities.Product, error) {
	result := make(map[entities.ProductID]*entities.Product)
	if bom == nil {
		return result, nil
	}
	for _, line := range bom.Lines {
		p, err := s.reference.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, entities.NewConflictError(err, "load component %s", line.ProductID)
		}
		result[line.ProductID] = p
	}
	return result, nil
}

// expandWorkOrders creates one pending work order per routing operation, in sequence order
func expandWorkOrders(mo *entities.ManufacturingOrder, routing *entities.Routing, workCenters map[string]*entities.WorkCenter) []*entities.WorkOrder {
	if routing == nil {
		return nil
	}
	workOrders := make([]*entities.WorkOrder, 0, len(routing.Operations))
	for _, op := range routing.Operations {
		workOrders = append(workOrders, entities.NewWorkOrder(mo.ID, op, mo.ProductQty, workCenters[op.WorkCenterID]))
	}
	return workOrders
}
