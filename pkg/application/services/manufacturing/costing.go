package manufacturing

import (
	"context"
	"time"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/services"
)

// CostSummary returns the persisted costing of a done order, or the running standard versus
// actual cost of any other order
func (s *Service) CostSummary(ctx context.Context, actor dto.Actor, id string) (*entities.CostSummary, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	mo, err := s.orders.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if mo.State == entities.OrderDone && len(mo.CostingLines) > 0 {
		return entities.NewCostSummary(mo.ID, mo.CostingLines, true), nil
	}

	bom, err := s.resolveBOM(ctx, mo, false)
	if err != nil {
		return nil, err
	}
	lines, err := s.costingLines(ctx, mo, bom, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return entities.NewCostSummary(mo.ID, lines, false), nil
}

// OEE reports the effectiveness of a work center over [from, to) across the tenant's orders
func (s *Service) OEE(ctx context.Context, actor dto.Actor, query dto.OEEQuery) (*services.OEEReport, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.reference.GetWorkCenter(ctx, query.WorkCenterID); err != nil {
		return nil, err
	}

	orders, err := s.orders.List(ctx, actor.TenantID, query.ToFilter())
	if err != nil {
		return nil, storeErr(err, "list orders of work center %s", query.WorkCenterID)
	}
	return s.oee.Compute(query.WorkCenterID, orders, query.From.UTC(), query.To.UTC(), s.now().UTC()), nil
}

// costingLines prices the order's BOM and routing against what its work orders and consumptions
// actually cost so far
func (s *Service) costingLines(ctx context.Context, mo *entities.ManufacturingOrder, bom *entities.BOM, now time.Time) ([]*entities.CostingLine, error) {
	products, err := s.products(ctx, bom)
	if err != nil {
		return nil, err
	}
	routing, workCenters, err := s.resolveRouting(ctx, mo)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(mo.WorkOrders))
	for _, wo := range mo.WorkOrders {
		if _, ok := workCenters[wo.WorkCenterID]; !ok {
			ids = append(ids, wo.WorkCenterID)
		}
	}
	extra, err := s.workCenters(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, wc := range extra {
		workCenters[id] = wc
	}

	standard, err := s.costs.StandardCost(bom, products, routing, workCenters, mo.ProductQty)
	if err != nil {
		return nil, err
	}
	actual := s.costs.ActualCost(mo, workCenters, now)
	return s.costs.Lines(standard, actual), nil
}

// CostReport gathers the cost summary of an order together with the OEE of every work center
// its work orders ran on, measured from the order's creation until now
func (s *Service) CostReport(ctx context.Context, actor dto.Actor, id string) (*dto.CostReport, error) {
	summary, err := s.CostSummary(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	mo, err := s.orders.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	to := s.now().UTC()
	if mo.DateFinished != nil {
		to = mo.DateFinished.UTC()
	}
	report := &dto.CostReport{Order: mo, Summary: summary}
	if !to.After(mo.CreatedAt) {
		return report, nil
	}

	seen := make(map[string]bool)
	for _, wo := range mo.WorkOrders {
		if seen[wo.WorkCenterID] {
			continue
		}
		seen[wo.WorkCenterID] = true
		oee, err := s.OEE(ctx, actor, dto.OEEQuery{WorkCenterID: wo.WorkCenterID, From: mo.CreatedAt, To: to})
		if err != nil {
			return nil, err
		}
		report.OEE = append(report.OEE, oee)
	}
	return report, nil
}
