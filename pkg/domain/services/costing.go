package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// CostBreakdown holds one cost figure per cost type
type CostBreakdown struct {
	Material decimal.Decimal
	Labor    decimal.Decimal
	Overhead decimal.Decimal
}

// Total sums the breakdown
func (b CostBreakdown) Total() decimal.Decimal {
	return b.Material.Add(b.Labor).Add(b.Overhead)
}

var (
	minutesPerHour = decimal.NewFromInt(60)
	nanosPerHour   = decimal.NewFromInt(int64(time.Hour))
)

// CostCalculator rolls up standard and actual cost for a manufacturing order
type CostCalculator struct{}

// NewCostCalculator creates a new cost calculator
func NewCostCalculator() *CostCalculator {
	return &CostCalculator{}
}

// StandardCost prices the BOM at standard prices and the routing at expected work center time,
// both scaled to qty. A nil BOM or routing contributes nothing.
func (c *CostCalculator) StandardCost(
	bom *entities.BOM,
	products map[entities.ProductID]*entities.Product,
	routing *entities.Routing,
	workCenters map[string]*entities.WorkCenter,
	qty decimal.Decimal,
) (CostBreakdown, error) {
	result := CostBreakdown{Material: decimal.Zero, Labor: decimal.Zero, Overhead: decimal.Zero}

	if bom != nil {
		for _, line := range bom.Lines {
			scaled, err := bom.ScaleQty(line.Qty, qty)
			if err != nil {
				return result, err
			}
			product, ok := products[line.ProductID]
			if !ok {
				return result, entities.NewConflictError(nil, "no standard price for component %s", line.ProductID)
			}
			result.Material = result.Material.Add(scaled.Mul(product.StandardPrice))
		}
	}

	if routing != nil {
		for i := range routing.Operations {
			op := &routing.Operations[i]
			wc, ok := workCenters[op.WorkCenterID]
			if !ok {
				return result, entities.NewConflictError(nil, "work center %s of operation %s not resolved", op.WorkCenterID, op.ID)
			}
			minutes := op.ExpectedMinutes(qty, wc)
			result.Labor = result.Labor.Add(minutes.Mul(wc.CostsHour).Div(minutesPerHour))
			result.Overhead = result.Overhead.Add(minutes.Mul(wc.CostsHourOverhead).Div(minutesPerHour))
		}
	}

	return result, nil
}

// ActualCost values recorded consumptions and the active time of every non-cancelled work order.
// Work orders still running are measured up to now.
func (c *CostCalculator) ActualCost(
	mo *entities.ManufacturingOrder,
	workCenters map[string]*entities.WorkCenter,
	now time.Time,
) CostBreakdown {
	result := CostBreakdown{Material: decimal.Zero, Labor: decimal.Zero, Overhead: decimal.Zero}

	for _, consumption := range mo.Consumptions {
		result.Material = result.Material.Add(consumption.Cost())
	}

	for _, wo := range mo.WorkOrders {
		if wo.State == entities.WorkOrderCancel {
			continue
		}
		wc, ok := workCenters[wo.WorkCenterID]
		if !ok {
			continue
		}
		duration := wo.Duration
		if wo.State != entities.WorkOrderDone {
			duration = wo.ActiveTime(now)
		}
		nanos := decimal.NewFromInt(int64(duration))
		result.Labor = result.Labor.Add(nanos.Mul(wc.CostsHour).Div(nanosPerHour))
		result.Overhead = result.Overhead.Add(nanos.Mul(wc.CostsHourOverhead).Div(nanosPerHour))
	}

	return result
}

// Lines builds one costing line per cost type. The overhead line is omitted when both sides are zero.
func (c *CostCalculator) Lines(standard, actual CostBreakdown) []*entities.CostingLine {
	lines := []*entities.CostingLine{
		entities.NewCostingLine(entities.CostMaterial, standard.Material, actual.Material),
		entities.NewCostingLine(entities.CostLabor, standard.Labor, actual.Labor),
	}
	if !standard.Overhead.IsZero() || !actual.Overhead.IsZero() {
		lines = append(lines, entities.NewCostingLine(entities.CostOverhead, standard.Overhead, actual.Overhead))
	}
	return lines
}
