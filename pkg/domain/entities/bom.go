package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BOMLineType distinguishes reserved components from consumables that are only issued at completion
type BOMLineType int

const (
	Component BOMLineType = iota
	Consumable
)

// String method for BOMLineType enum
func (t BOMLineType) String() string {
	switch t {
	case Component:
		return "component"
	case Consumable:
		return "consumable"
	default:
		return "unknown"
	}
}

// ParseBOMLineType parses the textual form produced by String
func ParseBOMLineType(s string) (BOMLineType, error) {
	switch s {
	case "component", "":
		return Component, nil
	case "consumable":
		return Consumable, nil
	default:
		return Component, fmt.Errorf("unknown BOM line type %q", s)
	}
}

func (t BOMLineType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *BOMLineType) UnmarshalText(text []byte) error {
	parsed, err := ParseBOMLineType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// BOMLine represents a single component line in a Bill of Materials
type BOMLine struct {
	ProductID ProductID       `json:"product_id"`
	Qty       decimal.Decimal `json:"qty"`
	Type      BOMLineType     `json:"type"`
}

// BOM maps a product to the components needed to build BaseQty units of it
type BOM struct {
	ID        string          `json:"id"`
	ProductID ProductID       `json:"product_id"`
	BaseQty   decimal.Decimal `json:"base_qty"`
	Lines     []BOMLine       `json:"lines"`
}

// ScaleQty scales a component quantity from the BOM base quantity to an order quantity
func (b *BOM) ScaleQty(componentQty, orderQty decimal.Decimal) (decimal.Decimal, error) {
	if b.BaseQty.IsZero() {
		return decimal.Zero, NewConflictError(nil, "bom %s has zero base quantity", b.ID)
	}
	return componentQty.Mul(orderQty).Div(b.BaseQty), nil
}

// Operation is one step of a routing. CycleTime and SetupTime are in minutes; CycleTime covers one batch.
type Operation struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Sequence     int             `json:"sequence"`
	WorkCenterID string          `json:"workcenter_id"`
	CycleTime    decimal.Decimal `json:"cycle_time"`
	SetupTime    decimal.Decimal `json:"setup_time"`
	BatchSize    decimal.Decimal `json:"batch_size"`
}

// Cycles returns the number of batches needed to run qty units through the operation
func (o *Operation) Cycles(qty decimal.Decimal) decimal.Decimal {
	if o.BatchSize.LessThanOrEqual(decimal.Zero) {
		return qty.Ceil()
	}
	return qty.Div(o.BatchSize).Ceil()
}

// ExpectedMinutes returns setup time plus cycle time for qty units, adjusted by work center efficiency
func (o *Operation) ExpectedMinutes(qty decimal.Decimal, wc *WorkCenter) decimal.Decimal {
	run := o.Cycles(qty).Mul(o.CycleTime)
	if wc != nil {
		run = run.Div(wc.Efficiency())
	}
	return o.SetupTime.Add(run)
}

// Routing maps a product to its ordered list of operations
type Routing struct {
	ID         string      `json:"id"`
	ProductID  ProductID   `json:"product_id"`
	Operations []Operation `json:"operations"`
}

// MinutesToDuration converts a decimal minute count to a time.Duration
func MinutesToDuration(minutes decimal.Decimal) time.Duration {
	return time.Duration(minutes.Mul(decimal.NewFromInt(int64(time.Minute))).IntPart())
}

// DurationHours converts a duration to decimal hours
func DurationHours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(int64(time.Hour)))
}
