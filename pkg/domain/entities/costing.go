package entities

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostType classifies a costing line
type CostType int

const (
	CostMaterial CostType = iota
	CostLabor
	CostOverhead
)

// String method for CostType enum
func (t CostType) String() string {
	switch t {
	case CostMaterial:
		return "material"
	case CostLabor:
		return "labor"
	case CostOverhead:
		return "overhead"
	default:
		return "unknown"
	}
}

// ParseCostType parses the textual form produced by String
func ParseCostType(s string) (CostType, error) {
	switch s {
	case "material":
		return CostMaterial, nil
	case "labor":
		return CostLabor, nil
	case "overhead":
		return CostOverhead, nil
	default:
		return CostMaterial, fmt.Errorf("unknown cost type %q", s)
	}
}

func (t CostType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *CostType) UnmarshalText(text []byte) error {
	parsed, err := ParseCostType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

var hundred = decimal.NewFromInt(100)

// CostingLine compares standard and actual cost for one cost type
type CostingLine struct {
	ID              string          `json:"id"`
	CostType        CostType        `json:"cost_type"`
	StandardCost    decimal.Decimal `json:"standard_cost"`
	ActualCost      decimal.Decimal `json:"actual_cost"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
}

// NewCostingLine creates a costing line with variance computed
func NewCostingLine(costType CostType, standard, actual decimal.Decimal) *CostingLine {
	variance := actual.Sub(standard)
	return &CostingLine{
		ID:              uuid.NewString(),
		CostType:        costType,
		StandardCost:    standard,
		ActualCost:      actual,
		Variance:        variance,
		VariancePercent: VariancePercent(variance, standard),
	}
}

// VariancePercent returns variance/standard*100 rounded to two places, or zero when standard is not positive
func VariancePercent(variance, standard decimal.Decimal) decimal.Decimal {
	if !standard.IsPositive() {
		return decimal.Zero
	}
	return variance.Div(standard).Mul(hundred).Round(2)
}

// CostSummary totals costing lines for one order
type CostSummary struct {
	MOID            string          `json:"mo_id"`
	Lines           []*CostingLine  `json:"lines"`
	StandardCost    decimal.Decimal `json:"standard_cost"`
	ActualCost      decimal.Decimal `json:"actual_cost"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
	Final           bool            `json:"final"`
}

// NewCostSummary totals the given lines
func NewCostSummary(moID string, lines []*CostingLine, final bool) *CostSummary {
	s := &CostSummary{MOID: moID, Lines: lines, StandardCost: decimal.Zero, ActualCost: decimal.Zero, Final: final}
	for _, line := range lines {
		s.StandardCost = s.StandardCost.Add(line.StandardCost)
		s.ActualCost = s.ActualCost.Add(line.ActualCost)
	}
	s.Variance = s.ActualCost.Sub(s.StandardCost)
	s.VariancePercent = VariancePercent(s.Variance, s.StandardCost)
	return s
}
