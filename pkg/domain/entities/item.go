package entities

import "github.com/shopspring/decimal"

// ProductID represents a unique product identifier
type ProductID string

// Product represents a manufacturable or consumable product from the reference data
type Product struct {
	ID            ProductID       `json:"id"`
	Name          string          `json:"name"`
	UnitOfMeasure string          `json:"uom"`
	StandardPrice decimal.Decimal `json:"standard_price"`
}

// WorkCenter represents a machine, line or station that executes routing operations.
// TimeEfficiency is a percentage where 100 means nominal speed.
type WorkCenter struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Capacity          decimal.Decimal `json:"capacity"`
	TimeEfficiency    decimal.Decimal `json:"time_efficiency"`
	CostsHour         decimal.Decimal `json:"costs_hour"`
	CostsHourOverhead decimal.Decimal `json:"costs_hour_overhead"`
}

// Efficiency returns the time efficiency as a ratio, treating non-positive values as nominal
func (w *WorkCenter) Efficiency() decimal.Decimal {
	if w.TimeEfficiency.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	return w.TimeEfficiency.Div(decimal.NewFromInt(100))
}
