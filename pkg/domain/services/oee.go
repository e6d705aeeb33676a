package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// OEEReport is the derived effectiveness of one work center over a period
type OEEReport struct {
	WorkCenterID string          `json:"workcenter_id"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	WorkOrders   int             `json:"work_orders"`
	RunTime      time.Duration   `json:"run_time"`
	Downtime     time.Duration   `json:"downtime"`
	IdealTime    time.Duration   `json:"ideal_time"`
	GoodQty      decimal.Decimal `json:"good_qty"`
	ScrapQty     decimal.Decimal `json:"scrap_qty"`
	Availability decimal.Decimal `json:"availability"`
	Performance  decimal.Decimal `json:"performance"`
	Quality      decimal.Decimal `json:"quality"`
	OEE          decimal.Decimal `json:"oee"`
}

// OEECalculator derives availability, performance and quality from work order activity logs
type OEECalculator struct{}

// NewOEECalculator creates a new OEE calculator
func NewOEECalculator() *OEECalculator {
	return &OEECalculator{}
}

// Compute aggregates every work order of orders that ran on workCenterID within [from, to).
// Percentages are rounded to two places; empty denominators yield zero.
func (c *OEECalculator) Compute(workCenterID string, orders []*entities.ManufacturingOrder, from, to, now time.Time) *OEEReport {
	report := &OEEReport{
		WorkCenterID: workCenterID,
		From:         from,
		To:           to,
		GoodQty:      decimal.Zero,
		ScrapQty:     decimal.Zero,
	}
	var idealMinutes decimal.Decimal

	for _, mo := range orders {
		for _, wo := range mo.WorkOrders {
			if wo.WorkCenterID != workCenterID || len(wo.Activities) == 0 {
				continue
			}

			active, paused := wo.Intervals(now)
			var run, down time.Duration
			for _, iv := range active {
				run += iv.Overlap(from, to)
			}
			for _, iv := range paused {
				down += iv.Overlap(from, to)
			}

			good, scrap := decimal.Zero, decimal.Zero
			for _, a := range wo.Activities {
				if a.At.Before(from) || !a.At.Before(to) {
					continue
				}
				switch a.Type {
				case entities.ActivityComplete:
					good = good.Add(a.Qty)
					scrap = scrap.Add(a.ScrapQty)
				case entities.ActivityScrap:
					scrap = scrap.Add(a.Qty)
				}
			}

			if run == 0 && down == 0 && good.IsZero() && scrap.IsZero() {
				continue
			}

			report.WorkOrders++
			report.RunTime += run
			report.Downtime += down
			report.GoodQty = report.GoodQty.Add(good)
			report.ScrapQty = report.ScrapQty.Add(scrap)

			batches := good.Add(scrap)
			if wo.BatchSize.IsPositive() {
				batches = batches.Div(wo.BatchSize)
			}
			idealMinutes = idealMinutes.Add(batches.Mul(wo.CycleTime))
		}
	}

	report.IdealTime = entities.MinutesToDuration(idealMinutes)

	availability := ratio(decimal.NewFromInt(int64(report.RunTime)), decimal.NewFromInt(int64(report.RunTime+report.Downtime)))
	performance := ratio(decimal.NewFromInt(int64(report.IdealTime)), decimal.NewFromInt(int64(report.RunTime)))
	if performance.GreaterThan(decimal.NewFromInt(1)) {
		performance = decimal.NewFromInt(1)
	}
	quality := ratio(report.GoodQty, report.GoodQty.Add(report.ScrapQty))

	report.Availability = percent(availability)
	report.Performance = percent(performance)
	report.Quality = percent(quality)
	report.OEE = percent(availability.Mul(performance).Mul(quality))
	return report
}

func ratio(numerator, denominator decimal.Decimal) decimal.Decimal {
	if !denominator.IsPositive() {
		return decimal.Zero
	}
	return numerator.Div(denominator)
}

func percent(r decimal.Decimal) decimal.Decimal {
	return r.Mul(decimal.NewFromInt(100)).Round(2)
}
