package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

func TestOEECalculator_Compute(t *testing.T) {
	start := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return start.Add(time.Duration(m) * time.Minute) }

	wo := &entities.WorkOrder{
		ID:           "wo-1",
		WorkCenterID: "WC1",
		State:        entities.WorkOrderReady,
		CycleTime:    d(1),
		BatchSize:    d(1),
	}
	_ = wo.Start("", at(0))
	_ = wo.Pause("", "jam", at(40))
	_ = wo.Resume("", at(60))
	_ = wo.RecordScrap("", d(4), "burr", at(70))
	_ = wo.Complete("", d(36), decimal.Zero, at(80))

	other := &entities.WorkOrder{ID: "wo-2", WorkCenterID: "WC2", State: entities.WorkOrderReady}
	_ = other.Start("", at(0))

	orders := []*entities.ManufacturingOrder{{WorkOrders: []*entities.WorkOrder{wo, other}}}
	report := NewOEECalculator().Compute("WC1", orders, start, start.Add(8*time.Hour), at(120))

	if report.WorkOrders != 1 {
		t.Fatalf("Expected 1 work order, got %d", report.WorkOrders)
	}
	if report.RunTime != 60*time.Minute || report.Downtime != 20*time.Minute {
		t.Errorf("Expected run 60m and downtime 20m, got %v and %v", report.RunTime, report.Downtime)
	}
	// availability 60/80, performance 40/60, quality 36/40
	if !report.Availability.Equal(decimal.NewFromInt(75)) {
		t.Errorf("Expected availability 75, got %s", report.Availability)
	}
	if !report.Performance.Equal(decimal.NewFromFloat(66.67)) {
		t.Errorf("Expected performance 66.67, got %s", report.Performance)
	}
	if !report.Quality.Equal(decimal.NewFromInt(90)) {
		t.Errorf("Expected quality 90, got %s", report.Quality)
	}
	if !report.OEE.Equal(decimal.NewFromInt(45)) {
		t.Errorf("Expected OEE 45, got %s", report.OEE)
	}
}

func TestOEECalculator_EmptyPeriod(t *testing.T) {
	start := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
	report := NewOEECalculator().Compute("WC1", nil, start, start.Add(time.Hour), start)

	if !report.OEE.IsZero() || !report.Availability.IsZero() || !report.Quality.IsZero() {
		t.Errorf("Expected zero OEE for an idle work center, got %+v", report)
	}
}
