package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/services"
)

func testReport() *dto.CostReport {
	mo := &entities.ManufacturingOrder{
		ID:          "mo-1",
		MONumber:    "MO/2025/00001",
		ProductID:   "TABLE",
		ProductQty:  decimal.NewFromInt(100),
		QtyProduced: decimal.NewFromInt(95),
		QtyScrapped: decimal.NewFromInt(5),
		State:       entities.OrderDone,
	}
	lines := []*entities.CostingLine{
		entities.NewCostingLine(entities.CostMaterial, decimal.NewFromInt(2105), decimal.RequireFromString("2189.75")),
		entities.NewCostingLine(entities.CostLabor, decimal.NewFromInt(1130), decimal.NewFromInt(1200)),
	}
	return &dto.CostReport{
		Order:   mo,
		Summary: entities.NewCostSummary(mo.ID, lines, true),
		OEE: []*services.OEEReport{{
			WorkCenterID: "SAW",
			WorkOrders:   1,
			RunTime:      90 * time.Minute,
			GoodQty:      decimal.NewFromInt(9),
			ScrapQty:     decimal.NewFromInt(1),
			Availability: decimal.RequireFromString("83.33"),
			Performance:  decimal.NewFromInt(100),
			Quality:      decimal.NewFromInt(90),
			OEE:          decimal.NewFromInt(75),
		}},
	}
}

func TestWorkbook_Sheets(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testReport()); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != CostingSheet || sheets[1] != OEESheet {
		t.Fatalf("Expected sheets [Costing OEE], got %v", sheets)
	}

	testCases := []struct {
		sheet    string
		cell     string
		expected string
	}{
		{CostingSheet, "B1", "MO/2025/00001"},
		{CostingSheet, "A9", "Cost Type"},
		{CostingSheet, "A10", "material"},
		{CostingSheet, "C10", "2189.75"},
		{CostingSheet, "A12", "total"},
		{CostingSheet, "B12", "3235"},
		{OEESheet, "A2", "SAW"},
		{OEESheet, "C2", "1.5"},
		{OEESheet, "K2", "75"},
	}
	for _, tc := range testCases {
		t.Run(tc.sheet+"!"+tc.cell, func(t *testing.T) {
			got, err := f.GetCellValue(tc.sheet, tc.cell)
			if err != nil {
				t.Fatalf("read cell: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	mo := &entities.ManufacturingOrder{ID: "mo-1", MONumber: "MO/2025/00001-2"}
	if got := Filename(mo); got != "costing-MO-2025-00001-2.xlsx" {
		t.Errorf("Expected costing-MO-2025-00001-2.xlsx, got %s", got)
	}
	if got := Filename(&entities.ManufacturingOrder{ID: "mo-1"}); got != "costing-mo-1.xlsx" {
		t.Errorf("Expected costing-mo-1.xlsx, got %s", got)
	}
}
