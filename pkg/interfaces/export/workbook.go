// Package export renders order costing and work center OEE as an xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

const (
	CostingSheet = "Costing"
	OEESheet     = "OEE"

	// ContentType of the rendered workbook
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	costingHeaders = []string{"Cost Type", "Standard", "Actual", "Variance", "Variance %"}
	oeeHeaders     = []string{
		"Work Center", "Work Orders", "Run Hours", "Downtime Hours", "Ideal Hours",
		"Good Qty", "Scrap Qty", "Availability %", "Performance %", "Quality %", "OEE %",
	}
)

// Filename returns the download name of an order's workbook
func Filename(mo *entities.ManufacturingOrder) string {
	name := mo.MONumber
	if name == "" {
		name = mo.ID
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '/' || r == '\\' {
			r = '-'
		}
		out = append(out, r)
	}
	return "costing-" + string(out) + ".xlsx"
}

// Workbook builds the Costing and OEE sheets of a cost report
func Workbook(report *dto.CostReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", CostingSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(OEESheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}

	if err := writeCosting(f, report, bold); err != nil {
		return nil, err
	}
	if err := writeOEE(f, report, bold); err != nil {
		return nil, err
	}
	return f, nil
}

// Write renders the workbook of a cost report into w
func Write(w io.Writer, report *dto.CostReport) error {
	f, err := Workbook(report)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	return f.Write(w)
}

func writeCosting(f *excelize.File, report *dto.CostReport, headerStyle int) error {
	mo, summary := report.Order, report.Summary

	meta := [][]interface{}{
		{"Order", mo.MONumber},
		{"Product", string(mo.ProductID)},
		{"Quantity", num(mo.ProductQty)},
		{"Produced", num(mo.QtyProduced)},
		{"Scrapped", num(mo.QtyScrapped)},
		{"State", mo.State.String()},
		{"Final", summary.Final},
	}
	for i, row := range meta {
		if err := f.SetSheetRow(CostingSheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	headerRow := len(meta) + 2
	if err := header(f, CostingSheet, headerRow, costingHeaders, headerStyle); err != nil {
		return err
	}
	row := headerRow + 1
	for _, line := range summary.Lines {
		values := []interface{}{
			line.CostType.String(),
			num(line.StandardCost),
			num(line.ActualCost),
			num(line.Variance),
			num(line.VariancePercent),
		}
		if err := f.SetSheetRow(CostingSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		row++
	}

	total := []interface{}{
		"total",
		num(summary.StandardCost),
		num(summary.ActualCost),
		num(summary.Variance),
		num(summary.VariancePercent),
	}
	if err := f.SetSheetRow(CostingSheet, fmt.Sprintf("A%d", row), &total); err != nil {
		return err
	}
	return f.SetColWidth(CostingSheet, "A", "E", 16)
}

func writeOEE(f *excelize.File, report *dto.CostReport, headerStyle int) error {
	if err := header(f, OEESheet, 1, oeeHeaders, headerStyle); err != nil {
		return err
	}
	for i, r := range report.OEE {
		values := []interface{}{
			r.WorkCenterID,
			r.WorkOrders,
			num(entities.DurationHours(r.RunTime).Round(2)),
			num(entities.DurationHours(r.Downtime).Round(2)),
			num(entities.DurationHours(r.IdealTime).Round(2)),
			num(r.GoodQty),
			num(r.ScrapQty),
			num(r.Availability),
			num(r.Performance),
			num(r.Quality),
			num(r.OEE),
		}
		if err := f.SetSheetRow(OEESheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}
	return f.SetColWidth(OEESheet, "A", "K", 15)
}

func header(f *excelize.File, sheet string, row int, headers []string, style int) error {
	for i, h := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		cell := fmt.Sprintf("%s%d", col, row)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

// num stores decimals as numeric cells
func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
