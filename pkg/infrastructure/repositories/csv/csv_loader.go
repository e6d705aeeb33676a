package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// Loader handles loading reference data and opening stock from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// Seed is everything a seed directory provides
type Seed struct {
	Products    []*entities.Product
	BOMs        []*entities.BOM
	Routings    []*entities.Routing
	WorkCenters []*entities.WorkCenter
	Stock       []*entities.StockLevel
}

// LoadDirectory reads products.csv, boms.csv, routings.csv, workcenters.csv and inventory.csv from dir.
// Missing files are skipped.
func (l *Loader) LoadDirectory(dir string) (*Seed, error) {
	seed := &Seed{}
	var err error

	if seed.Products, err = skipMissing(l.LoadProducts(filepath.Join(dir, "products.csv"))); err != nil {
		return nil, err
	}
	if seed.WorkCenters, err = skipMissing(l.LoadWorkCenters(filepath.Join(dir, "workcenters.csv"))); err != nil {
		return nil, err
	}
	if seed.BOMs, err = skipMissing(l.LoadBOMs(filepath.Join(dir, "boms.csv"))); err != nil {
		return nil, err
	}
	if seed.Routings, err = skipMissing(l.LoadRoutings(filepath.Join(dir, "routings.csv"))); err != nil {
		return nil, err
	}
	if seed.Stock, err = skipMissing(l.LoadInventory(filepath.Join(dir, "inventory.csv"))); err != nil {
		return nil, err
	}
	return seed, nil
}

func skipMissing[T any](items []T, err error) ([]T, error) {
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return items, err
}

// LoadProducts loads products from a CSV file
func (l *Loader) LoadProducts(filename string) ([]*entities.Product, error) {
	records, err := readRecords(filename, "products", []string{"product_id", "name", "uom", "standard_price"})
	if err != nil {
		return nil, err
	}

	var products []*entities.Product
	for i, record := range records {
		price, err := parseDecimal("standard_price", record[3])
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		products = append(products, &entities.Product{
			ID:            entities.ProductID(record[0]),
			Name:          record[1],
			UnitOfMeasure: record[2],
			StandardPrice: price,
		})
	}
	return products, nil
}

// LoadWorkCenters loads work centers from a CSV file
func (l *Loader) LoadWorkCenters(filename string) ([]*entities.WorkCenter, error) {
	records, err := readRecords(filename, "workcenters",
		[]string{"workcenter_id", "name", "capacity", "time_efficiency", "costs_hour", "costs_hour_overhead"})
	if err != nil {
		return nil, err
	}

	var workCenters []*entities.WorkCenter
	for i, record := range records {
		values, err := parseDecimals(
			[]string{"capacity", "time_efficiency", "costs_hour", "costs_hour_overhead"},
			record[2:],
		)
		if err != nil {
			return nil, fmt.Errorf("workcenters CSV row %d: %w", i+2, err)
		}
		workCenters = append(workCenters, &entities.WorkCenter{
			ID:                record[0],
			Name:              record[1],
			Capacity:          values[0],
			TimeEfficiency:    values[1],
			CostsHour:         values[2],
			CostsHourOverhead: values[3],
		})
	}
	return workCenters, nil
}

// LoadBOMs loads BOMs from a CSV file with one row per component line
func (l *Loader) LoadBOMs(filename string) ([]*entities.BOM, error) {
	records, err := readRecords(filename, "BOM",
		[]string{"bom_id", "product_id", "base_qty", "component_id", "qty", "type"})
	if err != nil {
		return nil, err
	}

	var boms []*entities.BOM
	byID := make(map[string]*entities.BOM)
	for i, record := range records {
		values, err := parseDecimals([]string{"base_qty", "qty"}, []string{record[2], record[4]})
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		lineType, err := entities.ParseBOMLineType(strings.ToLower(strings.TrimSpace(record[5])))
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}

		bom, exists := byID[record[0]]
		if !exists {
			bom = &entities.BOM{ID: record[0], ProductID: entities.ProductID(record[1]), BaseQty: values[0]}
			byID[bom.ID] = bom
			boms = append(boms, bom)
		} else if bom.ProductID != entities.ProductID(record[1]) || !bom.BaseQty.Equal(values[0]) {
			return nil, fmt.Errorf("BOM CSV row %d: bom %s header differs from earlier rows", i+2, bom.ID)
		}

		bom.Lines = append(bom.Lines, entities.BOMLine{
			ProductID: entities.ProductID(record[3]),
			Qty:       values[1],
			Type:      lineType,
		})
	}
	return boms, nil
}

// LoadRoutings loads routings from a CSV file with one row per operation
func (l *Loader) LoadRoutings(filename string) ([]*entities.Routing, error) {
	records, err := readRecords(filename, "routings",
		[]string{"routing_id", "product_id", "operation_id", "name", "sequence", "workcenter_id", "cycle_time", "setup_time", "batch_size"})
	if err != nil {
		return nil, err
	}

	var routings []*entities.Routing
	byID := make(map[string]*entities.Routing)
	for i, record := range records {
		sequence, err := strconv.Atoi(strings.TrimSpace(record[4]))
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: invalid sequence: %s", i+2, record[4])
		}
		values, err := parseDecimals([]string{"cycle_time", "setup_time", "batch_size"}, record[6:9])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: %w", i+2, err)
		}

		routing, exists := byID[record[0]]
		if !exists {
			routing = &entities.Routing{ID: record[0], ProductID: entities.ProductID(record[1])}
			byID[routing.ID] = routing
			routings = append(routings, routing)
		}

		routing.Operations = append(routing.Operations, entities.Operation{
			ID:           record[2],
			Name:         record[3],
			Sequence:     sequence,
			WorkCenterID: record[5],
			CycleTime:    values[0],
			SetupTime:    values[1],
			BatchSize:    values[2],
		})
	}
	return routings, nil
}

// LoadInventory loads opening stock from a CSV file
func (l *Loader) LoadInventory(filename string) ([]*entities.StockLevel, error) {
	records, err := readRecords(filename, "inventory", []string{"tenant_id", "product_id", "on_hand", "unit_cost"})
	if err != nil {
		return nil, err
	}

	var levels []*entities.StockLevel
	for i, record := range records {
		values, err := parseDecimals([]string{"on_hand", "unit_cost"}, record[2:4])
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: %w", i+2, err)
		}
		level, err := entities.NewStockLevel(record[0], entities.ProductID(record[1]), values[0], values[1])
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: %w", i+2, err)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// readRecords opens a CSV file, validates its header and column counts, and returns the data rows
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}

	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, raw)
	}
	return value, nil
}

func parseDecimals(fields, raw []string) ([]decimal.Decimal, error) {
	values := make([]decimal.Decimal, len(fields))
	for i, field := range fields {
		value, err := parseDecimal(field, raw[i])
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}
