package testing

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/memory"
)

// TestTenant owns the stock built by BuildWorkshopTestData
const TestTenant = "acme"

// FixedClock is a manually advanced clock for deterministic timestamps
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock stopped at start
func NewFixedClock(start time.Time) *FixedClock {
	return &FixedClock{now: start}
}

// Now returns the current fixed time
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Dec parses a decimal literal and panics on bad input; for fixtures only
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// BuildWorkshopTestData builds a small furniture workshop:
//
//	TABLE   BOM base 2: 8 LEG, 16 SCREW, 10 GLUE (consumable); routing CUT@SAW (10), ASSEMBLE@ASM (20)
//	CHAIR   BOM base 1: 1 SEAT; routing ASSEMBLE@ASM (10)
//	BRACKET no BOM, no routing
//
// Stock for TestTenant: 500 LEG, 1000 SCREW, 1000 GLUE, 20 SEAT.
func BuildWorkshopTestData() (*memory.ReferenceRepository, *memory.InventoryRepository) {
	refRepo := memory.NewReferenceRepository()
	inventoryRepo := memory.NewInventoryRepository()

	refRepo.Load(
		[]*entities.Product{
			{ID: "TABLE", Name: "Oak Table", UnitOfMeasure: "EA", StandardPrice: Dec("200")},
			{ID: "CHAIR", Name: "Oak Chair", UnitOfMeasure: "EA", StandardPrice: Dec("80")},
			{ID: "BRACKET", Name: "Wall Bracket", UnitOfMeasure: "EA", StandardPrice: Dec("4")},
			{ID: "LEG", Name: "Table Leg", UnitOfMeasure: "EA", StandardPrice: Dec("5")},
			{ID: "SCREW", Name: "Wood Screw", UnitOfMeasure: "EA", StandardPrice: Dec("0.1")},
			{ID: "GLUE", Name: "Wood Glue", UnitOfMeasure: "ML", StandardPrice: Dec("0.05")},
			{ID: "SEAT", Name: "Chair Seat", UnitOfMeasure: "EA", StandardPrice: Dec("25")},
		},
		[]*entities.BOM{
			{
				ID:        "BOM-TABLE",
				ProductID: "TABLE",
				BaseQty:   Dec("2"),
				Lines: []entities.BOMLine{
					{ProductID: "LEG", Qty: Dec("8"), Type: entities.Component},
					{ProductID: "SCREW", Qty: Dec("16"), Type: entities.Component},
					{ProductID: "GLUE", Qty: Dec("10"), Type: entities.Consumable},
				},
			},
			{
				ID:        "BOM-CHAIR",
				ProductID: "CHAIR",
				BaseQty:   Dec("1"),
				Lines:     []entities.BOMLine{{ProductID: "SEAT", Qty: Dec("1"), Type: entities.Component}},
			},
		},
		[]*entities.Routing{
			{
				ID:        "RT-TABLE",
				ProductID: "TABLE",
				Operations: []entities.Operation{
					{ID: "OP10", Name: "Cut", Sequence: 10, WorkCenterID: "SAW", CycleTime: Dec("6"), SetupTime: Dec("10"), BatchSize: Dec("5")},
					{ID: "OP20", Name: "Assemble", Sequence: 20, WorkCenterID: "ASM", CycleTime: Dec("15"), SetupTime: Dec("0"), BatchSize: Dec("1")},
				},
			},
			{
				ID:        "RT-CHAIR",
				ProductID: "CHAIR",
				Operations: []entities.Operation{
					{ID: "OP10", Name: "Assemble", Sequence: 10, WorkCenterID: "ASM", CycleTime: Dec("10"), SetupTime: Dec("0"), BatchSize: Dec("1")},
				},
			},
		},
		[]*entities.WorkCenter{
			{ID: "SAW", Name: "Panel Saw", Capacity: Dec("1"), TimeEfficiency: Dec("100"), CostsHour: Dec("60"), CostsHourOverhead: Dec("0")},
			{ID: "ASM", Name: "Assembly Bench", Capacity: Dec("2"), TimeEfficiency: Dec("100"), CostsHour: Dec("40"), CostsHourOverhead: Dec("20")},
		},
	)

	stock := []struct {
		product  entities.ProductID
		onHand   string
		unitCost string
	}{
		{"LEG", "500", "5.5"},
		{"SCREW", "1000", "0.1"},
		{"GLUE", "1000", "0.05"},
		{"SEAT", "20", "25"},
	}
	var levels []*entities.StockLevel
	for _, s := range stock {
		level, err := entities.NewStockLevel(TestTenant, s.product, Dec(s.onHand), Dec(s.unitCost))
		if err != nil {
			panic(err)
		}
		levels = append(levels, level)
	}
	if err := inventoryRepo.LoadStock(levels); err != nil {
		panic(err)
	}

	return refRepo, inventoryRepo
}
