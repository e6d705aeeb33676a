package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestReferenceValidator_ValidateBOM(t *testing.T) {
	v := NewReferenceValidator()

	testCases := []struct {
		name        string
		bom         *entities.BOM
		expectValid bool
	}{
		{
			"valid",
			&entities.BOM{ID: "b1", ProductID: "A", BaseQty: d(1), Lines: []entities.BOMLine{{ProductID: "B", Qty: d(2)}}},
			true,
		},
		{
			"zero base quantity",
			&entities.BOM{ID: "b1", ProductID: "A", BaseQty: d(0), Lines: []entities.BOMLine{{ProductID: "B", Qty: d(2)}}},
			false,
		},
		{
			"self reference",
			&entities.BOM{ID: "b1", ProductID: "A", BaseQty: d(1), Lines: []entities.BOMLine{{ProductID: "A", Qty: d(1)}}},
			false,
		},
		{
			"duplicate component",
			&entities.BOM{ID: "b1", ProductID: "A", BaseQty: d(1), Lines: []entities.BOMLine{
				{ProductID: "B", Qty: d(1)},
				{ProductID: "B", Qty: d(3)},
			}},
			false,
		},
		{
			"negative line",
			&entities.BOM{ID: "b1", ProductID: "A", BaseQty: d(1), Lines: []entities.BOMLine{{ProductID: "B", Qty: d(-1)}}},
			false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := v.ValidateBOM(tc.bom)
			if result.Valid() != tc.expectValid {
				t.Errorf("Expected valid=%v, got %v (%v)", tc.expectValid, result.Valid(), result.Errors)
			}
			err := result.Err("bom")
			var cerr *entities.ConflictError
			if !tc.expectValid && !errors.As(err, &cerr) {
				t.Errorf("Expected ConflictError, got %v", err)
			}
		})
	}
}

func TestReferenceValidator_ValidateRouting(t *testing.T) {
	v := NewReferenceValidator()
	workCenters := map[string]*entities.WorkCenter{"WC1": {ID: "WC1"}}

	valid := &entities.Routing{ID: "r1", Operations: []entities.Operation{
		{ID: "op1", Sequence: 10, WorkCenterID: "WC1", CycleTime: d(5), BatchSize: d(1)},
		{ID: "op2", Sequence: 20, WorkCenterID: "WC1", CycleTime: d(5), BatchSize: d(1)},
	}}
	if result := v.ValidateRouting(valid, workCenters); !result.Valid() {
		t.Fatalf("Expected valid routing, got %v", result.Errors)
	}

	broken := &entities.Routing{ID: "r2", Operations: []entities.Operation{
		{ID: "op1", Sequence: 10, WorkCenterID: "WC1", CycleTime: d(5), BatchSize: d(1)},
		{ID: "op2", Sequence: 10, WorkCenterID: "WC9", CycleTime: d(5), BatchSize: d(0)},
	}}
	result := v.ValidateRouting(broken, workCenters)
	if len(result.Errors) != 3 {
		t.Errorf("Expected 3 errors (duplicate sequence, batch size, unknown work center), got %v", result.Errors)
	}
}

func TestReferenceValidator_DetectCycleAcrossBOMs(t *testing.T) {
	v := NewReferenceValidator()
	boms := []*entities.BOM{
		{ID: "b1", ProductID: "A", BaseQty: d(1), Lines: []entities.BOMLine{{ProductID: "B", Qty: d(1)}}},
		{ID: "b2", ProductID: "B", BaseQty: d(1), Lines: []entities.BOMLine{{ProductID: "C", Qty: d(1)}}},
		{ID: "b3", ProductID: "C", BaseQty: d(1), Lines: []entities.BOMLine{{ProductID: "A", Qty: d(1)}}},
	}

	result := v.ValidateBOMSet(boms)
	if !result.HasCycles {
		t.Fatal("Expected cycle to be detected")
	}
	if len(result.CyclePaths[0]) != 4 {
		t.Errorf("Expected closed cycle path of 4 parts, got %v", result.CyclePaths[0])
	}

	acyclic := v.ValidateBOMSet(boms[:2])
	if acyclic.HasCycles {
		t.Errorf("Expected no cycles, got %v", acyclic.CyclePaths)
	}
}
