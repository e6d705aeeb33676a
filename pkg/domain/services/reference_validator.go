package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// ReferenceValidator checks BOM and routing integrity before they are expanded into an order
type ReferenceValidator struct{}

// NewReferenceValidator creates a new reference validator
func NewReferenceValidator() *ReferenceValidator {
	return &ReferenceValidator{}
}

// ValidationResult contains the results of reference data validation
type ValidationResult struct {
	HasCycles  bool
	CyclePaths [][]entities.ProductID
	Errors     []string
}

// Valid reports whether no problem was found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns the problems as a ConflictError, or nil
func (r *ValidationResult) Err(subject string) error {
	if r.Valid() {
		return nil
	}
	return entities.NewConflictError(nil, "invalid %s: %s", subject, strings.Join(r.Errors, "; "))
}

// ValidateBOM checks base quantity, line quantities, self-reference and duplicate components
func (v *ReferenceValidator) ValidateBOM(bom *entities.BOM) *ValidationResult {
	result := &ValidationResult{Errors: make([]string, 0)}

	if bom.BaseQty.LessThanOrEqual(decimal.Zero) {
		result.Errors = append(result.Errors, fmt.Sprintf("bom %s base quantity must be positive, got %s", bom.ID, bom.BaseQty))
	}
	if len(bom.Lines) == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("bom %s has no lines", bom.ID))
	}

	seen := make(map[entities.ProductID]bool)
	for _, line := range bom.Lines {
		if line.ProductID == bom.ProductID {
			result.HasCycles = true
			result.CyclePaths = append(result.CyclePaths, []entities.ProductID{bom.ProductID, line.ProductID})
			result.Errors = append(result.Errors, fmt.Sprintf("bom %s references its own product %s", bom.ID, line.ProductID))
		}
		if line.Qty.LessThanOrEqual(decimal.Zero) {
			result.Errors = append(result.Errors, fmt.Sprintf("bom %s line %s quantity must be positive, got %s", bom.ID, line.ProductID, line.Qty))
		}
		if seen[line.ProductID] {
			result.Errors = append(result.Errors, fmt.Sprintf("bom %s lists component %s more than once", bom.ID, line.ProductID))
		}
		seen[line.ProductID] = true
	}

	return result
}

// ValidateRouting checks sequences, batch sizes, times and work center references
func (v *ReferenceValidator) ValidateRouting(routing *entities.Routing, workCenters map[string]*entities.WorkCenter) *ValidationResult {
	result := &ValidationResult{Errors: make([]string, 0)}

	if len(routing.Operations) == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("routing %s has no operations", routing.ID))
	}

	sequences := make(map[int]bool)
	for _, op := range routing.Operations {
		if op.Sequence <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("routing %s operation %s sequence must be positive, got %d", routing.ID, op.ID, op.Sequence))
		}
		if sequences[op.Sequence] {
			result.Errors = append(result.Errors, fmt.Sprintf("routing %s has duplicate sequence %d", routing.ID, op.Sequence))
		}
		sequences[op.Sequence] = true

		if op.BatchSize.LessThanOrEqual(decimal.Zero) {
			result.Errors = append(result.Errors, fmt.Sprintf("routing %s operation %s batch size must be positive", routing.ID, op.ID))
		}
		if op.CycleTime.IsNegative() || op.SetupTime.IsNegative() {
			result.Errors = append(result.Errors, fmt.Sprintf("routing %s operation %s times must not be negative", routing.ID, op.ID))
		}
		if workCenters != nil {
			if _, ok := workCenters[op.WorkCenterID]; !ok {
				result.Errors = append(result.Errors, fmt.Sprintf("routing %s operation %s references unknown work center %s", routing.ID, op.ID, op.WorkCenterID))
			}
		}
	}

	return result
}

// ValidateBOMSet detects multi-level cycles across a set of BOMs, e.g. when seeding reference data
func (v *ReferenceValidator) ValidateBOMSet(boms []*entities.BOM) *ValidationResult {
	result := &ValidationResult{
		CyclePaths: make([][]entities.ProductID, 0),
		Errors:     make([]string, 0),
	}

	adjacencyMap := v.buildAdjacencyMap(boms)
	cycles := v.detectCycles(adjacencyMap)
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles

	for _, cycle := range cycles {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}

	return result
}

// buildAdjacencyMap creates a map of product -> component relationships
func (v *ReferenceValidator) buildAdjacencyMap(boms []*entities.BOM) map[entities.ProductID][]entities.ProductID {
	adjacencyMap := make(map[entities.ProductID][]entities.ProductID)

	for _, bom := range boms {
		children := adjacencyMap[bom.ProductID]
		for _, line := range bom.Lines {
			found := false
			for _, child := range children {
				if child == line.ProductID {
					found = true
					break
				}
			}
			if !found {
				children = append(children, line.ProductID)
			}
		}
		adjacencyMap[bom.ProductID] = children
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles in the product structure
func (v *ReferenceValidator) detectCycles(adjacencyMap map[entities.ProductID][]entities.ProductID) [][]entities.ProductID {
	visited := make(map[entities.ProductID]bool)
	recursionStack := make(map[entities.ProductID]bool)
	cycles := make([][]entities.ProductID, 0)

	// sorted roots keep the reported paths stable
	roots := make([]entities.ProductID, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		roots = append(roots, parent)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	for _, parent := range roots {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

func (v *ReferenceValidator) dfsDetectCycle(
	current entities.ProductID,
	adjacencyMap map[entities.ProductID][]entities.ProductID,
	visited map[entities.ProductID]bool,
	recursionStack map[entities.ProductID]bool,
	path []entities.ProductID,
	cycles *[][]entities.ProductID,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
			continue
		}
		if !recursionStack[child] {
			continue
		}
		for i, part := range path {
			if part == child {
				cycle := make([]entities.ProductID, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, child)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	recursionStack[current] = false
}
