package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

type stockKey struct {
	tenantID  string
	productID entities.ProductID
}

// InventoryRepository provides in-memory stock levels per tenant and product
type InventoryRepository struct {
	stock map[stockKey]*entities.StockLevel
	mutex sync.RWMutex
}

// NewInventoryRepository creates a new in-memory inventory repository
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		stock: make(map[stockKey]*entities.StockLevel),
	}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// LoadStock loads stock levels into the repository, replacing existing positions
func (r *InventoryRepository) LoadStock(levels []*entities.StockLevel) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, level := range levels {
		l := *level
		if l.Reserved.IsZero() {
			l.Reserved = decimal.Zero
		}
		r.stock[stockKey{l.TenantID, l.ProductID}] = &l
	}
	return nil
}

// Stock returns a copy of the stock level, or nil when the product was never stocked
func (r *InventoryRepository) Stock(tenantID string, productID entities.ProductID) *entities.StockLevel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	level, exists := r.stock[stockKey{tenantID, productID}]
	if !exists {
		return nil
	}
	l := *level
	return &l
}

func (r *InventoryRepository) level(tenantID string, productID entities.ProductID) *entities.StockLevel {
	key := stockKey{tenantID, productID}
	level, exists := r.stock[key]
	if !exists {
		level = &entities.StockLevel{
			TenantID:  tenantID,
			ProductID: productID,
			OnHand:    decimal.Zero,
			Reserved:  decimal.Zero,
			UnitCost:  decimal.Zero,
		}
		r.stock[key] = level
	}
	return level
}

// GetAvailableQty returns on-hand minus reserved quantity
func (r *InventoryRepository) GetAvailableQty(ctx context.Context, tenantID string, productID entities.ProductID) (decimal.Decimal, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	level, exists := r.stock[stockKey{tenantID, productID}]
	if !exists {
		return decimal.Zero, nil
	}
	return level.Available(), nil
}

// Reserve holds qty against the product even when it exceeds what is on hand
func (r *InventoryRepository) Reserve(ctx context.Context, tenantID string, productID entities.ProductID, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return entities.NewValidationError("qty", "must not be negative, got %s", qty)
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	level := r.level(tenantID, productID)
	level.Reserved = level.Reserved.Add(qty)
	return nil
}

// Release returns reserved qty to the available pool
func (r *InventoryRepository) Release(ctx context.Context, tenantID string, productID entities.ProductID, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return entities.NewValidationError("qty", "must not be negative, got %s", qty)
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	level := r.level(tenantID, productID)
	level.Reserved = level.Reserved.Sub(qty)
	if level.Reserved.IsNegative() {
		level.Reserved = decimal.Zero
	}
	return nil
}

// Consume issues qty from on-hand stock
func (r *InventoryRepository) Consume(ctx context.Context, tenantID string, productID entities.ProductID, qty, actualUnitCost decimal.Decimal) error {
	if qty.IsNegative() {
		return entities.NewValidationError("qty", "must not be negative, got %s", qty)
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	level := r.level(tenantID, productID)
	level.OnHand = level.OnHand.Sub(qty)
	return nil
}

// GetUnitCost returns the current valuation of one unit
func (r *InventoryRepository) GetUnitCost(ctx context.Context, tenantID string, productID entities.ProductID) (decimal.Decimal, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	level, exists := r.stock[stockKey{tenantID, productID}]
	if !exists {
		return decimal.Zero, nil
	}
	return level.UnitCost, nil
}
