package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// InventoryRepository is the stock collaborator. Available quantity is on-hand minus
// everything currently reserved; Reserve never fails for a shortfall.
type InventoryRepository interface {
	GetAvailableQty(ctx context.Context, tenantID string, productID entities.ProductID) (decimal.Decimal, error)
	Reserve(ctx context.Context, tenantID string, productID entities.ProductID, qty decimal.Decimal) error
	Release(ctx context.Context, tenantID string, productID entities.ProductID, qty decimal.Decimal) error
	Consume(ctx context.Context, tenantID string, productID entities.ProductID, qty, actualUnitCost decimal.Decimal) error
	GetUnitCost(ctx context.Context, tenantID string, productID entities.ProductID) (decimal.Decimal, error)
}
