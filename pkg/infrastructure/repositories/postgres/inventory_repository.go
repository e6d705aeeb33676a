package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

// InventoryRepository keeps per-tenant stock levels. Quantities change with single UPDATE
// statements so concurrent orders never lose each other's reservations.
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// LoadStock upserts on-hand quantity and unit cost, keeping existing reservations
func (r *InventoryRepository) LoadStock(ctx context.Context, levels []*entities.StockLevel) error {
	if len(levels) == 0 {
		return nil
	}
	rows := make([]stockLevelModel, 0, len(levels))
	for _, l := range levels {
		rows = append(rows, stockLevelModel{
			TenantID:  l.TenantID,
			ProductID: string(l.ProductID),
			OnHand:    l.OnHand,
			Reserved:  decimal.Zero,
			UnitCost:  l.UnitCost,
		})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"on_hand", "unit_cost", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("load stock: %w", err)
	}
	return nil
}

func (r *InventoryRepository) level(ctx context.Context, tenantID string, productID entities.ProductID) (*stockLevelModel, error) {
	var row stockLevelModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND product_id = ?", tenantID, string(productID)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stock of %s: %w", productID, err)
	}
	return &row, nil
}

// GetAvailableQty returns on-hand minus reserved quantity
func (r *InventoryRepository) GetAvailableQty(ctx context.Context, tenantID string, productID entities.ProductID) (decimal.Decimal, error) {
	row, err := r.level(ctx, tenantID, productID)
	if err != nil || row == nil {
		return decimal.Zero, err
	}
	return row.OnHand.Sub(row.Reserved), nil
}

// GetUnitCost returns the current valuation of one unit
func (r *InventoryRepository) GetUnitCost(ctx context.Context, tenantID string, productID entities.ProductID) (decimal.Decimal, error) {
	row, err := r.level(ctx, tenantID, productID)
	if err != nil || row == nil {
		return decimal.Zero, err
	}
	return row.UnitCost, nil
}

// Reserve holds qty even when it exceeds what is on hand
func (r *InventoryRepository) Reserve(ctx context.Context, tenantID string, productID entities.ProductID, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return entities.NewValidationError("qty", "must not be negative, got %s", qty)
	}
	row := stockLevelModel{
		TenantID:  tenantID,
		ProductID: string(productID),
		OnHand:    decimal.Zero,
		Reserved:  qty,
		UnitCost:  decimal.Zero,
		UpdatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"reserved":   gorm.Expr("mfg_stock_levels.reserved + ?", qty),
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("reserve %s of %s: %w", qty, productID, err)
	}
	return nil
}

// Release returns reserved qty to the available pool, never going below zero
func (r *InventoryRepository) Release(ctx context.Context, tenantID string, productID entities.ProductID, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return entities.NewValidationError("qty", "must not be negative, got %s", qty)
	}
	err := r.db.WithContext(ctx).Model(&stockLevelModel{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, string(productID)).
		Updates(map[string]interface{}{
			"reserved":   gorm.Expr("GREATEST(reserved - ?, 0)", qty),
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("release %s of %s: %w", qty, productID, err)
	}
	return nil
}

// Consume issues qty from on-hand stock and journals the move at the given valuation
func (r *InventoryRepository) Consume(ctx context.Context, tenantID string, productID entities.ProductID, qty, actualUnitCost decimal.Decimal) error {
	if qty.IsNegative() {
		return entities.NewValidationError("qty", "must not be negative, got %s", qty)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Model(&stockLevelModel{}).
			Where("tenant_id = ? AND product_id = ?", tenantID, string(productID)).
			Updates(map[string]interface{}{
				"on_hand":    gorm.Expr("on_hand - ?", qty),
				"updated_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("consume %s of %s: %w", qty, productID, result.Error)
		}
		if result.RowsAffected == 0 {
			return entities.NewNotFoundError("stock for product", string(productID))
		}
		return tx.Create(&stockMoveModel{
			TenantID:  tenantID,
			ProductID: string(productID),
			Qty:       qty,
			UnitCost:  actualUnitCost,
			CreatedAt: now,
		}).Error
	})
}
