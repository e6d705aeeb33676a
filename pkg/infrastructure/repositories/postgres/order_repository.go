package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

// OrderRepository stores each order as one row; owned work orders, reservations and costing
// lines live in jsonb columns and work orders are indexed in a side table.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// Create stores a new order at version 1
func (r *OrderRepository) Create(ctx context.Context, mo *entities.ManufacturingOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mo.Version = 1
		if err := insertOrder(tx, mo); err != nil {
			mo.Version = 0
			return err
		}
		return nil
	})
}

// Get returns the order of the tenant
func (r *OrderRepository) Get(ctx context.Context, tenantID, id string) (*entities.ManufacturingOrder, error) {
	var row orderModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.NewNotFoundError("manufacturing order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get manufacturing order %s: %w", id, err)
	}
	return row.toDomain()
}

// Update replaces the order when the stored version still matches
func (r *OrderRepository) Update(ctx context.Context, mo *entities.ManufacturingOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateOrder(tx, mo)
	})
}

// Split updates the parent and inserts the child in one transaction
func (r *OrderRepository) Split(ctx context.Context, parent, child *entities.ManufacturingOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateOrder(tx, parent); err != nil {
			return err
		}
		child.Version = 1
		return insertOrder(tx, child)
	})
}

// List returns tenant orders matching the filter, oldest first
func (r *OrderRepository) List(ctx context.Context, tenantID string, filter repositories.OrderFilter) ([]*entities.ManufacturingOrder, error) {
	query := r.db.WithContext(ctx).Model(&orderModel{}).Where("tenant_id = ?", tenantID)
	if filter.State != nil {
		query = query.Where("state = ?", filter.State.String())
	}
	if filter.ProductID != "" {
		query = query.Where("product_id = ?", string(filter.ProductID))
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", filter.Priority.String())
	}
	if filter.WorkCenterID != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&workOrderRefModel{}).Select("mo_id").Where("tenant_id = ? AND work_center_id = ?", tenantID, filter.WorkCenterID))
	}

	var rows []orderModel
	if err := query.Order("created_at, mo_number").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list manufacturing orders: %w", err)
	}
	result := make([]*entities.ManufacturingOrder, 0, len(rows))
	for i := range rows {
		mo, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, mo)
	}
	return result, nil
}

// FindByWorkOrder returns the order owning the work order
func (r *OrderRepository) FindByWorkOrder(ctx context.Context, tenantID, workOrderID string) (*entities.ManufacturingOrder, error) {
	var ref workOrderRefModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND work_order_id = ?", tenantID, workOrderID).First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.NewNotFoundError("work order", workOrderID)
	}
	if err != nil {
		return nil, fmt.Errorf("find work order %s: %w", workOrderID, err)
	}
	return r.Get(ctx, tenantID, ref.MOID)
}

// NextSequence increments and returns the tenant's order number sequence
func (r *OrderRepository) NextSequence(ctx context.Context, tenantID string) (int, error) {
	var seq orderSequenceModel
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO mfg_order_sequences (tenant_id, value) VALUES (?, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET value = mfg_order_sequences.value + 1
		RETURNING tenant_id, value
	`, tenantID).Scan(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("next order sequence: %w", err)
	}
	return seq.Value, nil
}

func insertOrder(tx *gorm.DB, mo *entities.ManufacturingOrder) error {
	if err := tx.Create(fromOrder(mo)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return entities.NewConflictError(err, "manufacturing order %s already exists", mo.ID)
		}
		return fmt.Errorf("insert manufacturing order %s: %w", mo.ID, err)
	}
	return saveWorkOrderRefs(tx, mo)
}

func updateOrder(tx *gorm.DB, mo *entities.ManufacturingOrder) error {
	row := fromOrder(mo)
	row.Version = mo.Version + 1

	result := tx.Model(&orderModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", mo.TenantID, mo.ID, mo.Version).
		Select("*").Omit("id", "tenant_id", "created_at").
		Updates(row)
	if result.Error != nil {
		return fmt.Errorf("update manufacturing order %s: %w", mo.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&orderModel{}).Where("tenant_id = ? AND id = ?", mo.TenantID, mo.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("update manufacturing order %s: %w", mo.ID, err)
		}
		if count == 0 {
			return entities.NewNotFoundError("manufacturing order", mo.ID)
		}
		return entities.NewConflictError(entities.ErrVersionConflict,
			"manufacturing order %s was modified concurrently (have version %d)", mo.ID, mo.Version)
	}

	if err := saveWorkOrderRefs(tx, mo); err != nil {
		return err
	}
	mo.Version = row.Version
	return nil
}

func saveWorkOrderRefs(tx *gorm.DB, mo *entities.ManufacturingOrder) error {
	refs := workOrderRefs(mo)
	if len(refs) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "work_order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"work_center_id"}),
	}).Create(&refs).Error
	if err != nil {
		return fmt.Errorf("index work orders of %s: %w", mo.ID, err)
	}
	return nil
}
