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

// ReferenceRepository reads products, BOMs, routings and work centers. The first BOM or routing
// loaded for a product is its default.
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Verify interface compliance
var _ repositories.ReferenceRepository = (*ReferenceRepository)(nil)

// Load upserts reference data, e.g. from a CSV seed
func (r *ReferenceRepository) Load(
	ctx context.Context,
	products []*entities.Product,
	boms []*entities.BOM,
	routings []*entities.Routing,
	workCenters []*entities.WorkCenter,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{UpdateAll: true})

		for _, p := range products {
			row := productModel{ID: string(p.ID), Name: p.Name, UnitOfMeasure: p.UnitOfMeasure, StandardPrice: p.StandardPrice}
			if err := upsert.Create(&row).Error; err != nil {
				return fmt.Errorf("load product %s: %w", p.ID, err)
			}
		}
		for i, b := range boms {
			row := bomModel{ID: b.ID, ProductID: string(b.ProductID), BaseQty: b.BaseQty, Lines: b.Lines, Position: i}
			if err := upsert.Create(&row).Error; err != nil {
				return fmt.Errorf("load bom %s: %w", b.ID, err)
			}
		}
		for i, rt := range routings {
			row := routingModel{ID: rt.ID, ProductID: string(rt.ProductID), Operations: rt.Operations, Position: i}
			if err := upsert.Create(&row).Error; err != nil {
				return fmt.Errorf("load routing %s: %w", rt.ID, err)
			}
		}
		for _, wc := range workCenters {
			row := workCenterModel{
				ID:                wc.ID,
				Name:              wc.Name,
				Capacity:          wc.Capacity,
				TimeEfficiency:    wc.TimeEfficiency,
				CostsHour:         wc.CostsHour,
				CostsHourOverhead: wc.CostsHourOverhead,
			}
			if err := upsert.Create(&row).Error; err != nil {
				return fmt.Errorf("load work center %s: %w", wc.ID, err)
			}
		}
		return nil
	})
}

// first loads one row into dest, mapping a missing row to a not-found ValidationError
func (r *ReferenceRepository) first(ctx context.Context, dest interface{}, kind, id string, query string, args ...interface{}) error {
	err := r.db.WithContext(ctx).Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.NewNotFoundError(kind, id)
	}
	if err != nil {
		return fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	return nil
}

func (r *ReferenceRepository) GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error) {
	var row productModel
	if err := r.first(ctx, &row, "product", string(id), "id = ?", string(id)); err != nil {
		return nil, err
	}
	return &entities.Product{
		ID:            entities.ProductID(row.ID),
		Name:          row.Name,
		UnitOfMeasure: row.UnitOfMeasure,
		StandardPrice: row.StandardPrice,
	}, nil
}

func (r *ReferenceRepository) GetBOM(ctx context.Context, id string) (*entities.BOM, error) {
	var row bomModel
	if err := r.first(ctx, &row, "bom", id, "id = ?", id); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *ReferenceRepository) FindBOMByProduct(ctx context.Context, productID entities.ProductID) (*entities.BOM, error) {
	var row bomModel
	err := r.db.WithContext(ctx).Where("product_id = ?", string(productID)).Order("position, id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.NewNotFoundError("bom for product", string(productID))
	}
	if err != nil {
		return nil, fmt.Errorf("find bom of %s: %w", productID, err)
	}
	return row.toDomain(), nil
}

func (r *ReferenceRepository) GetRouting(ctx context.Context, id string) (*entities.Routing, error) {
	var row routingModel
	if err := r.first(ctx, &row, "routing", id, "id = ?", id); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *ReferenceRepository) FindRoutingByProduct(ctx context.Context, productID entities.ProductID) (*entities.Routing, error) {
	var row routingModel
	err := r.db.WithContext(ctx).Where("product_id = ?", string(productID)).Order("position, id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.NewNotFoundError("routing for product", string(productID))
	}
	if err != nil {
		return nil, fmt.Errorf("find routing of %s: %w", productID, err)
	}
	return row.toDomain(), nil
}

func (r *ReferenceRepository) GetWorkCenter(ctx context.Context, id string) (*entities.WorkCenter, error) {
	var row workCenterModel
	if err := r.first(ctx, &row, "work center", id, "id = ?", id); err != nil {
		return nil, err
	}
	return &entities.WorkCenter{
		ID:                row.ID,
		Name:              row.Name,
		Capacity:          row.Capacity,
		TimeEfficiency:    row.TimeEfficiency,
		CostsHour:         row.CostsHour,
		CostsHourOverhead: row.CostsHourOverhead,
	}, nil
}

func (m *bomModel) toDomain() *entities.BOM {
	return &entities.BOM{ID: m.ID, ProductID: entities.ProductID(m.ProductID), BaseQty: m.BaseQty, Lines: m.Lines}
}

func (m *routingModel) toDomain() *entities.Routing {
	return &entities.Routing{ID: m.ID, ProductID: entities.ProductID(m.ProductID), Operations: m.Operations}
}
