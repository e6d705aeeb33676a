package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

type productModel struct {
	ID            string          `gorm:"primaryKey;size:64"`
	Name          string          `gorm:"size:200"`
	UnitOfMeasure string          `gorm:"size:16"`
	StandardPrice decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
}

func (productModel) TableName() string { return "mfg_products" }

type bomModel struct {
	ID        string             `gorm:"primaryKey;size:64"`
	ProductID string             `gorm:"size:64;index"`
	BaseQty   decimal.Decimal    `gorm:"type:numeric(20,6);not null"`
	Lines     []entities.BOMLine `gorm:"serializer:json;type:jsonb"`
	Position  int                `gorm:"not null;default:0"`
}

func (bomModel) TableName() string { return "mfg_boms" }

type routingModel struct {
	ID         string               `gorm:"primaryKey;size:64"`
	ProductID  string               `gorm:"size:64;index"`
	Operations []entities.Operation `gorm:"serializer:json;type:jsonb"`
	Position   int                  `gorm:"not null;default:0"`
}

func (routingModel) TableName() string { return "mfg_routings" }

type workCenterModel struct {
	ID                string          `gorm:"primaryKey;size:64"`
	Name              string          `gorm:"size:200"`
	Capacity          decimal.Decimal `gorm:"type:numeric(20,6);not null;default:1"`
	TimeEfficiency    decimal.Decimal `gorm:"type:numeric(20,6);not null;default:100"`
	CostsHour         decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	CostsHourOverhead decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
}

func (workCenterModel) TableName() string { return "mfg_workcenters" }

type stockLevelModel struct {
	TenantID  string          `gorm:"primaryKey;size:64"`
	ProductID string          `gorm:"primaryKey;size:64"`
	OnHand    decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	Reserved  decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	UnitCost  decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	UpdatedAt time.Time
}

func (stockLevelModel) TableName() string { return "mfg_stock_levels" }

// stockMoveModel journals every consumption with the valuation it was issued at
type stockMoveModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	TenantID  string          `gorm:"size:64;index"`
	ProductID string          `gorm:"size:64;index"`
	Qty       decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	UnitCost  decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	CreatedAt time.Time
}

func (stockMoveModel) TableName() string { return "mfg_stock_moves" }

type orderModel struct {
	ID                   string                          `gorm:"primaryKey;size:36"`
	TenantID             string                          `gorm:"size:64;not null;index:idx_mfg_orders_tenant_state"`
	MONumber             string                          `gorm:"column:mo_number;size:64;not null"`
	ProductID            string                          `gorm:"size:64;not null;index"`
	ProductQty           decimal.Decimal                 `gorm:"type:numeric(20,6);not null"`
	QtyProduced          decimal.Decimal                 `gorm:"type:numeric(20,6);not null;default:0"`
	QtyScrapped          decimal.Decimal                 `gorm:"type:numeric(20,6);not null;default:0"`
	State                string                          `gorm:"size:16;not null;index:idx_mfg_orders_tenant_state"`
	BOMID                string                          `gorm:"column:bom_id;size:64"`
	RoutingID            string                          `gorm:"column:routing_id;size:64"`
	Priority             string                          `gorm:"size:16;not null"`
	DatePlannedStart     *time.Time
	DatePlannedFinished  *time.Time
	DateStart            *time.Time
	DateFinished         *time.Time
	SplitFromID          string                          `gorm:"column:split_from_id;size:36;index"`
	SplitReason          string                          `gorm:"type:text"`
	SplitCount           int                             `gorm:"not null;default:0"`
	WorkOrders           []*entities.WorkOrder           `gorm:"serializer:json;type:jsonb"`
	MaterialReservations []*entities.MaterialReservation `gorm:"serializer:json;type:jsonb"`
	CostingLines         []*entities.CostingLine         `gorm:"serializer:json;type:jsonb"`
	Consumptions         []entities.MaterialConsumption  `gorm:"serializer:json;type:jsonb"`
	Version              int                             `gorm:"not null"`
	CreatedAt            time.Time                       `gorm:"autoCreateTime:false"`
	UpdatedAt            time.Time                       `gorm:"autoUpdateTime:false"`
}

func (orderModel) TableName() string { return "mfg_orders" }

// workOrderRefModel indexes work orders for lookup by id and by work center
type workOrderRefModel struct {
	WorkOrderID  string `gorm:"column:work_order_id;primaryKey;size:36"`
	TenantID     string `gorm:"size:64;not null;index"`
	MOID         string `gorm:"column:mo_id;size:36;not null;index"`
	WorkCenterID string `gorm:"column:work_center_id;size:64;index"`
}

func (workOrderRefModel) TableName() string { return "mfg_work_order_refs" }

type orderSequenceModel struct {
	TenantID string `gorm:"primaryKey;size:64"`
	Value    int    `gorm:"not null"`
}

func (orderSequenceModel) TableName() string { return "mfg_order_sequences" }

func fromOrder(mo *entities.ManufacturingOrder) *orderModel {
	return &orderModel{
		ID:                   mo.ID,
		TenantID:             mo.TenantID,
		MONumber:             mo.MONumber,
		ProductID:            string(mo.ProductID),
		ProductQty:           mo.ProductQty,
		QtyProduced:          mo.QtyProduced,
		QtyScrapped:          mo.QtyScrapped,
		State:                mo.State.String(),
		BOMID:                mo.BOMID,
		RoutingID:            mo.RoutingID,
		Priority:             mo.Priority.String(),
		DatePlannedStart:     mo.DatePlannedStart,
		DatePlannedFinished:  mo.DatePlannedFinished,
		DateStart:            mo.DateStart,
		DateFinished:         mo.DateFinished,
		SplitFromID:          mo.SplitFromID,
		SplitReason:          mo.SplitReason,
		SplitCount:           mo.SplitCount,
		WorkOrders:           mo.WorkOrders,
		MaterialReservations: mo.MaterialReservations,
		CostingLines:         mo.CostingLines,
		Consumptions:         mo.Consumptions,
		Version:              mo.Version,
		CreatedAt:            mo.CreatedAt,
		UpdatedAt:            mo.UpdatedAt,
	}
}

func (m *orderModel) toDomain() (*entities.ManufacturingOrder, error) {
	state, err := entities.ParseOrderState(m.State)
	if err != nil {
		return nil, err
	}
	priority, err := entities.ParsePriority(m.Priority)
	if err != nil {
		return nil, err
	}
	return &entities.ManufacturingOrder{
		ID:                   m.ID,
		MONumber:             m.MONumber,
		TenantID:             m.TenantID,
		ProductID:            entities.ProductID(m.ProductID),
		ProductQty:           m.ProductQty,
		QtyProduced:          m.QtyProduced,
		QtyScrapped:          m.QtyScrapped,
		State:                state,
		BOMID:                m.BOMID,
		RoutingID:            m.RoutingID,
		Priority:             priority,
		DatePlannedStart:     utc(m.DatePlannedStart),
		DatePlannedFinished:  utc(m.DatePlannedFinished),
		DateStart:            utc(m.DateStart),
		DateFinished:         utc(m.DateFinished),
		SplitFromID:          m.SplitFromID,
		SplitReason:          m.SplitReason,
		SplitCount:           m.SplitCount,
		WorkOrders:           m.WorkOrders,
		MaterialReservations: m.MaterialReservations,
		CostingLines:         m.CostingLines,
		Consumptions:         m.Consumptions,
		Version:              m.Version,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
	}, nil
}

func workOrderRefs(mo *entities.ManufacturingOrder) []workOrderRefModel {
	refs := make([]workOrderRefModel, 0, len(mo.WorkOrders))
	for _, wo := range mo.WorkOrders {
		refs = append(refs, workOrderRefModel{
			WorkOrderID:  wo.ID,
			TenantID:     mo.TenantID,
			MOID:         mo.ID,
			WorkCenterID: wo.WorkCenterID,
		})
	}
	return refs
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
