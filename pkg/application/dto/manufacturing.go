package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/domain/services"
)

// Actor identifies who performs an operation. TenantID is required on every call.
type Actor struct {
	TenantID   string
	OperatorID string
}

// Validate checks the actor carries a tenant
func (a Actor) Validate() error {
	if a.TenantID == "" {
		return entities.NewValidationError("tenant_id", "is required")
	}
	return nil
}

// CreateOrderInput carries the fields of a new manufacturing order
type CreateOrderInput struct {
	ProductID           entities.ProductID `json:"product_id"`
	ProductQty          decimal.Decimal    `json:"product_qty"`
	BOMID               string             `json:"bom_id,omitempty"`
	RoutingID           string             `json:"routing_id,omitempty"`
	Priority            string             `json:"priority,omitempty"`
	DatePlannedStart    *time.Time         `json:"date_planned_start,omitempty"`
	DatePlannedFinished *time.Time         `json:"date_planned_finished,omitempty"`
}

// Validate checks the input and returns the parsed priority
func (in CreateOrderInput) Validate() (entities.Priority, error) {
	if in.ProductID == "" {
		return entities.PriorityMedium, entities.NewValidationError("product_id", "is required")
	}
	if in.ProductQty.LessThanOrEqual(decimal.Zero) {
		return entities.PriorityMedium, entities.NewValidationError("product_qty", "must be positive, got %s", in.ProductQty)
	}
	priority, err := entities.ParsePriority(in.Priority)
	if err != nil {
		return entities.PriorityMedium, entities.NewValidationError("priority", "must be one of low, medium, high, urgent, got %q", in.Priority)
	}
	if in.DatePlannedStart != nil && in.DatePlannedFinished != nil && in.DatePlannedFinished.Before(*in.DatePlannedStart) {
		return entities.PriorityMedium, entities.NewValidationError("date_planned_finished", "cannot be before date_planned_start")
	}
	return priority, nil
}

// CompleteOrderInput closes an order with the final produced quantity
type CompleteOrderInput struct {
	QtyProduced decimal.Decimal `json:"qty_produced"`
}

// Validate checks the produced quantity
func (in CompleteOrderInput) Validate() error {
	if in.QtyProduced.IsNegative() {
		return entities.NewValidationError("qty_produced", "must not be negative, got %s", in.QtyProduced)
	}
	return nil
}

// SplitOrderInput moves qty of an order into a new sibling order
type SplitOrderInput struct {
	Qty    decimal.Decimal `json:"qty"`
	Reason string          `json:"reason"`
}

// Validate checks the quantity is positive; the upper bound depends on the order
func (in SplitOrderInput) Validate() error {
	if in.Qty.LessThanOrEqual(decimal.Zero) {
		return entities.NewValidationError("qty", "must be positive, got %s", in.Qty)
	}
	return nil
}

// PauseWorkOrderInput records why a work order stopped
type PauseWorkOrderInput struct {
	Reason string `json:"reason"`
}

// CompleteWorkOrderInput closes a work order
type CompleteWorkOrderInput struct {
	QtyProduced decimal.Decimal `json:"qty_produced"`
	QtyScrapped decimal.Decimal `json:"qty_scrapped"`
}

// Validate checks both quantities
func (in CompleteWorkOrderInput) Validate() error {
	if in.QtyProduced.IsNegative() {
		return entities.NewValidationError("qty_produced", "must not be negative, got %s", in.QtyProduced)
	}
	if in.QtyScrapped.IsNegative() {
		return entities.NewValidationError("qty_scrapped", "must not be negative, got %s", in.QtyScrapped)
	}
	return nil
}

// RecordScrapInput adds scrap to a running work order
type RecordScrapInput struct {
	Qty    decimal.Decimal `json:"qty"`
	Reason string          `json:"reason"`
}

// Validate checks the scrapped quantity
func (in RecordScrapInput) Validate() error {
	if in.Qty.LessThanOrEqual(decimal.Zero) {
		return entities.NewValidationError("qty", "must be positive, got %s", in.Qty)
	}
	return nil
}

// ListOrdersQuery filters an order listing by textual state, product and priority
type ListOrdersQuery struct {
	State        string
	ProductID    string
	Priority     string
	WorkCenterID string
}

// ToFilter parses the query into a repository filter
func (q ListOrdersQuery) ToFilter() (repositories.OrderFilter, error) {
	filter := repositories.OrderFilter{
		ProductID:    entities.ProductID(q.ProductID),
		WorkCenterID: q.WorkCenterID,
	}
	if q.State != "" {
		state, err := entities.ParseOrderState(q.State)
		if err != nil {
			return filter, entities.NewValidationError("state", "unknown value %q", q.State)
		}
		filter.State = &state
	}
	if q.Priority != "" {
		priority, err := entities.ParsePriority(q.Priority)
		if err != nil {
			return filter, entities.NewValidationError("priority", "unknown value %q", q.Priority)
		}
		filter.Priority = &priority
	}
	return filter, nil
}

// OEEQuery selects a work center and a half-open period
type OEEQuery struct {
	WorkCenterID string
	From         time.Time
	To           time.Time
}

// Validate checks the period
func (q OEEQuery) Validate() error {
	if q.WorkCenterID == "" {
		return entities.NewValidationError("workcenter_id", "is required")
	}
	if !q.To.After(q.From) {
		return entities.NewValidationError("to", "must be after from")
	}
	return nil
}

// SplitResult returns both orders of a split
type SplitResult struct {
	Parent *entities.ManufacturingOrder `json:"parent"`
	Child  *entities.ManufacturingOrder `json:"child"`
}

// ToFilter selects the orders with work on the queried work center
func (q OEEQuery) ToFilter() repositories.OrderFilter {
	return repositories.OrderFilter{WorkCenterID: q.WorkCenterID}
}

// CostReport bundles an order's costing with the OEE of the work centers it used
type CostReport struct {
	Order   *entities.ManufacturingOrder `json:"order"`
	Summary *entities.CostSummary        `json:"summary"`
	OEE     []*services.OEEReport        `json:"oee"`
}
