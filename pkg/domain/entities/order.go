package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderState represents the lifecycle state of a manufacturing order
type OrderState int

const (
	OrderDraft OrderState = iota
	OrderConfirmed
	OrderProgress
	OrderToClose
	OrderDone
	OrderCancel
)

var orderStateNames = map[OrderState]string{
	OrderDraft:     "draft",
	OrderConfirmed: "confirmed",
	OrderProgress:  "progress",
	OrderToClose:   "to_close",
	OrderDone:      "done",
	OrderCancel:    "cancel",
}

// String method for OrderState enum
func (s OrderState) String() string {
	if name, ok := orderStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseOrderState parses the textual form produced by String
func ParseOrderState(s string) (OrderState, error) {
	for state, name := range orderStateNames {
		if name == s {
			return state, nil
		}
	}
	return OrderDraft, fmt.Errorf("unknown order state %q", s)
}

func (s OrderState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *OrderState) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsTerminal reports whether no further transition is possible
func (s OrderState) IsTerminal() bool {
	return s == OrderDone || s == OrderCancel
}

// orderTransitions lists the legal targets per state. progress -> to_close is only
// taken internally when the last work order finishes.
var orderTransitions = map[OrderState][]OrderState{
	OrderDraft:     {OrderConfirmed, OrderCancel},
	OrderConfirmed: {OrderProgress, OrderCancel},
	OrderProgress:  {OrderToClose, OrderDone, OrderCancel},
	OrderToClose:   {OrderDone, OrderCancel},
}

// CanTransition reports whether the state machine allows from -> to
func CanTransition(from, to OrderState) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Priority represents the scheduling priority of an order
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// String method for Priority enum
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// ParsePriority parses a priority name. Empty input means medium.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "medium", "":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	default:
		return PriorityMedium, fmt.Errorf("unknown priority %q", s)
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MaterialConsumption records a component or consumable issued to the order at completion
type MaterialConsumption struct {
	ProductID ProductID       `json:"product_id"`
	Qty       decimal.Decimal `json:"qty"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// Cost returns the valued consumption
func (c MaterialConsumption) Cost() decimal.Decimal {
	return c.Qty.Mul(c.UnitCost)
}

// ManufacturingOrder is the top-level production record. It owns its work orders,
// reservations and costing lines.
type ManufacturingOrder struct {
	ID                   string                `json:"id"`
	MONumber             string                `json:"mo_number"`
	TenantID             string                `json:"tenant_id"`
	ProductID            ProductID             `json:"product_id"`
	ProductQty           decimal.Decimal       `json:"product_qty"`
	QtyProduced          decimal.Decimal       `json:"qty_produced"`
	QtyScrapped          decimal.Decimal       `json:"qty_scrapped"`
	State                OrderState            `json:"state"`
	BOMID                string                `json:"bom_id,omitempty"`
	RoutingID            string                `json:"routing_id,omitempty"`
	Priority             Priority              `json:"priority"`
	DatePlannedStart     *time.Time            `json:"date_planned_start,omitempty"`
	DatePlannedFinished  *time.Time            `json:"date_planned_finished,omitempty"`
	DateStart            *time.Time            `json:"date_start,omitempty"`
	DateFinished         *time.Time            `json:"date_finished,omitempty"`
	SplitFromID          string                `json:"split_from_id,omitempty"`
	SplitReason          string                `json:"split_reason,omitempty"`
	SplitCount           int                   `json:"split_count"`
	WorkOrders           []*WorkOrder          `json:"work_orders"`
	MaterialReservations []*MaterialReservation `json:"material_reservations"`
	CostingLines         []*CostingLine        `json:"costing_lines"`
	Consumptions         []MaterialConsumption `json:"consumptions,omitempty"`
	Version              int                   `json:"version"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// NewManufacturingOrder creates a draft order with validation
func NewManufacturingOrder(id, tenantID string, productID ProductID, productQty decimal.Decimal) (*ManufacturingOrder, error) {
	if id == "" {
		return nil, NewValidationError("id", "cannot be empty")
	}
	if tenantID == "" {
		return nil, NewValidationError("tenant_id", "cannot be empty")
	}
	if productID == "" {
		return nil, NewValidationError("product_id", "cannot be empty")
	}
	if productQty.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("product_qty", "must be positive, got %s", productQty)
	}

	return &ManufacturingOrder{
		ID:          id,
		TenantID:    tenantID,
		ProductID:   productID,
		ProductQty:  productQty,
		QtyProduced: decimal.Zero,
		QtyScrapped: decimal.Zero,
		State:       OrderDraft,
		Priority:    PriorityMedium,
	}, nil
}

// Transition moves the order to the requested state or fails with an InvalidStateError
func (mo *ManufacturingOrder) Transition(to OrderState) error {
	if !CanTransition(mo.State, to) {
		return NewInvalidStateError("manufacturing order", mo.ID, mo.State.String(), to.String())
	}
	mo.State = to
	return nil
}

// RequireState fails with an InvalidStateError naming action unless the order is in one of states
func (mo *ManufacturingOrder) RequireState(action string, states ...OrderState) error {
	for _, s := range states {
		if mo.State == s {
			return nil
		}
	}
	return NewInvalidStateError("manufacturing order", mo.ID, mo.State.String(), action)
}

// RemainingQty is the quantity not yet produced or scrapped
func (mo *ManufacturingOrder) RemainingQty() decimal.Decimal {
	return mo.ProductQty.Sub(mo.QtyProduced).Sub(mo.QtyScrapped)
}

// CheckQuantities enforces qtyProduced + qtyScrapped <= productQty
func (mo *ManufacturingOrder) CheckQuantities(allowOverProduction bool) error {
	if mo.QtyProduced.IsNegative() || mo.QtyScrapped.IsNegative() {
		return NewValidationError("qty", "produced and scrapped quantities must not be negative")
	}
	if allowOverProduction {
		return nil
	}
	if mo.QtyProduced.Add(mo.QtyScrapped).GreaterThan(mo.ProductQty) {
		return NewValidationError("qty", "produced %s plus scrapped %s exceeds ordered %s",
			mo.QtyProduced, mo.QtyScrapped, mo.ProductQty)
	}
	return nil
}

// WorkOrder returns the owned work order with the given id, or nil
func (mo *ManufacturingOrder) WorkOrder(id string) *WorkOrder {
	for _, wo := range mo.WorkOrders {
		if wo.ID == id {
			return wo
		}
	}
	return nil
}

// PredecessorsDone reports whether every work order with a lower sequence is done or cancelled
func (mo *ManufacturingOrder) PredecessorsDone(wo *WorkOrder) bool {
	for _, other := range mo.WorkOrders {
		if other.Sequence < wo.Sequence && !other.State.IsFinished() {
			return false
		}
	}
	return true
}

// ReadyEligibleWorkOrders promotes pending work orders whose predecessors are finished to ready
// and returns the promoted ones
func (mo *ManufacturingOrder) ReadyEligibleWorkOrders() []*WorkOrder {
	var promoted []*WorkOrder
	for _, wo := range mo.WorkOrders {
		if wo.State == WorkOrderPending && mo.PredecessorsDone(wo) {
			wo.State = WorkOrderReady
			promoted = append(promoted, wo)
		}
	}
	return promoted
}

// AllWorkOrdersFinished reports whether at least one work order is done and none is still open
func (mo *ManufacturingOrder) AllWorkOrdersFinished() bool {
	done := 0
	for _, wo := range mo.WorkOrders {
		switch wo.State {
		case WorkOrderDone:
			done++
		case WorkOrderCancel:
		default:
			return false
		}
	}
	return done > 0
}

// LastWorkOrder returns the work order with the highest sequence, or nil
func (mo *ManufacturingOrder) LastWorkOrder() *WorkOrder {
	var last *WorkOrder
	for _, wo := range mo.WorkOrders {
		if wo.State == WorkOrderCancel {
			continue
		}
		if last == nil || wo.Sequence > last.Sequence {
			last = wo
		}
	}
	return last
}

// HeldReservations returns reservations currently holding inventory
func (mo *ManufacturingOrder) HeldReservations() []*MaterialReservation {
	var held []*MaterialReservation
	for _, r := range mo.MaterialReservations {
		if r.State.IsHeld() {
			held = append(held, r)
		}
	}
	return held
}

// Clone returns a deep copy so mutations can be discarded when an operation fails
func (mo *ManufacturingOrder) Clone() *ManufacturingOrder {
	c := *mo
	c.DatePlannedStart = cloneTime(mo.DatePlannedStart)
	c.DatePlannedFinished = cloneTime(mo.DatePlannedFinished)
	c.DateStart = cloneTime(mo.DateStart)
	c.DateFinished = cloneTime(mo.DateFinished)

	c.WorkOrders = make([]*WorkOrder, len(mo.WorkOrders))
	for i, wo := range mo.WorkOrders {
		c.WorkOrders[i] = wo.Clone()
	}
	c.MaterialReservations = make([]*MaterialReservation, len(mo.MaterialReservations))
	for i, r := range mo.MaterialReservations {
		rc := *r
		c.MaterialReservations[i] = &rc
	}
	c.CostingLines = make([]*CostingLine, len(mo.CostingLines))
	for i, line := range mo.CostingLines {
		lc := *line
		c.CostingLines[i] = &lc
	}
	c.Consumptions = append([]MaterialConsumption(nil), mo.Consumptions...)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
