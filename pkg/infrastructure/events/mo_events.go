package events

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

const (
	OrderCreatedEvent   = "mo.created"
	OrderConfirmedEvent = "mo.confirmed"
	OrderStartedEvent   = "mo.started"
	OrderToCloseEvent   = "mo.to_close"
	OrderCompletedEvent = "mo.completed"
	OrderCancelledEvent = "mo.cancelled"
	OrderSplitEvent     = "mo.split"

	MaterialsReservedEvent = "mo.materials_reserved"
	MaterialsReleasedEvent = "mo.materials_released"

	WorkOrderStateChangedEvent = "workorder.state_changed"
	ScrapRecordedEvent         = "workorder.scrap_recorded"
)

// AllEventTypes lists every lifecycle event type, for subscribers that want everything
var AllEventTypes = []string{
	OrderCreatedEvent,
	OrderConfirmedEvent,
	OrderStartedEvent,
	OrderToCloseEvent,
	OrderCompletedEvent,
	OrderCancelledEvent,
	OrderSplitEvent,
	MaterialsReservedEvent,
	MaterialsReleasedEvent,
	WorkOrderStateChangedEvent,
	ScrapRecordedEvent,
}

// OrderRef identifies the order an event belongs to
type OrderRef struct {
	MOID     string `json:"mo_id"`
	MONumber string `json:"mo_number"`
	State    string `json:"state"`
}

func refOf(mo *entities.ManufacturingOrder) OrderRef {
	return OrderRef{MOID: mo.ID, MONumber: mo.MONumber, State: mo.State.String()}
}

type OrderCreated struct {
	OrderRef
	ProductID  entities.ProductID `json:"product_id"`
	ProductQty decimal.Decimal    `json:"product_qty"`
	Priority   string             `json:"priority"`
}

type OrderConfirmed struct {
	OrderRef
	WorkOrders   int `json:"work_orders"`
	Reservations int `json:"reservations"`
}

type OrderStarted struct {
	OrderRef
	DateStart        time.Time                  `json:"date_start"`
	MaterialsReady   bool                       `json:"materials_ready"`
	MissingMaterials []entities.MissingMaterial `json:"missing_materials,omitempty"`
}

type OrderToClose struct {
	OrderRef
	QtyProduced decimal.Decimal `json:"qty_produced"`
}

type OrderCompleted struct {
	OrderRef
	QtyProduced  decimal.Decimal `json:"qty_produced"`
	QtyScrapped  decimal.Decimal `json:"qty_scrapped"`
	DateFinished time.Time       `json:"date_finished"`
	StandardCost decimal.Decimal `json:"standard_cost"`
	ActualCost   decimal.Decimal `json:"actual_cost"`
}

type OrderCancelled struct {
	OrderRef
	FromState            string `json:"from_state"`
	ReleasedReservations int    `json:"released_reservations"`
}

type OrderSplit struct {
	OrderRef
	ChildID        string          `json:"child_id"`
	ChildMONumber  string          `json:"child_mo_number"`
	Qty            decimal.Decimal `json:"qty"`
	ParentQtyAfter decimal.Decimal `json:"parent_qty_after"`
	Reason         string          `json:"reason"`
}

type MaterialsChanged struct {
	OrderRef
	Reservations int `json:"reservations"`
}

type WorkOrderStateChanged struct {
	OrderRef
	WorkOrderID   string `json:"work_order_id"`
	OperationName string `json:"operation_name"`
	WorkCenterID  string `json:"workcenter_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Activity      string `json:"activity,omitempty"`
	OperatorID    string `json:"operator_id,omitempty"`
}

type ScrapRecorded struct {
	OrderRef
	WorkOrderID string          `json:"work_order_id"`
	Qty         decimal.Decimal `json:"qty"`
	Reason      string          `json:"reason"`
	OperatorID  string          `json:"operator_id,omitempty"`
}

func orderEvent(eventType string, mo *entities.ManufacturingOrder, data interface{}, at time.Time) Event {
	return NewEvent(eventType, mo.TenantID, mo.ID, data, at)
}

func NewOrderCreatedEvent(mo *entities.ManufacturingOrder, at time.Time) Event {
	return orderEvent(OrderCreatedEvent, mo, OrderCreated{
		OrderRef:   refOf(mo),
		ProductID:  mo.ProductID,
		ProductQty: mo.ProductQty,
		Priority:   mo.Priority.String(),
	}, at)
}

func NewOrderConfirmedEvent(mo *entities.ManufacturingOrder, at time.Time) Event {
	return orderEvent(OrderConfirmedEvent, mo, OrderConfirmed{
		OrderRef:     refOf(mo),
		WorkOrders:   len(mo.WorkOrders),
		Reservations: len(mo.HeldReservations()),
	}, at)
}

func NewOrderStartedEvent(mo *entities.ManufacturingOrder, report *entities.AvailabilityReport, at time.Time) Event {
	data := OrderStarted{OrderRef: refOf(mo), DateStart: at, MaterialsReady: true}
	if report != nil {
		data.MaterialsReady = report.Available
		data.MissingMaterials = report.MissingMaterials
	}
	return orderEvent(OrderStartedEvent, mo, data, at)
}

func NewOrderToCloseEvent(mo *entities.ManufacturingOrder, at time.Time) Event {
	return orderEvent(OrderToCloseEvent, mo, OrderToClose{OrderRef: refOf(mo), QtyProduced: mo.QtyProduced}, at)
}

func NewOrderCompletedEvent(mo *entities.ManufacturingOrder, summary *entities.CostSummary, at time.Time) Event {
	data := OrderCompleted{
		OrderRef:     refOf(mo),
		QtyProduced:  mo.QtyProduced,
		QtyScrapped:  mo.QtyScrapped,
		DateFinished: at,
	}
	if summary != nil {
		data.StandardCost = summary.StandardCost
		data.ActualCost = summary.ActualCost
	}
	return orderEvent(OrderCompletedEvent, mo, data, at)
}

func NewOrderCancelledEvent(mo *entities.ManufacturingOrder, from entities.OrderState, released int, at time.Time) Event {
	return orderEvent(OrderCancelledEvent, mo, OrderCancelled{
		OrderRef:             refOf(mo),
		FromState:            from.String(),
		ReleasedReservations: released,
	}, at)
}

func NewOrderSplitEvent(parent, child *entities.ManufacturingOrder, reason string, at time.Time) Event {
	return orderEvent(OrderSplitEvent, parent, OrderSplit{
		OrderRef:       refOf(parent),
		ChildID:        child.ID,
		ChildMONumber:  child.MONumber,
		Qty:            child.ProductQty,
		ParentQtyAfter: parent.ProductQty,
		Reason:         reason,
	}, at)
}

func NewMaterialsReservedEvent(mo *entities.ManufacturingOrder, count int, at time.Time) Event {
	return orderEvent(MaterialsReservedEvent, mo, MaterialsChanged{OrderRef: refOf(mo), Reservations: count}, at)
}

func NewMaterialsReleasedEvent(mo *entities.ManufacturingOrder, count int, at time.Time) Event {
	return orderEvent(MaterialsReleasedEvent, mo, MaterialsChanged{OrderRef: refOf(mo), Reservations: count}, at)
}

func NewWorkOrderStateChangedEvent(
	mo *entities.ManufacturingOrder,
	wo *entities.WorkOrder,
	from string,
	activity string,
	operatorID string,
	at time.Time,
) Event {
	return orderEvent(WorkOrderStateChangedEvent, mo, WorkOrderStateChanged{
		OrderRef:      refOf(mo),
		WorkOrderID:   wo.ID,
		OperationName: wo.OperationName,
		WorkCenterID:  wo.WorkCenterID,
		From:          from,
		To:            WorkOrderLabel(wo),
		Activity:      activity,
		OperatorID:    operatorID,
	}, at)
}

func NewScrapRecordedEvent(mo *entities.ManufacturingOrder, wo *entities.WorkOrder, qty decimal.Decimal, reason, operatorID string, at time.Time) Event {
	return orderEvent(ScrapRecordedEvent, mo, ScrapRecorded{
		OrderRef:    refOf(mo),
		WorkOrderID: wo.ID,
		Qty:         qty,
		Reason:      reason,
		OperatorID:  operatorID,
	}, at)
}

// WorkOrderLabel names the work order state, reporting a paused progress work order as paused
func WorkOrderLabel(wo *entities.WorkOrder) string {
	if wo.State == entities.WorkOrderProgress && !wo.IsUserWorking {
		return "paused"
	}
	return wo.State.String()
}
