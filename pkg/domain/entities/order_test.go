package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestManufacturingOrder_Validation(t *testing.T) {
	mo, err := NewManufacturingOrder("mo-1", "acme", "WIDGET", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Expected valid order creation to succeed: %v", err)
	}
	if mo.State != OrderDraft {
		t.Errorf("Expected state draft, got %s", mo.State)
	}
	if mo.Priority != PriorityMedium {
		t.Errorf("Expected priority medium, got %s", mo.Priority)
	}

	testCases := []struct {
		name        string
		tenantID    string
		productID   ProductID
		qty         decimal.Decimal
		expectError string
	}{
		{"empty tenant", "", "WIDGET", decimal.NewFromInt(1), "tenant_id cannot be empty"},
		{"empty product", "acme", "", decimal.NewFromInt(1), "product_id cannot be empty"},
		{"zero quantity", "acme", "WIDGET", decimal.Zero, "product_qty must be positive, got 0"},
		{"negative quantity", "acme", "WIDGET", decimal.NewFromInt(-5), "product_qty must be positive, got -5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewManufacturingOrder("mo-x", tc.tenantID, tc.productID, tc.qty)
			if err == nil {
				t.Fatalf("Expected error %q, got nil", tc.expectError)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error %q, got %q", tc.expectError, err.Error())
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}
}

func TestOrderTransitions(t *testing.T) {
	testCases := []struct {
		from    OrderState
		to      OrderState
		allowed bool
	}{
		{OrderDraft, OrderConfirmed, true},
		{OrderDraft, OrderProgress, false},
		{OrderDraft, OrderDone, false},
		{OrderDraft, OrderCancel, true},
		{OrderConfirmed, OrderConfirmed, false},
		{OrderConfirmed, OrderProgress, true},
		{OrderConfirmed, OrderDone, false},
		{OrderConfirmed, OrderCancel, true},
		{OrderProgress, OrderConfirmed, false},
		{OrderProgress, OrderProgress, false},
		{OrderProgress, OrderDone, true},
		{OrderProgress, OrderCancel, true},
		{OrderProgress, OrderToClose, true},
		{OrderToClose, OrderProgress, false},
		{OrderToClose, OrderDone, true},
		{OrderToClose, OrderCancel, true},
		{OrderDone, OrderCancel, false},
		{OrderDone, OrderConfirmed, false},
		{OrderCancel, OrderCancel, false},
		{OrderCancel, OrderDone, false},
	}

	for _, tc := range testCases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			mo := &ManufacturingOrder{ID: "mo-1", State: tc.from}
			err := mo.Transition(tc.to)
			if tc.allowed {
				if err != nil {
					t.Fatalf("Expected transition to succeed, got %v", err)
				}
				if mo.State != tc.to {
					t.Errorf("Expected state %s, got %s", tc.to, mo.State)
				}
				return
			}
			var serr *InvalidStateError
			if !errors.As(err, &serr) {
				t.Fatalf("Expected InvalidStateError, got %v", err)
			}
			if serr.Current != tc.from.String() || serr.Requested != tc.to.String() {
				t.Errorf("Expected %s -> %s in error, got %s -> %s", tc.from, tc.to, serr.Current, serr.Requested)
			}
			if mo.State != tc.from {
				t.Errorf("Expected state to stay %s, got %s", tc.from, mo.State)
			}
		})
	}
}

func TestOrderState_TextRoundTrip(t *testing.T) {
	for _, s := range []OrderState{OrderDraft, OrderConfirmed, OrderProgress, OrderToClose, OrderDone, OrderCancel} {
		text, _ := s.MarshalText()
		var parsed OrderState
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("Expected %s to parse, got %v", text, err)
		}
		if parsed != s {
			t.Errorf("Expected %s, got %s", s, parsed)
		}
	}

	if _, err := ParseOrderState("in_progress"); err == nil {
		t.Error("Expected unknown state to fail")
	}
}

func TestManufacturingOrder_CheckQuantities(t *testing.T) {
	mo := &ManufacturingOrder{
		ProductQty:  decimal.NewFromInt(100),
		QtyProduced: decimal.NewFromInt(95),
		QtyScrapped: decimal.NewFromInt(5),
	}
	if err := mo.CheckQuantities(false); err != nil {
		t.Fatalf("Expected 95+5 <= 100 to pass, got %v", err)
	}

	mo.QtyScrapped = decimal.NewFromInt(6)
	if err := mo.CheckQuantities(false); err == nil {
		t.Error("Expected 95+6 > 100 to fail")
	}
	if err := mo.CheckQuantities(true); err != nil {
		t.Errorf("Expected over-production to pass when allowed, got %v", err)
	}

	mo.QtyProduced = decimal.NewFromInt(-1)
	if err := mo.CheckQuantities(true); err == nil {
		t.Error("Expected negative produced quantity to fail even when over-production is allowed")
	}
}

func TestManufacturingOrder_ReadyEligibleWorkOrders(t *testing.T) {
	mo := &ManufacturingOrder{
		WorkOrders: []*WorkOrder{
			{ID: "wo-10", Sequence: 10, State: WorkOrderPending},
			{ID: "wo-10b", Sequence: 10, State: WorkOrderPending},
			{ID: "wo-20", Sequence: 20, State: WorkOrderPending},
		},
	}

	promoted := mo.ReadyEligibleWorkOrders()
	if len(promoted) != 2 {
		t.Fatalf("Expected 2 promoted work orders, got %d", len(promoted))
	}
	if mo.WorkOrder("wo-20").State != WorkOrderPending {
		t.Errorf("Expected wo-20 to stay pending, got %s", mo.WorkOrder("wo-20").State)
	}

	mo.WorkOrder("wo-10").State = WorkOrderDone
	mo.WorkOrder("wo-10b").State = WorkOrderCancel
	promoted = mo.ReadyEligibleWorkOrders()
	if len(promoted) != 1 || promoted[0].ID != "wo-20" {
		t.Fatalf("Expected wo-20 promoted, got %v", promoted)
	}
	if mo.AllWorkOrdersFinished() {
		t.Error("Expected order with a ready work order to be unfinished")
	}
	mo.WorkOrder("wo-20").State = WorkOrderDone
	if !mo.AllWorkOrdersFinished() {
		t.Error("Expected all work orders finished")
	}
}

func TestManufacturingOrder_Clone(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	mo := &ManufacturingOrder{
		ID:         "mo-1",
		ProductQty: decimal.NewFromInt(10),
		DateStart:  &start,
		WorkOrders: []*WorkOrder{{ID: "wo-1", State: WorkOrderReady}},
		MaterialReservations: []*MaterialReservation{
			{ID: "r-1", ProductUOMQty: decimal.NewFromInt(20), State: ReservationConfirmed},
		},
	}

	c := mo.Clone()
	c.WorkOrders[0].State = WorkOrderProgress
	c.MaterialReservations[0].State = ReservationCancelled
	*c.DateStart = start.Add(time.Hour)
	c.ProductQty = decimal.NewFromInt(5)

	if mo.WorkOrders[0].State != WorkOrderReady {
		t.Errorf("Expected original work order to stay ready, got %s", mo.WorkOrders[0].State)
	}
	if mo.MaterialReservations[0].State != ReservationConfirmed {
		t.Errorf("Expected original reservation to stay confirmed, got %s", mo.MaterialReservations[0].State)
	}
	if !mo.DateStart.Equal(start) {
		t.Errorf("Expected original start %v, got %v", start, *mo.DateStart)
	}
	if !mo.ProductQty.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected original quantity 10, got %s", mo.ProductQty)
	}
}
