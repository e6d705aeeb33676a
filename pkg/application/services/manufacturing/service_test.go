package manufacturing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/shopfloor/pkg/infrastructure/testing"
)

var (
	actor   = dto.Actor{TenantID: testhelpers.TestTenant, OperatorID: "op-7"}
	shiftAt = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	dec     = testhelpers.Dec
)

type harness struct {
	svc       *Service
	orders    *memory.OrderRepository
	stock     *memory.InventoryRepository
	reference *memory.ReferenceRepository
	journal   *events.InMemoryEventStore
	clock     *testhelpers.FixedClock
}

// newHarness wires the service over the workshop fixture. wrap, when given, decorates the
// inventory collaborator seen by the service.
func newHarness(t *testing.T, config Config, wrap func(repositories.InventoryRepository) repositories.InventoryRepository) *harness {
	t.Helper()
	reference, stock := testhelpers.BuildWorkshopTestData()
	h := &harness{
		orders:    memory.NewOrderRepository(),
		stock:     stock,
		reference: reference,
		journal:   events.NewInMemoryEventStore(zap.NewNop()),
		clock:     testhelpers.NewFixedClock(shiftAt),
	}
	var inventory repositories.InventoryRepository = stock
	if wrap != nil {
		inventory = wrap(stock)
	}
	h.svc = NewService(h.orders, inventory, reference, h.journal, config, WithClock(h.clock.Now))
	return h
}

func (h *harness) create(t *testing.T, product entities.ProductID, qty string) *entities.ManufacturingOrder {
	t.Helper()
	mo, err := h.svc.Create(context.Background(), actor, dto.CreateOrderInput{ProductID: product, ProductQty: dec(qty)})
	if err != nil {
		t.Fatalf("create %s: %v", product, err)
	}
	return mo
}

func (h *harness) confirmed(t *testing.T, product entities.ProductID, qty string) *entities.ManufacturingOrder {
	t.Helper()
	mo, err := h.svc.Confirm(context.Background(), actor, h.create(t, product, qty).ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return mo
}

func (h *harness) started(t *testing.T, product entities.ProductID, qty string) *entities.ManufacturingOrder {
	t.Helper()
	mo, err := h.svc.Start(context.Background(), actor, h.confirmed(t, product, qty).ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return mo
}

func (h *harness) reload(t *testing.T, id string) *entities.ManufacturingOrder {
	t.Helper()
	mo, err := h.svc.Get(context.Background(), actor, id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return mo
}

func (h *harness) eventTypes(t *testing.T, streamID string) []string {
	t.Helper()
	evts, err := h.journal.ReadEvents(streamID, 0)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	types := make([]string, 0, len(evts))
	for _, e := range evts {
		types = append(types, e.Type())
	}
	return types
}

func (h *harness) reserved(product entities.ProductID) decimal.Decimal {
	return h.stock.Stock(testhelpers.TestTenant, product).Reserved
}

func sameTypes(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCreate(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()

	first := h.create(t, "TABLE", "100")
	second := h.create(t, "CHAIR", "4")

	if first.State != entities.OrderDraft {
		t.Errorf("Expected draft, got %s", first.State)
	}
	if first.MONumber != "MO/2025/00001" || second.MONumber != "MO/2025/00002" {
		t.Errorf("Expected sequential order numbers, got %s and %s", first.MONumber, second.MONumber)
	}
	if first.Version != 1 {
		t.Errorf("Expected version 1, got %d", first.Version)
	}
	if types := h.eventTypes(t, first.ID); !sameTypes(types, []string{events.OrderCreatedEvent}) {
		t.Errorf("Expected created event, got %v", types)
	}

	testCases := []struct {
		name     string
		actor    dto.Actor
		input    dto.CreateOrderInput
		notFound bool
	}{
		{"missing tenant", dto.Actor{}, dto.CreateOrderInput{ProductID: "TABLE", ProductQty: dec("1")}, false},
		{"zero quantity", actor, dto.CreateOrderInput{ProductID: "TABLE", ProductQty: decimal.Zero}, false},
		{"negative quantity", actor, dto.CreateOrderInput{ProductID: "TABLE", ProductQty: dec("-3")}, false},
		{"unknown priority", actor, dto.CreateOrderInput{ProductID: "TABLE", ProductQty: dec("1"), Priority: "asap"}, false},
		{"unknown product", actor, dto.CreateOrderInput{ProductID: "GHOST", ProductQty: dec("1")}, true},
		{"unknown bom", actor, dto.CreateOrderInput{ProductID: "TABLE", ProductQty: dec("1"), BOMID: "BOM-GHOST"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Create(ctx, tc.actor, tc.input)
			var verr *entities.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if errors.Is(err, entities.ErrNotFound) != tc.notFound {
				t.Errorf("Expected not-found %v, got %v", tc.notFound, err)
			}
		})
	}
}

func TestConfirm_ExpandsReservationsAndWorkOrders(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	mo := h.confirmed(t, "TABLE", "100")

	if mo.State != entities.OrderConfirmed {
		t.Fatalf("Expected confirmed, got %s", mo.State)
	}
	if mo.BOMID != "BOM-TABLE" || mo.RoutingID != "RT-TABLE" {
		t.Errorf("Expected default BOM and routing, got %q and %q", mo.BOMID, mo.RoutingID)
	}

	expected := map[entities.ProductID]string{"LEG": "400", "SCREW": "800"}
	if len(mo.MaterialReservations) != len(expected) {
		t.Fatalf("Expected %d reservations, got %d", len(expected), len(mo.MaterialReservations))
	}
	for _, r := range mo.MaterialReservations {
		want, ok := expected[r.ProductID]
		if !ok {
			t.Errorf("Unexpected reservation for %s", r.ProductID)
			continue
		}
		if !r.ProductUOMQty.Equal(dec(want)) {
			t.Errorf("Expected %s %s, got %s", want, r.ProductID, r.ProductUOMQty)
		}
		if r.State != entities.ReservationConfirmed {
			t.Errorf("Expected %s reservation confirmed, got %s", r.ProductID, r.State)
		}
		if !h.reserved(r.ProductID).Equal(dec(want)) {
			t.Errorf("Expected inventory to hold %s %s, got %s", want, r.ProductID, h.reserved(r.ProductID))
		}
	}

	if len(mo.WorkOrders) != 2 {
		t.Fatalf("Expected 2 work orders, got %d", len(mo.WorkOrders))
	}
	if mo.WorkOrders[0].Sequence != 10 || mo.WorkOrders[1].Sequence != 20 {
		t.Errorf("Expected work orders in sequence order, got %d, %d", mo.WorkOrders[0].Sequence, mo.WorkOrders[1].Sequence)
	}
	for _, wo := range mo.WorkOrders {
		if wo.State != entities.WorkOrderPending {
			t.Errorf("Expected work order %s pending, got %s", wo.OperationName, wo.State)
		}
	}
	// 20 batches of 6 minutes plus 10 minutes setup
	if mo.WorkOrders[0].ExpectedDuration != 130*time.Minute {
		t.Errorf("Expected 130m for the cut, got %v", mo.WorkOrders[0].ExpectedDuration)
	}

	want := []string{events.OrderCreatedEvent, events.OrderConfirmedEvent, events.MaterialsReservedEvent}
	if types := h.eventTypes(t, mo.ID); !sameTypes(types, want) {
		t.Errorf("Expected events %v, got %v", want, types)
	}
}

func TestConfirm_Failures(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()

	bracket := h.create(t, "BRACKET", "10")
	_, err := h.svc.Confirm(ctx, actor, bracket.ID)
	var cerr *entities.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected ConflictError without a BOM, got %v", err)
	}
	stored := h.reload(t, bracket.ID)
	if stored.State != entities.OrderDraft || stored.Version != 1 {
		t.Errorf("Expected order untouched, got %s at version %d", stored.State, stored.Version)
	}

	table := h.confirmed(t, "TABLE", "10")
	_, err = h.svc.Confirm(ctx, actor, table.ID)
	var serr *entities.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected InvalidStateError on second confirm, got %v", err)
	}
	if serr.Current != "confirmed" || serr.Requested != "confirmed" {
		t.Errorf("Expected confirmed -> confirmed, got %s -> %s", serr.Current, serr.Requested)
	}

	_, err = h.svc.Confirm(ctx, actor, "no-such-order")
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestStart_FromDraftFails(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	mo := h.create(t, "TABLE", "10")

	_, err := h.svc.Start(context.Background(), actor, mo.ID)
	var serr *entities.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
	if serr.Current != "draft" || serr.Requested != "progress" {
		t.Errorf("Expected draft -> progress, got %s -> %s", serr.Current, serr.Requested)
	}
}

func TestCheckAvailability_Shortfall(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()

	draft := h.create(t, "CHAIR", "50")
	report, err := h.svc.CheckAvailability(ctx, actor, draft.ID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if report.Available || len(report.MissingMaterials) != 1 {
		t.Fatalf("Expected one shortfall on the draft, got %+v", report)
	}

	mo, err := h.svc.Confirm(ctx, actor, draft.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	report, err = h.svc.CheckAvailability(ctx, actor, mo.ID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if report.Available {
		t.Fatal("Expected materials unavailable")
	}
	if len(report.MissingMaterials) != 1 {
		t.Fatalf("Expected 1 missing material, got %d", len(report.MissingMaterials))
	}
	missing := report.MissingMaterials[0]
	if missing.ProductID != "SEAT" || !missing.RequiredQty.Equal(dec("50")) || !missing.AvailableQty.Equal(dec("20")) {
		t.Errorf("Expected SEAT 50 required 20 available, got %s %s required %s available",
			missing.ProductID, missing.RequiredQty, missing.AvailableQty)
	}

	stored := h.reload(t, mo.ID)
	if stored.Version != mo.Version {
		t.Errorf("Expected no write, version moved %d -> %d", mo.Version, stored.Version)
	}
	if stored.MaterialReservations[0].State != entities.ReservationConfirmed {
		t.Errorf("Expected reservation to stay confirmed, got %s", stored.MaterialReservations[0].State)
	}

	plenty := h.confirmed(t, "TABLE", "10")
	report, err = h.svc.CheckAvailability(ctx, actor, plenty.ID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !report.Available || len(report.MissingMaterials) != 0 {
		t.Errorf("Expected table materials available, got %+v", report)
	}
}

func TestStart_AvailabilityPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("permissive", func(t *testing.T) {
		h := newHarness(t, Config{}, nil)
		mo, err := h.svc.Start(ctx, actor, h.confirmed(t, "CHAIR", "50").ID)
		if err != nil {
			t.Fatalf("Expected start despite shortfall, got %v", err)
		}
		if mo.State != entities.OrderProgress {
			t.Errorf("Expected progress, got %s", mo.State)
		}
		if mo.DateStart == nil || !mo.DateStart.Equal(shiftAt) {
			t.Errorf("Expected start date %v, got %v", shiftAt, mo.DateStart)
		}
		if mo.MaterialReservations[0].State != entities.ReservationUnavailable {
			t.Errorf("Expected reservation unavailable, got %s", mo.MaterialReservations[0].State)
		}
		if mo.WorkOrders[0].State != entities.WorkOrderReady {
			t.Errorf("Expected first work order ready, got %s", mo.WorkOrders[0].State)
		}
	})

	t.Run("strict", func(t *testing.T) {
		h := newHarness(t, Config{StrictAvailability: true}, nil)
		mo := h.confirmed(t, "CHAIR", "50")
		_, err := h.svc.Start(ctx, actor, mo.ID)
		var cerr *entities.ConflictError
		if !errors.As(err, &cerr) {
			t.Fatalf("Expected ConflictError, got %v", err)
		}
		if stored := h.reload(t, mo.ID); stored.State != entities.OrderConfirmed {
			t.Errorf("Expected order to stay confirmed, got %s", stored.State)
		}

		ok, err := h.svc.Start(ctx, actor, h.confirmed(t, "TABLE", "10").ID)
		if err != nil {
			t.Fatalf("Expected covered order to start, got %v", err)
		}
		for _, r := range ok.MaterialReservations {
			if r.State != entities.ReservationAvailable {
				t.Errorf("Expected %s available, got %s", r.ProductID, r.State)
			}
		}
	})
}

func TestComplete(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	mo := h.started(t, "TABLE", "100")
	h.clock.Advance(2 * time.Hour)

	done, err := h.svc.Complete(ctx, actor, mo.ID, dto.CompleteOrderInput{QtyProduced: dec("95")})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.State != entities.OrderDone {
		t.Errorf("Expected done, got %s", done.State)
	}
	if !done.QtyProduced.Equal(dec("95")) {
		t.Errorf("Expected 95 produced, got %s", done.QtyProduced)
	}
	if done.DateFinished == nil || !done.DateFinished.Equal(shiftAt.Add(2*time.Hour)) {
		t.Errorf("Expected finish date set, got %v", done.DateFinished)
	}
	for _, wo := range done.WorkOrders {
		if wo.State != entities.WorkOrderCancel {
			t.Errorf("Expected unstarted work order %s cancelled, got %s", wo.OperationName, wo.State)
		}
	}
	for _, r := range done.MaterialReservations {
		if r.State != entities.ReservationDone {
			t.Errorf("Expected %s reservation done, got %s", r.ProductID, r.State)
		}
	}

	// 95 tables consume 380 legs, 760 screws and 475 glue
	legs := h.stock.Stock(testhelpers.TestTenant, "LEG")
	if !legs.OnHand.Equal(dec("120")) || !legs.Reserved.IsZero() {
		t.Errorf("Expected 120 legs on hand and none reserved, got %s and %s", legs.OnHand, legs.Reserved)
	}
	if glue := h.stock.Stock(testhelpers.TestTenant, "GLUE"); !glue.OnHand.Equal(dec("525")) {
		t.Errorf("Expected 525 glue left, got %s", glue.OnHand)
	}

	if len(done.CostingLines) != 3 {
		t.Fatalf("Expected material, labor and overhead lines, got %d", len(done.CostingLines))
	}
	material := done.CostingLines[0]
	if material.CostType != entities.CostMaterial {
		t.Fatalf("Expected material line first, got %s", material.CostType)
	}
	if !material.StandardCost.Equal(dec("2105")) {
		t.Errorf("Expected standard material 2105, got %s", material.StandardCost)
	}
	if !material.ActualCost.Equal(dec("2189.75")) {
		t.Errorf("Expected actual material 2189.75, got %s", material.ActualCost)
	}
	if labor := done.CostingLines[1]; !labor.StandardCost.Equal(dec("1130")) || !labor.ActualCost.IsZero() {
		t.Errorf("Expected labor 1130 standard and 0 actual, got %s and %s", labor.StandardCost, labor.ActualCost)
	}

	_, err = h.svc.Complete(ctx, actor, mo.ID, dto.CompleteOrderInput{QtyProduced: dec("95")})
	var serr *entities.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected InvalidStateError on second complete, got %v", err)
	}
	if serr.Current != "done" {
		t.Errorf("Expected current state done, got %s", serr.Current)
	}

	summary, err := h.svc.CostSummary(ctx, actor, mo.ID)
	if err != nil {
		t.Fatalf("cost summary: %v", err)
	}
	if !summary.Final || len(summary.Lines) != 3 {
		t.Errorf("Expected final summary of persisted lines, got final=%v with %d lines", summary.Final, len(summary.Lines))
	}
}

func TestComplete_RejectsBadQuantities(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	mo := h.started(t, "TABLE", "100")

	for _, qty := range []string{"-1", "101"} {
		t.Run(qty, func(t *testing.T) {
			_, err := h.svc.Complete(ctx, actor, mo.ID, dto.CompleteOrderInput{QtyProduced: dec(qty)})
			var verr *entities.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if stored := h.reload(t, mo.ID); stored.State != entities.OrderProgress {
				t.Errorf("Expected order to stay in progress, got %s", stored.State)
			}
		})
	}

	over := newHarness(t, Config{AllowOverProduction: true}, nil)
	mo = over.started(t, "TABLE", "100")
	if _, err := over.svc.Complete(ctx, actor, mo.ID, dto.CompleteOrderInput{QtyProduced: dec("101")}); err != nil {
		t.Errorf("Expected over-production allowed, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		prepare func(t *testing.T, h *harness) *entities.ManufacturingOrder
		allowed bool
	}{
		{"draft", func(t *testing.T, h *harness) *entities.ManufacturingOrder { return h.create(t, "TABLE", "10") }, true},
		{"confirmed", func(t *testing.T, h *harness) *entities.ManufacturingOrder { return h.confirmed(t, "TABLE", "10") }, true},
		{"progress", func(t *testing.T, h *harness) *entities.ManufacturingOrder { return h.started(t, "TABLE", "10") }, true},
		{"to_close", func(t *testing.T, h *harness) *entities.ManufacturingOrder { return h.toClose(t) }, true},
		{"done", func(t *testing.T, h *harness) *entities.ManufacturingOrder {
			mo := h.started(t, "TABLE", "10")
			done, err := h.svc.Complete(ctx, actor, mo.ID, dto.CompleteOrderInput{QtyProduced: dec("10")})
			if err != nil {
				t.Fatalf("complete: %v", err)
			}
			return done
		}, false},
		{"cancel", func(t *testing.T, h *harness) *entities.ManufacturingOrder {
			mo, err := h.svc.Cancel(ctx, actor, h.create(t, "TABLE", "10").ID)
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			return mo
		}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, Config{}, nil)
			mo := tc.prepare(t, h)

			cancelled, err := h.svc.Cancel(ctx, actor, mo.ID)
			if !tc.allowed {
				var serr *entities.InvalidStateError
				if !errors.As(err, &serr) {
					t.Fatalf("Expected InvalidStateError, got %v", err)
				}
				if serr.Requested != "cancel" {
					t.Errorf("Expected requested cancel, got %s", serr.Requested)
				}
				return
			}
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}

			if cancelled.State != entities.OrderCancel {
				t.Errorf("Expected cancel, got %s", cancelled.State)
			}
			for _, r := range cancelled.MaterialReservations {
				if r.State != entities.ReservationCancelled {
					t.Errorf("Expected %s reservation cancelled, got %s", r.ProductID, r.State)
				}
			}
			for _, wo := range cancelled.WorkOrders {
				if wo.State != entities.WorkOrderDone && wo.State != entities.WorkOrderCancel {
					t.Errorf("Expected work order %s closed, got %s", wo.OperationName, wo.State)
				}
			}
			if !h.reserved("LEG").IsZero() || !h.reserved("SCREW").IsZero() {
				t.Errorf("Expected all stock released, got %s legs and %s screws", h.reserved("LEG"), h.reserved("SCREW"))
			}
		})
	}
}

func TestCancel_KeepsDoneWorkOrders(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	mo := h.started(t, "TABLE", "10")
	cut := mo.WorkOrders[0]

	if _, err := h.svc.StartWorkOrder(ctx, actor, cut.ID); err != nil {
		t.Fatalf("start cut: %v", err)
	}
	h.clock.Advance(20 * time.Minute)
	if _, err := h.svc.CompleteWorkOrder(ctx, actor, cut.ID, dto.CompleteWorkOrderInput{QtyProduced: dec("10")}); err != nil {
		t.Fatalf("complete cut: %v", err)
	}

	cancelled, err := h.svc.Cancel(ctx, actor, mo.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.WorkOrders[0].State != entities.WorkOrderDone {
		t.Errorf("Expected finished cut to stay done, got %s", cancelled.WorkOrders[0].State)
	}
	if cancelled.WorkOrders[1].State != entities.WorkOrderCancel {
		t.Errorf("Expected assembly cancelled, got %s", cancelled.WorkOrders[1].State)
	}
}

func TestReserveRelease(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	mo := h.confirmed(t, "TABLE", "100")

	released, err := h.svc.Release(ctx, actor, mo.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(released.HeldReservations()) != 0 {
		t.Errorf("Expected no held reservations, got %d", len(released.HeldReservations()))
	}
	if !h.reserved("LEG").IsZero() {
		t.Errorf("Expected legs released, got %s", h.reserved("LEG"))
	}

	again, err := h.svc.Reserve(ctx, actor, mo.ID)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(again.HeldReservations()) != 2 || len(again.MaterialReservations) != 4 {
		t.Errorf("Expected 2 held of 4 reservations, got %d of %d", len(again.HeldReservations()), len(again.MaterialReservations))
	}
	if !h.reserved("LEG").Equal(dec("400")) {
		t.Errorf("Expected 400 legs reserved, got %s", h.reserved("LEG"))
	}

	// holding everything already is a no-op
	same, err := h.svc.Reserve(ctx, actor, mo.ID)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(same.MaterialReservations) != 4 || !h.reserved("LEG").Equal(dec("400")) {
		t.Errorf("Expected reserve to be idempotent, got %d reservations and %s legs", len(same.MaterialReservations), h.reserved("LEG"))
	}

	draft := h.create(t, "TABLE", "2")
	var serr *entities.InvalidStateError
	if _, err := h.svc.Reserve(ctx, actor, draft.ID); !errors.As(err, &serr) {
		t.Errorf("Expected InvalidStateError reserving a draft, got %v", err)
	}
}

func TestList(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	h.create(t, "TABLE", "1")
	h.confirmed(t, "CHAIR", "2")
	h.confirmed(t, "TABLE", "3")

	testCases := []struct {
		name     string
		query    dto.ListOrdersQuery
		expected int
	}{
		{"all", dto.ListOrdersQuery{}, 3},
		{"by state", dto.ListOrdersQuery{State: "confirmed"}, 2},
		{"by product", dto.ListOrdersQuery{ProductID: "TABLE"}, 2},
		{"by work center", dto.ListOrdersQuery{WorkCenterID: "SAW"}, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			orders, err := h.svc.List(ctx, actor, tc.query)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(orders) != tc.expected {
				t.Errorf("Expected %d orders, got %d", tc.expected, len(orders))
			}
		})
	}

	other, err := h.svc.List(ctx, dto.Actor{TenantID: "globex"}, dto.ListOrdersQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected tenants isolated, got %d orders", len(other))
	}

	var verr *entities.ValidationError
	if _, err := h.svc.List(ctx, actor, dto.ListOrdersQuery{State: "paused"}); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for unknown state, got %v", err)
	}
}

func TestCostSummary_ZeroStandard(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	mo := h.create(t, "BRACKET", "5")

	summary, err := h.svc.CostSummary(context.Background(), actor, mo.ID)
	if err != nil {
		t.Fatalf("cost summary: %v", err)
	}
	if summary.Final {
		t.Error("Expected running summary for a draft order")
	}
	if !summary.StandardCost.IsZero() || !summary.VariancePercent.IsZero() {
		t.Errorf("Expected zero standard and zero variance percent, got %s and %s", summary.StandardCost, summary.VariancePercent)
	}
	for _, line := range summary.Lines {
		if !line.VariancePercent.IsZero() {
			t.Errorf("Expected %s variance percent 0, got %s", line.CostType, line.VariancePercent)
		}
	}
}

type failingInventory struct {
	repositories.InventoryRepository
	failReserve entities.ProductID
	failConsume entities.ProductID
}

func (f *failingInventory) Reserve(ctx context.Context, tenantID string, productID entities.ProductID, qty decimal.Decimal) error {
	if productID == f.failReserve {
		return errors.New("inventory offline")
	}
	return f.InventoryRepository.Reserve(ctx, tenantID, productID, qty)
}

func (f *failingInventory) Consume(ctx context.Context, tenantID string, productID entities.ProductID, qty, unitCost decimal.Decimal) error {
	if productID == f.failConsume {
		return errors.New("inventory offline")
	}
	return f.InventoryRepository.Consume(ctx, tenantID, productID, qty, unitCost)
}

func TestCollaboratorFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("reserve during confirm", func(t *testing.T) {
		h := newHarness(t, Config{}, func(inv repositories.InventoryRepository) repositories.InventoryRepository {
			return &failingInventory{InventoryRepository: inv, failReserve: "SCREW"}
		})
		mo := h.create(t, "TABLE", "100")

		_, err := h.svc.Confirm(ctx, actor, mo.ID)
		var cerr *entities.ConflictError
		if !errors.As(err, &cerr) {
			t.Fatalf("Expected ConflictError, got %v", err)
		}
		if !h.reserved("LEG").IsZero() {
			t.Errorf("Expected leg reservation compensated, got %s", h.reserved("LEG"))
		}
		stored := h.reload(t, mo.ID)
		if stored.State != entities.OrderDraft || len(stored.MaterialReservations) != 0 || len(stored.WorkOrders) != 0 {
			t.Errorf("Expected draft order untouched, got %s with %d reservations", stored.State, len(stored.MaterialReservations))
		}
		if types := h.eventTypes(t, mo.ID); len(types) != 1 {
			t.Errorf("Expected only the created event, got %v", types)
		}
	})

	t.Run("consume during complete", func(t *testing.T) {
		h := newHarness(t, Config{}, func(inv repositories.InventoryRepository) repositories.InventoryRepository {
			return &failingInventory{InventoryRepository: inv, failConsume: "LEG"}
		})
		mo := h.started(t, "TABLE", "100")

		_, err := h.svc.Complete(ctx, actor, mo.ID, dto.CompleteOrderInput{QtyProduced: dec("100")})
		var cerr *entities.ConflictError
		if !errors.As(err, &cerr) {
			t.Fatalf("Expected ConflictError, got %v", err)
		}
		if !h.reserved("LEG").Equal(dec("400")) || !h.reserved("SCREW").Equal(dec("800")) {
			t.Errorf("Expected reservations restored, got %s legs and %s screws", h.reserved("LEG"), h.reserved("SCREW"))
		}
		stored := h.reload(t, mo.ID)
		if stored.State != entities.OrderProgress || len(stored.CostingLines) != 0 {
			t.Errorf("Expected order still in progress without costing, got %s with %d lines", stored.State, len(stored.CostingLines))
		}
	})
}

func TestConcurrentComplete(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	mo := h.started(t, "TABLE", "10")

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Complete(context.Background(), actor, mo.ID, dto.CompleteOrderInput{QtyProduced: dec("10")})
			mu.Lock()
			defer mu.Unlock()
			var serr *entities.InvalidStateError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &serr):
				rejected++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != callers-1 {
		t.Errorf("Expected exactly one completion, got %d succeeded and %d rejected", succeeded, rejected)
	}
	legs := h.stock.Stock(testhelpers.TestTenant, "LEG")
	if !legs.OnHand.Equal(dec("460")) {
		t.Errorf("Expected legs consumed once, got %s on hand", legs.OnHand)
	}
}
