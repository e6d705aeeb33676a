package manufacturing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
)

// CheckAvailability compares the order's material requirement with stock. It reads the
// committed order without locking and mutates nothing.
func (s *Service) CheckAvailability(ctx context.Context, actor dto.Actor, id string) (*entities.AvailabilityReport, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	mo, err := s.orders.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	return s.availability(ctx, mo)
}

// Reserve holds every BOM component the order does not already hold
func (s *Service) Reserve(ctx context.Context, actor dto.Actor, id string) (*entities.ManufacturingOrder, error) {
	op, err := s.execute(ctx, actor, id, func(op *operation) error {
		mo := op.mo
		if err := mo.RequireState("reserve", entities.OrderConfirmed, entities.OrderProgress, entities.OrderToClose); err != nil {
			return err
		}
		bom, err := s.resolveBOM(ctx, mo, true)
		if err != nil {
			return err
		}
		reserved, err := op.reserveMissing(mo, bom)
		if err != nil {
			return err
		}
		if reserved > 0 {
			op.emit(events.NewMaterialsReservedEvent(mo, reserved, op.now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.mo, nil
}

// Release returns every held quantity to the available pool and cancels the reservations
func (s *Service) Release(ctx context.Context, actor dto.Actor, id string) (*entities.ManufacturingOrder, error) {
	op, err := s.execute(ctx, actor, id, func(op *operation) error {
		mo := op.mo
		if mo.State.IsTerminal() {
			return mo.RequireState("release")
		}
		released, err := op.releaseHeld(entities.ReservationCancelled)
		if err != nil {
			return err
		}
		if released > 0 {
			op.emit(events.NewMaterialsReleasedEvent(mo, released, op.now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op.mo, nil
}

type requirement struct {
	productID entities.ProductID
	required  decimal.Decimal
	held      decimal.Decimal
}

// requirements aggregates open reservations per product. An order with none yet is measured
// against its BOM scaled to the ordered quantity.
func (s *Service) requirements(ctx context.Context, mo *entities.ManufacturingOrder) ([]*requirement, error) {
	var result []*requirement
	index := make(map[entities.ProductID]*requirement)
	add := func(productID entities.ProductID, qty decimal.Decimal, held bool) {
		req, ok := index[productID]
		if !ok {
			req = &requirement{productID: productID, required: decimal.Zero, held: decimal.Zero}
			index[productID] = req
			result = append(result, req)
		}
		req.required = req.required.Add(qty)
		if held {
			req.held = req.held.Add(qty)
		}
	}

	for _, r := range mo.MaterialReservations {
		if r.State == entities.ReservationDone || r.State == entities.ReservationCancelled {
			continue
		}
		add(r.ProductID, r.ProductUOMQty, r.State.IsHeld())
	}
	if len(result) > 0 || mo.State != entities.OrderDraft {
		return result, nil
	}

	bom, err := s.resolveBOM(ctx, mo, false)
	if err != nil || bom == nil {
		return nil, err
	}
	for _, line := range bom.Lines {
		if line.Type != entities.Component {
			continue
		}
		qty, err := bom.ScaleQty(line.Qty, mo.ProductQty)
		if err != nil {
			return nil, err
		}
		add(line.ProductID, qty, false)
	}
	return result, nil
}

// availability reports shortfalls. Quantity the order itself holds counts as available to it.
func (s *Service) availability(ctx context.Context, mo *entities.ManufacturingOrder) (*entities.AvailabilityReport, error) {
	reqs, err := s.requirements(ctx, mo)
	if err != nil {
		return nil, err
	}

	report := &entities.AvailabilityReport{Available: true, MissingMaterials: []entities.MissingMaterial{}}
	for _, req := range reqs {
		free, err := s.inventory.GetAvailableQty(ctx, mo.TenantID, req.productID)
		if err != nil {
			return nil, entities.NewConflictError(err, "availability of %s", req.productID)
		}
		available := free.Add(req.held)
		if available.IsNegative() {
			available = decimal.Zero
		}
		if available.LessThan(req.required) {
			report.Available = false
			report.MissingMaterials = append(report.MissingMaterials, entities.MissingMaterial{
				ProductID:    req.productID,
				RequiredQty:  req.required,
				AvailableQty: available,
			})
		}
	}
	return report, nil
}

// markAvailability moves held reservations to available or unavailable per the report
func markAvailability(mo *entities.ManufacturingOrder, report *entities.AvailabilityReport) {
	missing := make(map[entities.ProductID]bool, len(report.MissingMaterials))
	for _, m := range report.MissingMaterials {
		missing[m.ProductID] = true
	}
	for _, r := range mo.HeldReservations() {
		if missing[r.ProductID] {
			r.State = entities.ReservationUnavailable
		} else {
			r.State = entities.ReservationAvailable
		}
	}
}

// reserveMissing creates and holds a reservation for each BOM component line mo does not hold yet
func (op *operation) reserveMissing(mo *entities.ManufacturingOrder, bom *entities.BOM) (int, error) {
	held := make(map[entities.ProductID]bool)
	for _, r := range mo.HeldReservations() {
		held[r.ProductID] = true
	}

	planned := op.now
	if mo.DatePlannedStart != nil {
		planned = *mo.DatePlannedStart
	}

	count := 0
	for _, line := range bom.Lines {
		if line.Type != entities.Component || held[line.ProductID] {
			continue
		}
		qty, err := bom.ScaleQty(line.Qty, mo.ProductQty)
		if err != nil {
			return count, err
		}
		r, err := entities.NewMaterialReservation(mo.ID, line.ProductID, qty, planned)
		if err != nil {
			return count, entities.NewConflictError(err, "bom %s", bom.ID)
		}
		if err := op.reserve(r.ProductID, r.ProductUOMQty); err != nil {
			return count, err
		}
		r.State = entities.ReservationConfirmed
		mo.MaterialReservations = append(mo.MaterialReservations, r)
		held[line.ProductID] = true
		count++
	}
	return count, nil
}

// releaseHeld frees every held reservation into final and cancels drafts. It returns the number
// of reservations whose quantity went back to inventory.
func (op *operation) releaseHeld(final entities.ReservationState) (int, error) {
	count := 0
	for _, r := range op.mo.MaterialReservations {
		switch {
		case r.State.IsHeld():
			if err := op.release(r.ProductID, r.ProductUOMQty); err != nil {
				return count, err
			}
			r.State = final
			count++
		case r.State == entities.ReservationDraft:
			r.State = entities.ReservationCancelled
		}
	}
	return count, nil
}
