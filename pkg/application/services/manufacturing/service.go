// Package manufacturing implements the manufacturing order lifecycle: the order state machine,
// material reservation, work order execution, splitting and cost roll-up.
package manufacturing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/domain/services"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
	"github.com/vsinha/shopfloor/pkg/infrastructure/lock"
)

// Config holds lifecycle policy switches
type Config struct {
	// StrictAvailability makes start fail with a ConflictError on any material shortfall
	StrictAvailability bool
	// AllowOverProduction lifts the produced + scrapped <= ordered bound
	AllowOverProduction bool
	// NumberPrefix is the first segment of generated order numbers
	NumberPrefix string
}

// Service is the manufacturing order lifecycle engine. Every mutation of an order runs under
// a per-order lock, works on a copy and commits with an optimistic version check; events are
// published only after the commit.
type Service struct {
	orders    repositories.OrderRepository
	inventory repositories.InventoryRepository
	reference repositories.ReferenceRepository
	events    events.EventStore
	locker    repositories.Locker
	validator *services.ReferenceValidator
	costs     *services.CostCalculator
	oee       *services.OEECalculator
	config    Config
	logger    *zap.Logger
	now       func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithLocker replaces the in-process locker, e.g. with a Redis-backed one
func WithLocker(locker repositories.Locker) Option {
	return func(s *Service) { s.locker = locker }
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a lifecycle engine over the given store and collaborators
func NewService(
	orders repositories.OrderRepository,
	inventory repositories.InventoryRepository,
	reference repositories.ReferenceRepository,
	eventStore events.EventStore,
	config Config,
	opts ...Option,
) *Service {
	if config.NumberPrefix == "" {
		config.NumberPrefix = "MO"
	}
	s := &Service{
		orders:    orders,
		inventory: inventory,
		reference: reference,
		events:    eventStore,
		locker:    lock.NewMemoryLocker(),
		validator: services.NewReferenceValidator(),
		costs:     services.NewCostCalculator(),
		oee:       services.NewOEECalculator(),
		config:    config,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// operation is the unit of work of one mutating call
type operation struct {
	ctx    context.Context
	actor  dto.Actor
	mo     *entities.ManufacturingOrder
	child  *entities.ManufacturingOrder
	now    time.Time
	undo   []func(context.Context) error
	events []events.Event
	svc    *Service
}

func (op *operation) emit(e events.Event) {
	op.events = append(op.events, e)
}

// reserve holds qty in inventory and registers the matching release as compensation
func (op *operation) reserve(productID entities.ProductID, qty decimal.Decimal) error {
	tenantID := op.actor.TenantID
	if err := op.svc.inventory.Reserve(op.ctx, tenantID, productID, qty); err != nil {
		return entities.NewConflictError(err, "reserve %s of %s", qty, productID)
	}
	op.undo = append(op.undo, func(ctx context.Context) error {
		return op.svc.inventory.Release(ctx, tenantID, productID, qty)
	})
	return nil
}

// release frees qty in inventory and registers the matching reserve as compensation
func (op *operation) release(productID entities.ProductID, qty decimal.Decimal) error {
	tenantID := op.actor.TenantID
	if err := op.svc.inventory.Release(op.ctx, tenantID, productID, qty); err != nil {
		return entities.NewConflictError(err, "release %s of %s", qty, productID)
	}
	op.undo = append(op.undo, func(ctx context.Context) error {
		return op.svc.inventory.Reserve(ctx, tenantID, productID, qty)
	})
	return nil
}

// consume issues stock. Consumption cannot be compensated, so callers consume last.
func (op *operation) consume(productID entities.ProductID, qty, unitCost decimal.Decimal) error {
	if err := op.svc.inventory.Consume(op.ctx, op.actor.TenantID, productID, qty, unitCost); err != nil {
		return entities.NewConflictError(err, "consume %s of %s", qty, productID)
	}
	return nil
}

func (op *operation) rollback() {
	ctx := context.WithoutCancel(op.ctx)
	for i := len(op.undo) - 1; i >= 0; i-- {
		if err := op.undo[i](ctx); err != nil {
			op.svc.logger.Error("compensation failed",
				zap.String("mo_id", op.mo.ID),
				zap.String("tenant_id", op.actor.TenantID),
				zap.Error(err),
			)
		}
	}
}

func lockKey(tenantID, moID string) string {
	return "mo:" + tenantID + ":" + moID
}

// execute runs fn against a copy of the order under its lock and commits the result.
// On any failure collaborator side effects are compensated and the stored order is untouched.
func (s *Service) execute(
	ctx context.Context,
	actor dto.Actor,
	moID string,
	fn func(op *operation) error,
) (*operation, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(actor.TenantID, moID))
	if err != nil {
		return nil, entities.NewConflictError(err, "lock manufacturing order %s", moID)
	}
	defer unlock()

	current, err := s.orders.Get(ctx, actor.TenantID, moID)
	if err != nil {
		return nil, storeErr(err, "load manufacturing order %s", moID)
	}

	op := &operation{
		ctx:   ctx,
		actor: actor,
		mo:    current.Clone(),
		now:   s.now().UTC(),
		svc:   s,
	}
	if err := fn(op); err != nil {
		op.rollback()
		return nil, err
	}

	op.mo.UpdatedAt = op.now
	if op.child != nil {
		err = s.orders.Split(ctx, op.mo, op.child)
	} else {
		err = s.orders.Update(ctx, op.mo)
	}
	if err != nil {
		op.rollback()
		return nil, storeErr(err, "save manufacturing order %s", moID)
	}

	if current.State != op.mo.State {
		s.logger.Info("manufacturing order transitioned",
			zap.String("mo_id", op.mo.ID),
			zap.String("mo_number", op.mo.MONumber),
			zap.String("tenant_id", actor.TenantID),
			zap.String("from", current.State.String()),
			zap.String("to", op.mo.State.String()),
		)
	}
	s.publish(op.events)
	return op, nil
}

func (s *Service) publish(evts []events.Event) {
	for _, e := range evts {
		if err := s.events.AppendEvent(e.StreamID(), e); err != nil {
			s.logger.Error("append event failed",
				zap.String("event_type", e.Type()),
				zap.String("stream_id", e.StreamID()),
				zap.Error(err),
			)
		}
	}
}

// storeErr keeps typed domain errors and turns anything else into a ConflictError
func storeErr(err error, format string, args ...any) error {
	var (
		verr *entities.ValidationError
		serr *entities.InvalidStateError
		cerr *entities.ConflictError
	)
	if errors.As(err, &verr) || errors.As(err, &serr) || errors.As(err, &cerr) {
		return err
	}
	return entities.NewConflictError(err, format, args...)
}

func (s *Service) orderNumber(ctx context.Context, tenantID string, at time.Time) (string, error) {
	seq, err := s.orders.NextSequence(ctx, tenantID)
	if err != nil {
		return "", storeErr(err, "allocate order number")
	}
	return fmt.Sprintf("%s/%04d/%05d", s.config.NumberPrefix, at.Year(), seq), nil
}
