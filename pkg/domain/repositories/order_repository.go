package repositories

import (
	"context"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// OrderFilter narrows a tenant-scoped order listing. Nil fields match everything.
type OrderFilter struct {
	State        *entities.OrderState
	ProductID    entities.ProductID
	Priority     *entities.Priority
	WorkCenterID string
}

// Matches reports whether the order satisfies the filter
func (f OrderFilter) Matches(mo *entities.ManufacturingOrder) bool {
	if f.State != nil && mo.State != *f.State {
		return false
	}
	if f.ProductID != "" && mo.ProductID != f.ProductID {
		return false
	}
	if f.Priority != nil && mo.Priority != *f.Priority {
		return false
	}
	if f.WorkCenterID != "" {
		for _, wo := range mo.WorkOrders {
			if wo.WorkCenterID == f.WorkCenterID {
				return true
			}
		}
		return false
	}
	return true
}

// OrderRepository persists manufacturing orders together with their owned records.
// Update and Split reject stale versions with a ConflictError wrapping entities.ErrVersionConflict
// and increment Version on success.
type OrderRepository interface {
	Create(ctx context.Context, mo *entities.ManufacturingOrder) error
	Get(ctx context.Context, tenantID, id string) (*entities.ManufacturingOrder, error)
	Update(ctx context.Context, mo *entities.ManufacturingOrder) error
	List(ctx context.Context, tenantID string, filter OrderFilter) ([]*entities.ManufacturingOrder, error)
	// Split updates parent and creates child in one commit
	Split(ctx context.Context, parent, child *entities.ManufacturingOrder) error
	FindByWorkOrder(ctx context.Context, tenantID, workOrderID string) (*entities.ManufacturingOrder, error)
	// NextSequence returns the next order number sequence for the tenant
	NextSequence(ctx context.Context, tenantID string) (int, error)
}

// Locker serializes mutations per key. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
