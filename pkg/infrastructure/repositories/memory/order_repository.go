package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

// OrderRepository stores manufacturing orders in memory. Stored orders are deep copies,
// so callers never share state with the store.
type OrderRepository struct {
	orders    map[string]map[string]*entities.ManufacturingOrder
	workIndex map[string]string
	sequences map[string]int
	mutex     sync.RWMutex
}

// NewOrderRepository creates a new in-memory order repository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:    make(map[string]map[string]*entities.ManufacturingOrder),
		workIndex: make(map[string]string),
		sequences: make(map[string]int),
	}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) tenant(tenantID string) map[string]*entities.ManufacturingOrder {
	orders, exists := r.orders[tenantID]
	if !exists {
		orders = make(map[string]*entities.ManufacturingOrder)
		r.orders[tenantID] = orders
	}
	return orders
}

func (r *OrderRepository) put(mo *entities.ManufacturingOrder) {
	r.tenant(mo.TenantID)[mo.ID] = mo.Clone()
	for _, wo := range mo.WorkOrders {
		r.workIndex[wo.ID] = mo.ID
	}
}

func (r *OrderRepository) checkVersion(mo *entities.ManufacturingOrder) error {
	stored, exists := r.tenant(mo.TenantID)[mo.ID]
	if !exists {
		return entities.NewNotFoundError("manufacturing order", mo.ID)
	}
	if stored.Version != mo.Version {
		return entities.NewConflictError(entities.ErrVersionConflict,
			"manufacturing order %s was modified concurrently (have version %d, stored %d)", mo.ID, mo.Version, stored.Version)
	}
	return nil
}

// Create stores a new order at version 1
func (r *OrderRepository) Create(ctx context.Context, mo *entities.ManufacturingOrder) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.tenant(mo.TenantID)[mo.ID]; exists {
		return entities.NewConflictError(nil, "manufacturing order %s already exists", mo.ID)
	}
	mo.Version = 1
	r.put(mo)
	return nil
}

// Get returns a copy of the order
func (r *OrderRepository) Get(ctx context.Context, tenantID, id string) (*entities.ManufacturingOrder, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	mo, exists := r.orders[tenantID][id]
	if !exists {
		return nil, entities.NewNotFoundError("manufacturing order", id)
	}
	return mo.Clone(), nil
}

// Update replaces the order when its version matches the stored one
func (r *OrderRepository) Update(ctx context.Context, mo *entities.ManufacturingOrder) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkVersion(mo); err != nil {
		return err
	}
	mo.Version++
	r.put(mo)
	return nil
}

// List returns tenant orders matching the filter, oldest first
func (r *OrderRepository) List(ctx context.Context, tenantID string, filter repositories.OrderFilter) ([]*entities.ManufacturingOrder, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*entities.ManufacturingOrder, 0)
	for _, mo := range r.orders[tenantID] {
		if filter.Matches(mo) {
			result = append(result, mo.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].MONumber < result[j].MONumber
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Split updates the parent and creates the child under one lock
func (r *OrderRepository) Split(ctx context.Context, parent, child *entities.ManufacturingOrder) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkVersion(parent); err != nil {
		return err
	}
	if _, exists := r.tenant(child.TenantID)[child.ID]; exists {
		return entities.NewConflictError(nil, "manufacturing order %s already exists", child.ID)
	}
	parent.Version++
	child.Version = 1
	r.put(parent)
	r.put(child)
	return nil
}

// FindByWorkOrder returns a copy of the order owning the work order
func (r *OrderRepository) FindByWorkOrder(ctx context.Context, tenantID, workOrderID string) (*entities.ManufacturingOrder, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	moID, exists := r.workIndex[workOrderID]
	if !exists {
		return nil, entities.NewNotFoundError("work order", workOrderID)
	}
	mo, exists := r.orders[tenantID][moID]
	if !exists {
		return nil, entities.NewNotFoundError("work order", workOrderID)
	}
	return mo.Clone(), nil
}

// NextSequence returns the next order number sequence for the tenant
func (r *OrderRepository) NextSequence(ctx context.Context, tenantID string) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sequences[tenantID]++
	return r.sequences[tenantID], nil
}
