package memory

import (
	"context"
	"sync"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

// ReferenceRepository provides in-memory products, BOMs, routings and work centers
type ReferenceRepository struct {
	products         map[entities.ProductID]entities.Product
	boms             map[string]entities.BOM
	bomsByProduct    map[entities.ProductID]string
	routings         map[string]entities.Routing
	routingByProduct map[entities.ProductID]string
	workCenters      map[string]entities.WorkCenter
	mutex            sync.RWMutex
}

// NewReferenceRepository creates a new in-memory reference repository
func NewReferenceRepository() *ReferenceRepository {
	return &ReferenceRepository{
		products:         make(map[entities.ProductID]entities.Product),
		boms:             make(map[string]entities.BOM),
		bomsByProduct:    make(map[entities.ProductID]string),
		routings:         make(map[string]entities.Routing),
		routingByProduct: make(map[entities.ProductID]string),
		workCenters:      make(map[string]entities.WorkCenter),
	}
}

// Verify interface compliance
var _ repositories.ReferenceRepository = (*ReferenceRepository)(nil)

// AddProduct adds or replaces a product
func (r *ReferenceRepository) AddProduct(p entities.Product) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.products[p.ID] = p
}

// AddBOM adds or replaces a BOM. The first BOM added for a product becomes its default.
func (r *ReferenceRepository) AddBOM(b entities.BOM) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	b.Lines = append([]entities.BOMLine(nil), b.Lines...)
	r.boms[b.ID] = b
	if _, exists := r.bomsByProduct[b.ProductID]; !exists {
		r.bomsByProduct[b.ProductID] = b.ID
	}
}

// AddRouting adds or replaces a routing. The first routing added for a product becomes its default.
func (r *ReferenceRepository) AddRouting(rt entities.Routing) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rt.Operations = append([]entities.Operation(nil), rt.Operations...)
	r.routings[rt.ID] = rt
	if _, exists := r.routingByProduct[rt.ProductID]; !exists {
		r.routingByProduct[rt.ProductID] = rt.ID
	}
}

// AddWorkCenter adds or replaces a work center
func (r *ReferenceRepository) AddWorkCenter(wc entities.WorkCenter) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.workCenters[wc.ID] = wc
}

// Load adds everything in one call, e.g. from a CSV seed
func (r *ReferenceRepository) Load(
	products []*entities.Product,
	boms []*entities.BOM,
	routings []*entities.Routing,
	workCenters []*entities.WorkCenter,
) {
	for _, p := range products {
		r.AddProduct(*p)
	}
	for _, b := range boms {
		r.AddBOM(*b)
	}
	for _, rt := range routings {
		r.AddRouting(*rt)
	}
	for _, wc := range workCenters {
		r.AddWorkCenter(*wc)
	}
}

// GetProduct returns a product by id
func (r *ReferenceRepository) GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, exists := r.products[id]
	if !exists {
		return nil, entities.NewNotFoundError("product", string(id))
	}
	return &p, nil
}

// GetBOM returns a copy of a BOM by id
func (r *ReferenceRepository) GetBOM(ctx context.Context, id string) (*entities.BOM, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	b, exists := r.boms[id]
	if !exists {
		return nil, entities.NewNotFoundError("bom", id)
	}
	b.Lines = append([]entities.BOMLine(nil), b.Lines...)
	return &b, nil
}

// FindBOMByProduct returns the default BOM of a product
func (r *ReferenceRepository) FindBOMByProduct(ctx context.Context, productID entities.ProductID) (*entities.BOM, error) {
	r.mutex.RLock()
	id, exists := r.bomsByProduct[productID]
	r.mutex.RUnlock()
	if !exists {
		return nil, entities.NewNotFoundError("bom for product", string(productID))
	}
	return r.GetBOM(ctx, id)
}

// GetRouting returns a copy of a routing by id
func (r *ReferenceRepository) GetRouting(ctx context.Context, id string) (*entities.Routing, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rt, exists := r.routings[id]
	if !exists {
		return nil, entities.NewNotFoundError("routing", id)
	}
	rt.Operations = append([]entities.Operation(nil), rt.Operations...)
	return &rt, nil
}

// FindRoutingByProduct returns the default routing of a product
func (r *ReferenceRepository) FindRoutingByProduct(ctx context.Context, productID entities.ProductID) (*entities.Routing, error) {
	r.mutex.RLock()
	id, exists := r.routingByProduct[productID]
	r.mutex.RUnlock()
	if !exists {
		return nil, entities.NewNotFoundError("routing for product", string(productID))
	}
	return r.GetRouting(ctx, id)
}

// GetWorkCenter returns a work center by id
func (r *ReferenceRepository) GetWorkCenter(ctx context.Context, id string) (*entities.WorkCenter, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	wc, exists := r.workCenters[id]
	if !exists {
		return nil, entities.NewNotFoundError("work center", id)
	}
	return &wc, nil
}

// BOMs returns every BOM, e.g. for cycle validation after seeding
func (r *ReferenceRepository) BOMs() []*entities.BOM {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	boms := make([]*entities.BOM, 0, len(r.boms))
	for id := range r.boms {
		b := r.boms[id]
		boms = append(boms, &b)
	}
	return boms
}
