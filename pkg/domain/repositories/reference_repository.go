package repositories

import (
	"context"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// ReferenceRepository provides read-only access to products, BOMs, routings and work centers.
// Unknown ids return a ValidationError wrapping entities.ErrNotFound.
type ReferenceRepository interface {
	GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error)
	GetBOM(ctx context.Context, id string) (*entities.BOM, error)
	// FindBOMByProduct returns the default BOM of a product, or a not-found error
	FindBOMByProduct(ctx context.Context, productID entities.ProductID) (*entities.BOM, error)
	GetRouting(ctx context.Context, id string) (*entities.Routing, error)
	// FindRoutingByProduct returns the default routing of a product, or a not-found error
	FindRoutingByProduct(ctx context.Context, productID entities.ProductID) (*entities.Routing, error)
	GetWorkCenter(ctx context.Context, id string) (*entities.WorkCenter, error)
}
