package recordstore

import (
	"context"

	"github.com/vbonduro/scaninv/internal/domain"
)

// Store is the document collection holding inventory records. Implementations
// assign IDs and LastUpdated; callers never fabricate them.
type Store interface {
	// FindByBarcode returns every record whose barcode equals barcode exactly,
	// in the order the backend returns them.
	FindByBarcode(ctx context.Context, barcode string) ([]*domain.Record, error)
	// FindByID returns nil, nil when no record has the given id.
	FindByID(ctx context.Context, id string) (*domain.Record, error)
	Search(ctx context.Context, query string) ([]*domain.Record, error)
	List(ctx context.Context) ([]*domain.Record, error)
	Create(ctx context.Context, fields domain.Fields) (*domain.Record, error)
	// Update returns domain.ErrNotFound when id does not exist.
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.Record, error)
	// Delete returns domain.ErrNotFound when id does not exist.
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
