package corpus

import (
	"context"

	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/storage"
)

// StorageSource loads every stored supplier, active or not, as the rebuild corpus.
// Inactive suppliers stay in the index and are filtered at ranking time.
func StorageSource(store storage.Storage) SupplierSource {
	return func(ctx context.Context) ([]models.SupplierProfile, error) {
		suppliers, err := store.ListSuppliers(ctx, false)
		if err != nil {
			return nil, err
		}
		return models.Profiles(suppliers), nil
	}
}
