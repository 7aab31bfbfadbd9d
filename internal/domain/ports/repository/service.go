package repository

import (
	"context"

	"subscription-commerce/internal/domain/model"
)

// ServiceCatalogRepository is the port for purchasable offerings.
type ServiceCatalogRepository interface {
	Save(ctx context.Context, tx Tx, o *model.ServiceOffering) error
	FindByCode(ctx context.Context, tx Tx, code model.ServiceCode) (*model.ServiceOffering, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.ServiceOffering, error)
}
