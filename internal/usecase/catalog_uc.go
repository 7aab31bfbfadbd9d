package usecase

import (
	"context"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

type CatalogUseCase interface {
	List(ctx context.Context) ([]*model.ServiceOffering, error)
	// Get returns an active offering or domain.ErrNotFound.
	Get(ctx context.Context, code model.ServiceCode) (*model.ServiceOffering, error)
	Save(ctx context.Context, o *model.ServiceOffering) error
}

type catalogUC struct {
	repo repository.ServiceCatalogRepository
	log  *zerolog.Logger
}

// NewCatalogUseCase expects repo to be the cached repository in production;
// reads are frequent and offerings rarely change.
func NewCatalogUseCase(repo repository.ServiceCatalogRepository, logger *zerolog.Logger) *catalogUC {
	l := logger.With().Str("component", "catalog_uc").Logger()
	return &catalogUC{repo: repo, log: &l}
}

func (c *catalogUC) List(ctx context.Context) ([]*model.ServiceOffering, error) {
	return c.repo.ListActive(ctx, repository.NoTX)
}

func (c *catalogUC) Get(ctx context.Context, code model.ServiceCode) (*model.ServiceOffering, error) {
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	o, err := c.repo.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		return nil, err
	}
	if !o.Active {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (c *catalogUC) Save(ctx context.Context, o *model.ServiceOffering) error {
	if o == nil || o.Code == "" || o.DurationDays <= 0 || o.PriceMinor <= 0 {
		return domain.ErrInvalidArgument
	}
	if err := c.repo.Save(ctx, repository.NoTX, o); err != nil {
		c.log.Error().Err(err).Str("service", string(o.Code)).Msg("failed to save offering")
		return err
	}
	c.log.Info().Str("service", string(o.Code)).Int64("price_minor", o.PriceMinor).Msg("offering saved")
	return nil
}
