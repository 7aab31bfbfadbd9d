package postgres

import (
	"context"
	"time"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/infra/cache"
	"subscription-commerce/internal/infra/metrics"
)

var _ repository.ServiceCatalogRepository = (*serviceRepoCacheDecorator)(nil)

const allActiveKey = "\x00all_active"

// serviceRepoCacheDecorator keeps the catalog in process memory. Offerings
// change rarely and are read on every payment confirmation.
type serviceRepoCacheDecorator struct {
	inner  repository.ServiceCatalogRepository
	one    *cache.TTL[model.ServiceCode, model.ServiceOffering]
	active *cache.TTL[string, []model.ServiceOffering]
}

func NewServiceRepoCacheDecorator(inner repository.ServiceCatalogRepository, ttl time.Duration) repository.ServiceCatalogRepository {
	return &serviceRepoCacheDecorator{
		inner:  inner,
		one:    cache.NewTTL[model.ServiceCode, model.ServiceOffering](ttl),
		active: cache.NewTTL[string, []model.ServiceOffering](ttl),
	}
}

func (d *serviceRepoCacheDecorator) FindByCode(ctx context.Context, tx repository.Tx, code model.ServiceCode) (*model.ServiceOffering, error) {
	o, hit, err := d.one.GetOrFetch(code, func() (model.ServiceOffering, error) {
		p, err := d.inner.FindByCode(ctx, tx, code)
		if err != nil {
			return model.ServiceOffering{}, err
		}
		return *p, nil
	})
	metrics.IncCacheRequest("service_offering", hitLabel(hit))
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (d *serviceRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.ServiceOffering, error) {
	list, hit, err := d.active.GetOrFetch(allActiveKey, func() ([]model.ServiceOffering, error) {
		ps, err := d.inner.ListActive(ctx, tx)
		if err != nil {
			return nil, err
		}
		vals := make([]model.ServiceOffering, len(ps))
		for i, p := range ps {
			vals[i] = *p
		}
		return vals, nil
	})
	metrics.IncCacheRequest("service_offering_list", hitLabel(hit))
	if err != nil {
		return nil, err
	}
	out := make([]*model.ServiceOffering, len(list))
	for i := range list {
		o := list[i]
		out[i] = &o
	}
	return out, nil
}

func (d *serviceRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, o *model.ServiceOffering) error {
	err := d.inner.Save(ctx, tx, o)
	d.one.Invalidate(o.Code)
	d.active.Purge()
	return err
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
