package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

var _ repository.ServiceCatalogRepository = (*serviceRepo)(nil)

type serviceRepo struct{ pool *pgxpool.Pool }

func NewServiceRepo(pool *pgxpool.Pool) *serviceRepo {
	return &serviceRepo{pool: pool}
}

const serviceColumns = `code, name, duration_days, price_minor, currency, active, updated_at`

func scanService(row pgx.Row) (*model.ServiceOffering, error) {
	o := &model.ServiceOffering{}
	if err := row.Scan(&o.Code, &o.Name, &o.DurationDays, &o.PriceMinor, &o.Currency, &o.Active, &o.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

func (r *serviceRepo) Save(ctx context.Context, tx repository.Tx, o *model.ServiceOffering) error {
	const q = `
INSERT INTO service_offerings (` + serviceColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (code) DO UPDATE SET
  name=EXCLUDED.name, duration_days=EXCLUDED.duration_days, price_minor=EXCLUDED.price_minor,
  currency=EXCLUDED.currency, active=EXCLUDED.active, updated_at=NOW();`
	_, err := execSQL(ctx, r.pool, tx, q, o.Code, o.Name, o.DurationDays, o.PriceMinor, o.Currency, o.Active)
	return mapErr(err)
}

func (r *serviceRepo) FindByCode(ctx context.Context, tx repository.Tx, code model.ServiceCode) (*model.ServiceOffering, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+serviceColumns+` FROM service_offerings WHERE code=$1;`, code)
	if err != nil {
		return nil, err
	}
	return scanService(row)
}

func (r *serviceRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.ServiceOffering, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+serviceColumns+` FROM service_offerings WHERE active ORDER BY price_minor, code;`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.ServiceOffering
	for rows.Next() {
		o, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
