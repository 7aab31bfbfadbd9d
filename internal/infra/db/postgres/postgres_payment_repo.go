package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, order_id, payment_id, signature, amount, currency, status, user_email, service, admin_note, created_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.OrderID, &p.PaymentID, &p.Signature, &p.Amount, &p.Currency, &p.Status, &p.UserEmail, &p.Service, &p.AdminNote, &p.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// Save upserts the payment by id. A failed attempt is upgraded in place
// once a correctly signed confirmation for the same gateway payment arrives.
func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
	order_id=EXCLUDED.order_id, signature=EXCLUDED.signature, amount=EXCLUDED.amount,
	currency=EXCLUDED.currency, status=EXCLUDED.status, user_email=EXCLUDED.user_email,
	service=EXCLUDED.service, admin_note=EXCLUDED.admin_note, created_at=EXCLUDED.created_at;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.OrderID, p.PaymentID, p.Signature, p.Amount, p.Currency, p.Status, p.UserEmail, p.Service, p.AdminNote, p.CreatedAt.UTC())
	return mapErr(err)
}

func (r *paymentRepo) FindPaymentByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := forUpdate(`SELECT `+paymentColumns+` FROM payments WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindPaymentByTransactionID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+paymentColumns+` FROM payments WHERE payment_id=$1;`, paymentID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) SumVerified(ctx context.Context, tx repository.Tx, currency string, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0)::BIGINT FROM payments WHERE status='verified' AND currency=$1 AND created_at >= $2;`
	row, err := pickRow(ctx, r.pool, tx, q, currency, since.UTC())
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, mapScanErr(err)
	}
	return sum, nil
}
