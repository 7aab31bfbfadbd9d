package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

var _ repository.RefundRepository = (*refundRepo)(nil)

type refundRepo struct{ pool *pgxpool.Pool }

func NewRefundRepo(pool *pgxpool.Pool) *refundRepo {
	return &refundRepo{pool: pool}
}

const refundColumns = `id, COALESCE(refund_id,''), payment_id, order_id, amount, currency, status, speed_requested, speed_processed,
  user_email, processed_by, acquirer_data, batch_id, error_code, error_description, created_at, processed_at, failed_at`

func scanRefund(row pgx.Row) (*model.Refund, error) {
	var (
		rf       model.Refund
		acquirer []byte
	)
	err := row.Scan(&rf.ID, &rf.RefundID, &rf.PaymentID, &rf.OrderID, &rf.Amount, &rf.Currency, &rf.Status,
		&rf.SpeedRequested, &rf.SpeedProcessed, &rf.UserEmail, &rf.ProcessedBy, &acquirer, &rf.BatchID,
		&rf.ErrorCode, &rf.ErrorDescription, &rf.CreatedAt, &rf.ProcessedAt, &rf.FailedAt)
	if err != nil {
		return nil, mapScanErr(err)
	}
	if len(acquirer) > 0 && string(acquirer) != "{}" {
		if err := json.Unmarshal(acquirer, &rf.AcquirerData); err != nil {
			return nil, fmt.Errorf("%w: acquirer_data of %s: %v", domain.ErrReadDatabaseRow, rf.ID, err)
		}
	}
	rf.CreatedAt = rf.CreatedAt.UTC()
	if rf.ProcessedAt != nil {
		t := rf.ProcessedAt.UTC()
		rf.ProcessedAt = &t
	}
	if rf.FailedAt != nil {
		t := rf.FailedAt.UTC()
		rf.FailedAt = &t
	}
	return &rf, nil
}

func encodeAcquirer(m map[string]string) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	b, _ := json.Marshal(m)
	return b
}

func (r *refundRepo) CreateRefund(ctx context.Context, tx repository.Tx, rf *model.Refund) error {
	const q = `
INSERT INTO refunds (id, refund_id, payment_id, order_id, amount, currency, status, speed_requested, speed_processed,
  user_email, processed_by, acquirer_data, batch_id, error_code, error_description, created_at, processed_at, failed_at)
VALUES ($1,NULLIF($2,''),$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18);`
	_, err := execSQL(ctx, r.pool, tx, q, rf.ID, rf.RefundID, rf.PaymentID, rf.OrderID, rf.Amount, rf.Currency, rf.Status,
		rf.SpeedRequested, rf.SpeedProcessed, rf.UserEmail, rf.ProcessedBy, encodeAcquirer(rf.AcquirerData), rf.BatchID,
		rf.ErrorCode, rf.ErrorDescription, rf.CreatedAt.UTC(), rf.ProcessedAt, rf.FailedAt)
	return mapErr(err)
}

func (r *refundRepo) UpdateRefund(ctx context.Context, tx repository.Tx, rf *model.Refund) error {
	const q = `
UPDATE refunds SET
  refund_id=NULLIF($2,''), status=$3, speed_processed=$4, acquirer_data=$5, batch_id=$6,
  error_code=$7, error_description=$8, processed_at=$9, failed_at=$10
WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, rf.ID, rf.RefundID, rf.Status, rf.SpeedProcessed, encodeAcquirer(rf.AcquirerData),
		rf.BatchID, rf.ErrorCode, rf.ErrorDescription, rf.ProcessedAt, rf.FailedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TransitionIfPending is the only path from PENDING to a terminal state; the
// status predicate makes concurrent deliveries race safely.
func (r *refundRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, t repository.RefundTransition) (bool, error) {
	if !t.Status.Terminal() {
		return false, domain.ErrInvalidArgument
	}
	var processedAt, failedAt *time.Time
	at := t.At.UTC()
	if t.Status == model.RefundStatusProcessed {
		processedAt = &at
	} else {
		failedAt = &at
	}
	const q = `
UPDATE refunds SET
  status=$2,
  speed_processed=COALESCE(NULLIF($3,''), speed_processed),
  acquirer_data=CASE WHEN $4::jsonb = '{}'::jsonb THEN acquirer_data ELSE $4::jsonb END,
  batch_id=COALESCE(NULLIF($5,''), batch_id),
  error_code=$6, error_description=$7,
  processed_at=$8, failed_at=$9
WHERE refund_id=$1 AND status='PENDING';`
	tag, err := execSQL(ctx, r.pool, tx, q, t.RefundID, t.Status, t.SpeedProcessed, encodeAcquirer(t.AcquirerData), t.BatchID,
		t.ErrorCode, t.ErrorDescription, processedAt, failedAt)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *refundRepo) FindRefundByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+refundColumns+` FROM refunds WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanRefund(row)
}

func (r *refundRepo) FindRefundByRefundID(ctx context.Context, tx repository.Tx, refundID string) (*model.Refund, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+refundColumns+` FROM refunds WHERE refund_id=$1;`, refundID)
	if err != nil {
		return nil, err
	}
	return scanRefund(row)
}

func (r *refundRepo) ListRefunds(ctx context.Context, tx repository.Tx, f model.RefundFilter, page model.Page) ([]*model.Refund, int, error) {
	page = page.Normalize()
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	if f.PaymentID != "" {
		add("payment_id=$%d", f.PaymentID)
	}
	if f.UserEmail != "" {
		add("user_email=$%d", f.UserEmail)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM refunds`+clause+`;`, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, mapScanErr(err)
	}

	q := fmt.Sprintf(`SELECT %s FROM refunds%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d;`,
		refundColumns, clause, len(args)+1, len(args)+2)
	rows, err := queryRows(ctx, r.pool, tx, q, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []*model.Refund
	for rows.Next() {
		rf, err := scanRefund(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rf)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

func (r *refundRepo) SumNonFailed(ctx context.Context, tx repository.Tx, paymentID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0)::BIGINT FROM refunds WHERE payment_id=$1 AND status<>'FAILED';`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, mapScanErr(err)
	}
	return sum, nil
}

func (r *refundRepo) SumProcessed(ctx context.Context, tx repository.Tx, currency string, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0)::BIGINT FROM refunds WHERE status='PROCESSED' AND currency=$1 AND processed_at >= $2;`
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
