package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

// userRepo stores the whole aggregate in one row; subscriptions live in a
// JSONB column and every update is a compare-and-swap on version.
type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `email, name, is_premium, telegram_chat_id, subscriptions, version, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		subs []byte
	)
	if err := row.Scan(&u.Email, &u.Name, &u.IsPremium, &u.TelegramChatID, &subs, &u.Version, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	if len(subs) > 0 {
		if err := json.Unmarshal(subs, &u.Subscriptions); err != nil {
			return nil, fmt.Errorf("%w: subscriptions of %s: %v", domain.ErrReadDatabaseRow, u.Email, err)
		}
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func encodeSubscriptions(subs []model.Subscription) ([]byte, error) {
	if subs == nil {
		subs = []model.Subscription{}
	}
	return json.Marshal(subs)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	q := forUpdate(`SELECT `+userColumns+` FROM users WHERE email=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, email)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, tx repository.Tx, u *model.User) error {
	subs, err := encodeSubscriptions(u.Subscriptions)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO users (email, name, is_premium, telegram_chat_id, subscriptions, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,1,$6,$7);`
	if _, err := execSQL(ctx, r.pool, tx, q, u.Email, u.Name, u.IsPremium, u.TelegramChatID, subs, u.CreatedAt.UTC(), u.UpdatedAt.UTC()); err != nil {
		return mapErr(err)
	}
	u.Version = 1
	return nil
}

func (r *userRepo) Update(ctx context.Context, tx repository.Tx, u *model.User) (bool, error) {
	subs, err := encodeSubscriptions(u.Subscriptions)
	if err != nil {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE users SET
  name=$2, is_premium=$3, telegram_chat_id=$4, subscriptions=$5, updated_at=$6, version=version+1
WHERE email=$1 AND version=$7;`
	tag, err := execSQL(ctx, r.pool, tx, q, u.Email, u.Name, u.IsPremium, u.TelegramChatID, subs, u.UpdatedAt.UTC(), u.Version)
	if err != nil {
		return false, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	u.Version++
	return true, nil
}

func (r *userRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users ORDER BY email;`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
