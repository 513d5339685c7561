package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
)

type PromoRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	FindByID(ctx context.Context, id int64) (*domain.PromoCode, error)
}

type promoRepository struct {
	pool *pgxpool.Pool
}

func NewPromoRepository(pool *pgxpool.Pool) PromoRepository {
	return &promoRepository{pool: pool}
}

const promoCols = `id, code, type, value, start_date, end_date, max_uses, current_uses, is_active, deleted_at`

func (r *promoRepository) FindByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPromo(r.pool.QueryRow(ctx, `SELECT `+promoCols+` FROM promo_codes WHERE code=$1`, code))
}

func (r *promoRepository) FindByID(ctx context.Context, id int64) (*domain.PromoCode, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPromo(r.pool.QueryRow(ctx, `SELECT `+promoCols+` FROM promo_codes WHERE id=$1`, id))
}

func scanPromo(row pgx.Row) (*domain.PromoCode, error) {
	var (
		p       domain.PromoCode
		maxUses *int32
		uses    int32
	)
	err := row.Scan(
		&p.ID, &p.Code, &p.Type, &p.Value, &p.StartDate, &p.EndDate,
		&maxUses, &uses, &p.IsActive, &p.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if maxUses != nil {
		m := int(*maxUses)
		p.MaxUses = &m
	}
	p.CurrentUses = int(uses)
	return &p, nil
}

// incrementPromoUsage runs inside the confirming transaction so a
// redemption is counted exactly once per confirmed reservation. It never
// lets current_uses pass max_uses and reports false when the cap was
// already reached.
func incrementPromoUsage(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	const q = `UPDATE promo_codes SET current_uses = current_uses + 1
	WHERE id=$1 AND (max_uses IS NULL OR current_uses < max_uses)`
	tag, err := tx.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
