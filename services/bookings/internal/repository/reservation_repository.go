package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
	"github.com/diagnosis/boxbook/services/bookings/internal/schedule"
)

// Guard is run inside the insert transaction with the day's active ranges.
// A non-nil error aborts the insert and is returned unchanged.
type Guard func(active []schedule.Range) error

type ReservationRepository interface {
	ListActive(ctx context.Context, date time.Time) ([]domain.Reservation, error)
	CreateGuarded(ctx context.Context, draft *domain.Draft, guard Guard) (*domain.Reservation, error)
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	GetByIDWithToken(ctx context.Context, id int64, token string) (*domain.Reservation, error)
	FindByExternalRef(ctx context.Context, ref string) (*domain.Reservation, error)
	SetPaymentSession(ctx context.Context, id int64, ref, checkoutURL string, expiresAt time.Time) (*domain.Reservation, error)
	Reprice(ctx context.Context, id int64, promoCodeID *int64, price decimal.Decimal) (*domain.Reservation, error)
	Confirm(ctx context.Context, id int64, ref string) (*Confirmation, error)
	Cancel(ctx context.Context, id int64, reason string, from []domain.Status) (*domain.Reservation, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Reservation, error)
}

// Confirmation is the outcome of a confirming update.
type Confirmation struct {
	Reservation *domain.Reservation
	// Changed is false when the reservation was not pending. Reservation
	// then holds the current row.
	Changed bool
	// PromoRefused is set when the attached code had no uses left. The
	// reservation is confirmed regardless, the payment was already taken.
	PromoRefused bool
}

type reservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &reservationRepository{pool: pool}
}

const reservationCols = `id, manage_token, date, start_hour, duration, group_size,
base_price, price, status, payment_status, external_ref, checkout_url, checkout_expires_at, promo_code_id,
customer_name, customer_email, customer_phone, message, cancel_reason,
is_test_booking, deleted_at, created_at, updated_at`

const activeClause = `status <> 'cancelled' AND deleted_at IS NULL`

// exclusion_violation, raised by reservations_no_overlap
const codeExclusionViolation = "23P01"

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var (
		res      domain.Reservation
		start    int16
		duration int16
		group    int16
	)
	err := row.Scan(
		&res.ID, &res.ManageToken, &res.Date, &start, &duration, &group,
		&res.BasePrice, &res.Price, &res.Status, &res.PaymentStatus,
		&res.ExternalRef, &res.CheckoutURL, &res.CheckoutUntil, &res.PromoCodeID,
		&res.Customer.Name, &res.Customer.Email, &res.Customer.Phone, &res.Customer.Message,
		&res.CancelReason, &res.IsTest, &res.DeletedAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Date = schedule.NormalizeDate(res.Date)
	res.Start = schedule.Slot(start)
	res.Duration = int(duration)
	res.GroupSize = int(group)
	return &res, nil
}

func scanOne(row pgx.Row) (*domain.Reservation, error) {
	res, err := scanReservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func collect(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r *reservationRepository) ListActive(ctx context.Context, date time.Time) ([]domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, listActiveQuery, schedule.NormalizeDate(date))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

const listActiveQuery = `SELECT ` + reservationCols + ` FROM reservations
WHERE date=$1 AND ` + activeClause + ` ORDER BY start_hour`

// CreateGuarded serializes writers per calendar day with a transaction-scoped
// advisory lock, re-reads the day's active reservations and lets guard
// decide before inserting. The exclusion constraint catches anything that
// bypasses this path.
func (r *reservationRepository) CreateGuarded(ctx context.Context, d *domain.Draft, guard Guard) (*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	date := schedule.NormalizeDate(d.Date)
	dayKey := int32(date.Unix() / 86400)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('reservations'), $1)`, dayKey); err != nil {
		return nil, fmt.Errorf("lock reservation day: %w", err)
	}

	rows, err := tx.Query(ctx, listActiveQuery, date)
	if err != nil {
		return nil, err
	}
	active, err := collect(rows)
	if err != nil {
		return nil, err
	}
	if err := guard(domain.Ranges(active)); err != nil {
		return nil, err
	}

	const q = `INSERT INTO reservations (
		manage_token, date, start_hour, duration, group_size,
		base_price, price, promo_code_id,
		customer_name, customer_email, customer_phone, message, is_test_booking
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	RETURNING ` + reservationCols

	res, err := scanReservation(tx.QueryRow(ctx, q,
		uuid.NewString(), date, int16(d.Start.Hour()), int16(d.Duration), int16(d.GroupSize),
		d.BasePrice, d.Price, d.PromoCodeID,
		d.Customer.Name, d.Customer.Email, d.Customer.Phone, d.Customer.Message, d.IsTest,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeExclusionViolation {
			return nil, fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanOne(r.pool.QueryRow(ctx, q, id))
}

func (r *reservationRepository) GetByIDWithToken(ctx context.Context, id int64, token string) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	WHERE id=$1 AND manage_token=$2 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanOne(r.pool.QueryRow(ctx, q, id, token))
}

func (r *reservationRepository) FindByExternalRef(ctx context.Context, ref string) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE external_ref=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanOne(r.pool.QueryRow(ctx, q, ref))
}

// SetPaymentSession records a new checkout session. Only pending
// reservations qualify; nil is returned otherwise.
func (r *reservationRepository) SetPaymentSession(ctx context.Context, id int64, ref, checkoutURL string, expiresAt time.Time) (*domain.Reservation, error) {
	const q = `UPDATE reservations
	SET external_ref=$2, checkout_url=$3, checkout_expires_at=$4,
		payment_status='awaiting_payment', updated_at=now()
	WHERE id=$1 AND status='pending' AND payment_status <> 'paid'
	RETURNING ` + reservationCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanOne(r.pool.QueryRow(ctx, q, id, ref, checkoutURL, expiresAt))
}

// Reprice swaps the attached promo code and drops any open checkout
// session, which was issued for the old amount. Only unpaid pending
// reservations can be repriced; nil is returned otherwise.
func (r *reservationRepository) Reprice(ctx context.Context, id int64, promoCodeID *int64, price decimal.Decimal) (*domain.Reservation, error) {
	const q = `UPDATE reservations
	SET promo_code_id=$2, price=$3, external_ref=NULL, checkout_url=NULL,
		checkout_expires_at=NULL, payment_status='unpaid', updated_at=now()
	WHERE id=$1 AND status='pending' AND payment_status <> 'paid'
	RETURNING ` + reservationCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanOne(r.pool.QueryRow(ctx, q, id, promoCodeID, price))
}

// Confirm moves a pending reservation to confirmed/paid and counts the
// promo redemption in the same transaction.
func (r *reservationRepository) Confirm(ctx context.Context, id int64, ref string) (*Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE reservations
	SET status='confirmed', payment_status='paid', external_ref=$2, updated_at=now()
	WHERE id=$1 AND status='pending'
	RETURNING ` + reservationCols

	res, err := scanOne(tx.QueryRow(ctx, q, id, ref))
	if err != nil {
		return nil, err
	}
	if res == nil {
		current, err := scanOne(tx.QueryRow(ctx, `SELECT `+reservationCols+` FROM reservations WHERE id=$1`, id))
		if err != nil {
			return nil, err
		}
		return &Confirmation{Reservation: current}, nil
	}

	out := &Confirmation{Reservation: res, Changed: true}
	if res.PromoCodeID != nil {
		counted, err := incrementPromoUsage(ctx, tx, *res.PromoCodeID)
		if err != nil {
			return nil, err
		}
		out.PromoRefused = !counted
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel transitions to cancelled when the current status is one of from.
// It returns nil when no row qualified.
func (r *reservationRepository) Cancel(ctx context.Context, id int64, reason string, from []domain.Status) (*domain.Reservation, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	const q = `UPDATE reservations
	SET status='cancelled', cancel_reason=$2, updated_at=now()
	WHERE id=$1 AND status = ANY($3)
	RETURNING ` + reservationCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanOne(r.pool.QueryRow(ctx, q, id, reason, statuses))
}

func (r *reservationRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE reservations SET deleted_at=now(), updated_at=now() WHERE id=$1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *reservationRepository) List(ctx context.Context, f domain.ListFilter) ([]domain.Reservation, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `SELECT ` + reservationCols + ` FROM reservations WHERE deleted_at IS NULL`
	var args []any
	if f.Status != nil {
		args = append(args, string(*f.Status))
		q += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if f.Date != nil {
		args = append(args, schedule.NormalizeDate(*f.Date))
		q += fmt.Sprintf(` AND date=$%d`, len(args))
	}
	if !f.IncludeTest {
		q += ` AND NOT is_test_booking`
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY date DESC, start_hour LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
