package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorhub/payouts/internal/domain"
)

var ErrBookingNotFound = errors.New("booking not found")

type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	// MarkPaid records the payment-confirmed timestamp. Set-once: returns
	// false if paid_at was already set.
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error)
	// SetConfirmed records explicit student confirmation. Set-once.
	SetConfirmed(ctx context.Context, id int64, confirmedAt time.Time) (bool, error)
	// AutoConfirm folds confirmation and verification into one update for the
	// timeout path. Returns false if the booking was already confirmed or
	// already verified.
	AutoConfirm(ctx context.Context, id int64, now time.Time) (bool, error)
	// MarkVerified flips is_verified false -> true. Returns false if the
	// booking was already verified; this is the idempotency guard for the
	// mentor counter increment.
	MarkVerified(ctx context.Context, id int64, verifiedAt time.Time) (bool, error)
	// SetAmounts persists the fee split. The amounts are immutable once set.
	SetAmounts(ctx context.Context, id int64, platformFee, mentorPayout int64) error
	// MarkHeld transitions NONE -> HELD with a scheduled release time.
	// Zero rows affected means another invocation got there first.
	MarkHeld(ctx context.Context, id int64, releaseAt time.Time) (bool, error)
	// MarkPaidOut transitions NONE/HELD -> PAID_OUT after a confirmed
	// provider transfer. Zero rows affected means another invocation already
	// settled the booking.
	MarkPaidOut(ctx context.Context, id int64, transferID string, paidOutAt time.Time) (bool, error)
	// MarkFraudBlocked records the fraud report and forces the payout status
	// to REFUNDED unless the payout already went out.
	MarkFraudBlocked(ctx context.Context, id int64, notes string, reportedAt time.Time) (*domain.Booking, error)
	// ListReleasable returns HELD bookings whose hold elapsed and that carry
	// no fraud report.
	ListReleasable(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

const bookingColumns = `id, mentor_id, student_email, total_price_cents, platform_fee_cents, mentor_payout_cents,
	paid_at, student_confirmed_at, auto_confirm_at, is_verified, verified_at,
	is_fraud_reported, fraud_reported_at, fraud_notes, payout_status, payout_released_at, payout_id,
	created_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(
		&b.ID, &b.MentorID, &b.StudentEmail, &b.TotalPriceCents, &b.PlatformFeeCents, &b.MentorPayoutCents,
		&b.PaidAt, &b.StudentConfirmedAt, &b.AutoConfirmAt, &b.IsVerified, &b.VerifiedAt,
		&b.IsFraudReported, &b.FraudReportedAt, &b.FraudNotes, &b.PayoutStatus, &b.PayoutReleasedAt, &b.PayoutID,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

func (r *PGBookingRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET paid_at=$2, updated_at=now() WHERE id=$1 AND paid_at IS NULL`, id, paidAt)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGBookingRepository) SetConfirmed(ctx context.Context, id int64, confirmedAt time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET student_confirmed_at=$2, updated_at=now() WHERE id=$1 AND student_confirmed_at IS NULL`, id, confirmedAt)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGBookingRepository) AutoConfirm(ctx context.Context, id int64, now time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings
		SET student_confirmed_at=$2, is_verified=true, verified_at=$2, updated_at=now()
		WHERE id=$1 AND student_confirmed_at IS NULL AND is_verified=false`, id, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGBookingRepository) MarkVerified(ctx context.Context, id int64, verifiedAt time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET is_verified=true, verified_at=$2, updated_at=now() WHERE id=$1 AND is_verified=false`, id, verifiedAt)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGBookingRepository) SetAmounts(ctx context.Context, id int64, platformFee, mentorPayout int64) error {
	_, err := r.db.Exec(ctx, `UPDATE bookings
		SET platform_fee_cents=$2, mentor_payout_cents=$3, updated_at=now()
		WHERE id=$1 AND platform_fee_cents IS NULL`, id, platformFee, mentorPayout)
	return err
}

func (r *PGBookingRepository) MarkHeld(ctx context.Context, id int64, releaseAt time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings
		SET payout_status=$2, payout_released_at=$3, updated_at=now()
		WHERE id=$1 AND payout_status=$4 AND is_fraud_reported=false`,
		id, domain.PayoutStatusHeld, releaseAt, domain.PayoutStatusNone)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGBookingRepository) MarkPaidOut(ctx context.Context, id int64, transferID string, paidOutAt time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings
		SET payout_status=$2, payout_id=$3, payout_released_at=$4, updated_at=now()
		WHERE id=$1 AND payout_status IN ($5, $6) AND is_fraud_reported=false`,
		id, domain.PayoutStatusPaidOut, transferID, paidOutAt, domain.PayoutStatusNone, domain.PayoutStatusHeld)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGBookingRepository) MarkFraudBlocked(ctx context.Context, id int64, notes string, reportedAt time.Time) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings
		SET is_fraud_reported=true,
			fraud_reported_at=COALESCE(fraud_reported_at, $2),
			fraud_notes=$3,
			payout_status=CASE WHEN payout_status=$4 THEN payout_status ELSE $5 END,
			payout_released_at=CASE WHEN payout_status=$4 THEN payout_released_at ELSE NULL END,
			updated_at=now()
		WHERE id=$1
		RETURNING `+bookingColumns,
		id, reportedAt, notes, domain.PayoutStatusPaidOut, domain.PayoutStatusRefunded)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

func (r *PGBookingRepository) ListReleasable(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE payout_status=$1 AND payout_released_at <= $2 AND is_fraud_reported=false
		ORDER BY payout_released_at`, domain.PayoutStatusHeld, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *b)
	}
	return due, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
