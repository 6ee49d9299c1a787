package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorhub/payouts/internal/domain"
)

var ErrMentorNotFound = errors.New("mentor not found")

type MentorRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Mentor, error)
	// IncrementVerifiedCount atomically bumps the mentor's verified bookings
	// counter and returns the new value. The increment happens in a single
	// statement so concurrent verifications cannot lose updates.
	IncrementVerifiedCount(ctx context.Context, id int64) (int, error)
	// GrantTrusted flips is_trusted false -> true. Returns false if the
	// mentor was already trusted, so the transition fires at most once.
	GrantTrusted(ctx context.Context, id int64) (bool, error)
}

type PGMentorRepository struct {
	db *pgxpool.Pool
}

func NewMentorRepository(db *pgxpool.Pool) MentorRepository {
	return &PGMentorRepository{db: db}
}

func (r *PGMentorRepository) GetByID(ctx context.Context, id int64) (*domain.Mentor, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, stripe_connect_id, is_onboarded, verified_bookings_count, is_trusted, created_at, updated_at FROM mentors WHERE id=$1`, id)
	var m domain.Mentor
	if err := row.Scan(&m.ID, &m.Email, &m.StripeConnectID, &m.IsOnboarded, &m.VerifiedBookingsCount, &m.IsTrusted, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMentorNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PGMentorRepository) IncrementVerifiedCount(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `UPDATE mentors SET verified_bookings_count = verified_bookings_count + 1, updated_at = now() WHERE id=$1 RETURNING verified_bookings_count`, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrMentorNotFound
	}
	return count, err
}

func (r *PGMentorRepository) GrantTrusted(ctx context.Context, id int64) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE mentors SET is_trusted=true, updated_at=now() WHERE id=$1 AND is_trusted=false`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

var _ MentorRepository = (*PGMentorRepository)(nil)
