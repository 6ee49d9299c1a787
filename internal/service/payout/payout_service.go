package payout

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mentorhub/payouts/internal/domain"
	"github.com/mentorhub/payouts/internal/kafka"
	"github.com/mentorhub/payouts/internal/repository"
)

const (
	defaultHoldDuration   = 7 * 24 * time.Hour
	defaultTrustThreshold = 5
	defaultLockTTL        = 30 * time.Second
)

// Status is what a payout invocation reports back to its caller. Deferred
// no-ops are SKIPPED results with a reason, not errors, so webhook handlers
// and the sweeper can log and move on.
type Status string

const (
	StatusSkipped              Status = "SKIPPED"
	StatusAwaitingConfirmation Status = "AWAITING_CONFIRMATION"
	StatusHeld                 Status = "HELD"
	StatusPaidOut              Status = "PAID_OUT"
)

type Result struct {
	BookingID   int64      `json:"booking_id"`
	Status      Status     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	ReleaseAt   *time.Time `json:"release_at,omitempty"`
	PayoutID    string     `json:"payout_id,omitempty"`
	AmountCents int64      `json:"amount_cents,omitempty"`
}

type VerifyResult struct {
	AlreadyVerified     bool `json:"already_verified"`
	MentorVerifiedCount int  `json:"mentor_verified_count"`
	MentorNowTrusted    bool `json:"mentor_now_trusted"`
}

type ConfirmResult struct {
	Verify *VerifyResult `json:"verify"`
	Payout *Result       `json:"payout,omitempty"`
}

type SweepResult struct {
	BookingID int64   `json:"booking_id"`
	Success   bool    `json:"success"`
	Result    *Result `json:"result,omitempty"`
	Err       string  `json:"error,omitempty"`
}

type PayoutUseCase interface {
	HandlePaymentConfirmed(ctx context.Context, bookingID int64) (*Result, error)
	ProcessBookingPayout(ctx context.Context, bookingID int64) (*Result, error)
	ConfirmDelivery(ctx context.Context, bookingID int64) (*ConfirmResult, error)
	VerifyBooking(ctx context.Context, bookingID int64) (*VerifyResult, error)
	ReportFraud(ctx context.Context, bookingID int64, notes string) (*domain.Booking, error)
	ProcessHeldPayouts(ctx context.Context) ([]SweepResult, error)
	GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error)
}

// PaymentProvider moves funds to a mentor's connected account. The transfer
// is tagged with the booking id for traceability; the idempotency key scopes
// retries on the provider side.
type PaymentProvider interface {
	CreateTransfer(ctx context.Context, destination string, amountCents int64, bookingID int64, idempotencyKey string) (string, error)
}

// Cache is a best-effort per-booking processing lock. Correctness does not
// depend on it: the conditional status updates in the repository are the
// authoritative guard against double payouts.
type Cache interface {
	AcquirePayoutLock(ctx context.Context, bookingID int64, ttl time.Duration) (bool, error)
	ReleasePayoutLock(ctx context.Context, bookingID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type PayoutService struct {
	bookings           repository.BookingRepository
	mentors            repository.MentorRepository
	provider           PaymentProvider
	cache              Cache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	holdDuration       time.Duration
	trustThreshold     int
	lockTTL            time.Duration
	clock              Clock
}

type PayoutServiceOption func(*PayoutService)

func WithNotificationsTopic(topic string) PayoutServiceOption {
	return func(s *PayoutService) {
		s.notificationsTopic = topic
	}
}

func WithClock(clock Clock) PayoutServiceOption {
	return func(s *PayoutService) {
		s.clock = clock
	}
}

func WithLockTTL(ttl time.Duration) PayoutServiceOption {
	return func(s *PayoutService) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func NewPayoutService(
	bookings repository.BookingRepository,
	mentors repository.MentorRepository,
	provider PaymentProvider,
	cache Cache,
	producer Producer,
	eventsTopic string,
	holdDuration time.Duration,
	trustThreshold int,
	opts ...PayoutServiceOption,
) *PayoutService {
	service := &PayoutService{
		bookings:       bookings,
		mentors:        mentors,
		provider:       provider,
		cache:          cache,
		producer:       producer,
		eventsTopic:    eventsTopic,
		holdDuration:   holdDuration,
		trustThreshold: trustThreshold,
		lockTTL:        defaultLockTTL,
		clock:          systemClock{},
	}
	if service.holdDuration <= 0 {
		service.holdDuration = defaultHoldDuration
	}
	if service.trustThreshold <= 0 {
		service.trustThreshold = defaultTrustThreshold
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// HandlePaymentConfirmed is the entry point for the payment webhook. It
// records the payment timestamp (set-once) and runs the payout decision.
func (s *PayoutService) HandlePaymentConfirmed(ctx context.Context, bookingID int64) (*Result, error) {
	if _, err := s.bookings.MarkPaid(ctx, bookingID, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.ProcessBookingPayout(ctx, bookingID)
}

// ProcessBookingPayout decides, for one paid booking, whether the mentor's
// earnings are released now, held, or blocked. Safe to call repeatedly.
func (s *PayoutService) ProcessBookingPayout(ctx context.Context, bookingID int64) (*Result, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	m, err := s.mentors.GetByID(ctx, b.MentorID)
	if err != nil {
		return nil, err
	}

	release, acquired := s.lockBooking(ctx, bookingID)
	if !acquired {
		return &Result{BookingID: bookingID, Status: StatusSkipped, Reason: "payout already in progress"}, nil
	}
	defer release()

	return s.process(ctx, b, m)
}

func (s *PayoutService) process(ctx context.Context, b *domain.Booking, m *domain.Mentor) (*Result, error) {
	now := s.clock.Now()
	state := domain.PayoutStateOf(b, m, now)

	switch state.Kind {
	case domain.PayoutStateNotConnected:
		return skipped(b.ID, "mentor has no connected payout account"), nil

	case domain.PayoutStateNotPaid:
		return skipped(b.ID, "booking is not paid"), nil

	case domain.PayoutStateAlreadyPaidOut:
		return skipped(b.ID, "payout already completed"), nil

	case domain.PayoutStateFraudBlocked:
		// A fraud report always wins, even over an existing hold.
		if b.PayoutStatus != domain.PayoutStatusRefunded {
			if _, err := s.bookings.MarkFraudBlocked(ctx, b.ID, b.FraudNotes, now); err != nil {
				return nil, err
			}
		}
		return &Result{BookingID: b.ID, Status: StatusHeld, Reason: "fraud reported, requires admin review"}, nil

	case domain.PayoutStateAwaitingConfirmation:
		return &Result{BookingID: b.ID, Status: StatusAwaitingConfirmation, Reason: "waiting for student confirmation"}, nil

	case domain.PayoutStateHeld:
		if state.ReleaseAt != nil && state.ReleaseAt.After(now) {
			return &Result{BookingID: b.ID, Status: StatusHeld, Reason: "anti-fraud hold has not elapsed", ReleaseAt: state.ReleaseAt}, nil
		}
		return s.executePayout(ctx, b, m)
	}

	// READY
	if state.NeedsAutoConfirm {
		if err := s.autoConfirm(ctx, b, m, now); err != nil {
			return nil, err
		}
	}

	if b.MentorPayoutCents == nil {
		fee, pay, err := SplitPrice(b.TotalPriceCents)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", b.ID, err)
		}
		if err := s.bookings.SetAmounts(ctx, b.ID, fee, pay); err != nil {
			return nil, err
		}
		b.PlatformFeeCents = &fee
		b.MentorPayoutCents = &pay
	}

	if m.IsTrusted {
		return s.executePayout(ctx, b, m)
	}

	releaseAt := now.Add(s.holdDuration)
	ok, err := s.bookings.MarkHeld(ctx, b.ID, releaseAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return skipped(b.ID, "payout already handled by another process"), nil
	}

	s.publish(ctx, kafka.PayoutEvent{
		Type:        "payout_held",
		BookingID:   b.ID,
		MentorID:    m.ID,
		MentorEmail: m.Email,
		AmountCents: *b.MentorPayoutCents,
		Status:      string(domain.PayoutStatusHeld),
		ReleaseAt:   &releaseAt,
	})
	return &Result{
		BookingID:   b.ID,
		Status:      StatusHeld,
		Reason:      "anti-fraud hold for new mentors",
		ReleaseAt:   &releaseAt,
		AmountCents: *b.MentorPayoutCents,
	}, nil
}

// autoConfirm handles the timeout path of the confirmation gate: the deadline
// passed without a student response, so confirmation and verification are
// written in one update and the mentor's trust counter is credited.
func (s *PayoutService) autoConfirm(ctx context.Context, b *domain.Booking, m *domain.Mentor, now time.Time) error {
	confirmed, err := s.bookings.AutoConfirm(ctx, b.ID, now)
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}
	b.StudentConfirmedAt = &now
	b.IsVerified = true
	b.VerifiedAt = &now
	_, _, err = s.creditMentor(ctx, m)
	return err
}

// creditMentor bumps the mentor's verified bookings counter and grants
// trusted status the first time the counter reaches the threshold. The
// increment is atomic at the storage layer; the grant is a conditional
// false -> true update, so neither can fire twice under concurrency.
func (s *PayoutService) creditMentor(ctx context.Context, m *domain.Mentor) (int, bool, error) {
	count, err := s.mentors.IncrementVerifiedCount(ctx, m.ID)
	if err != nil {
		return 0, false, err
	}
	m.VerifiedBookingsCount = count

	if count < s.trustThreshold {
		return count, false, nil
	}

	granted, err := s.mentors.GrantTrusted(ctx, m.ID)
	if err != nil {
		return count, false, err
	}
	m.IsTrusted = true
	if granted {
		s.publish(ctx, kafka.PayoutEvent{
			Type:             "mentor_trusted",
			MentorID:         m.ID,
			MentorEmail:      m.Email,
			VerifiedBookings: count,
		})
	}
	return count, granted, nil
}

// executePayout transfers the mentor payout through the payment provider and
// marks the booking paid out. The provider call comes first; the status flip
// only happens after the transfer is confirmed, and a provider failure leaves
// the booking untouched so the operation can be retried.
func (s *PayoutService) executePayout(ctx context.Context, b *domain.Booking, m *domain.Mentor) (*Result, error) {
	if !m.CanReceivePayouts() {
		return skipped(b.ID, "mentor has no connected payout account"), nil
	}
	if b.MentorPayoutCents == nil {
		return nil, fmt.Errorf("booking %d has no payout amount computed", b.ID)
	}
	amount := *b.MentorPayoutCents

	transferID, err := s.provider.CreateTransfer(ctx, m.StripeConnectID, amount, b.ID, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("transfer for booking %d: %w", b.ID, err)
	}

	now := s.clock.Now()
	ok, err := s.bookings.MarkPaidOut(ctx, b.ID, transferID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Printf("booking %d was settled concurrently, transfer %s needs manual review", b.ID, transferID)
		return skipped(b.ID, "payout already handled by another process"), nil
	}

	s.publish(ctx, kafka.PayoutEvent{
		Type:        "payout_released",
		BookingID:   b.ID,
		MentorID:    m.ID,
		MentorEmail: m.Email,
		AmountCents: amount,
		Status:      string(domain.PayoutStatusPaidOut),
		TransferID:  transferID,
	})
	return &Result{BookingID: b.ID, Status: StatusPaidOut, PayoutID: transferID, AmountCents: amount}, nil
}

// ConfirmDelivery is the explicit confirmation action: the student confirms
// the service was delivered. Verification and the payout run follow, but a
// payout-side failure never reverses the confirmation itself.
func (s *PayoutService) ConfirmDelivery(ctx context.Context, bookingID int64) (*ConfirmResult, error) {
	if _, err := s.bookings.SetConfirmed(ctx, bookingID, s.clock.Now()); err != nil {
		return nil, err
	}

	verify, err := s.VerifyBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	payoutRes, err := s.ProcessBookingPayout(ctx, bookingID)
	if err != nil {
		log.Printf("payout after confirmation of booking %d failed, will be retried: %v", bookingID, err)
		return &ConfirmResult{Verify: verify}, nil
	}
	return &ConfirmResult{Verify: verify, Payout: payoutRes}, nil
}

// VerifyBooking counts a confirmed booking toward the mentor's trust ledger.
// Idempotent: a second call reports already_verified and leaves the counter
// alone.
func (s *PayoutService) VerifyBooking(ctx context.Context, bookingID int64) (*VerifyResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	m, err := s.mentors.GetByID(ctx, b.MentorID)
	if err != nil {
		return nil, err
	}

	if b.IsVerified {
		return &VerifyResult{AlreadyVerified: true, MentorVerifiedCount: m.VerifiedBookingsCount}, nil
	}

	changed, err := s.bookings.MarkVerified(ctx, bookingID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return &VerifyResult{AlreadyVerified: true, MentorVerifiedCount: m.VerifiedBookingsCount}, nil
	}

	count, nowTrusted, err := s.creditMentor(ctx, m)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{MentorVerifiedCount: count, MentorNowTrusted: nowTrusted}, nil
}

// ReportFraud permanently blocks a booking's payout, overriding any scheduled
// hold release. There is no unblock path here; resolution is an admin matter.
func (s *PayoutService) ReportFraud(ctx context.Context, bookingID int64, notes string) (*domain.Booking, error) {
	b, err := s.bookings.MarkFraudBlocked(ctx, bookingID, notes, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.PayoutEvent{
		Type:      "payout_fraud_blocked",
		BookingID: b.ID,
		MentorID:  b.MentorID,
		Status:    string(b.PayoutStatus),
	})
	return b, nil
}

// ProcessHeldPayouts releases every held booking whose hold has elapsed.
// Each booking is handled independently; one failure is recorded in its
// result and never aborts the batch.
func (s *PayoutService) ProcessHeldPayouts(ctx context.Context) ([]SweepResult, error) {
	due, err := s.bookings.ListReleasable(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, 0, len(due))
	for i := range due {
		b := &due[i]
		res, err := s.releaseHeld(ctx, b)
		if err != nil {
			log.Printf("sweep: booking %d: %v", b.ID, err)
			results = append(results, SweepResult{BookingID: b.ID, Err: err.Error()})
			continue
		}
		results = append(results, SweepResult{BookingID: b.ID, Success: true, Result: res})
	}
	return results, nil
}

func (s *PayoutService) releaseHeld(ctx context.Context, b *domain.Booking) (*Result, error) {
	m, err := s.mentors.GetByID(ctx, b.MentorID)
	if err != nil {
		return nil, err
	}

	release, acquired := s.lockBooking(ctx, b.ID)
	if !acquired {
		return skipped(b.ID, "payout already in progress"), nil
	}
	defer release()

	return s.executePayout(ctx, b, m)
}

func (s *PayoutService) GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *PayoutService) lockBooking(ctx context.Context, bookingID int64) (release func(), acquired bool) {
	if s.cache == nil {
		return func() {}, true
	}
	ok, err := s.cache.AcquirePayoutLock(ctx, bookingID, s.lockTTL)
	if err != nil {
		log.Printf("payout lock for booking %d unavailable, proceeding without it: %v", bookingID, err)
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}
	return func() { _ = s.cache.ReleasePayoutLock(ctx, bookingID) }, true
}

func (s *PayoutService) publish(ctx context.Context, event kafka.PayoutEvent) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	key := strconv.FormatInt(event.BookingID, 10)
	if event.BookingID == 0 {
		key = "mentor-" + strconv.FormatInt(event.MentorID, 10)
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %d: %v", event.Type, event.BookingID, err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for booking %d: %v", event.Type, event.BookingID, err)
		}
	}
}

func skipped(bookingID int64, reason string) *Result {
	return &Result{BookingID: bookingID, Status: StatusSkipped, Reason: reason}
}

var _ PayoutUseCase = (*PayoutService)(nil)
