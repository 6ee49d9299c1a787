package domain

import "time"

type PayoutStatus string

const (
	PayoutStatusNone    PayoutStatus = "NONE"
	PayoutStatusHeld    PayoutStatus = "HELD"
	PayoutStatusPaidOut PayoutStatus = "PAID_OUT"
	// PayoutStatusRefunded means "blocked pending admin review after a fraud
	// report", not a generic refund.
	PayoutStatusRefunded PayoutStatus = "REFUNDED"
)

type Booking struct {
	ID                 int64
	MentorID           int64
	StudentEmail       string
	TotalPriceCents    int64
	PlatformFeeCents   *int64
	MentorPayoutCents  *int64
	PaidAt             *time.Time
	StudentConfirmedAt *time.Time
	AutoConfirmAt      *time.Time
	IsVerified         bool
	VerifiedAt         *time.Time
	IsFraudReported    bool
	FraudReportedAt    *time.Time
	FraudNotes         string
	PayoutStatus       PayoutStatus
	PayoutReleasedAt   *time.Time
	PayoutID           string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsConfirmed reports whether delivery has been confirmed, either explicitly
// by the student or implicitly because the auto-confirm deadline has passed.
func (b *Booking) IsConfirmed(now time.Time) bool {
	if b.StudentConfirmedAt != nil {
		return true
	}
	return b.AutoConfirmAt != nil && !now.Before(*b.AutoConfirmAt)
}
