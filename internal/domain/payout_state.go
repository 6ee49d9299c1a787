package domain

import "time"

// PayoutStateKind is the derived payout state of a booking. It is computed
// from the stored fields rather than persisted, so the precedence between
// fraud, holds and confirmation lives in exactly one place.
type PayoutStateKind string

const (
	PayoutStateNotConnected         PayoutStateKind = "NOT_CONNECTED"
	PayoutStateNotPaid              PayoutStateKind = "NOT_PAID"
	PayoutStateAlreadyPaidOut       PayoutStateKind = "ALREADY_PAID_OUT"
	PayoutStateFraudBlocked         PayoutStateKind = "FRAUD_BLOCKED"
	PayoutStateHeld                 PayoutStateKind = "HELD"
	PayoutStateAwaitingConfirmation PayoutStateKind = "AWAITING_CONFIRMATION"
	PayoutStateReady                PayoutStateKind = "READY"
)

type PayoutState struct {
	Kind PayoutStateKind
	// ReleaseAt is set for HELD: when the hold elapses.
	ReleaseAt *time.Time
	// NeedsAutoConfirm is set for READY when confirmation came from the
	// auto-confirm deadline and has not been written to the booking yet.
	NeedsAutoConfirm bool
}

// PayoutStateOf derives the payout state for a booking/mentor pair at a given
// instant. Evaluation order is the precedence order: a missing payout account
// or unpaid booking defers everything, a finished payout is terminal, fraud
// beats any hold or pending confirmation.
func PayoutStateOf(b *Booking, m *Mentor, now time.Time) PayoutState {
	switch {
	case !m.CanReceivePayouts():
		return PayoutState{Kind: PayoutStateNotConnected}
	case b.PaidAt == nil:
		return PayoutState{Kind: PayoutStateNotPaid}
	case b.PayoutStatus == PayoutStatusPaidOut:
		return PayoutState{Kind: PayoutStateAlreadyPaidOut}
	case b.IsFraudReported:
		return PayoutState{Kind: PayoutStateFraudBlocked}
	case b.PayoutStatus == PayoutStatusHeld:
		return PayoutState{Kind: PayoutStateHeld, ReleaseAt: b.PayoutReleasedAt}
	case !b.IsConfirmed(now):
		return PayoutState{Kind: PayoutStateAwaitingConfirmation}
	default:
		return PayoutState{Kind: PayoutStateReady, NeedsAutoConfirm: b.StudentConfirmedAt == nil}
	}
}
