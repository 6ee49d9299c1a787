package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestPayoutStateOf(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	connected := &Mentor{ID: 1, StripeConnectID: "acct_123", IsOnboarded: true}

	testCases := []struct {
		name     string
		booking  *Booking
		mentor   *Mentor
		expected PayoutStateKind
	}{
		{
			name:     "no connected account",
			booking:  &Booking{ID: 1, PaidAt: timePtr(now)},
			mentor:   &Mentor{ID: 1},
			expected: PayoutStateNotConnected,
		},
		{
			name:     "connected but not onboarded",
			booking:  &Booking{ID: 1, PaidAt: timePtr(now)},
			mentor:   &Mentor{ID: 1, StripeConnectID: "acct_123"},
			expected: PayoutStateNotConnected,
		},
		{
			name:     "not paid",
			booking:  &Booking{ID: 1, PayoutStatus: PayoutStatusNone},
			mentor:   connected,
			expected: PayoutStateNotPaid,
		},
		{
			name:     "already paid out",
			booking:  &Booking{ID: 1, PaidAt: timePtr(now), PayoutStatus: PayoutStatusPaidOut},
			mentor:   connected,
			expected: PayoutStateAlreadyPaidOut,
		},
		{
			name: "fraud beats hold",
			booking: &Booking{
				ID: 1, PaidAt: timePtr(now), PayoutStatus: PayoutStatusHeld,
				PayoutReleasedAt: timePtr(now.Add(-time.Hour)), IsFraudReported: true,
			},
			mentor:   connected,
			expected: PayoutStateFraudBlocked,
		},
		{
			name: "fraud beats pending confirmation",
			booking: &Booking{
				ID: 1, PaidAt: timePtr(now), IsFraudReported: true,
				AutoConfirmAt: timePtr(now.Add(time.Hour)),
			},
			mentor:   connected,
			expected: PayoutStateFraudBlocked,
		},
		{
			name: "held",
			booking: &Booking{
				ID: 1, PaidAt: timePtr(now), PayoutStatus: PayoutStatusHeld,
				PayoutReleasedAt: timePtr(now.Add(48 * time.Hour)),
			},
			mentor:   connected,
			expected: PayoutStateHeld,
		},
		{
			name: "awaiting confirmation",
			booking: &Booking{
				ID: 1, PaidAt: timePtr(now),
				AutoConfirmAt: timePtr(now.Add(time.Hour)),
			},
			mentor:   connected,
			expected: PayoutStateAwaitingConfirmation,
		},
		{
			name: "ready after explicit confirmation",
			booking: &Booking{
				ID: 1, PaidAt: timePtr(now),
				StudentConfirmedAt: timePtr(now.Add(-time.Hour)),
			},
			mentor:   connected,
			expected: PayoutStateReady,
		},
		{
			name: "ready after auto-confirm deadline",
			booking: &Booking{
				ID: 1, PaidAt: timePtr(now),
				AutoConfirmAt: timePtr(now.Add(-time.Minute)),
			},
			mentor:   connected,
			expected: PayoutStateReady,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state := PayoutStateOf(tc.booking, tc.mentor, now)
			assert.Equal(t, tc.expected, state.Kind)
		})
	}
}

func TestPayoutStateOf_AutoConfirmFlag(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mentor := &Mentor{ID: 1, StripeConnectID: "acct_123", IsOnboarded: true}

	auto := &Booking{ID: 1, PaidAt: timePtr(now), AutoConfirmAt: timePtr(now.Add(-time.Minute))}
	state := PayoutStateOf(auto, mentor, now)
	assert.Equal(t, PayoutStateReady, state.Kind)
	assert.True(t, state.NeedsAutoConfirm)

	explicit := &Booking{ID: 1, PaidAt: timePtr(now), StudentConfirmedAt: timePtr(now)}
	state = PayoutStateOf(explicit, mentor, now)
	assert.Equal(t, PayoutStateReady, state.Kind)
	assert.False(t, state.NeedsAutoConfirm)
}

func TestPayoutStateOf_DeadlineBoundary(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mentor := &Mentor{ID: 1, StripeConnectID: "acct_123", IsOnboarded: true}

	// Exactly at the deadline counts as confirmed.
	b := &Booking{ID: 1, PaidAt: timePtr(now), AutoConfirmAt: timePtr(now)}
	assert.Equal(t, PayoutStateReady, PayoutStateOf(b, mentor, now).Kind)
}
