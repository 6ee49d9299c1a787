package domain

import "time"

type Mentor struct {
	ID                    int64
	Email                 string
	StripeConnectID       string
	IsOnboarded           bool
	VerifiedBookingsCount int
	IsTrusted             bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CanReceivePayouts reports whether the mentor has a connected payment
// account that finished onboarding. Without both, no transfer is possible.
func (m *Mentor) CanReceivePayouts() bool {
	return m.StripeConnectID != "" && m.IsOnboarded
}
