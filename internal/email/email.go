package email

import (
	"context"
	"fmt"

	"github.com/mentorhub/payouts/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.PayoutEvent) error {
	switch event.Type {
	case "payout_released":
		fmt.Printf("send email to %s: payout of %d cents for booking %d released (transfer %s)\n", event.MentorEmail, event.AmountCents, event.BookingID, event.TransferID)
	case "payout_held":
		fmt.Printf("send email to %s: payout of %d cents for booking %d held until %v\n", event.MentorEmail, event.AmountCents, event.BookingID, event.ReleaseAt)
	case "mentor_trusted":
		fmt.Printf("send email to %s: congratulations, you are now a trusted mentor (%d verified bookings)\n", event.MentorEmail, event.VerifiedBookings)
	default:
		fmt.Printf("send email to %s about %s for booking %d\n", event.MentorEmail, event.Type, event.BookingID)
	}
	return nil
}
