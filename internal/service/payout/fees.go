package payout

import "errors"

// platformFeePercent is the marketplace cut taken from every booking.
const platformFeePercent = 15

var ErrInvalidPrice = errors.New("total price must be positive")

// SplitPrice splits a booking's total price into the platform fee and the
// mentor payout. The fee is rounded half-up and the payout is the remainder,
// so the two always sum exactly to the total.
func SplitPrice(totalCents int64) (platformFee, mentorPayout int64, err error) {
	if totalCents <= 0 {
		return 0, 0, ErrInvalidPrice
	}
	platformFee = (totalCents*platformFeePercent + 50) / 100
	mentorPayout = totalCents - platformFee
	return platformFee, mentorPayout, nil
}
