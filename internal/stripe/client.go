package stripe

import (
	"context"
	"fmt"
	"strconv"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// Client wraps the Stripe Connect calls the payout engine needs: moving a
// mentor's earnings to their connected account and reversing a transfer
// during admin dispute resolution.
type Client struct {
	api      *client.API
	currency string
}

func NewClient(secretKey, currency string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &Client{api: api, currency: currency}
}

// CreateTransfer moves amountCents to the mentor's connected account. The
// booking id travels in the transfer group and metadata so support can trace
// any transfer back to its booking.
func (c *Client) CreateTransfer(ctx context.Context, destination string, amountCents int64, bookingID int64, idempotencyKey string) (string, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(c.currency),
		Destination:   stripe.String(destination),
		TransferGroup: stripe.String(fmt.Sprintf("booking-%d", bookingID)),
	}
	params.Context = ctx
	params.AddMetadata("booking_id", strconv.FormatInt(bookingID, 10))
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	transfer, err := c.api.Transfers.New(params)
	if err != nil {
		return "", fmt.Errorf("create transfer: %w", err)
	}
	return transfer.ID, nil
}

// ReverseTransfer pulls a completed transfer back. Not part of the payout
// happy path; used when an admin resolves a dispute against the mentor.
func (c *Client) ReverseTransfer(ctx context.Context, transferID string) (string, error) {
	params := &stripe.TransferReversalParams{
		ID: stripe.String(transferID),
	}
	params.Context = ctx

	reversal, err := c.api.TransferReversals.New(params)
	if err != nil {
		return "", fmt.Errorf("reverse transfer %s: %w", transferID, err)
	}
	return reversal.ID, nil
}

// AccountPayoutsEnabled checks whether a connected account finished
// onboarding far enough to receive transfers.
func (c *Client) AccountPayoutsEnabled(ctx context.Context, accountID string) (bool, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	account, err := c.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return false, fmt.Errorf("get account %s: %w", accountID, err)
	}
	return account.PayoutsEnabled, nil
}
