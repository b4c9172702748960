package payments

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/malabartours/bookings/internal/domain"
)

// StripeProvider collects card payments through a Stripe PaymentIntent. The
// client secret is handed back as the link payload for the booking widget.
type StripeProvider struct{}

func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (p *StripeProvider) CreateCharge(ctx context.Context, req *domain.PaymentRequest, description string) (*ChargeDetails, error) {
	params := &stripe.PaymentIntentParams{
		// Stripe amounts are in the smallest currency unit.
		Amount:      stripe.Int64(req.Amount * 100),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(description),
		Metadata: map[string]string{
			"booking_id":         req.BookingID,
			"payment_request_id": req.ID,
		},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}

	return &ChargeDetails{Link: pi.ClientSecret}, nil
}
