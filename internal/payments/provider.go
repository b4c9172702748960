package payments

import (
	"context"

	"github.com/malabartours/bookings/internal/domain"
)

// ChargeDetails is what a provider hands back for a freshly issued payment
// request: a QR payload, a link, or both.
type ChargeDetails struct {
	QR   string
	Link string
}

// Provider creates a collectable charge for a payment request. Failures are
// wrapped as domain.UpstreamError by the caller.
type Provider interface {
	CreateCharge(ctx context.Context, req *domain.PaymentRequest, description string) (*ChargeDetails, error)
}
