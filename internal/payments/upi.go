package payments

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/malabartours/bookings/internal/domain"
)

// UPIProvider renders a upi:// deep link and its QR code. Collection is
// confirmed out of band through the payment callback.
type UPIProvider struct {
	vpa       string
	payeeName string
}

func NewUPIProvider(vpa, payeeName string) *UPIProvider {
	return &UPIProvider{vpa: vpa, payeeName: payeeName}
}

func (p *UPIProvider) CreateCharge(_ context.Context, req *domain.PaymentRequest, description string) (*ChargeDetails, error) {
	v := url.Values{}
	v.Set("pa", p.vpa)
	v.Set("pn", p.payeeName)
	v.Set("am", fmt.Sprintf("%d", req.Amount))
	v.Set("cu", req.Currency)
	v.Set("tn", description)
	v.Set("tr", req.ID)
	link := "upi://pay?" + v.Encode()

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode UPI QR: %w", err)
	}

	return &ChargeDetails{
		QR:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Link: link,
	}, nil
}
