package payment

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

// Gateway opens a hosted checkout session and returns the URL the patient
// is redirected to. The provider sends the patient back to successURL or
// cancelURL when they are done.
type Gateway interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, amount decimal.Decimal, successURL, cancelURL string) (string, error)
}

// SandboxGateway approves every checkout immediately by redirecting
// straight to the success URL with a fake reference.
type SandboxGateway struct{}

func (SandboxGateway) Name() string { return "sandbox" }

func (SandboxGateway) CreateCheckoutSession(_ context.Context, amount decimal.Decimal, successURL, _ string) (string, error) {
	u, err := url.Parse(successURL)
	if err != nil {
		return "", fmt.Errorf("parse success url: %w", err)
	}
	q := u.Query()
	q.Set("reference", "sandbox_"+uuid.NewString())
	q.Set("amount", amount.StringFixed(2))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// paymentLinkCreator is the part of the razorpay client used here.
type paymentLinkCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway creates Razorpay payment links. Payment links have no
// cancel redirect, so cancelURL is only recorded in the link notes.
type RazorpayGateway struct {
	links    paymentLinkCreator
	currency string
}

func NewRazorpayGateway(keyID, keySecret, currency string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{links: client.PaymentLink, currency: currency}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

func (g *RazorpayGateway) CreateCheckoutSession(_ context.Context, amount decimal.Decimal, successURL, cancelURL string) (string, error) {
	data := map[string]interface{}{
		// Razorpay amounts are in the smallest currency unit.
		"amount":          amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		"currency":        g.currency,
		"description":     "MedBook consultation",
		"callback_url":    successURL,
		"callback_method": "get",
		"notes": map[string]interface{}{
			"cancel_url": cancelURL,
		},
	}
	body, err := g.links.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("create razorpay payment link: %w", err)
	}
	link, ok := body["short_url"].(string)
	if !ok || link == "" {
		return "", fmt.Errorf("razorpay payment link response has no short_url")
	}
	return link, nil
}
