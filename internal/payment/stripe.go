// Package payment creates hosted checkout sessions with Stripe.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// CheckoutRequest describes a one-item payment for a tour.
type CheckoutRequest struct {
	TourID        uint64
	TourName      string
	Summary       string
	ImageURL      string
	Price         float64 // major units
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	StartDate     *time.Time
}

// CheckoutSession is the provider's answer.  URL is where the client pays.
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
}

// Error is an API error answered by the provider.
type Error struct {
	Status  int
	Type    string
	Message string
}

// Error formats status, type and message.
func (e *Error) Error() string {
	return fmt.Sprintf("stripe: %d %s: %s", e.Status, e.Type, e.Message)
}

// Config holds the client settings.  APIURL and HTTPClient override the
// defaults in tests; MaxRetries of zero disables network retries.
type Config struct {
	SecretKey  string
	APIURL     string
	HTTPClient *http.Client
	MaxRetries int64
}

// StripeClient creates Checkout Sessions through stripe-go.
type StripeClient struct {
	sessions session.Client
	newKey   func() string
}

// NewStripeClient builds a client with its own backend, so the secret key
// and URL never touch stripe-go's package globals.
func NewStripeClient(cfg Config) *StripeClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	bc := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.APIURL != "" {
		bc.URL = stripe.String(strings.TrimRight(cfg.APIURL, "/"))
	}
	return &StripeClient{
		sessions: session.Client{B: stripe.GetBackendWithConfig(stripe.APIBackend, bc), Key: cfg.SecretKey},
		newKey:   uuid.NewString,
	}
}

// UnitAmount converts a major-unit price to the provider's minor units.
func UnitAmount(price float64) int64 { return int64(math.Round(price * 100)) }

// Params maps r onto the Checkout Session parameters.
func (r CheckoutRequest) Params() *stripe.CheckoutSessionParams {
	tourID := strconv.FormatUint(r.TourID, 10)

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(r.TourName)}
	if r.Summary != "" {
		product.Description = stripe.String(r.Summary)
	}
	if r.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{r.ImageURL})
	}

	p := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(r.SuccessURL),
		CancelURL:          stripe.String(r.CancelURL),
		ClientReferenceID:  stripe.String(tourID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(r.Currency)),
				UnitAmount:  stripe.Int64(UnitAmount(r.Price)),
				ProductData: product,
			},
		}},
		InvoiceCreation: &stripe.CheckoutSessionInvoiceCreationParams{Enabled: stripe.Bool(true)},
	}
	p.AddMetadata("tour_id", tourID)
	if r.CustomerEmail != "" {
		p.CustomerEmail = stripe.String(r.CustomerEmail)
	}
	if r.StartDate != nil {
		p.InvoiceCreation.InvoiceData = &stripe.CheckoutSessionInvoiceCreationInvoiceDataParams{
			Metadata: map[string]string{"tourStartDate": r.StartDate.UTC().Format(time.RFC3339)},
		}
	}
	return p
}

// CreateCheckoutSession creates a payment session.  Each call carries a
// fresh idempotency key.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, r CheckoutRequest) (CheckoutSession, error) {
	p := r.Params()
	p.Context = ctx
	p.SetIdempotencyKey(c.newKey())

	s, err := c.sessions.New(p)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return CheckoutSession{}, &Error{Status: se.HTTPStatusCode, Type: string(se.Type), Message: se.Msg}
		}
		return CheckoutSession{}, fmt.Errorf("stripe: create session: %w", err)
	}
	if s.ID == "" {
		return CheckoutSession{}, errors.New("stripe: session without id")
	}
	out := CheckoutSession{
		ID:          s.ID,
		URL:         s.URL,
		AmountTotal: s.AmountTotal,
		Currency:    string(s.Currency),
		Status:      string(s.Status),
	}
	if s.PaymentIntent != nil {
		out.PaymentIntent = s.PaymentIntent.ID
	}
	return out, nil
}
