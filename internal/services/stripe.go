package services

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/config"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/refund"
)

type SessionLineItem struct {
	Name      string
	UnitPrice float64
	Quantity  int
}

type CheckoutSessionInput struct {
	OrderID       string
	CustomerEmail string // vide pour un invité sans e-mail connu
	Items         []SessionLineItem
	ExpiresAt     time.Time
}

type PaymentSession struct {
	URL       string
	ExpiresAt time.Time
}

// PaymentProvider est le collaborateur de paiement externe. L'implémentation
// réelle parle à Stripe ; les tests utilisent un faux.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*PaymentSession, error)
	CreateRefund(ctx context.Context, paymentIntentID string, metadata map[string]string) (string, error)
}

type StripeProvider struct{}

func NewStripeProvider() *StripeProvider {
	return &StripeProvider{}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*PaymentSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.Items))
	for _, item := range in.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("eur"),
				UnitAmount: stripe.Int64(int64(math.Round(item.UnitPrice * 100))),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	baseURL := config.BaseURL()
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(baseURL + "/checkout/success"),
		CancelURL:          stripe.String(baseURL + "/checkout/cancel"),
		ExpiresAt:          stripe.Int64(in.ExpiresAt.Unix()),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"FR", "BE", "LU", "CH"}),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", in.OrderID)
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}

	log.Printf("💳 Session Stripe créée pour la commande %s (expire à %s)", in.OrderID, time.Unix(sess.ExpiresAt, 0).Format(time.RFC3339))

	return &PaymentSession{
		URL:       sess.URL,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// CreateRefund n'est utilisé que sur le chemin « commande annulée puis
// payée en retard » : on rembourse au lieu d'expédier.
func (p *StripeProvider) CreateRefund(ctx context.Context, paymentIntentID string, metadata map[string]string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	r, err := refund.New(params)
	if err != nil {
		return "", err
	}

	log.Printf("💰 Remboursement Stripe créé: %s (intent %s)", r.ID, paymentIntentID)
	return r.ID, nil
}
